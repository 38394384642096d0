package vmm

// entriesPerTable is the number of entries in every level of the x86_64
// paging hierarchy (512 = 4 KiB / 8 bytes).
const entriesPerTable = 512

// Table is one page table at any level: PML4, PDPT, PD or PT. Its layout is
// exactly the hardware's: Table must never carry Go-side fields, since the
// kernel addresses live instances of it directly through their frame's HHDM
// virtual address.
type Table struct {
	entries [entriesPerTable]Entry
}

// Entry returns a pointer to the entry at index, so callers can mutate it
// in place.
func (t *Table) Entry(index uint64) *Entry {
	return &t.entries[index]
}
