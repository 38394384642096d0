package task

import "testing"

func TestNewKernelStartsInCreatedState(t *testing.T) {
	alloc := testAllocator(64)

	tk, err := NewKernel(alloc, func() {}, PriorityNormal)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	defer Remove(tk.ID())

	if tk.State() != Created {
		t.Fatalf("expected a fresh task to start Created, got %v", tk.State())
	}
	if tk.Priority() != PriorityNormal {
		t.Fatalf("expected priority Normal, got %v", tk.Priority())
	}
}

func TestTaskIDsAreUniqueAndNeverReused(t *testing.T) {
	alloc := testAllocator(64)

	a, err := NewKernel(alloc, func() {}, PriorityNormal)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	defer Remove(a.ID())

	b, err := NewKernel(alloc, func() {}, PriorityNormal)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	defer Remove(b.ID())

	if a.ID() == b.ID() {
		t.Fatal("expected distinct task ids")
	}

	Remove(a.ID())
	c, err := NewKernel(alloc, func() {}, PriorityNormal)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	defer Remove(c.ID())

	if c.ID() == a.ID() {
		t.Fatal("expected a removed task's id to never be reused")
	}
}

func TestSetStateAndPriority(t *testing.T) {
	alloc := testAllocator(64)

	tk, err := NewKernel(alloc, func() {}, PriorityLow)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	defer Remove(tk.ID())

	tk.SetState(Ready)
	if tk.State() != Ready {
		t.Fatalf("expected Ready, got %v", tk.State())
	}

	tk.SetPriority(PriorityHigh)
	if tk.Priority() != PriorityHigh {
		t.Fatalf("expected High, got %v", tk.Priority())
	}
}

func TestStateExecutable(t *testing.T) {
	cases := map[State]bool{
		Created:     true,
		Ready:       true,
		Running:     false,
		Rescheduled: false,
		Blocked:     false,
		Terminated:  false,
	}
	for state, want := range cases {
		if got := state.Executable(); got != want {
			t.Errorf("State(%v).Executable() = %v, want %v", state, got, want)
		}
	}
}

func TestGetAndRemove(t *testing.T) {
	alloc := testAllocator(64)

	tk, err := NewKernel(alloc, func() {}, PriorityNormal)
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}

	if Get(tk.ID()) != tk {
		t.Fatal("expected Get to find the just-created task")
	}

	Remove(tk.ID())
	if Get(tk.ID()) != nil {
		t.Fatal("expected Get to return nil after Remove")
	}

	// Removing an already-removed task is a no-op, not a panic.
	Remove(tk.ID())
}
