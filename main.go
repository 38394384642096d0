package main

import (
	"nucleus/kernel/boot"
	"nucleus/kernel/kmain"
)

// bootInfo is populated by the platform bring-up glue (rt0 assembly plus the
// Limine boot protocol decoder, spec.md §1, deliberately out of this core's
// scope) before it jumps to main. It is a package-level variable, not a
// parameter, for the same reason the teacher's stub entrypoint threaded its
// multiboot pointer through a global: a call reached only through a global
// the compiler can't prove constant keeps it from inlining main away and
// dropping the real kernel code from the generated object file.
var bootInfo boot.Info

// main is the only Go symbol visible from the rt0 initialization code. It is
// invoked after rt0 sets up the GDT and a minimal g0 struct running on the
// small stack the assembly allocated.
//
// main is not expected to return. If it does, the rt0 code halts the CPU.
func main() {
	kmain.Kmain(&bootInfo)
}
