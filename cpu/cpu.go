// Package cpu exposes the handful of CPU control-register primitives the
// virtual-memory core depends on. Real implementations back these with
// inline assembly; this package exposes them as swappable function
// variables so tests can run on a hosted Go toolchain instead of bare
// metal, the same seam gopher-os uses for activePDTFn/switchPDTFn in
// kernel/mem/vmm/pdt.go.
package cpu

// SetCR3Fn writes phys to CR3, reloading the active page-table root and
// flushing the TLB. Overridden in tests; on real hardware this is a single
// MOV to %cr3.
var SetCR3Fn = func(phys uintptr) {
	panic("cpu: SetCR3Fn not wired to hardware or a test fake")
}

// CLIFn disables interrupts on the current CPU.
var CLIFn = func() {}

// STIFn re-enables interrupts on the current CPU.
var STIFn = func() {}

// IdleFn halts the CPU until the next interrupt. It is not used by the
// virtual-memory core directly but is part of the primitive set distilled
// spec §6 names, so it lives here alongside the others.
var IdleFn = func() {}

// SetCR3 writes phys to CR3 and records it as the active page-table root.
func SetCR3(phys uintptr) { SetCR3Fn(phys) }

// CLI disables interrupts on the current CPU.
func CLI() { CLIFn() }

// STI re-enables interrupts on the current CPU.
func STI() { STIFn() }

// Idle halts the CPU until the next interrupt.
func Idle() { IdleFn() }
