package vm

import (
	"testing"

	"vmcore/cpu"
	"vmcore/mem"
)

// setupTest gives each test a fresh frame allocator, simulated physical
// memory, a no-op CR3 write, and no active address space. Tests run
// in-package so they can reach current, root, and the slot internals
// directly, the way AddressSpace.cc's own test harness would.
func setupTest(t *testing.T) {
	t.Helper()
	Frames = mem.NewBitmapAllocator(0, 64)
	mem.PhysMem = mem.NewPhysicalMemory(64)
	cpu.SetCR3Fn = func(uintptr) {}
	current = nil
	t.Cleanup(func() { current = nil })
}
