package mem

// PhysicalMemory is a byte-addressable simulation of the machine's
// physical RAM, indexed by frame number. Real hardware and a real kernel
// need no such thing — a mapped virtual address simply dereferences to the
// right physical bytes through the MMU. This module runs hosted (no MMU
// a Go program can program directly), so cross-address-space transfer
// (vm's copyPagePhysical/WritePage/Write) reads and writes frame contents
// here once it has resolved which frame a scratch-slot mapping points at —
// the same role biscuit's direct map (mem/dmap.go: Dmap/Dmap8, "a
// page-aligned virtual address for the given physical address using the
// direct mapping") plays for that codebase.
type PhysicalMemory struct {
	bytes []byte
}

// NewPhysicalMemory allocates simulated RAM covering frameCount frames.
func NewPhysicalMemory(frameCount int) *PhysicalMemory {
	return &PhysicalMemory{bytes: make([]byte, frameCount*PGSIZE)}
}

// PhysMem is the simulated RAM every AddressSpace's frames are backed by.
// Like vm.Frames, it is set once during kernel bring-up, before the kernel
// address space is built and first activated, and is nil until then; tests
// set it in their own setup instead of relying on kernel bring-up.
var PhysMem *PhysicalMemory

// Bytes returns the n-byte window of simulated RAM starting at frame's
// first byte. n is expected to be PGSIZE for whole-frame access; callers
// slice the result for intra-page offsets.
func (p *PhysicalMemory) Bytes(frame Frame, n int) []byte {
	off := frame.Addr()
	return p.bytes[off : off+uintptr(n)]
}
