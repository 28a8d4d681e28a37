package vm

import (
	"fmt"
	"sync"
	"unsafe"

	"vmcore/cpu"
	"vmcore/mem"
	"vmcore/util"
)

// KernelSpace is the process-wide singleton for the kernel's own mapping.
// Distilled spec §3: "a static kernelSpace (singleton for the kernel's own
// mapping)".
var KernelSpace = &AddressSpace{}

// current is the address space whose root is live in CR3 right now, or nil
// before the first Activate. Distilled spec §3 invariant 1: current == X
// iff CR3 holds X.root's physical address.
var current *AddressSpace

// Frames is the physical frame allocator every AddressSpace maps through.
// It is set once during kernel bring-up, before the kernel address space is
// built and first activated, and consumed only via mem.FrameAllocator's
// three methods, per distilled spec §1.
var Frames mem.FrameAllocator

// AddressSpace owns one root PageTableNode and exposes the full
// map/allocate/release/translate/clone/activate surface. Distilled spec §3.
type AddressSpace struct {
	mu   sync.Mutex
	root *PageTableNode
}

// InitEmpty allocates an empty root node, making the AddressSpace usable.
// Distilled spec §4 lifecycle: "Created by default construction with
// root = nil; made usable by initEmpty() which allocates the root."
func (as *AddressSpace) InitEmpty() {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.root == nil {
		as.root = newNode()
	}
}

// Root exposes the root node for callers that need to walk the tree
// directly (Clone, destroy, Dump) without resolving every address through
// GetPage, per DESIGN.md's resolution of the redundant-getPage Open
// Question.
func (as *AddressSpace) Root() *PageTableNode { return as.root }

// GetPage resolves virt to a PageDescriptor, walking (and, if create is
// true, extending) the radix tree. Distilled spec §4.1.
func (as *AddressSpace) GetPage(virt uintptr, create bool) PageDescriptor {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.getPageLocked(virt, create)
}

func (as *AddressSpace) getPageLocked(virt uintptr, create bool) PageDescriptor {
	idx := pageIndices(virt)
	node := as.root

	for lvl := 0; lvl < levels-1; lvl++ {
		i := idx[lvl]
		slot := &node.slots[i]

		if !slot.pte.Present || slot.pte.Address == mem.AddrTrap {
			if !create {
				return PageDescriptor{Virt: virt}
			}
			child := newNode()
			node.setChild(i, child)
			slot.pte.Present = true
			slot.pte.Address = as.childFrame(child)
			node = child
			continue
		}

		if slot.pte.Address == mem.AddrTrap {
			fatalCorruption(virt)
		}
		node = node.child(i)
		if node == nil {
			fatalCorruption(virt)
		}
	}

	leaf := idx[levels-1]
	node.slots[leaf].vslot = virt // leaf debug overload, see node.go
	return descriptorFor(node, leaf, virt)
}

// childFrame resolves the physical frame backing a freshly allocated
// interior node. Distilled spec §4.1 / §9 "Self-referential CR3 during
// walk" requires that a new interior node already be reachable through the
// kernel half of the current AS before it is linked in — in practice this
// means kernel heap storage (where every PageTableNode lives) is
// identity-mapped by the boot-time bring-up this module assumes it is
// handed (§1, "the core assumes it is handed an identity- or
// higher-half-mapped early-boot mapping"). Boot-time bring-up is out of
// scope here, so that assumption is taken unconditionally rather than
// walking current's tables to rediscover it.
func (as *AddressSpace) childFrame(child *PageTableNode) mem.Frame {
	return mem.FrameOf(nodeAddr(child))
}

func fatalCorruption(virt uintptr) {
	fmt.Printf("vm: corrupted page table: ADDR_TRAP present at virtual address %#x\n", virt)
	panic("vm: page table corruption")
}

// GetPhysicalAddress translates virt to a physical byte address. Distilled
// spec §4.2: undefined behavior if the page is not present — callers must
// check GetPage(virt, false).Present() first.
func (as *AddressSpace) GetPhysicalAddress(virt uintptr) uintptr {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.getPhysicalAddressLocked(virt)
}

func (as *AddressSpace) getPhysicalAddressLocked(virt uintptr) uintptr {
	d := as.getPageLocked(virt, false)
	return uintptr(d.entry.Address)*mem.PGSIZE + (virt & mem.PGOFFSET)
}

// MapPage marks phy allocated in the frame allocator and installs it at
// page's slot with attrs. Distilled spec §4.3.
func (as *AddressSpace) MapPage(page PageDescriptor, phy mem.Frame, attrs PageAttr) PageDescriptor {
	Frames.MarkAllocated(phy)
	page.entry.Present = true
	page.entry.User = true
	page.entry.RW = true
	page.entry.Address = phy
	*page.attrs = attrs
	*page.vslot = page.Virt
	return page
}

// NamePage assigns a debug name to page, purely for diagnostics. Distilled
// spec §4.3.
func (as *AddressSpace) NamePage(page PageDescriptor, name string) {
	*page.name = name
}

// AllocatePage pulls a fresh frame from the allocator and maps it, unless
// page is already present. Distilled spec §4.3.
func (as *AddressSpace) AllocatePage(page PageDescriptor, attrs PageAttr) PageDescriptor {
	if page.entry.Present {
		return page
	}
	frame, ok := Frames.Allocate()
	if !ok {
		return page
	}
	return as.MapPage(page, frame, attrs)
}

// ReleasePage returns page's frame to the allocator and resets the slot to
// the initial not-present/ADDR_TRAP state. Distilled spec §4.5.
func (as *AddressSpace) ReleasePage(page PageDescriptor) {
	if !page.entry.Present {
		return
	}
	Frames.Release(page.entry.Address)
	*page.entry = emptyEntry()
}

// AllocateSpace allocates every page in [base, base+size), rounding the
// interval outward to page boundaries. Idempotent: pages already present
// are left untouched. Distilled spec §4.4.
func (as *AddressSpace) AllocateSpace(base, size uintptr, attrs PageAttr) {
	base, top := alignRangeOutward(base, size)
	for v := base; v < top; v += mem.PGSIZE {
		as.AllocatePage(as.GetPage(v, true), attrs)
	}
}

// ReleaseSpace releases every page in [base, base+size), rounding the
// interval outward to page boundaries. Releasing an absent page is a
// no-op. Distilled spec §4.4.
func (as *AddressSpace) ReleaseSpace(base, size uintptr) {
	base, top := alignRangeOutward(base, size)
	for v := base; v < top; v += mem.PGSIZE {
		as.ReleasePage(as.GetPage(v, true))
	}
}

func alignRangeOutward(base, size uintptr) (uintptr, uintptr) {
	top := base + size
	base = util.Rounddown(base, uintptr(mem.PGSIZE))
	top = util.Roundup(top, uintptr(mem.PGSIZE))
	return base, top
}

// Activate writes CR3 to this address space's root and records it as
// current. Node storage is identity-mapped (see childFrame), so the
// root's physical address is its own address. Distilled spec §4.6.
func (as *AddressSpace) Activate() {
	cpu.SetCR3(nodeAddr(as.root))
	current = as
}

// Current returns the address space currently loaded in CR3, or nil before
// the first Activate.
func Current() *AddressSpace { return current }

func nodeAddr(n *PageTableNode) uintptr {
	return uintptr(unsafe.Pointer(n))
}
