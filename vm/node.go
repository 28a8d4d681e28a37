// Package vm implements the virtual-memory core: the 4-level x86_64
// page-table radix tree and the AddressSpace operations built on it
// (map/allocate/release/translate/clone/activate), plus cross-address-space
// transfer and diagnostics.
//
// Grounded on original_source/src/kernel/memory/AddressSpace.cc (the C++
// this module's spec was distilled from) for the data model and algorithms,
// written in the idiom of biscuit/src/vm (Oichkatzelesfrettschen-biscuit)
// and gopher-os/kernel/mem/vmm for Go structure and testability seams.
package vm

import (
	"unsafe"

	"vmcore/mem"
)

// entries is the fan-out of every level of the radix tree: PML4, PDPT, PD
// and PT are each exactly 512-entry tables on x86_64.
const entries = 512

// levels is the depth of the radix tree (PML4, PDPT, PD, PT).
const levels = 4

// PageAttr records per-leaf clone and access-control semantics. Distilled
// spec §3.
type PageAttr uint8

const (
	// AttrShared marks a leaf as inherited by clone: the child address
	// space gets the same entry, attributes, and debug name.
	AttrShared PageAttr = 1 << iota
	// AttrCopy, only meaningful alongside AttrShared, marks a leaf whose
	// clone gets a freshly allocated frame with duplicated contents
	// (copy-on-clone, not copy-on-write).
	AttrCopy
	// AttrUser mirrors the hardware user-accessible bit, carried in the
	// attribute byte purely for diagnostics.
	AttrUser
)

// Shared reports whether attr has AttrShared set.
func (attr PageAttr) Shared() bool { return attr&AttrShared != 0 }

// Copy reports whether attr has AttrCopy set.
func (attr PageAttr) Copy() bool { return attr&AttrCopy != 0 }

// User reports whether attr has AttrUser set.
func (attr PageAttr) User() bool { return attr&AttrUser != 0 }

// String renders attr as the three-letter-flag form the diagnostics dump
// uses ("SHR USR CPY" style), matching AddressSpace.cc's recursiveDump.
func (attr PageAttr) String() string {
	shr, usr, cpy := "---", "---", "---"
	if attr.Shared() {
		shr = "SHR"
	}
	if attr.User() {
		usr = "USR"
	}
	if attr.Copy() {
		cpy = "CPY"
	}
	return shr + " " + usr + " " + cpy
}

// PageTableEntry mirrors the hardware PTE bit layout: present, rw, user
// bits plus the frame number. Distilled spec §3.
type PageTableEntry struct {
	Present bool
	RW      bool
	User    bool
	Address mem.Frame // frame number; mem.AddrTrap when never populated
}

func emptyEntry() PageTableEntry {
	return PageTableEntry{RW: true, User: true, Address: mem.AddrTrap}
}

// nodeSlot is one of a PageTableNode's 512 parallel slots: the hardware
// entry, the one-byte attribute field, the dual-purpose virtual-node
// pointer (§3: child pointer at interior levels, last-resolved virtual
// address at the leaf level), and an optional debug name.
type nodeSlot struct {
	pte   PageTableEntry
	attrs PageAttr
	// vslot is the dual-purpose field from AddressSpace.cc's
	// entriesVirtual: at interior levels it holds unsafe.Pointer(child)
	// reinterpreted as a uintptr; at the leaf level getPage overwrites it
	// with the raw virtual address being resolved, exactly as the
	// original's "root->entriesVirtual[page % 512] = (page_tree_node_t*)virt"
	// does. See DESIGN.md, Open Question 1.
	vslot uintptr
	name  string
}

// PageTableNode is one 512-entry level of the radix tree. Distilled spec §3.
type PageTableNode struct {
	slots [entries]nodeSlot
}

func newNode() *PageTableNode {
	n := &PageTableNode{}
	for i := range n.slots {
		n.slots[i].pte = emptyEntry()
	}
	return n
}

// child returns the node pointed to by slot idx's virtual-node pointer,
// interpreting vslot as an interior child pointer.
func (n *PageTableNode) child(idx int) *PageTableNode {
	return (*PageTableNode)(unsafe.Pointer(n.slots[idx].vslot))
}

// setChild records child as the interior node reached through slot idx.
func (n *PageTableNode) setChild(idx int, child *PageTableNode) {
	n.slots[idx].vslot = uintptr(unsafe.Pointer(child))
}

// PageDescriptor is the transient handle getPage returns: pointers into one
// leaf slot's four parallel fields plus the virtual address that resolved
// to it. It is valid only until the owning node is mutated. Distilled spec
// §3/§4.1.
type PageDescriptor struct {
	Virt uintptr

	entry *PageTableEntry
	attrs *PageAttr
	name  *string
	vslot *uintptr
}

// Entry returns the hardware page-table entry, or nil if the slot does not
// exist (an absent lookup with create=false).
func (d PageDescriptor) Entry() *PageTableEntry { return d.entry }

// Present reports whether the descriptor names a populated slot.
func (d PageDescriptor) Present() bool { return d.entry != nil && d.entry.Present }

// Attrs returns the attribute byte for the slot.
func (d PageDescriptor) Attrs() PageAttr {
	if d.attrs == nil {
		return 0
	}
	return *d.attrs
}

// Name returns the debug name assigned via AddressSpace.NamePage, or "" if
// none was set.
func (d PageDescriptor) Name() string {
	if d.name == nil {
		return ""
	}
	return *d.name
}

func descriptorFor(n *PageTableNode, idx int, virt uintptr) PageDescriptor {
	s := &n.slots[idx]
	return PageDescriptor{
		Virt:  virt,
		entry: &s.pte,
		attrs: &s.attrs,
		name:  &s.name,
		vslot: &s.vslot,
	}
}
