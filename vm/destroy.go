package vm

import "vmcore/mem"

// Close tears down the address space: every present leaf whose attributes
// mark it COPY-owned has its frame returned to the allocator, then every
// interior node is freed bottom-up, then the root itself. Distilled spec
// §3 invariant 5 ("no physical frame outlives every address space that
// references it with COPY ownership") and §4.5.
//
// SHARED-without-COPY leaves are not released here: this address space
// holds only a loose reference to a frame some other address space (or
// the frame allocator's initial owner) is responsible for, per
// AddressSpace.cc's destructor.
func (as *AddressSpace) Close() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.root == nil {
		return
	}

	walkLeaves(as.root, func(idx [levels]int, leaf *PageTableNode, slot int) {
		s := &leaf.slots[slot]
		if s.pte.Address == mem.AddrTrap {
			fatalCorruption(addrFromIndices(idx))
		}
		if s.attrs.Copy() {
			Frames.Release(s.pte.Address)
		}
		s.pte = emptyEntry()
	})

	freeInterior(as.root, 0)
	as.root = nil
}

// freeInterior recursively visits every interior node below node (node
// itself included), once its leaves have already been released by Close.
// Leaf-level nodes (level == levels-1) own no children to recurse into.
// It frees nothing itself: the nodes are Go heap objects, dropped when
// Close clears the root.
func freeInterior(node *PageTableNode, level int) {
	if level < levels-1 {
		for i := 0; i < entries; i++ {
			slot := &node.slots[i]
			if !slot.pte.Present {
				continue
			}
			if child := node.child(i); child != nil {
				freeInterior(child, level+1)
			}
		}
	}
	// node itself becomes garbage once unreferenced; Go's GC reclaims it.
}

// Release is the deliberately empty counterpart original_source gives
// AddressSpace::release(): a hook some callers invoke before Close to
// signal "give back what you can without tearing down the structure
// itself", reserved for a future allocator that wants early notice.
// SPEC_FULL.md §7 supplemented features.
func (as *AddressSpace) Release() {}
