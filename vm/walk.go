package vm

import "vmcore/mem"

// leafVisitor is called once per present leaf slot encountered by
// walkLeaves, in ascending (PML4, PDPT, PD, PT) index order — the order
// AddressSpace.cc's four nested loops visit them in.
type leafVisitor func(idx [levels]int, leaf *PageTableNode, slot int)

// walkLeaves recursively visits every present leaf slot reachable from
// root, without probing addresses through GetPage. Clone, destroy, and
// Dump all used to re-derive each address and call getPage to find the
// slot they already have a pointer to (AddressSpace.cc's redundancy, and
// distilled spec §9's second Open Question); this repo consolidates that
// into one direct node-tree iterator all three use. Distilled spec §9:
// "Implementers should walk the node tree directly."
func walkLeaves(root *PageTableNode, visit leafVisitor) {
	var idx [levels]int
	walkLevel(root, 0, &idx, visit)
}

func walkLevel(node *PageTableNode, level int, idx *[levels]int, visit leafVisitor) {
	for i := 0; i < entries; i++ {
		idx[level] = i
		slot := &node.slots[i]
		if !slot.pte.Present {
			continue
		}
		if level == levels-1 {
			visit(*idx, node, i)
			continue
		}
		if slot.pte.Address == mem.AddrTrap {
			fatalCorruption(addrFromIndices(*idx))
		}
		child := node.child(i)
		if child == nil {
			fatalCorruption(addrFromIndices(*idx))
		}
		walkLevel(child, level+1, idx, visit)
	}
}
