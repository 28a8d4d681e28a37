package vm

import "vmcore/mem"

// holeBase and holeTop bound the x86_64 canonical hole
// [0x0000_8000_0000_0000, 0xFFFF_8000_0000_0000). Distilled spec §4.1.
const (
	holeBase uintptr = 0x0000_8000_0000_0000
	holeTop  uintptr = 0xFFFF_8000_0000_0000
	holeSize uintptr = 0xFFFF_0000_0000_0000
)

// collapse maps a canonical 64-bit virtual address into the contiguous
// 48-bit index space the radix tree actually uses, folding the upper half
// of the canonical hole down next to the lower half. Distilled spec §4.1:
// "virtual addresses >= 0xFFFF_8000_0000_0000 are treated as if
// -= 0xFFFF_0000_0000_0000 for index computation".
func collapse(virt uintptr) uintptr {
	if virt >= holeTop {
		return virt - holeSize
	}
	return virt
}

// expand is collapse's inverse, used when re-deriving a canonical virtual
// address from a page index (clone, dump).
func expand(fixed uintptr) uintptr {
	if fixed >= holeBase && fixed < holeTop {
		return fixed + holeSize
	}
	return fixed
}

// pageIndices returns the four 9-bit indices (PML4, PDPT, PD, PT) selecting
// the path to virt's leaf slot. Distilled spec §4.1.
func pageIndices(virt uintptr) [levels]int {
	page := collapse(virt) / mem.PGSIZE
	return [levels]int{
		int((page >> 27) & 0x1FF),
		int((page >> 18) & 0x1FF),
		int((page >> 9) & 0x1FF),
		int(page & 0x1FF),
	}
}

// addrFromIndices reconstructs the canonical virtual address of the page
// selected by idx[0..3], the inverse of pageIndices+collapse. Used by
// Clone, destroy and Dump, which walk the tree by index rather than by
// probing addresses with getPage (distilled spec §9, Open Question 2).
func addrFromIndices(idx [levels]int) uintptr {
	page := uintptr(idx[0])
	for i := 1; i < levels; i++ {
		page = page*entries + uintptr(idx[i])
	}
	return expand(page * mem.PGSIZE)
}
