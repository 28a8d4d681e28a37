package vm

import (
	"vmcore/defs"
	"vmcore/mem"
	"vmcore/util"
)

// TempSlot1 and TempSlot2 are the kernel-half scratch virtual addresses
// every address space reserves for cross-address-space transfer: the
// source and destination windows copyPagePhysical, WritePage and Write map
// a frame into before touching its bytes. Distilled spec §4.8/§6, grounded
// on AddressSpace.cc's TEMP_1/TEMP_2.
const (
	TempSlot1 uintptr = 0xFFFF_8000_0010_0000
	TempSlot2 uintptr = 0xFFFF_8000_0010_1000
)

// copyPagePhysical duplicates one whole frame's contents from src to dst.
// It maps both frames into the current address space's TEMP_1/TEMP_2
// slots and reloads CR3 before touching them, exactly as
// AddressSpace.cc's copy_page_physical does; the byte movement itself
// reads through mem.PhysMem once the mapping has resolved which frames
// are involved, since this module runs hosted rather than atop a real
// MMU (see mem/physmem.go). Distilled spec §4.8.
func copyPagePhysical(src, dst mem.Frame) {
	cur := current
	cur.MapPage(cur.GetPage(TempSlot1, true), src, AttrShared)
	cur.MapPage(cur.GetPage(TempSlot2, true), dst, AttrShared)
	cur.Activate()

	copy(mem.PhysMem.Bytes(dst, mem.PGSIZE), mem.PhysMem.Bytes(src, mem.PGSIZE))
}

// WritePage copies size bytes starting at srcVirt, a virtual address in
// the current address space, to base, a virtual address in as. Both
// addresses must already be mapped, and size must fit within a single
// page from each of their intra-page offsets. Distilled spec §4.8.
func (as *AddressSpace) WritePage(srcVirt, base uintptr, size int) defs.Err_t {
	cur := current
	srcPage := util.Rounddown(srcVirt, uintptr(mem.PGSIZE))
	dstPage := util.Rounddown(base, uintptr(mem.PGSIZE))
	srcOff := srcVirt - srcPage
	dstOff := base - dstPage

	if srcOff+uintptr(size) > mem.PGSIZE || dstOff+uintptr(size) > mem.PGSIZE {
		return -defs.EINVAL
	}

	srcFrame := mem.FrameOf(cur.GetPhysicalAddress(srcPage))
	dstFrame := mem.FrameOf(as.GetPhysicalAddress(dstPage))

	cur.MapPage(cur.GetPage(TempSlot1, true), srcFrame, AttrShared)
	cur.MapPage(cur.GetPage(TempSlot2, true), dstFrame, AttrShared)
	cur.Activate()

	srcBytes := mem.PhysMem.Bytes(srcFrame, mem.PGSIZE)
	dstBytes := mem.PhysMem.Bytes(dstFrame, mem.PGSIZE)
	copy(dstBytes[dstOff:dstOff+uintptr(size)], srcBytes[srcOff:srcOff+uintptr(size)])
	return 0
}

// Write copies size bytes starting at srcVirt (in the current address
// space) to base (in as), one byte at a time, remapping TEMP_1/TEMP_2
// whenever the walk crosses a page boundary on either side. Distilled
// spec §4.8: "implementations favoring simplicity over throughput may
// copy a single byte at a time... correctness does not depend on the
// transfer granularity."
func (as *AddressSpace) Write(srcVirt, base uintptr, size int) defs.Err_t {
	cur := current
	var srcPage, dstPage uintptr
	var srcFrame, dstFrame mem.Frame
	havePage := false

	src, dst := srcVirt, base
	for i := 0; i < size; i++ {
		sp := util.Rounddown(src, uintptr(mem.PGSIZE))
		dp := util.Rounddown(dst, uintptr(mem.PGSIZE))

		if !havePage || sp != srcPage {
			srcPage = sp
			srcFrame = mem.FrameOf(cur.GetPhysicalAddress(srcPage))
			cur.MapPage(cur.GetPage(TempSlot1, true), srcFrame, AttrShared)
			cur.Activate()
		}
		if !havePage || dp != dstPage {
			dstPage = dp
			dstFrame = mem.FrameOf(as.GetPhysicalAddress(dstPage))
			cur.MapPage(cur.GetPage(TempSlot2, true), dstFrame, AttrShared)
			cur.Activate()
		}
		havePage = true

		srcByte := mem.PhysMem.Bytes(srcFrame, mem.PGSIZE)[src-srcPage]
		mem.PhysMem.Bytes(dstFrame, mem.PGSIZE)[dst-dstPage] = srcByte

		src++
		dst++
	}
	return 0
}
