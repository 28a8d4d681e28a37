package vm

import (
	"vmcore/cpu"
	"vmcore/mem"
	"vmcore/sched"
)

// Clone produces an independent AddressSpace whose leaves are populated
// from this address space's present, SHARED leaves: bare SHARED leaves
// alias the source frame, SHARED|COPY leaves get a freshly allocated frame
// with duplicated contents, and leaves without SHARED are private and not
// inherited. Distilled spec §4.7.
//
// Preconditions: the scheduler is paused and interrupts are disabled for
// the duration of the walk (Clone does this itself); as must be the
// current address space, since the COPY path's copy_page_physical reloads
// CR3 via current.Activate() as part of flushing the scratch mappings it
// uses.
func (as *AddressSpace) Clone(scheduler sched.Scheduler) *AddressSpace {
	cpu.CLI()
	scheduler.Pause()
	defer cpu.STI()

	result := &AddressSpace{}
	result.InitEmpty()

	walkLeaves(as.root, func(idx [levels]int, leaf *PageTableNode, slot int) {
		addr := addrFromIndices(idx)
		old := descriptorFor(leaf, slot, addr)

		if old.entry.Address == mem.AddrTrap {
			fatalCorruption(addr)
		}
		if !old.Attrs().Shared() {
			return
		}

		page := result.GetPage(addr, true)
		*page.entry = *old.entry
		*page.attrs = *old.attrs
		*page.vslot = *old.vslot
		*page.name = *old.name

		if old.Attrs().Copy() {
			page.entry.Present = false
			page = result.AllocatePage(page, old.Attrs())
			copyPagePhysical(old.entry.Address, page.entry.Address)
		}
	})

	return result
}
