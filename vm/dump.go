package vm

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vmcore/mem"
)

// DumpRange is one coalesced run of present pages: virtually and
// physically contiguous leaves, regardless of whether their attributes or
// debug names agree. Distilled spec §4.9.
type DumpRange struct {
	VirtStart uintptr
	PhysStart uintptr
	Pages     int
	Attrs     PageAttr
	Name      string
}

// Dump walks every present leaf and coalesces runs of virtually and
// physically contiguous pages into DumpRange entries, one per run. Only
// contiguity gates coalescing; a run's reported attrs/name are its first
// page's, the same simplification AddressSpace.cc's recursiveDump makes.
// Distilled spec §4.9.
func (as *AddressSpace) Dump() []DumpRange {
	as.mu.Lock()
	defer as.mu.Unlock()

	var ranges []DumpRange
	walkLeaves(as.root, func(idx [levels]int, leaf *PageTableNode, slot int) {
		s := &leaf.slots[slot]
		if s.pte.Address == mem.AddrTrap {
			fatalCorruption(addrFromIndices(idx))
		}

		virt := addrFromIndices(idx)
		phys := s.pte.Address.Addr()

		if n := len(ranges); n > 0 {
			last := &ranges[n-1]
			span := uintptr(last.Pages) * mem.PGSIZE
			if virt == last.VirtStart+span && phys == last.PhysStart+span {
				last.Pages++
				return
			}
		}
		ranges = append(ranges, DumpRange{
			VirtStart: virt,
			PhysStart: phys,
			Pages:     1,
			Attrs:     s.attrs,
			Name:      s.name,
		})
	})
	return ranges
}

// Fdump renders Dump's ranges to w, one line per run, with byte and frame
// counts grouped per locale convention rather than hand-rolled comma
// insertion. Distilled spec §4.9.
func (as *AddressSpace) Fdump(w io.Writer) error {
	p := message.NewPrinter(language.English)
	for _, r := range as.Dump() {
		length := r.Pages * mem.PGSIZE
		_, err := p.Fprintf(w, "%#016x-%#016x phys=%#016x len=%d bytes (%d pages) [%s] %q\n",
			r.VirtStart, r.VirtStart+uintptr(length), r.PhysStart, length, r.Pages, r.Attrs, r.Name)
		if err != nil {
			return err
		}
	}
	return nil
}
