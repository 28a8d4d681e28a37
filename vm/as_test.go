package vm

import (
	"testing"

	"vmcore/mem"
)

func TestEmptyMapLookup(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()

	if got := as.GetPage(0x1000, false); got.Entry() != nil {
		t.Fatalf("GetPage(create=false) on an empty tree returned a non-nil entry")
	}

	got := as.GetPage(0x1000, true)
	if got.Entry() == nil {
		t.Fatal("GetPage(create=true) should always return a slot")
	}
	if got.Present() {
		t.Fatal("a freshly created slot must not be present")
	}
}

func TestAllocateSpaceRoundTripAndIdempotence(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()

	as.AllocateSpace(0x4_0000, mem.PGSIZE, AttrUser)
	bitmap := Frames.(*mem.BitmapAllocator)
	freeAfterFirst := bitmap.Free()

	phys := as.GetPhysicalAddress(0x4_0010)
	frame := mem.FrameOf(phys)
	if phys != frame.Addr()+0x10 {
		t.Fatalf("GetPhysicalAddress(0x4_0010) = %#x, want frame-aligned + 0x10", phys)
	}
	if !as.GetPage(0x4_0000, false).Present() {
		t.Fatal("page backing 0x4_0000 should be present after AllocateSpace")
	}

	as.AllocateSpace(0x4_0000, mem.PGSIZE, AttrUser)
	if got := bitmap.Free(); got != freeAfterFirst {
		t.Fatalf("AllocateSpace is not idempotent: free frames %d -> %d", freeAfterFirst, got)
	}
}

func TestAllocateSpaceUnalignedRange(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()

	as.AllocateSpace(0x4_0FFF, 2, AttrUser)

	if !as.GetPage(0x4_0000, false).Present() {
		t.Fatal("page containing 0x4_0FFF should be present")
	}
	if !as.GetPage(0x4_1000, false).Present() {
		t.Fatal("page containing 0x4_1000 should be present")
	}
}

func TestReleaseSpaceIdempotent(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()
	as.AllocateSpace(0x8000, 3*mem.PGSIZE, AttrUser)

	as.ReleaseSpace(0x8000, 3*mem.PGSIZE)
	bitmap := Frames.(*mem.BitmapAllocator)
	freeAfterFirst := bitmap.Free()

	as.ReleaseSpace(0x8000, 3*mem.PGSIZE)
	if got := bitmap.Free(); got != freeAfterFirst {
		t.Fatalf("ReleaseSpace is not idempotent: free frames %d -> %d", freeAfterFirst, got)
	}

	for v := uintptr(0x8000); v < 0x8000+3*mem.PGSIZE; v += mem.PGSIZE {
		if as.GetPage(v, false).Present() {
			t.Fatalf("page at %#x still present after ReleaseSpace", v)
		}
	}
}

func TestCanonicalHoleSymmetry(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()

	as.AllocateSpace(holeTop, mem.PGSIZE, AttrUser)

	if !as.GetPage(holeTop, false).Present() {
		t.Fatal("page mapped at the top of the canonical hole should be present")
	}
	if pageIndices(holeTop) != pageIndices(holeBase) {
		t.Fatalf("holeTop and holeBase should collapse to the same index path: %v vs %v",
			pageIndices(holeTop), pageIndices(holeBase))
	}

	phys := as.GetPhysicalAddress(holeTop)
	if mem.FrameOf(phys) == mem.AddrTrap {
		t.Fatal("canonical-hole page resolved to the ADDR_TRAP sentinel")
	}
}
