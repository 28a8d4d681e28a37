package vm

import (
	"testing"

	"vmcore/mem"
	"vmcore/sched"
)

func TestCloneMixedAttributes(t *testing.T) {
	setupTest(t)
	a := &AddressSpace{}
	a.InitEmpty()
	a.Activate()

	a.AllocatePage(a.GetPage(0x1000, true), AttrShared|AttrUser)
	p2 := a.AllocatePage(a.GetPage(0x2000, true), AttrShared|AttrCopy|AttrUser)
	a.AllocatePage(a.GetPage(0x3000, true), AttrUser)

	mem.PhysMem.Bytes(p2.Entry().Address, mem.PGSIZE)[0] = 0x42

	b := a.Clone(sched.Noop{})

	if !b.GetPage(0x1000, false).Present() {
		t.Fatal("P1 (SHARED) should be present in the clone")
	}
	if b.GetPhysicalAddress(0x1000) != a.GetPhysicalAddress(0x1000) {
		t.Fatal("P1 should alias the same frame in both address spaces")
	}

	if !b.GetPage(0x2000, false).Present() {
		t.Fatal("P2 (SHARED|COPY) should be present in the clone")
	}
	aPhys, bPhys := a.GetPhysicalAddress(0x2000), b.GetPhysicalAddress(0x2000)
	if aPhys == bPhys {
		t.Fatal("P2 should get a distinct frame on clone")
	}
	bFrame := mem.FrameOf(bPhys)
	if got := mem.PhysMem.Bytes(bFrame, 1)[0]; got != 0x42 {
		t.Fatalf("P2 clone contents = %#x, want 0x42", got)
	}

	aFrame := mem.FrameOf(aPhys)
	mem.PhysMem.Bytes(aFrame, 1)[0] = 0x99
	if got := mem.PhysMem.Bytes(bFrame, 1)[0]; got != 0x42 {
		t.Fatal("mutating A's COPY page should not affect B's frame")
	}

	if b.GetPage(0x3000, false).Present() {
		t.Fatal("P3 (private) should not be present in the clone")
	}
}

func TestClonePausesScheduler(t *testing.T) {
	setupTest(t)
	a := &AddressSpace{}
	a.InitEmpty()
	a.Activate()

	paused := false
	a.Clone(pauseRecorder{&paused})

	if !paused {
		t.Fatal("Clone must pause the scheduler for the duration of the walk")
	}
}

type pauseRecorder struct{ paused *bool }

func (p pauseRecorder) Pause() { *p.paused = true }
