package vm

import (
	"bytes"
	"testing"

	"vmcore/mem"
)

func TestDumpCoalescesContiguousRuns(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()

	as.AllocateSpace(0x1000, 3*mem.PGSIZE, AttrUser|AttrShared)
	as.NamePage(as.GetPage(0x1000, false), "stack")

	// disjoint from the first run: not virtually contiguous with it.
	as.AllocateSpace(0x10_0000, mem.PGSIZE, AttrUser)

	ranges := as.Dump()
	if len(ranges) != 2 {
		t.Fatalf("Dump() produced %d ranges, want 2: %+v", len(ranges), ranges)
	}
	if ranges[0].VirtStart != 0x1000 || ranges[0].Pages != 3 {
		t.Fatalf("first range = %+v, want VirtStart=0x1000 Pages=3", ranges[0])
	}
	if ranges[0].Name != "stack" {
		t.Fatalf("first range name = %q, want %q", ranges[0].Name, "stack")
	}
	if ranges[1].VirtStart != 0x10_0000 || ranges[1].Pages != 1 {
		t.Fatalf("second range = %+v, want VirtStart=0x10_0000 Pages=1", ranges[1])
	}
}

func TestFdumpWritesOneLinePerRange(t *testing.T) {
	setupTest(t)
	as := &AddressSpace{}
	as.InitEmpty()
	as.AllocateSpace(0x1000, mem.PGSIZE, AttrUser)

	var buf bytes.Buffer
	if err := as.Fdump(&buf); err != nil {
		t.Fatalf("Fdump: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("Fdump wrote nothing")
	}
	if got := bytes.Count(buf.Bytes(), []byte("\n")); got != 1 {
		t.Fatalf("Fdump wrote %d lines, want 1:\n%s", got, buf.String())
	}
}
