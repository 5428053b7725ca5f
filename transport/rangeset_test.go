package transport

import "testing"

func TestRangeSetAddMergesAdjacent(t *testing.T) {
	var s rangeSet
	for _, pn := range []uint64{5, 6, 7, 1, 2, 10} {
		s.add(pn)
	}
	want := []pnRange{{1, 2}, {5, 7}, {10, 10}}
	if len(s.ranges) != len(want) {
		t.Fatalf("ranges = %v, want %v", s.ranges, want)
	}
	for i, r := range want {
		if s.ranges[i] != r {
			t.Fatalf("ranges[%d] = %v, want %v", i, s.ranges[i], r)
		}
	}
}

func TestRangeSetContains(t *testing.T) {
	var s rangeSet
	for _, pn := range []uint64{1, 2, 3, 8} {
		s.add(pn)
	}
	for _, pn := range []uint64{1, 2, 3, 8} {
		if !s.contains(pn) {
			t.Errorf("contains(%d) = false, want true", pn)
		}
	}
	for _, pn := range []uint64{0, 4, 7, 9} {
		if s.contains(pn) {
			t.Errorf("contains(%d) = true, want false", pn)
		}
	}
}

func TestRangeSetDuplicateAddIsNoop(t *testing.T) {
	var s rangeSet
	s.add(5)
	s.add(5)
	if len(s.ranges) != 1 || s.ranges[0] != (pnRange{5, 5}) {
		t.Fatalf("ranges = %v", s.ranges)
	}
}

func TestRangeSetLargest(t *testing.T) {
	var s rangeSet
	if _, ok := s.largest(); ok {
		t.Fatal("largest on empty set reported ok")
	}
	s.add(3)
	s.add(9)
	s.add(4)
	got, ok := s.largest()
	if !ok || got != 9 {
		t.Fatalf("largest() = %d, %v, want 9, true", got, ok)
	}
}

func TestRangeSetRemoveBelow(t *testing.T) {
	var s rangeSet
	for _, pn := range []uint64{1, 2, 3, 10, 11} {
		s.add(pn)
	}
	s.removeBelow(3)
	if s.contains(1) || s.contains(2) {
		t.Fatal("removeBelow did not discard lower range")
	}
	if !s.contains(3) || !s.contains(10) || !s.contains(11) {
		t.Fatal("removeBelow discarded entries at or above threshold")
	}
}

func TestRangeSetAckRangesDescending(t *testing.T) {
	var s rangeSet
	for _, pn := range []uint64{1, 2, 5, 6, 9} {
		s.add(pn)
	}
	ranges := s.ackRanges()
	want := []pnRange{{9, 9}, {5, 6}, {1, 2}}
	if len(ranges) != len(want) {
		t.Fatalf("ackRanges() = %v, want %v", ranges, want)
	}
	for i, r := range want {
		if ranges[i] != r {
			t.Fatalf("ackRanges()[%d] = %v, want %v", i, ranges[i], r)
		}
	}
}
