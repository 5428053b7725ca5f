package transport

import "sort"

// pnRange is an inclusive range of packet numbers [start, end].
type pnRange struct {
	start, end uint64
}

// rangeSet is a sorted, non-overlapping, non-adjacent set of packet number
// ranges. It backs both the received-packet log each packetNumberSpace
// keeps for duplicate detection and ACK frame generation (RFC 9000 Section
// 13.2.3), and the sent-but-unacknowledged bookkeeping used while decoding
// incoming ACK frames.
type rangeSet struct {
	ranges []pnRange
}

// contains reports whether pn falls within any range already recorded.
func (s *rangeSet) contains(pn uint64) bool {
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].end >= pn })
	return i < len(s.ranges) && s.ranges[i].start <= pn
}

// add inserts pn, merging with adjacent or overlapping ranges.
func (s *rangeSet) add(pn uint64) {
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].end+1 >= pn })
	switch {
	case i < len(s.ranges) && s.ranges[i].start <= pn && pn <= s.ranges[i].end:
		// Already present.
		return
	case i < len(s.ranges) && s.ranges[i].start == pn+1:
		s.ranges[i].start = pn
	case i < len(s.ranges) && s.ranges[i].end+1 == pn:
		s.ranges[i].end = pn
	default:
		s.ranges = append(s.ranges, pnRange{})
		copy(s.ranges[i+1:], s.ranges[i:])
		s.ranges[i] = pnRange{start: pn, end: pn}
	}
	s.mergeAt(i)
}

// mergeAt coalesces the range at index i with its neighbor if they have
// become adjacent or overlapping after a mutation.
func (s *rangeSet) mergeAt(i int) {
	if i > 0 && s.ranges[i-1].end+1 >= s.ranges[i].start {
		s.ranges[i-1].end = max64(s.ranges[i-1].end, s.ranges[i].end)
		s.ranges = append(s.ranges[:i], s.ranges[i+1:]...)
		i--
	}
	if i+1 < len(s.ranges) && s.ranges[i].end+1 >= s.ranges[i+1].start {
		s.ranges[i].end = max64(s.ranges[i].end, s.ranges[i+1].end)
		s.ranges = append(s.ranges[:i+1], s.ranges[i+2:]...)
	}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// largest returns the largest packet number recorded, and whether the set
// is non-empty.
func (s *rangeSet) largest() (uint64, bool) {
	if len(s.ranges) == 0 {
		return 0, false
	}
	return s.ranges[len(s.ranges)-1].end, true
}

// removeBelow discards every range entirely below pn, used once an ACK
// range is old enough that the space no longer needs to track it.
func (s *rangeSet) removeBelow(pn uint64) {
	i := 0
	for i < len(s.ranges) && s.ranges[i].end < pn {
		i++
	}
	if i > 0 {
		s.ranges = s.ranges[i:]
	}
	if len(s.ranges) > 0 && s.ranges[0].start < pn {
		s.ranges[0].start = pn
	}
}

// ackRanges returns the ranges in descending order, as consumed by ACK
// frame encoding: (largest, firstRangeLen, []gap/len pairs).
func (s *rangeSet) ackRanges() []pnRange {
	out := make([]pnRange, len(s.ranges))
	for i, r := range s.ranges {
		out[len(s.ranges)-1-i] = r
	}
	return out
}

func (s *rangeSet) isEmpty() bool {
	return len(s.ranges) == 0
}
