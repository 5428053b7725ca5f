package transport

import (
	"bytes"
	"crypto/rand"
)

// MaxCIDLength is the maximum length of a QUIC connection ID.
const MaxCIDLength = 20

// StatelessResetTokenLength is the length of a stateless reset token.
const StatelessResetTokenLength = 16

// connID is a single connection identifier: the opaque wire bytes, its
// sequence number within the owning endpoint's set, and (for local CIDs)
// the stateless reset token advertised alongside it.
type connID struct {
	seq        uint64
	cid        []byte
	resetToken [StatelessResetTokenLength]byte
	// retired is set once a RETIRE_CONNECTION_ID has been sent (for local
	// CIDs) or received (for remote CIDs) for this entry.
	retired bool
}

func equalCID(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// connIDSet tracks one side's view of a set of connection IDs: the CIDs an
// endpoint has advertised to its peer via NEW_CONNECTION_ID (the "local"
// set, from that endpoint's perspective) or learned from its peer (the
// "remote" set). Both directions reuse this type; the only difference is
// who originates sequence numbers.
type connIDSet struct {
	entries      []connID
	nextSeq      uint64 // next sequence number to allocate (local sets only)
	retirePrior  uint64 // highest retire_prior_to advertised/received
	activeLimit  int    // active_connection_id_limit applicable to this set
}

func (s *connIDSet) init(limit int) {
	s.entries = nil
	s.nextSeq = 0
	s.retirePrior = 0
	s.activeLimit = limit
}

// addLocal generates and registers a new local CID with a random reset
// token, returning it so the caller can emit a NEW_CONNECTION_ID frame.
func (s *connIDSet) addLocal(length int) (*connID, error) {
	if s.activeCount() >= s.activeLimit {
		return nil, newError(ConnectionIDLimitError, "active_connection_id_limit reached")
	}
	cid := make([]byte, length)
	if _, err := rand.Read(cid); err != nil {
		return nil, newError(InternalError, err.Error())
	}
	e := connID{seq: s.nextSeq, cid: cid}
	if _, err := rand.Read(e.resetToken[:]); err != nil {
		return nil, newError(InternalError, err.Error())
	}
	s.nextSeq++
	s.entries = append(s.entries, e)
	return &s.entries[len(s.entries)-1], nil
}

// addRemote registers a CID learned via a peer's NEW_CONNECTION_ID frame.
func (s *connIDSet) addRemote(seq uint64, cid []byte, resetToken []byte, retirePriorTo uint64) error {
	if len(cid) > MaxCIDLength {
		return newError(FrameEncodingError, "connection id too long")
	}
	if retirePriorTo > s.retirePrior {
		s.retirePrior = retirePriorTo
	}
	for i := range s.entries {
		if s.entries[i].seq == seq {
			return nil // duplicate NEW_CONNECTION_ID, ignore
		}
	}
	e := connID{seq: seq, cid: append([]byte(nil), cid...)}
	copy(e.resetToken[:], resetToken)
	if seq < s.retirePrior {
		e.retired = true
	}
	s.entries = append(s.entries, e)
	if s.activeCount() > s.activeLimit {
		return newError(ConnectionIDLimitError, "peer exceeded active_connection_id_limit")
	}
	return nil
}

// retire marks the local or remote entry with the given sequence number
// as retired.
func (s *connIDSet) retire(seq uint64) {
	for i := range s.entries {
		if s.entries[i].seq == seq {
			s.entries[i].retired = true
			return
		}
	}
}

// pendingRetired returns sequence numbers below retirePrior that have not
// yet been retired, so the caller can emit RETIRE_CONNECTION_ID for each.
func (s *connIDSet) pendingRetired() []uint64 {
	var out []uint64
	for i := range s.entries {
		if !s.entries[i].retired && s.entries[i].seq < s.retirePrior {
			out = append(out, s.entries[i].seq)
		}
	}
	return out
}

func (s *connIDSet) activeCount() int {
	n := 0
	for i := range s.entries {
		if !s.entries[i].retired {
			n++
		}
	}
	return n
}

// find returns the active entry with a matching wire value, or nil.
func (s *connIDSet) find(cid []byte) *connID {
	for i := range s.entries {
		if !s.entries[i].retired && equalCID(s.entries[i].cid, cid) {
			return &s.entries[i]
		}
	}
	return nil
}

// unused returns an active, not-yet-handed-out remote CID usable for a new
// path, or nil if none are available.
func (s *connIDSet) unused(exclude []byte) *connID {
	for i := range s.entries {
		if !s.entries[i].retired && !equalCID(s.entries[i].cid, exclude) {
			return &s.entries[i]
		}
	}
	return nil
}
