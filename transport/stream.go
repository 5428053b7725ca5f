package transport

import "sort"

// isStreamLocal reports whether a stream id was initiated by this endpoint.
func isStreamLocal(id uint64, isClient bool) bool {
	clientInitiated := id&0x01 == 0
	return clientInitiated == isClient
}

// isStreamBidi reports whether a stream id is bidirectional.
func isStreamBidi(id uint64) bool {
	return id&0x02 == 0
}

// sendChunk is one contiguous run of not-yet-acknowledged send data.
type sendChunk struct {
	offset uint64
	data   []byte
}

// sendBuffer buffers outgoing stream (or CRYPTO) data, tracking what has
// been sent, what must be retransmitted, and what has been acknowledged.
type sendBuffer struct {
	chunks      []sendChunk // unsent or retransmit-pending data, ordered by offset
	nextOffset  uint64      // offset of the next byte appended by push
	sentUpTo    uint64      // offset up to which data has been sent at least once
	ackedRanges rangeSet    // byte offsets (not packet numbers) acknowledged -- tracked as [start,end) via a parallel scheme
	finOffset   uint64
	finSet      bool
	finAcked    bool
}

// push appends application data to the stream for sending. If fin is set,
// the stream has no more data beyond offset+len(data).
func (b *sendBuffer) push(data []byte, offset uint64, fin bool) error {
	if offset+uint64(len(data)) > b.nextOffset {
		if offset > b.nextOffset {
			return newError(InternalError, "send buffer gap")
		}
		newPart := data[b.nextOffset-offset:]
		b.chunks = append(b.chunks, sendChunk{offset: b.nextOffset, data: append([]byte(nil), newPart...)})
		b.nextOffset += uint64(len(newPart))
	} else if len(data) > 0 {
		// Retransmission of already-appended data: requeue unacknowledged part.
		b.chunks = append(b.chunks, sendChunk{offset: offset, data: append([]byte(nil), data...)})
		sort.Slice(b.chunks, func(i, j int) bool { return b.chunks[i].offset < b.chunks[j].offset })
	}
	if fin && !b.finSet {
		b.finSet = true
		b.finOffset = offset + uint64(len(data))
	}
	return nil
}

// popSend removes up to max bytes of the earliest pending chunk for
// sending, returning the data, its stream offset, and whether FIN should
// be set on the resulting frame.
func (b *sendBuffer) popSend(max int) ([]byte, uint64, bool) {
	if len(b.chunks) == 0 {
		if b.finSet && !b.finAcked && b.finOffset >= b.sentUpTo {
			// FIN-only frame.
			return nil, b.finOffset, true
		}
		return nil, 0, false
	}
	c := b.chunks[0]
	data := c.data
	fin := false
	if max > 0 && len(data) > max {
		data = data[:max]
	}
	if c.offset+uint64(len(data)) == b.nextOffset && b.finSet {
		fin = true
	}
	remaining := c.data[len(data):]
	if len(remaining) == 0 {
		b.chunks = b.chunks[1:]
	} else {
		b.chunks[0] = sendChunk{offset: c.offset + uint64(len(data)), data: remaining}
	}
	if c.offset+uint64(len(data)) > b.sentUpTo {
		b.sentUpTo = c.offset + uint64(len(data))
	}
	return data, c.offset, fin
}

// ack marks [offset, offset+length) as acknowledged.
func (b *sendBuffer) ack(offset, length uint64) {
	if length == 0 {
		if b.finSet && offset == b.finOffset {
			b.finAcked = true
		}
		return
	}
	for pn := offset; pn < offset+length; pn++ {
		b.ackedRanges.add(pn)
	}
	if b.finSet && offset+length == b.finOffset {
		b.finAcked = true
	}
}

// complete reports whether a FIN has been set and acknowledged and there is
// no pending data left to (re)send.
func (b *sendBuffer) complete() bool {
	return b.finSet && b.finAcked && len(b.chunks) == 0
}

// recvChunk is one contiguous run of received-but-not-yet-read data.
type recvChunk struct {
	offset uint64
	data   []byte
}

// recvBuffer reorders and deduplicates received stream (or CRYPTO) data,
// exposing it to the application as a contiguous byte stream.
type recvBuffer struct {
	chunks     []recvChunk // sorted by offset, non-overlapping
	readOffset uint64      // bytes already consumed by the application
	finOffset  uint64
	finSet     bool
	resetCode  uint64
	wasReset   bool
}

// pushRecv inserts data received at offset, merging it into the reassembly
// buffer. It discards bytes already read or already buffered.
func (b *recvBuffer) pushRecv(data []byte, offset uint64, fin bool) error {
	if b.finSet && offset+uint64(len(data)) > b.finOffset {
		return newError(FinalSizeError, "data beyond fin")
	}
	if fin {
		if b.finSet && b.finOffset != offset+uint64(len(data)) {
			return newError(FinalSizeError, "inconsistent final size")
		}
		b.finSet = true
		b.finOffset = offset + uint64(len(data))
	}
	if offset+uint64(len(data)) <= b.readOffset {
		return nil
	}
	if offset < b.readOffset {
		data = data[b.readOffset-offset:]
		offset = b.readOffset
	}
	if len(data) == 0 {
		return nil
	}
	c := recvChunk{offset: offset, data: append([]byte(nil), data...)}
	i := sort.Search(len(b.chunks), func(i int) bool { return b.chunks[i].offset >= c.offset })
	b.chunks = append(b.chunks, recvChunk{})
	copy(b.chunks[i+1:], b.chunks[i:])
	b.chunks[i] = c
	b.normalize()
	return nil
}

// normalize removes overlap introduced by an out-of-order insert.
func (b *recvBuffer) normalize() {
	out := b.chunks[:0]
	for _, c := range b.chunks {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			prevEnd := prev.offset + uint64(len(prev.data))
			if c.offset < prevEnd {
				if c.offset+uint64(len(c.data)) <= prevEnd {
					continue
				}
				c.data = c.data[prevEnd-c.offset:]
				c.offset = prevEnd
			}
			if prevEnd == c.offset {
				prev.data = append(prev.data, c.data...)
				continue
			}
		}
		out = append(out, c)
	}
	b.chunks = out
}

// read copies contiguous, in-order data starting at readOffset into p.
func (b *recvBuffer) read(p []byte) (int, bool) {
	if len(b.chunks) == 0 || b.chunks[0].offset != b.readOffset {
		fin := b.finSet && b.readOffset == b.finOffset
		return 0, fin
	}
	c := &b.chunks[0]
	n := copy(p, c.data)
	c.data = c.data[n:]
	b.readOffset += uint64(n)
	if len(c.data) == 0 {
		b.chunks = b.chunks[1:]
	}
	fin := b.finSet && b.readOffset == b.finOffset
	return n, fin
}

// reset marks the stream as abruptly terminated at finalSize, returning how
// many previously-unreceived bytes should now be excluded from flow control
// accounting (mayRecv), per RFC 9000 Section 3.5.
func (b *recvBuffer) reset(finalSize uint64) (int, error) {
	if b.finSet && b.finOffset != finalSize {
		return 0, newError(FinalSizeError, "inconsistent final size on reset")
	}
	highWater := b.readOffset
	for _, c := range b.chunks {
		end := c.offset + uint64(len(c.data))
		if end > highWater {
			highWater = end
		}
	}
	if finalSize < highWater {
		return 0, newError(FinalSizeError, "final size below received data")
	}
	mayRecv := int(finalSize - highWater)
	b.finSet = true
	b.finOffset = finalSize
	b.wasReset = true
	return mayRecv, nil
}

// Stream is one QUIC stream's send and receive state.
type Stream struct {
	id   uint64
	send sendBuffer
	recv recvBuffer

	flow     flowControl
	connFlow *flowControl

	updateMaxData bool
}

// popSend is the Stream-level equivalent of sendBuffer.popSend, kept on
// Stream itself since the connection only ever reaches into the buffer
// through the stream.
func (s *Stream) popSend(max int) ([]byte, uint64, bool) {
	return s.send.popSend(max)
}

// pushRecv reassembles received stream data into the receive buffer. It
// does not update flow control; the connection accounts received bytes
// separately.
func (s *Stream) pushRecv(data []byte, offset uint64, fin bool) error {
	return s.recv.pushRecv(data, offset, fin)
}

// Read reads reassembled, in-order data from the stream.
func (s *Stream) Read(p []byte) (int, error) {
	n, fin := s.recv.read(p)
	if n == 0 && fin {
		return 0, errStreamClosed
	}
	return n, nil
}

// Write enqueues data for sending on the stream.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.send.push(p, s.send.nextOffset, false); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close marks the send side of the stream as finished: no further Write
// calls are valid, and a STREAM frame carrying FIN will be emitted once
// buffered data drains.
func (s *Stream) Close() error {
	return s.send.push(nil, s.send.nextOffset, true)
}

func (s *Stream) ackMaxData() {
	s.updateMaxData = false
}

func (s *Stream) String() string {
	return sprint("stream id=", s.id, " send.nextOffset=", s.send.nextOffset, " recv.readOffset=", s.recv.readOffset)
}

var errStreamClosed = newError(NoError, "stream closed")

// streamMap owns every Stream created on a connection plus the locally
// observed and peer-advertised concurrent stream limits (RFC 9000 Section 4.6).
type streamMap struct {
	streams map[uint64]*Stream

	localMaxStreamsBidi  uint64
	localMaxStreamsUni   uint64
	peerMaxStreamsBidi   uint64
	peerMaxStreamsUni    uint64

	nextBidi uint64
	nextUni  uint64
}

func (m *streamMap) init(maxStreamsBidi, maxStreamsUni uint64) {
	m.streams = make(map[uint64]*Stream)
	m.localMaxStreamsBidi = maxStreamsBidi
	m.localMaxStreamsUni = maxStreamsUni
}

func (m *streamMap) get(id uint64) *Stream {
	return m.streams[id]
}

// create allocates a new Stream with the given id, enforcing the
// appropriate concurrent-stream limit depending on direction.
func (m *streamMap) create(id uint64, local, bidi bool) (*Stream, error) {
	if local {
		limit := m.peerMaxStreamsUni
		count := &m.nextUni
		if bidi {
			limit = m.peerMaxStreamsBidi
			count = &m.nextBidi
		}
		if *count >= limit {
			return nil, newError(StreamLimitError, sprint("stream limit exceeded for id ", id))
		}
		*count++
	} else {
		limit := m.localMaxStreamsUni
		if bidi {
			limit = m.localMaxStreamsBidi
		}
		n := streamSequenceNumber(id)
		if n >= limit {
			return nil, newError(StreamLimitError, sprint("peer exceeded stream limit for id ", id))
		}
	}
	st := &Stream{id: id}
	m.streams[id] = st
	return st, nil
}

// streamSequenceNumber returns a stream id's ordinal within its
// (initiator, directionality) class.
func streamSequenceNumber(id uint64) uint64 {
	return id >> 2
}

func (m *streamMap) setPeerMaxStreamsBidi(max uint64) {
	if max > m.peerMaxStreamsBidi {
		m.peerMaxStreamsBidi = max
	}
}

func (m *streamMap) setPeerMaxStreamsUni(max uint64) {
	if max > m.peerMaxStreamsUni {
		m.peerMaxStreamsUni = max
	}
}

// hasFlushable reports whether any stream has pending data, a pending FIN,
// or a pending MAX_STREAM_DATA update to send.
func (m *streamMap) hasFlushable() bool {
	for _, st := range m.streams {
		if len(st.send.chunks) > 0 || (st.send.finSet && !st.send.finAcked) || st.updateMaxData {
			return true
		}
	}
	return false
}
