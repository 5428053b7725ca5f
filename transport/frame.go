package transport

import "time"

// Frame type codes, RFC 9000 Section 19.
const (
	frameTypePadding              = 0x00
	frameTypePing                 = 0x01
	frameTypeAck                  = 0x02
	frameTypeAckECN               = 0x03
	frameTypeResetStream          = 0x04
	frameTypeStopSending          = 0x05
	frameTypeCrypto               = 0x06
	frameTypeNewToken             = 0x07
	frameTypeStream               = 0x08
	frameTypeStreamEnd            = 0x0f
	frameTypeMaxData              = 0x10
	frameTypeMaxStreamData        = 0x11
	frameTypeMaxStreamsBidi       = 0x12
	frameTypeMaxStreamsUni        = 0x13
	frameTypeDataBlocked          = 0x14
	frameTypeStreamDataBlocked    = 0x15
	frameTypeStreamsBlockedBidi   = 0x16
	frameTypeStreamsBlockedUni    = 0x17
	frameTypeNewConnectionID      = 0x18
	frameTypeRetireConnectionID   = 0x19
	frameTypePathChallenge        = 0x1a
	frameTypePathResponse         = 0x1b
	frameTypeConnectionClose      = 0x1c
	frameTypeApplicationClose     = 0x1d
	frameTypeHandshakeDone        = 0x1e
)

// frame is implemented by every QUIC frame type. encode writes the frame,
// including its type byte, to b. decode parses a whole frame from the
// start of b, including its type, and returns the number of bytes consumed
// (bit-packed type codes such as STREAM are interpreted by decode itself).
type frame interface {
	encode(b []byte) (int, error)
	decode(b []byte) (int, error)
	encodedLen() int
}

// isFrameAckEliciting reports whether receipt of a frame of this type
// requires the receiver to eventually send an ACK, RFC 9000 Section 13.2.
func isFrameAckEliciting(typ uint64) bool {
	switch typ {
	case frameTypeAck, frameTypeAckECN, frameTypePadding, frameTypeConnectionClose, frameTypeApplicationClose:
		return false
	default:
		return true
	}
}

// outgoingPacket tracks the frames placed into one not-yet-acknowledged
// packet, for loss recovery bookkeeping.
type outgoingPacket struct {
	packetNumber uint64
	timeSent     time.Time
	size         uint64
	ackEliciting bool
	inFlight     bool
	frames       []frame
}

func newOutgoingPacket(pn uint64, now time.Time) *outgoingPacket {
	return &outgoingPacket{
		packetNumber: pn,
		timeSent:     now,
	}
}

func (op *outgoingPacket) addFrame(f frame) {
	op.frames = append(op.frames, f)
	switch f.(type) {
	case *paddingFrame, *ackFrame:
	default:
		op.ackEliciting = true
	}
	op.inFlight = true
}

func (op *outgoingPacket) String() string {
	return sprint("pn=", op.packetNumber, " frames=", len(op.frames), " size=", op.size)
}

// encodeFrames encodes every frame in frames into b, in order.
func encodeFrames(b []byte, frames []frame) (int, error) {
	off := 0
	for _, f := range frames {
		n, err := f.encode(b[off:])
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}

// paddingFrame (0x00) is a run of n zero bytes used to pad a datagram to
// the minimum Initial size or to meet a minimum payload length.
type paddingFrame struct {
	length int
}

func newPaddingFrame(length int) *paddingFrame {
	return &paddingFrame{length: length}
}

func (f *paddingFrame) encode(b []byte) (int, error) {
	if len(b) < f.length {
		return 0, errShortBuffer
	}
	for i := 0; i < f.length; i++ {
		b[i] = 0
	}
	return f.length, nil
}

func (f *paddingFrame) decode(b []byte) (int, error) {
	n := 0
	for n < len(b) && b[n] == 0 {
		n++
	}
	f.length = n
	return n, nil
}

func (f *paddingFrame) encodedLen() int {
	return f.length
}

// pingFrame (0x01) carries no data; it solicits an acknowledgment.
type pingFrame struct{}

func (f *pingFrame) encode(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, errShortBuffer
	}
	b[0] = frameTypePing
	return 1, nil
}

func (f *pingFrame) decode(b []byte) (int, error) {
	return 1, nil
}

func (f *pingFrame) encodedLen() int {
	return 1
}

// ackFrame (0x02/0x03) acknowledges receipt of one or more packets.
type ackFrame struct {
	largestAck uint64
	ackDelay   uint64
	ranges     []pnRange
	ecn        bool
	ect0, ect1, ce uint64
}

func newAckFrame(ackDelay uint64, recvd *rangeSet) *ackFrame {
	largest, _ := recvd.largest()
	return &ackFrame{
		largestAck: largest,
		ackDelay:   ackDelay,
		ranges:     recvd.ackRanges(),
	}
}

func (f *ackFrame) encode(b []byte) (int, error) {
	if len(f.ranges) == 0 {
		return 0, newError(InternalError, "empty ack frame")
	}
	off := 0
	off += putVarint(b[off:], uint64(frameTypeAck))
	off += putVarint(b[off:], f.largestAck)
	off += putVarint(b[off:], f.ackDelay)
	off += putVarint(b[off:], uint64(len(f.ranges)-1))
	first := f.ranges[0]
	off += putVarint(b[off:], first.end-first.start)
	prevStart := first.start
	for i := 1; i < len(f.ranges); i++ {
		r := f.ranges[i]
		gap := prevStart - r.end - 2
		off += putVarint(b[off:], gap)
		off += putVarint(b[off:], r.end-r.start)
		prevStart = r.start
	}
	return off, nil
}

func (f *ackFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b[off:], &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack frame type")
	}
	off += n
	f.ecn = typ == frameTypeAckECN
	n = getVarint(b[off:], &f.largestAck)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack largest")
	}
	off += n
	n = getVarint(b[off:], &f.ackDelay)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack delay")
	}
	off += n
	var rangeCount uint64
	n = getVarint(b[off:], &rangeCount)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack range count")
	}
	off += n
	var firstRangeLen uint64
	n = getVarint(b[off:], &firstRangeLen)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack first range")
	}
	off += n
	if firstRangeLen > f.largestAck {
		return 0, newError(FrameEncodingError, "ack first range underflow")
	}
	f.ranges = f.ranges[:0]
	end := f.largestAck
	start := end - firstRangeLen
	f.ranges = append(f.ranges, pnRange{start: start, end: end})
	for i := uint64(0); i < rangeCount; i++ {
		var gap, length uint64
		n = getVarint(b[off:], &gap)
		if n == 0 {
			return 0, newError(FrameEncodingError, "ack gap")
		}
		off += n
		n = getVarint(b[off:], &length)
		if n == 0 {
			return 0, newError(FrameEncodingError, "ack range len")
		}
		off += n
		if start < gap+2 {
			return 0, newError(FrameEncodingError, "ack gap underflow")
		}
		end = start - gap - 2
		if length > end {
			return 0, newError(FrameEncodingError, "ack range underflow")
		}
		start = end - length
		f.ranges = append(f.ranges, pnRange{start: start, end: end})
	}
	if f.ecn {
		for _, v := range []*uint64{&f.ect0, &f.ect1, &f.ce} {
			n = getVarint(b[off:], v)
			if n == 0 {
				return 0, newError(FrameEncodingError, "ack ecn counts")
			}
			off += n
		}
	}
	return off, nil
}

// toRangeSet reassembles the acknowledged packet number ranges into a
// rangeSet, ordered ascending. The result is never nil.
func (f *ackFrame) toRangeSet() *rangeSet {
	var s rangeSet
	for _, r := range f.ranges {
		for pn := r.start; pn <= r.end; pn++ {
			s.add(pn)
			if pn == r.end {
				break
			}
		}
	}
	return &s
}

func (f *ackFrame) encodedLen() int {
	n := varintLen(uint64(frameTypeAck)) + varintLen(f.largestAck) + varintLen(f.ackDelay) + varintLen(uint64(len(f.ranges)-1))
	if len(f.ranges) == 0 {
		return n
	}
	first := f.ranges[0]
	n += varintLen(first.end - first.start)
	prevStart := first.start
	for i := 1; i < len(f.ranges); i++ {
		r := f.ranges[i]
		gap := prevStart - r.end - 2
		n += varintLen(gap) + varintLen(r.end-r.start)
		prevStart = r.start
	}
	return n
}

func (f *ackFrame) String() string {
	return sprint("ack largest=", f.largestAck, " delay=", f.ackDelay, " ranges=", len(f.ranges))
}

// resetStreamFrame (0x04) abruptly terminates the sending part of a stream.
type resetStreamFrame struct {
	streamID  uint64
	errorCode uint64
	finalSize uint64
}

func newResetStreamFrame(streamID, errorCode, finalSize uint64) *resetStreamFrame {
	return &resetStreamFrame{streamID: streamID, errorCode: errorCode, finalSize: finalSize}
}

func (f *resetStreamFrame) encode(b []byte) (int, error) {
	off := 0
	off += putVarint(b[off:], frameTypeResetStream)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.errorCode)
	off += putVarint(b[off:], f.finalSize)
	return off, nil
}

func (f *resetStreamFrame) decode(b []byte) (int, error) {
	off := 0
	fields := []*uint64{nil, &f.streamID, &f.errorCode, &f.finalSize}
	n := getVarint(b[off:], new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "reset_stream type")
	}
	off += n
	for _, v := range fields[1:] {
		n = getVarint(b[off:], v)
		if n == 0 {
			return 0, newError(FrameEncodingError, "reset_stream")
		}
		off += n
	}
	return off, nil
}

func (f *resetStreamFrame) encodedLen() int {
	return varintLen(frameTypeResetStream) + varintLen(f.streamID) + varintLen(f.errorCode) + varintLen(f.finalSize)
}

// stopSendingFrame (0x05) requests a peer stop sending on a stream.
type stopSendingFrame struct {
	streamID  uint64
	errorCode uint64
}

func newStopSendingFrame(streamID, errorCode uint64) *stopSendingFrame {
	return &stopSendingFrame{streamID: streamID, errorCode: errorCode}
}

func (f *stopSendingFrame) encode(b []byte) (int, error) {
	off := 0
	off += putVarint(b[off:], frameTypeStopSending)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.errorCode)
	return off, nil
}

func (f *stopSendingFrame) decode(b []byte) (int, error) {
	off := 0
	n := getVarint(b[off:], new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending type")
	}
	off += n
	n = getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending stream id")
	}
	off += n
	n = getVarint(b[off:], &f.errorCode)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending error code")
	}
	off += n
	return off, nil
}

func (f *stopSendingFrame) encodedLen() int {
	return varintLen(frameTypeStopSending) + varintLen(f.streamID) + varintLen(f.errorCode)
}

// cryptoFrame (0x06) carries handshake data.
type cryptoFrame struct {
	offset uint64
	data   []byte
}

func newCryptoFrame(data []byte, offset uint64) *cryptoFrame {
	return &cryptoFrame{data: data, offset: offset}
}

func (f *cryptoFrame) encode(b []byte) (int, error) {
	off := 0
	off += putVarint(b[off:], frameTypeCrypto)
	off += putVarint(b[off:], f.offset)
	off += putVarint(b[off:], uint64(len(f.data)))
	n := copy(b[off:], f.data)
	if n != len(f.data) {
		return 0, errShortBuffer
	}
	off += n
	return off, nil
}

func (f *cryptoFrame) decode(b []byte) (int, error) {
	off := 0
	n := getVarint(b[off:], new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "crypto type")
	}
	off += n
	n = getVarint(b[off:], &f.offset)
	if n == 0 {
		return 0, newError(FrameEncodingError, "crypto offset")
	}
	off += n
	var length uint64
	n = getVarint(b[off:], &length)
	if n == 0 {
		return 0, newError(FrameEncodingError, "crypto length")
	}
	off += n
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "crypto data truncated")
	}
	f.data = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

func (f *cryptoFrame) encodedLen() int {
	return varintLen(frameTypeCrypto) + varintLen(f.offset) + varintLen(uint64(len(f.data))) + len(f.data)
}

func (f *cryptoFrame) String() string {
	return sprint("crypto offset=", f.offset, " len=", len(f.data))
}

// newTokenFrame (0x07) provides the client a token for future Initial packets.
type newTokenFrame struct {
	token []byte
}

func newNewTokenFrame(token []byte) *newTokenFrame {
	return &newTokenFrame{token: token}
}

func (f *newTokenFrame) encode(b []byte) (int, error) {
	off := 0
	off += putVarint(b[off:], frameTypeNewToken)
	off += putVarint(b[off:], uint64(len(f.token)))
	n := copy(b[off:], f.token)
	off += n
	return off, nil
}

func (f *newTokenFrame) decode(b []byte) (int, error) {
	off := 0
	n := getVarint(b[off:], new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_token type")
	}
	off += n
	var length uint64
	n = getVarint(b[off:], &length)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_token length")
	}
	off += n
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "new_token truncated")
	}
	f.token = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

func (f *newTokenFrame) encodedLen() int {
	return varintLen(frameTypeNewToken) + varintLen(uint64(len(f.token))) + len(f.token)
}

// streamFrame (0x08-0x0f) carries application data for one stream.
type streamFrame struct {
	streamID uint64
	offset   uint64
	data     []byte
	fin      bool
}

func newStreamFrame(streamID uint64, data []byte, offset uint64, fin bool) *streamFrame {
	return &streamFrame{streamID: streamID, data: data, offset: offset, fin: fin}
}

func (f *streamFrame) encode(b []byte) (int, error) {
	off := 0
	typ := uint64(frameTypeStream) | 0x02 // always include explicit Length
	if f.offset > 0 {
		typ |= 0x04
	}
	if f.fin {
		typ |= 0x01
	}
	off += putVarint(b[off:], typ)
	off += putVarint(b[off:], f.streamID)
	if f.offset > 0 {
		off += putVarint(b[off:], f.offset)
	}
	off += putVarint(b[off:], uint64(len(f.data)))
	n := copy(b[off:], f.data)
	if n != len(f.data) {
		return 0, errShortBuffer
	}
	off += n
	return off, nil
}

func (f *streamFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b[off:], &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream type")
	}
	off += n
	f.fin = typ&0x01 != 0
	hasOffset := typ&0x04 != 0
	hasLength := typ&0x02 != 0
	n = getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream id")
	}
	off += n
	f.offset = 0
	if hasOffset {
		n = getVarint(b[off:], &f.offset)
		if n == 0 {
			return 0, newError(FrameEncodingError, "stream offset")
		}
		off += n
	}
	var length uint64
	if hasLength {
		n = getVarint(b[off:], &length)
		if n == 0 {
			return 0, newError(FrameEncodingError, "stream length")
		}
		off += n
	} else {
		length = uint64(len(b) - off)
	}
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "stream data truncated")
	}
	f.data = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

func (f *streamFrame) encodedLen() int {
	typ := uint64(frameTypeStream) | 0x02
	if f.offset > 0 {
		typ |= 0x04
	}
	n := varintLen(typ) + varintLen(f.streamID)
	if f.offset > 0 {
		n += varintLen(f.offset)
	}
	n += varintLen(uint64(len(f.data))) + len(f.data)
	return n
}

// maxDataFrame (0x10) raises the connection-level flow control limit.
type maxDataFrame struct {
	maximumData uint64
}

func newMaxDataFrame(max uint64) *maxDataFrame {
	return &maxDataFrame{maximumData: max}
}

func (f *maxDataFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeMaxData)
	off += putVarint(b[off:], f.maximumData)
	return off, nil
}

func (f *maxDataFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_data type")
	}
	off := n
	n = getVarint(b[off:], &f.maximumData)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_data")
	}
	return off + n, nil
}

func (f *maxDataFrame) encodedLen() int {
	return varintLen(frameTypeMaxData) + varintLen(f.maximumData)
}

// maxStreamDataFrame (0x11) raises the per-stream flow control limit.
type maxStreamDataFrame struct {
	streamID    uint64
	maximumData uint64
}

func newMaxStreamDataFrame(streamID, max uint64) *maxStreamDataFrame {
	return &maxStreamDataFrame{streamID: streamID, maximumData: max}
}

func (f *maxStreamDataFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeMaxStreamData)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.maximumData)
	return off, nil
}

func (f *maxStreamDataFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data type")
	}
	off := n
	n = getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data stream id")
	}
	off += n
	n = getVarint(b[off:], &f.maximumData)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data")
	}
	off += n
	return off, nil
}

func (f *maxStreamDataFrame) encodedLen() int {
	return varintLen(frameTypeMaxStreamData) + varintLen(f.streamID) + varintLen(f.maximumData)
}

// maxStreamsFrame (0x12/0x13) raises the limit on streams the peer may open.
type maxStreamsFrame struct {
	bidi           bool
	maximumStreams uint64
}

func newMaxStreamsFrame(bidi bool, max uint64) *maxStreamsFrame {
	return &maxStreamsFrame{bidi: bidi, maximumStreams: max}
}

func (f *maxStreamsFrame) typ() uint64 {
	if f.bidi {
		return frameTypeMaxStreamsBidi
	}
	return frameTypeMaxStreamsUni
}

func (f *maxStreamsFrame) encode(b []byte) (int, error) {
	off := putVarint(b, f.typ())
	off += putVarint(b[off:], f.maximumStreams)
	return off, nil
}

func (f *maxStreamsFrame) decode(b []byte) (int, error) {
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_streams type")
	}
	f.bidi = typ == frameTypeMaxStreamsBidi
	off := n
	n = getVarint(b[off:], &f.maximumStreams)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_streams")
	}
	off += n
	return off, nil
}

func (f *maxStreamsFrame) encodedLen() int {
	return varintLen(f.typ()) + varintLen(f.maximumStreams)
}

// dataBlockedFrame (0x14) signals the sender is blocked on connection flow control.
type dataBlockedFrame struct {
	dataLimit uint64
}

func newDataBlockedFrame(limit uint64) *dataBlockedFrame {
	return &dataBlockedFrame{dataLimit: limit}
}

func (f *dataBlockedFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeDataBlocked)
	off += putVarint(b[off:], f.dataLimit)
	return off, nil
}

func (f *dataBlockedFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "data_blocked type")
	}
	off := n
	n = getVarint(b[off:], &f.dataLimit)
	if n == 0 {
		return 0, newError(FrameEncodingError, "data_blocked")
	}
	return off + n, nil
}

func (f *dataBlockedFrame) encodedLen() int {
	return varintLen(frameTypeDataBlocked) + varintLen(f.dataLimit)
}

// streamDataBlockedFrame (0x15) signals the sender is blocked on stream flow control.
type streamDataBlockedFrame struct {
	streamID  uint64
	dataLimit uint64
}

func newStreamDataBlockedFrame(streamID, limit uint64) *streamDataBlockedFrame {
	return &streamDataBlockedFrame{streamID: streamID, dataLimit: limit}
}

func (f *streamDataBlockedFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeStreamDataBlocked)
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.dataLimit)
	return off, nil
}

func (f *streamDataBlockedFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked type")
	}
	off := n
	n = getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked stream id")
	}
	off += n
	n = getVarint(b[off:], &f.dataLimit)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked")
	}
	off += n
	return off, nil
}

func (f *streamDataBlockedFrame) encodedLen() int {
	return varintLen(frameTypeStreamDataBlocked) + varintLen(f.streamID) + varintLen(f.dataLimit)
}

// streamsBlockedFrame (0x16/0x17) signals the sender could open more
// streams of this type but is blocked by the peer's stream limit.
type streamsBlockedFrame struct {
	bidi        bool
	streamLimit uint64
}

func newStreamsBlockedFrame(bidi bool, limit uint64) *streamsBlockedFrame {
	return &streamsBlockedFrame{bidi: bidi, streamLimit: limit}
}

func (f *streamsBlockedFrame) typ() uint64 {
	if f.bidi {
		return frameTypeStreamsBlockedBidi
	}
	return frameTypeStreamsBlockedUni
}

func (f *streamsBlockedFrame) encode(b []byte) (int, error) {
	off := putVarint(b, f.typ())
	off += putVarint(b[off:], f.streamLimit)
	return off, nil
}

func (f *streamsBlockedFrame) decode(b []byte) (int, error) {
	var typ uint64
	n := getVarint(b, &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "streams_blocked type")
	}
	f.bidi = typ == frameTypeStreamsBlockedBidi
	off := n
	n = getVarint(b[off:], &f.streamLimit)
	if n == 0 {
		return 0, newError(FrameEncodingError, "streams_blocked")
	}
	off += n
	return off, nil
}

func (f *streamsBlockedFrame) encodedLen() int {
	return varintLen(f.typ()) + varintLen(f.streamLimit)
}

// newConnectionIDFrame (0x18) provides the peer an additional connection ID.
type newConnectionIDFrame struct {
	sequenceNumber      uint64
	retirePriorTo       uint64
	connectionID        []byte
	statelessResetToken [StatelessResetTokenLength]byte
}

func newNewConnectionIDFrame(seq, retirePriorTo uint64, cid []byte, token [StatelessResetTokenLength]byte) *newConnectionIDFrame {
	return &newConnectionIDFrame{sequenceNumber: seq, retirePriorTo: retirePriorTo, connectionID: cid, statelessResetToken: token}
}

func (f *newConnectionIDFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeNewConnectionID)
	off += putVarint(b[off:], f.sequenceNumber)
	off += putVarint(b[off:], f.retirePriorTo)
	b[off] = byte(len(f.connectionID))
	off++
	off += copy(b[off:], f.connectionID)
	off += copy(b[off:], f.statelessResetToken[:])
	return off, nil
}

func (f *newConnectionIDFrame) decode(b []byte) (int, error) {
	off := 0
	n := getVarint(b[off:], new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id type")
	}
	off += n
	n = getVarint(b[off:], &f.sequenceNumber)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id sequence")
	}
	off += n
	n = getVarint(b[off:], &f.retirePriorTo)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id retire_prior_to")
	}
	off += n
	if off >= len(b) {
		return 0, newError(FrameEncodingError, "new_connection_id length")
	}
	cidLen := int(b[off])
	off++
	if cidLen > MaxCIDLength || len(b)-off < cidLen+StatelessResetTokenLength {
		return 0, newError(FrameEncodingError, "new_connection_id truncated")
	}
	f.connectionID = append([]byte(nil), b[off:off+cidLen]...)
	off += cidLen
	copy(f.statelessResetToken[:], b[off:off+StatelessResetTokenLength])
	off += StatelessResetTokenLength
	return off, nil
}

func (f *newConnectionIDFrame) encodedLen() int {
	return varintLen(frameTypeNewConnectionID) + varintLen(f.sequenceNumber) + varintLen(f.retirePriorTo) + 1 + len(f.connectionID) + StatelessResetTokenLength
}

// retireConnectionIDFrame (0x19) asks the peer to stop using a connection ID.
type retireConnectionIDFrame struct {
	sequenceNumber uint64
}

func newRetireConnectionIDFrame(seq uint64) *retireConnectionIDFrame {
	return &retireConnectionIDFrame{sequenceNumber: seq}
}

func (f *retireConnectionIDFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeRetireConnectionID)
	off += putVarint(b[off:], f.sequenceNumber)
	return off, nil
}

func (f *retireConnectionIDFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "retire_connection_id type")
	}
	off := n
	n = getVarint(b[off:], &f.sequenceNumber)
	if n == 0 {
		return 0, newError(FrameEncodingError, "retire_connection_id")
	}
	return off + n, nil
}

func (f *retireConnectionIDFrame) encodedLen() int {
	return varintLen(frameTypeRetireConnectionID) + varintLen(f.sequenceNumber)
}

// pathChallengeFrame (0x1a) checks reachability along a path.
type pathChallengeFrame struct {
	data [8]byte
}

func newPathChallengeFrame(data [8]byte) *pathChallengeFrame {
	return &pathChallengeFrame{data: data}
}

func (f *pathChallengeFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypePathChallenge)
	off += copy(b[off:], f.data[:])
	return off, nil
}

func (f *pathChallengeFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "path_challenge type")
	}
	off := n
	if len(b)-off < 8 {
		return 0, newError(FrameEncodingError, "path_challenge truncated")
	}
	copy(f.data[:], b[off:off+8])
	return off + 8, nil
}

func (f *pathChallengeFrame) encodedLen() int {
	return varintLen(frameTypePathChallenge) + 8
}

// pathResponseFrame (0x1b) answers a PATH_CHALLENGE.
type pathResponseFrame struct {
	data [8]byte
}

func newPathResponseFrame(data [8]byte) *pathResponseFrame {
	return &pathResponseFrame{data: data}
}

func (f *pathResponseFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypePathResponse)
	off += copy(b[off:], f.data[:])
	return off, nil
}

func (f *pathResponseFrame) decode(b []byte) (int, error) {
	n := getVarint(b, new(uint64))
	if n == 0 {
		return 0, newError(FrameEncodingError, "path_response type")
	}
	off := n
	if len(b)-off < 8 {
		return 0, newError(FrameEncodingError, "path_response truncated")
	}
	copy(f.data[:], b[off:off+8])
	return off + 8, nil
}

func (f *pathResponseFrame) encodedLen() int {
	return varintLen(frameTypePathResponse) + 8
}

// connectionCloseFrame (0x1c/0x1d) signals the connection is being closed.
type connectionCloseFrame struct {
	application  bool
	errorCode    uint64
	frameType    uint64
	reasonPhrase []byte
}

func newConnectionCloseFrame(errorCode, frameType uint64, reason []byte, application bool) *connectionCloseFrame {
	return &connectionCloseFrame{application: application, errorCode: errorCode, frameType: frameType, reasonPhrase: reason}
}

func (f *connectionCloseFrame) typ() uint64 {
	if f.application {
		return frameTypeApplicationClose
	}
	return frameTypeConnectionClose
}

func (f *connectionCloseFrame) encode(b []byte) (int, error) {
	off := putVarint(b, f.typ())
	off += putVarint(b[off:], f.errorCode)
	if !f.application {
		off += putVarint(b[off:], f.frameType)
	}
	off += putVarint(b[off:], uint64(len(f.reasonPhrase)))
	off += copy(b[off:], f.reasonPhrase)
	return off, nil
}

func (f *connectionCloseFrame) decode(b []byte) (int, error) {
	off := 0
	var typ uint64
	n := getVarint(b[off:], &typ)
	if n == 0 {
		return 0, newError(FrameEncodingError, "connection_close type")
	}
	off += n
	f.application = typ == frameTypeApplicationClose
	n = getVarint(b[off:], &f.errorCode)
	if n == 0 {
		return 0, newError(FrameEncodingError, "connection_close error code")
	}
	off += n
	if !f.application {
		n = getVarint(b[off:], &f.frameType)
		if n == 0 {
			return 0, newError(FrameEncodingError, "connection_close frame type")
		}
		off += n
	}
	var length uint64
	n = getVarint(b[off:], &length)
	if n == 0 {
		return 0, newError(FrameEncodingError, "connection_close reason length")
	}
	off += n
	if uint64(len(b)-off) < length {
		return 0, newError(FrameEncodingError, "connection_close reason truncated")
	}
	f.reasonPhrase = b[off : off+int(length)]
	off += int(length)
	return off, nil
}

func (f *connectionCloseFrame) encodedLen() int {
	n := varintLen(f.typ()) + varintLen(f.errorCode)
	if !f.application {
		n += varintLen(f.frameType)
	}
	n += varintLen(uint64(len(f.reasonPhrase))) + len(f.reasonPhrase)
	return n
}

// handshakeDoneFrame (0x1e) tells the client the handshake is confirmed.
type handshakeDoneFrame struct{}

func (f *handshakeDoneFrame) encode(b []byte) (int, error) {
	off := putVarint(b, frameTypeHandshakeDone)
	return off, nil
}

func (f *handshakeDoneFrame) decode(b []byte) (int, error) {
	return 1, nil
}

func (f *handshakeDoneFrame) encodedLen() int {
	return varintLen(frameTypeHandshakeDone)
}
