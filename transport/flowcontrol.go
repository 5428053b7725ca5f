package transport

// flowControl tracks one direction-pair's flow-control accounting for
// either a connection or a single stream, RFC 9000 Section 4.
type flowControl struct {
	// Send side: how much this endpoint may send, as told by the peer.
	maxSend  uint64
	sendNext uint64 // total bytes sent so far

	// Receive side: how much this endpoint has told the peer it may receive,
	// and how much has actually been received.
	maxRecv     uint64 // current advertised limit
	maxRecvNext uint64 // limit to advertise next, once committed
	recvNext    uint64 // total bytes received so far

	autoTuneWindow uint64 // the increment used when raising maxRecvNext
}

func (f *flowControl) init(maxRecv, maxSend uint64) {
	f.maxRecv = maxRecv
	f.maxRecvNext = maxRecv
	f.maxSend = maxSend
	f.autoTuneWindow = maxRecv
}

// canSend returns how many more bytes may be sent before hitting the
// peer-advertised limit.
func (f *flowControl) canSend() uint64 {
	if f.sendNext >= f.maxSend {
		return 0
	}
	return f.maxSend - f.sendNext
}

// canRecv returns how many more bytes may be received before hitting the
// limit this endpoint has advertised.
func (f *flowControl) canRecv() uint64 {
	if f.recvNext >= f.maxRecv {
		return 0
	}
	return f.maxRecv - f.recvNext
}

func (f *flowControl) addSend(n int) {
	f.sendNext += uint64(n)
}

// addRecv accounts newly received bytes (including bytes a RESET_STREAM
// implicitly "receives" for flow control purposes) against the limit.
func (f *flowControl) addRecv(n int) {
	f.recvNext += uint64(n)
}

// setMaxSend raises the peer-advertised send limit; a MAX_DATA/MAX_STREAM_DATA
// frame with a lower value than already known is ignored (frames may arrive
// out of order).
func (f *flowControl) setMaxSend(max uint64) {
	if max > f.maxSend {
		f.maxSend = max
	}
}

// shouldUpdateMaxRecv reports whether enough of the current receive window
// has been consumed that a new MAX_DATA/MAX_STREAM_DATA should be sent.
func (f *flowControl) shouldUpdateMaxRecv() bool {
	if f.autoTuneWindow == 0 {
		return false
	}
	consumed := f.recvNext
	threshold := f.maxRecv - f.autoTuneWindow/2
	if consumed < threshold {
		return false
	}
	next := f.recvNext + f.autoTuneWindow
	if next > f.maxRecvNext {
		f.maxRecvNext = next
		return true
	}
	return false
}

// commitMaxRecv applies the newly advertised receive limit once the
// MAX_DATA/MAX_STREAM_DATA frame carrying it has actually been queued.
func (f *flowControl) commitMaxRecv() {
	f.maxRecv = f.maxRecvNext
}
