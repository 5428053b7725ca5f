package transport

// EventType identifies the kind of Event delivered through Conn.Events.
// The quic package defines additional values in the same space for
// connection-level events (accept, close).
type EventType uint8

const (
	// EventStream indicates stream id StreamID has data available to read,
	// or is otherwise worth the application's attention.
	EventStream EventType = iota
	EventStreamReset
	EventStreamStop
	EventStreamComplete
)

func (t EventType) String() string {
	switch t {
	case EventStream:
		return "stream"
	case EventStreamReset:
		return "stream_reset"
	case EventStreamStop:
		return "stream_stop"
	case EventStreamComplete:
		return "stream_complete"
	default:
		return "unknown"
	}
}

// Event is a notification about connection or stream state changes,
// drained via Conn.Events.
type Event struct {
	Type      EventType
	StreamID  uint64
	ErrorCode uint64
}

func (e Event) String() string {
	return e.Type.String()
}

func newStreamRecvEvent(streamID uint64) Event {
	return Event{Type: EventStream, StreamID: streamID}
}

func newStreamResetEvent(streamID, errorCode uint64) Event {
	return Event{Type: EventStreamReset, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamStopEvent(streamID, errorCode uint64) Event {
	return Event{Type: EventStreamStop, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamCompleteEvent(streamID uint64) Event {
	return Event{Type: EventStreamComplete, StreamID: streamID}
}
