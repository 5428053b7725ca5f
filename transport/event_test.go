package transport

import "testing"

func TestEventConstructors(t *testing.T) {
	cases := []struct {
		name string
		got  Event
		want Event
	}{
		{"recv", newStreamRecvEvent(4), Event{Type: EventStream, StreamID: 4}},
		{"reset", newStreamResetEvent(8, 1), Event{Type: EventStreamReset, StreamID: 8, ErrorCode: 1}},
		{"stop", newStreamStopEvent(12, 2), Event{Type: EventStreamStop, StreamID: 12, ErrorCode: 2}},
		{"complete", newStreamCompleteEvent(16), Event{Type: EventStreamComplete, StreamID: 16}},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %+v, want %+v", c.name, c.got, c.want)
		}
	}
}

func TestEventTypeString(t *testing.T) {
	if EventStream.String() != "stream" {
		t.Fatalf("EventStream.String() = %q", EventStream.String())
	}
	if EventType(250).String() != "unknown" {
		t.Fatalf("unknown EventType.String() = %q", EventType(250).String())
	}
}
