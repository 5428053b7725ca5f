package transport

import (
	"testing"
	"time"
)

func TestLogEventPacket(t *testing.T) {
	p := &packet{
		typ: packetTypeInitial,
		header: packetHeader{
			version: versionQUIC1,
			dcid:    []byte{1, 2, 3, 4},
		},
		packetNumber: 7,
		payloadLen:   42,
	}
	e := newLogEventPacket(time.Now(), logEventPacketSent, p)
	if e.Type != logEventPacketSent {
		t.Fatalf("type = %q", e.Type)
	}
	want := map[string]bool{"packet_type": false, "version": false, "dcid": false, "packet_number": false, "payload_length": false}
	for _, f := range e.Fields {
		if _, ok := want[f.Key]; ok {
			want[f.Key] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing field %q in %+v", k, e.Fields)
		}
	}
}

func TestLogEventFrameAck(t *testing.T) {
	f := &ackFrame{largestAck: 5, ackDelay: 100, ranges: []pnRange{{start: 0, end: 5}}}
	e := newLogEventFrame(time.Now(), logEventFramesProcessed, f)
	found := false
	for _, fld := range e.Fields {
		if fld.Key == "frame_type" && fld.Str == "ack" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected frame_type=ack in %+v", e.Fields)
	}
}

func TestLogFieldString(t *testing.T) {
	n := newLogField("x", uint64(9))
	if n.String() != "x=9" {
		t.Fatalf("got %q", n.String())
	}
	s := newLogField("y", "hello")
	if s.String() != "y=hello" {
		t.Fatalf("got %q", s.String())
	}
	b := newLogField("z", []byte{0xab, 0xcd})
	if b.String() != "z=abcd" {
		t.Fatalf("got %q", b.String())
	}
}
