package transport

import "testing"

func TestStreamFrameRoundTrip(t *testing.T) {
	want := newStreamFrame(4, []byte("hello"), 10, true)
	buf := make([]byte, want.encodedLen())
	n, err := want.encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("encode wrote %d bytes, encodedLen said %d", n, len(buf))
	}
	var got streamFrame
	n, err = got.decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) || got.streamID != want.streamID || got.offset != want.offset || got.fin != want.fin || string(got.data) != string(want.data) {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}
}

func TestStreamFrameZeroOffsetOmitsField(t *testing.T) {
	f := newStreamFrame(0, []byte("x"), 0, false)
	buf := make([]byte, f.encodedLen())
	if _, err := f.encode(buf); err != nil {
		t.Fatal(err)
	}
	var got streamFrame
	if _, err := got.decode(buf); err != nil {
		t.Fatal(err)
	}
	if got.offset != 0 {
		t.Fatalf("offset = %d, want 0", got.offset)
	}
}

func TestAckFrameRoundTripMultipleRanges(t *testing.T) {
	var recvd rangeSet
	for _, pn := range []uint64{1, 2, 3, 7, 8, 20} {
		recvd.add(pn)
	}
	want := newAckFrame(1234, &recvd)
	buf := make([]byte, want.encodedLen())
	n, err := want.encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("encode wrote %d, want %d", n, len(buf))
	}
	var got ackFrame
	if _, err := got.decode(buf); err != nil {
		t.Fatal(err)
	}
	if got.largestAck != 20 || got.ackDelay != 1234 {
		t.Fatalf("got %+v", got)
	}
	gotSet := got.toRangeSet()
	for _, pn := range []uint64{1, 2, 3, 7, 8, 20} {
		if !gotSet.contains(pn) {
			t.Errorf("decoded ack ranges missing pn %d", pn)
		}
	}
	if gotSet.contains(4) || gotSet.contains(19) {
		t.Errorf("decoded ack ranges contain unacked pn")
	}
}

func TestResetStreamFrameRoundTrip(t *testing.T) {
	want := newResetStreamFrame(4, uint64(FlowControlError), 100)
	buf := make([]byte, want.encodedLen())
	if _, err := want.encode(buf); err != nil {
		t.Fatal(err)
	}
	var got resetStreamFrame
	if _, err := got.decode(buf); err != nil {
		t.Fatal(err)
	}
	if got != *want {
		t.Fatalf("got %+v, want %+v", got, *want)
	}
}

func TestMaxStreamsFrameDirectionality(t *testing.T) {
	for _, bidi := range []bool{true, false} {
		f := newMaxStreamsFrame(bidi, 7)
		buf := make([]byte, f.encodedLen())
		if _, err := f.encode(buf); err != nil {
			t.Fatal(err)
		}
		var got maxStreamsFrame
		if _, err := got.decode(buf); err != nil {
			t.Fatal(err)
		}
		if got.bidi != bidi || got.maximumStreams != 7 {
			t.Fatalf("got %+v, want bidi=%v maximumStreams=7", got, bidi)
		}
	}
}

func TestNewConnectionIDFrameRoundTrip(t *testing.T) {
	var token [StatelessResetTokenLength]byte
	for i := range token {
		token[i] = byte(i)
	}
	want := newNewConnectionIDFrame(3, 1, []byte{1, 2, 3, 4}, token)
	buf := make([]byte, want.encodedLen())
	if _, err := want.encode(buf); err != nil {
		t.Fatal(err)
	}
	var got newConnectionIDFrame
	n, err := got.decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) || got.sequenceNumber != 3 || got.retirePriorTo != 1 || string(got.connectionID) != "\x01\x02\x03\x04" || got.statelessResetToken != token {
		t.Fatalf("got %+v", got)
	}
}

func TestPathChallengeResponseRoundTrip(t *testing.T) {
	var data [8]byte
	copy(data[:], "deadbeef")
	ch := newPathChallengeFrame(data)
	buf := make([]byte, ch.encodedLen())
	if _, err := ch.encode(buf); err != nil {
		t.Fatal(err)
	}
	var gotCh pathChallengeFrame
	if _, err := gotCh.decode(buf); err != nil {
		t.Fatal(err)
	}
	if gotCh.data != data {
		t.Fatalf("got %v, want %v", gotCh.data, data)
	}

	resp := newPathResponseFrame(data)
	buf = make([]byte, resp.encodedLen())
	if _, err := resp.encode(buf); err != nil {
		t.Fatal(err)
	}
	var gotResp pathResponseFrame
	if _, err := gotResp.decode(buf); err != nil {
		t.Fatal(err)
	}
	if gotResp.data != data {
		t.Fatalf("got %v, want %v", gotResp.data, data)
	}
}

func TestConnectionCloseFrameTransportVsApplication(t *testing.T) {
	f := newConnectionCloseFrame(0x0a, 6, []byte("bye"), false)
	buf := make([]byte, f.encodedLen())
	if _, err := f.encode(buf); err != nil {
		t.Fatal(err)
	}
	var got connectionCloseFrame
	if _, err := got.decode(buf); err != nil {
		t.Fatal(err)
	}
	if got.application || got.errorCode != 0x0a || got.frameType != 6 || string(got.reasonPhrase) != "bye" {
		t.Fatalf("got %+v", got)
	}

	af := newConnectionCloseFrame(0x01, 0, []byte("app"), true)
	buf = make([]byte, af.encodedLen())
	if _, err := af.encode(buf); err != nil {
		t.Fatal(err)
	}
	var gotApp connectionCloseFrame
	if _, err := gotApp.decode(buf); err != nil {
		t.Fatal(err)
	}
	if !gotApp.application || gotApp.errorCode != 0x01 || string(gotApp.reasonPhrase) != "app" {
		t.Fatalf("got %+v", gotApp)
	}
}

func TestIsFrameAckEliciting(t *testing.T) {
	if isFrameAckEliciting(frameTypeAck) || isFrameAckEliciting(frameTypePadding) || isFrameAckEliciting(frameTypeConnectionClose) {
		t.Fatal("ack/padding/connection_close must not be ack-eliciting")
	}
	if !isFrameAckEliciting(frameTypePing) || !isFrameAckEliciting(frameTypeStream) {
		t.Fatal("ping/stream must be ack-eliciting")
	}
}
