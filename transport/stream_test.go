package transport

import "testing"

func TestRecvBufferOutOfOrderReassembly(t *testing.T) {
	var b recvBuffer
	if err := b.pushRecv([]byte("world"), 5, true); err != nil {
		t.Fatal(err)
	}
	if err := b.pushRecv([]byte("hello"), 0, false); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 10)
	n, fin := b.read(buf)
	if n != 10 || string(buf[:n]) != "helloworld" {
		t.Fatalf("read = %q, fin=%v", buf[:n], fin)
	}
	if !fin {
		t.Fatal("expected fin after consuming all data")
	}
}

func TestRecvBufferDuplicateAndOverlapIgnored(t *testing.T) {
	var b recvBuffer
	if err := b.pushRecv([]byte("hello"), 0, false); err != nil {
		t.Fatal(err)
	}
	// Overlapping resend of part of the same data plus new bytes.
	if err := b.pushRecv([]byte("llo world"), 2, false); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 32)
	n, _ := b.read(buf)
	if string(buf[:n]) != "hello world" {
		t.Fatalf("read = %q", buf[:n])
	}
}

func TestRecvBufferInconsistentFinalSizeRejected(t *testing.T) {
	var b recvBuffer
	if err := b.pushRecv([]byte("hello"), 0, true); err != nil {
		t.Fatal(err)
	}
	if err := b.pushRecv([]byte("x"), 10, true); err == nil {
		t.Fatal("expected error for inconsistent final size")
	}
}

func TestSendBufferPushAndPopSend(t *testing.T) {
	var b sendBuffer
	if err := b.push([]byte("hello world"), 0, true); err != nil {
		t.Fatal(err)
	}
	data, offset, fin := b.popSend(5)
	if string(data) != "hello" || offset != 0 || fin {
		t.Fatalf("popSend = %q %d %v", data, offset, fin)
	}
	data, offset, fin = b.popSend(100)
	if string(data) != " world" || offset != 5 || !fin {
		t.Fatalf("popSend = %q %d %v", data, offset, fin)
	}
}

func TestSendBufferAckMarksComplete(t *testing.T) {
	var b sendBuffer
	if err := b.push([]byte("hi"), 0, true); err != nil {
		t.Fatal(err)
	}
	b.popSend(100)
	if b.complete() {
		t.Fatal("should not be complete before ack")
	}
	b.ack(0, 2)
	b.ack(2, 0)
	if !b.complete() {
		t.Fatal("expected complete after data and fin acked")
	}
}

func TestStreamResetAccountsUnreceivedBytes(t *testing.T) {
	var b recvBuffer
	if err := b.pushRecv([]byte("hello"), 0, false); err != nil {
		t.Fatal(err)
	}
	mayRecv, err := b.reset(20)
	if err != nil {
		t.Fatal(err)
	}
	if mayRecv != 15 {
		t.Fatalf("mayRecv = %d, want 15", mayRecv)
	}
	if !b.wasReset {
		t.Fatal("expected wasReset = true")
	}
}

func TestStreamResetBelowReceivedDataRejected(t *testing.T) {
	var b recvBuffer
	if err := b.pushRecv([]byte("hello"), 0, false); err != nil {
		t.Fatal(err)
	}
	if _, err := b.reset(2); err == nil {
		t.Fatal("expected error resetting below already-received data")
	}
}

func TestIsStreamLocalAndBidi(t *testing.T) {
	cases := []struct {
		id       uint64
		isClient bool
		local    bool
		bidi     bool
	}{
		{0, true, true, true},
		{0, false, false, true},
		{1, true, false, true},
		{2, true, true, false},
		{3, true, false, false},
	}
	for _, c := range cases {
		if got := isStreamLocal(c.id, c.isClient); got != c.local {
			t.Errorf("isStreamLocal(%d, %v) = %v, want %v", c.id, c.isClient, got, c.local)
		}
		if got := isStreamBidi(c.id); got != c.bidi {
			t.Errorf("isStreamBidi(%d) = %v, want %v", c.id, got, c.bidi)
		}
	}
}

func TestStreamMapEnforcesPeerLimit(t *testing.T) {
	var m streamMap
	m.init(10, 10)
	m.setPeerMaxStreamsBidi(1)
	if _, err := m.create(0, true, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.create(4, true, true); err == nil {
		t.Fatal("expected stream limit error")
	}
}
