package transport

import "testing"

func TestFlowControlSendLimit(t *testing.T) {
	var f flowControl
	f.init(0, 100)
	if f.canSend() != 100 {
		t.Fatalf("canSend() = %d, want 100", f.canSend())
	}
	f.addSend(60)
	if f.canSend() != 40 {
		t.Fatalf("canSend() = %d, want 40", f.canSend())
	}
	f.setMaxSend(50) // lower than current, must be ignored
	if f.canSend() != 40 {
		t.Fatalf("canSend() after lower MAX_DATA = %d, want unchanged 40", f.canSend())
	}
	f.setMaxSend(200)
	if f.canSend() != 140 {
		t.Fatalf("canSend() = %d, want 140", f.canSend())
	}
}

func TestFlowControlRecvLimitAndUpdate(t *testing.T) {
	var f flowControl
	f.init(100, 0)
	if f.canRecv() != 100 {
		t.Fatalf("canRecv() = %d, want 100", f.canRecv())
	}
	f.addRecv(40)
	if f.shouldUpdateMaxRecv() {
		t.Fatal("should not need update yet")
	}
	f.addRecv(20) // now at 60/100, past half the 100-byte window
	if !f.shouldUpdateMaxRecv() {
		t.Fatal("expected update needed past half window")
	}
	f.commitMaxRecv()
	if f.maxRecv != f.maxRecvNext {
		t.Fatalf("maxRecv = %d, maxRecvNext = %d", f.maxRecv, f.maxRecvNext)
	}
}

func TestFlowControlExhausted(t *testing.T) {
	var f flowControl
	f.init(0, 10)
	f.addSend(10)
	if f.canSend() != 0 {
		t.Fatalf("canSend() = %d, want 0", f.canSend())
	}
}
