package transport

import (
	"testing"
	"time"
)

func TestPathValidationRoundTrip(t *testing.T) {
	var p pathState
	ch, err := p.startValidation(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if p.validated {
		t.Fatal("should not be validated before response")
	}
	resp := newPathResponseFrame(ch.data)
	p.onPathResponse(resp)
	if !p.validated {
		t.Fatal("expected validated after matching response")
	}
}

func TestPathValidationRejectsWrongResponse(t *testing.T) {
	var p pathState
	if _, err := p.startValidation(time.Now()); err != nil {
		t.Fatal(err)
	}
	var wrong [8]byte
	wrong[0] = 0xff
	p.onPathResponse(newPathResponseFrame(wrong))
	if p.validated {
		t.Fatal("should not validate on mismatched response")
	}
}

func TestAntiAmplificationLimit(t *testing.T) {
	var p pathState
	p.onBytesReceived(100)
	if !p.canSend(300) {
		t.Fatal("expected 3x received bytes to be sendable before validation")
	}
	if p.canSend(301) {
		t.Fatal("expected send beyond 3x received bytes to be blocked")
	}
	p.onBytesSent(300)
	if p.canSend(1) {
		t.Fatal("expected amplification limit reached")
	}
	p.validated = true
	if !p.canSend(1_000_000) {
		t.Fatal("validated path must have no amplification limit")
	}
}

func TestAmplificationLimitAccounting(t *testing.T) {
	var p pathState
	p.onBytesReceived(10)
	if got := p.amplificationLimit(); got != 30 {
		t.Fatalf("amplificationLimit() = %d, want 30", got)
	}
	p.onBytesSent(30)
	if got := p.amplificationLimit(); got != 0 {
		t.Fatalf("amplificationLimit() = %d, want 0", got)
	}
}
