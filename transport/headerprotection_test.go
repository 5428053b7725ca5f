package transport

import (
	"bytes"
	"testing"
)

func TestAESHeaderProtectorMaskDeterministic(t *testing.T) {
	hp, err := newAESHeaderProtector(bytes.Repeat([]byte{0x9f}, 16))
	if err != nil {
		t.Fatal(err)
	}
	sample := bytes.Repeat([]byte{0x01, 0x02}, 8)
	m1, err := hp.mask(sample)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := hp.mask(sample)
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Fatal("mask is not deterministic for the same sample")
	}
}

func TestChaChaHeaderProtectorMaskDeterministic(t *testing.T) {
	hp, err := newChaChaHeaderProtector(bytes.Repeat([]byte{0x7a}, 32))
	if err != nil {
		t.Fatal(err)
	}
	sample := bytes.Repeat([]byte{0x03, 0x04}, 8)
	m1, err := hp.mask(sample)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := hp.mask(sample)
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Fatal("mask is not deterministic for the same sample")
	}
}

func TestHeaderProtectorRejectsShortSample(t *testing.T) {
	hp, err := newAESHeaderProtector(bytes.Repeat([]byte{0x01}, 16))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := hp.mask(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short sample")
	}
}

func TestApplyRemoveHeaderProtectionShortHeader(t *testing.T) {
	hp, err := newAESHeaderProtector(bytes.Repeat([]byte{0xab}, 16))
	if err != nil {
		t.Fatal(err)
	}
	pkt := make([]byte, 40)
	pkt[0] = 0x40 | 0x01 // short header, pnLen-1=1 => pnLen=2
	original := append([]byte(nil), pkt...)

	if err := applyHeaderProtection(hp, pkt, 1, 2, false); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(pkt, original) {
		t.Fatal("expected header bytes to change")
	}
	pnLen, err := removeHeaderProtection(hp, pkt, 1)
	if err != nil {
		t.Fatal(err)
	}
	if pnLen != 2 {
		t.Fatalf("pnLen = %d, want 2", pnLen)
	}
	if !bytes.Equal(pkt, original) {
		t.Fatal("remove did not invert apply")
	}
}
