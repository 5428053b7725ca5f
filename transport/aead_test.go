package transport

import (
	"bytes"
	"testing"
)

func TestProtectionKeysSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, 12)
	hp := bytes.Repeat([]byte{0x33}, 16)
	k, err := newProtectionKeys(suiteAES128GCM, key, iv, hp)
	if err != nil {
		t.Fatal(err)
	}
	ad := []byte("header")
	plaintext := []byte("hello quic")
	sealed := k.seal(nil, 5, ad, plaintext)
	got, err := k.open(nil, 5, ad, sealed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("open() = %q, want %q", got, plaintext)
	}
}

func TestProtectionKeysOpenRejectsBitFlip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, 12)
	hp := bytes.Repeat([]byte{0x33}, 16)
	k, err := newProtectionKeys(suiteAES128GCM, key, iv, hp)
	if err != nil {
		t.Fatal(err)
	}
	ad := []byte("header")
	sealed := k.seal(nil, 1, ad, []byte("payload"))
	sealed[0] ^= 0x01
	if _, err := k.open(nil, 1, ad, sealed); err == nil {
		t.Fatal("expected authentication failure on bit-flipped ciphertext")
	}
}

func TestProtectionKeysOpenRejectsWrongPacketNumber(t *testing.T) {
	key := bytes.Repeat([]byte{0x44}, 16)
	iv := bytes.Repeat([]byte{0x55}, 12)
	hp := bytes.Repeat([]byte{0x66}, 16)
	k, err := newProtectionKeys(suiteAES128GCM, key, iv, hp)
	if err != nil {
		t.Fatal(err)
	}
	sealed := k.seal(nil, 3, nil, []byte("data"))
	if _, err := k.open(nil, 4, nil, sealed); err == nil {
		t.Fatal("expected authentication failure using the wrong packet number nonce")
	}
}

func TestInitialAEADDerivesDistinctClientServerKeys(t *testing.T) {
	a := initialAEAD{}
	if err := a.init([]byte{0x83, 0x94, 0xc8, 0xf0, 0x3e, 0x51, 0x57, 0x08}); err != nil {
		t.Fatal(err)
	}
	if a.client == nil || a.server == nil {
		t.Fatal("expected both client and server keys derived")
	}
	if bytes.Equal(a.client.secret, a.server.secret) {
		t.Fatal("client and server initial secrets must differ")
	}
}

func TestConfidentialityAndIntegrityLimits(t *testing.T) {
	if confidentialityLimit(suiteAES128GCM) != 1<<23 {
		t.Errorf("AES confidentiality limit wrong")
	}
	if integrityLimit(suiteAES128GCM) != 1<<52 {
		t.Errorf("AES integrity limit wrong")
	}
	if confidentialityLimit(suiteChaCha20Poly1305) != maxVarint {
		t.Errorf("ChaCha20 confidentiality limit wrong")
	}
	if integrityLimit(suiteChaCha20Poly1305) != 1<<36 {
		t.Errorf("ChaCha20 integrity limit wrong")
	}
}

func TestProtectionKeysLimitsExceeded(t *testing.T) {
	k := &protectionKeys{suite: suiteAES128GCM}
	k.encrypted = confidentialityLimit(suiteAES128GCM)
	if !k.limitsExceeded() {
		t.Fatal("expected limitsExceeded once confidentiality limit reached")
	}
}
