package transport

import (
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// TestInitialKeyDerivationVectors checks the RFC 9001 Appendix A.1 /
// spec.md Section 8 item 4 known-answer vectors.
func TestInitialKeyDerivationVectors(t *testing.T) {
	dcid := mustHex(t, "8394c8f03e515708")

	clientSecret, serverSecret, err := deriveInitialSecrets(dcid)
	if err != nil {
		t.Fatal(err)
	}
	wantClientSecret := mustHex(t, "c00cf151ca5be075ed0ebfb5c80323c42d6b7db67881289af4008f1f6c357aea")
	wantServerSecret := mustHex(t, "3c199828fd139efd216c155ad844cc81fb82fa8d7446fa7d78be803acdda951b")
	if hex.EncodeToString(clientSecret) != hex.EncodeToString(wantClientSecret) {
		t.Fatalf("client initial secret = %x, want %x", clientSecret, wantClientSecret)
	}
	if hex.EncodeToString(serverSecret) != hex.EncodeToString(wantServerSecret) {
		t.Fatalf("server initial secret = %x, want %x", serverSecret, wantServerSecret)
	}

	client, err := deriveDirectionalKeys(suiteAES128GCM, clientSecret)
	if err != nil {
		t.Fatal(err)
	}
	wantKey := mustHex(t, "1f369613dd76d5467730efcbe3b1a22d")
	wantIV := mustHex(t, "fa044b2f42a3fd3b46fb255c")
	wantHP := mustHex(t, "9f50449e04a0e810283a1e9933adedd2")

	gotKey := hkdfExpandLabel(hashForSuite(suiteAES128GCM), clientSecret, "quic key", nil, 16)
	gotIV := hkdfExpandLabel(hashForSuite(suiteAES128GCM), clientSecret, "quic iv", nil, 12)
	gotHP := hkdfExpandLabel(hashForSuite(suiteAES128GCM), clientSecret, "quic hp", nil, 16)
	if hex.EncodeToString(gotKey) != hex.EncodeToString(wantKey) {
		t.Errorf("client key = %x, want %x", gotKey, wantKey)
	}
	if hex.EncodeToString(gotIV) != hex.EncodeToString(wantIV) {
		t.Errorf("client iv = %x, want %x", gotIV, wantIV)
	}
	if hex.EncodeToString(gotHP) != hex.EncodeToString(wantHP) {
		t.Errorf("client hp = %x, want %x", gotHP, wantHP)
	}
	if client.keys == nil {
		t.Fatal("expected derived protection keys")
	}
}

// TestNonceConstruction checks spec.md Section 8 item 5.
func TestNonceConstruction(t *testing.T) {
	iv := mustHex(t, "fa044b2f42a3fd3b46fb255c")
	k := &protectionKeys{iv: iv}
	want := []string{
		"fa044b2f42a3fd3b46fb255c",
		"fa044b2f42a3fd3b46fb255d",
		"fa044b2f42a3fd3b46fb255e",
	}
	for pn := uint64(0); pn < 3; pn++ {
		got := hex.EncodeToString(k.nonce(pn))
		if got != want[pn] {
			t.Errorf("nonce(%d) = %s, want %s", pn, got, want[pn])
		}
	}
}

func TestKeyUpdateChangesSecret(t *testing.T) {
	dcid := mustHex(t, "8394c8f03e515708")
	clientSecret, _, err := deriveInitialSecrets(dcid)
	if err != nil {
		t.Fatal(err)
	}
	d, err := deriveDirectionalKeys(suiteAES128GCM, clientSecret)
	if err != nil {
		t.Fatal(err)
	}
	next, err := d.nextGeneration()
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(next.secret) == hex.EncodeToString(d.secret) {
		t.Fatal("key update did not change secret")
	}
}
