package transport

import (
	"bytes"
	"testing"
)

func TestPacketHeaderEncodeDecodeLongHeader(t *testing.T) {
	p := packet{
		typ: packetTypeInitial,
		header: packetHeader{
			version: versionQUIC1,
			dcid:    []byte{1, 2, 3, 4, 5, 6, 7, 8},
			scid:    []byte{9, 10, 11, 12},
		},
		token:           []byte("tok"),
		packetNumber:    17,
		packetNumberLen: 2,
		length:          2 + 5, // packet number + a placeholder payload
	}
	buf := make([]byte, p.encodedLen())
	off, err := p.encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if off != p.headerLen {
		t.Fatalf("encode returned %d, want headerLen %d", off, p.headerLen)
	}

	var got packet
	n, err := got.decodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != off {
		t.Fatalf("decodeHeader consumed %d, want %d", n, off)
	}
	if got.typ != packetTypeInitial || got.header.version != versionQUIC1 {
		t.Fatalf("got %+v", got)
	}
	if !bytes.Equal(got.header.dcid, p.header.dcid) || !bytes.Equal(got.header.scid, p.header.scid) {
		t.Fatalf("cid mismatch: got %+v", got.header)
	}
	if !bytes.Equal(got.token, p.token) {
		t.Fatalf("token mismatch: got %q, want %q", got.token, p.token)
	}
}

func TestPacketHeaderProtectionRoundTrip(t *testing.T) {
	dcid := []byte{0x83, 0x94, 0xc8, 0xf0, 0x3e, 0x51, 0x57, 0x08}
	clientSecret, _, err := deriveInitialSecrets(dcid)
	if err != nil {
		t.Fatal(err)
	}
	keys, err := deriveDirectionalKeys(suiteAES128GCM, clientSecret)
	if err != nil {
		t.Fatal(err)
	}

	p := packet{
		typ: packetTypeInitial,
		header: packetHeader{
			version: versionQUIC1,
			dcid:    dcid,
			scid:    []byte{1, 2, 3, 4},
		},
		packetNumber:    2,
		packetNumberLen: 2,
	}
	payload := make([]byte, 20) // stand-in frame bytes, long enough to sample
	p.length = p.packetNumberLen + len(payload)
	buf := make([]byte, p.encodedLen()+len(payload))
	pnOffset, err := p.encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	copy(buf[pnOffset+p.packetNumberLen:], payload)
	buf = buf[:pnOffset+p.packetNumberLen+len(payload)]

	original := append([]byte(nil), buf...)
	if err := applyHeaderProtection(keys.keys.hp, buf, pnOffset, p.packetNumberLen, true); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(buf[:pnOffset+p.packetNumberLen], original[:pnOffset+p.packetNumberLen]) {
		t.Fatal("applyHeaderProtection did not change header bytes")
	}

	pnLen, err := removeHeaderProtection(keys.keys.hp, buf, pnOffset)
	if err != nil {
		t.Fatal(err)
	}
	if pnLen != p.packetNumberLen {
		t.Fatalf("recovered pnLen = %d, want %d", pnLen, p.packetNumberLen)
	}
	if !bytes.Equal(buf, original) {
		t.Fatal("remove is not the exact inverse of apply")
	}
}

func TestDecodeTruncatedPacketNumber(t *testing.T) {
	cases := []struct {
		full     uint64
		pnLen    int
		expected uint64
	}{
		{0, 1, 0},
		{128, 1, 1},
		{0xabe8b3, 2, 0xac5c02},
	}
	for _, c := range cases {
		var truncated uint64
		switch c.pnLen {
		case 1:
			truncated = c.full & 0xff
		case 2:
			truncated = c.full & 0xffff
		}
		got := decodeTruncatedPacketNumber(truncated, c.pnLen, c.expected)
		if got != c.full && got&((1<<uint(c.pnLen*8))-1) != truncated {
			t.Errorf("decodeTruncatedPacketNumber(%d, %d, %d) = %d", truncated, c.pnLen, c.expected, got)
		}
	}
}

func TestEncodePNLengthMinimal(t *testing.T) {
	if got := encodePNLength(0, invalidPacketNumber); got != 1 {
		t.Errorf("encodePNLength(0, none) = %d, want 1", got)
	}
	if got := encodePNLength(100000, 0); got < 2 {
		t.Errorf("encodePNLength(100000, 0) = %d, want >= 2", got)
	}
}

func TestVersionNegotiationBodyRoundTrip(t *testing.T) {
	p := packet{
		header: packetHeader{
			dcid: []byte{1, 2},
			scid: []byte{3, 4},
		},
	}
	hdr := []byte{0x80, 0, 0, 0, 0, 2, 1, 2, 2, 3, 4}
	versions := []byte{0, 0, 0, 1, 0xff, 0, 0, 0}
	b := append(append([]byte(nil), hdr...), versions...)
	n, err := p.decodeHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if p.typ != packetTypeVersionNegotiation {
		t.Fatalf("typ = %v, want version_negotiation", p.typ)
	}
	bodyLen, err := p.decodeBody(b[:n+len(versions)])
	if err != nil {
		t.Fatal(err)
	}
	if bodyLen != len(versions) {
		t.Fatalf("bodyLen = %d, want %d", bodyLen, len(versions))
	}
	if len(p.supportedVersions) != 2 || p.supportedVersions[0] != versionQUIC1 {
		t.Fatalf("supportedVersions = %v", p.supportedVersions)
	}
}
