package transport

import (
	"bytes"
	"testing"
)

func TestDecodeHeaderLong(t *testing.T) {
	p := packet{
		typ: packetTypeInitial,
		header: packetHeader{
			version: versionQUIC1,
			dcid:    []byte{1, 2, 3, 4, 5, 6, 7, 8},
			scid:    []byte{9, 10, 11, 12},
		},
		token:        nil,
		packetNumber: 1,
		packetNumberLen: 1,
		length:       1 + 16,
	}
	buf := make([]byte, p.encodedLen()+16)
	_, err := p.encode(buf)
	if err != nil {
		t.Fatal(err)
	}

	h, err := DecodeHeader(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsLong || h.Version != versionQUIC1 {
		t.Fatalf("got %+v", h)
	}
	if !bytes.Equal(h.DCID, p.header.dcid) || !bytes.Equal(h.SCID, p.header.scid) {
		t.Fatalf("cid mismatch: %+v", h)
	}
}

func TestDecodeHeaderShortNeedsDCIDLen(t *testing.T) {
	p := packet{
		typ: packetTypeShort,
		header: packetHeader{
			dcid: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		packetNumber:    1,
		packetNumberLen: 1,
	}
	buf := make([]byte, 1+len(p.header.dcid)+p.packetNumberLen)
	_, err := p.encode(buf)
	if err != nil {
		t.Fatal(err)
	}

	h, err := DecodeHeader(buf, len(p.header.dcid))
	if err != nil {
		t.Fatal(err)
	}
	if h.IsLong {
		t.Fatalf("expected short header")
	}
	if !bytes.Equal(h.DCID, p.header.dcid) {
		t.Fatalf("dcid mismatch: %x want %x", h.DCID, p.header.dcid)
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	if _, err := DecodeHeader(nil, 8); err == nil {
		t.Fatal("expected error on empty datagram")
	}
}
