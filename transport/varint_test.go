package transport

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 37, 63,
		64, 15293, 16383,
		16384, 494878333, 1073741823,
		1073741824, 151288809941952652, maxVarint,
	}
	for _, v := range values {
		b := appendVarint(nil, v)
		if len(b) != varintLen(v) {
			t.Fatalf("varintLen(%d) = %d, encoded %d bytes", v, varintLen(v), len(b))
		}
		var got uint64
		n := getVarint(b, &got)
		if n != len(b) {
			t.Fatalf("getVarint consumed %d, want %d", n, len(b))
		}
		if got != v {
			t.Fatalf("decode(encode(%d)) = %d", v, got)
		}
	}
}

func TestVarintMinimalWidth(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 1}, {63, 1},
		{64, 2}, {16383, 2},
		{16384, 4}, {1073741823, 4},
		{1073741824, 8}, {maxVarint, 8},
	}
	for _, c := range cases {
		if got := varintLen(c.v); got != c.want {
			t.Errorf("varintLen(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestVarintAcceptsNonCanonicalWidths(t *testing.T) {
	// 37 encoded in the 4-byte form (prefix 10): 0x80 0x00 0x00 0x25
	b := []byte{0x80, 0x00, 0x00, 0x25}
	var v uint64
	n := getVarint(b, &v)
	if n != 4 || v != 37 {
		t.Fatalf("getVarint(%x) = %d, %d; want 4, 37", b, n, v)
	}
}

func TestVarintTruncated(t *testing.T) {
	b := []byte{0xc0, 0x01}
	var v uint64
	if n := getVarint(b, &v); n != 0 {
		t.Fatalf("getVarint on truncated input returned %d, want 0", n)
	}
}
