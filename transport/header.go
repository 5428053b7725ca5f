package transport

// Header is the subset of a QUIC packet header a dispatcher needs to route
// an inbound datagram to the right Conn before that Conn's keys are
// available to fully decrypt it: the connection IDs and, for long headers,
// the version. It is the public counterpart of the internal packetHeader.
type Header struct {
	IsLong    bool
	IsInitial bool
	Version   uint32
	DCID      []byte
	SCID      []byte
	Token     []byte
}

// DecodeHeader peeks the routing-relevant fields out of the first packet in
// a datagram without removing header protection or touching any
// connection's keys. dcidLen is the length of locally-issued connection IDs
// and is only consulted for short headers, which carry no explicit DCID
// length of their own.
func DecodeHeader(b []byte, dcidLen int) (Header, error) {
	p := packet{header: packetHeader{dcil: uint8(dcidLen)}}
	if _, err := p.decodeHeader(b); err != nil {
		return Header{}, err
	}
	h := Header{
		IsLong:    p.typ != packetTypeShort,
		IsInitial: p.typ == packetTypeInitial,
		Version:   p.header.version,
		DCID:      append([]byte(nil), p.header.dcid...),
	}
	if h.IsLong {
		h.SCID = append([]byte(nil), p.header.scid...)
	}
	if h.IsInitial {
		h.Token = append([]byte(nil), p.token...)
	}
	return h, nil
}
