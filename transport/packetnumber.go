package transport

import "time"

// packetNumberSpace holds everything scoped to one of the three packet
// number spaces (RFC 9000 Section 12.3): its own keys, its own send
// counter, and its own received-packet log for deduplication and ACKs.
type packetNumberSpace struct {
	opener *directionalKeys // keys for decrypting packets received in this space
	sealer *directionalKeys // keys for encrypting packets sent in this space

	// readPhase and writePhase are the 1-RTT key phase bits currently
	// expected on receipt and applied on send (RFC 9001 Section 6). They
	// flip independently: readPhase moves when a peer-initiated update is
	// recognized on decrypt, writePhase moves when Conn.UpdateKeys
	// initiates one locally. Only meaningful for the Application space.
	readPhase  bool
	writePhase bool
	nextOpener *directionalKeys // lazily-derived next generation, used to recognize a peer-initiated update

	nextPacketNumber uint64
	largestAckedSent uint64 // largest packet number of ours the peer has acked, or invalidPacketNumber

	recvPackets            rangeSet // packet numbers received, for duplicate detection
	recvPacketNeedAck      rangeSet // packet numbers received but not yet covered by a sent ACK
	largestRecvPacketTime  time.Time
	ackElicited            bool
	firstPacketAcked       bool

	cryptoStream Stream
}

func (sp *packetNumberSpace) init() {
	sp.nextPacketNumber = 0
	sp.largestAckedSent = invalidPacketNumber
	sp.recvPackets = rangeSet{}
	sp.recvPacketNeedAck = rangeSet{}
	sp.cryptoStream = Stream{}
	sp.readPhase = false
	sp.writePhase = false
	sp.nextOpener = nil
}

// reset clears send/receive state while keeping any keys already derived,
// used after Retry or Version Negotiation forces another Initial attempt.
func (sp *packetNumberSpace) reset() {
	sp.nextPacketNumber = 0
	sp.recvPackets = rangeSet{}
	sp.recvPacketNeedAck = rangeSet{}
	sp.ackElicited = false
	sp.firstPacketAcked = false
	sp.cryptoStream = Stream{}
}

// drop discards this space's keys and pending crypto stream state once the
// space is no longer needed (RFC 9001 Section 4.9).
func (sp *packetNumberSpace) drop() {
	sp.opener = nil
	sp.sealer = nil
	sp.cryptoStream = Stream{}
}

func (sp *packetNumberSpace) canDecrypt() bool {
	return sp.opener != nil && sp.opener.keys != nil
}

func (sp *packetNumberSpace) canEncrypt() bool {
	return sp.sealer != nil && sp.sealer.keys != nil
}

// ready reports whether this space has anything worth sending: either
// pending crypto data, a pending ACK, or a lost-packet retransmission is
// the caller's job to check separately via lossRecovery.
func (sp *packetNumberSpace) ready() bool {
	if !sp.canEncrypt() {
		return false
	}
	if sp.ackElicited {
		return true
	}
	if len(sp.cryptoStream.send.chunks) > 0 {
		return true
	}
	return false
}

// isPacketReceived reports whether pn has already been processed, RFC 9000
// Section 21.12 (duplicate suppression).
func (sp *packetNumberSpace) isPacketReceived(pn uint64) bool {
	return sp.recvPackets.contains(pn)
}

func (sp *packetNumberSpace) onPacketReceived(pn uint64, now time.Time) {
	sp.recvPackets.add(pn)
	sp.recvPacketNeedAck.add(pn)
	if now.After(sp.largestRecvPacketTime) {
		largest, ok := sp.recvPackets.largest()
		if ok && largest == pn {
			sp.largestRecvPacketTime = now
		}
	}
}

// decryptPacket removes header protection from the packet at the start of
// b and decrypts its payload with this space's opener.
func (sp *packetNumberSpace) decryptPacket(b []byte, p *packet) ([]byte, int, error) {
	if !sp.canDecrypt() {
		return nil, 0, newError(InternalError, "decrypt before keys available")
	}
	pnOffset := p.headerLen
	pnLen, err := removeHeaderProtection(sp.opener.keys.hp, b, pnOffset)
	if err != nil {
		return nil, 0, err
	}
	p.packetNumberLen = pnLen
	if p.typ == packetTypeShort {
		p.keyPhase = b[0]&0x04 != 0
	}
	truncated := decodePacketNumber(b[pnOffset:pnOffset+pnLen], pnLen)
	largest, ok := sp.recvPackets.largest()
	expected := uint64(0)
	if ok {
		expected = largest + 1
	}
	p.packetNumber = decodeTruncatedPacketNumber(truncated, pnLen, expected)

	var packetLen int
	if p.typ == packetTypeShort {
		packetLen = len(b)
	} else {
		packetLen = pnOffset + p.length
	}
	if packetLen > len(b) {
		return nil, 0, newError(FrameEncodingError, "packet length exceeds datagram")
	}
	ad := b[:pnOffset+pnLen]
	ciphertext := b[pnOffset+pnLen : packetLen]

	opener := sp.opener
	if p.typ == packetTypeShort && p.keyPhase != sp.readPhase {
		// The peer flipped the key phase bit: RFC 9001 Section 6.3 requires
		// trial decryption with the next generation before accepting the
		// update.
		if sp.nextOpener == nil {
			next, err := sp.opener.nextGeneration()
			if err != nil {
				return nil, 0, err
			}
			sp.nextOpener = next
		}
		opener = sp.nextOpener
	}
	plaintext, err := opener.keys.open(ciphertext[:0], p.packetNumber, ad, ciphertext)
	if err != nil {
		return nil, 0, err
	}
	if opener == sp.nextOpener {
		sp.opener = sp.nextOpener
		sp.nextOpener = nil
		sp.readPhase = p.keyPhase
	}
	return plaintext, packetLen, nil
}

func (sp *packetNumberSpace) encryptPacket(b []byte, p *packet) {
	pnOffset := p.headerLen
	pnLen := p.packetNumberLen
	ad := b[:pnOffset+pnLen]
	plaintext := b[pnOffset+pnLen : len(b)-sp.sealer.keys.aead.Overhead()]
	sealed := sp.sealer.keys.seal(b[pnOffset+pnLen:pnOffset+pnLen], p.packetNumber, ad, plaintext)
	_ = sealed
	applyHeaderProtection(sp.sealer.keys.hp, b, pnOffset, pnLen, p.typ != packetTypeShort)
}

// updateKeys performs a locally-initiated 1-RTT key update (RFC 9001
// Section 6): the sealer moves to the next generation and writePhase flips
// immediately, independent of whatever readPhase the peer is currently
// using for its own sends.
func (sp *packetNumberSpace) updateKeys() error {
	nextSealer, err := sp.sealer.nextGeneration()
	if err != nil {
		return err
	}
	sp.sealer = nextSealer
	sp.writePhase = !sp.writePhase
	return nil
}
