package transport

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20"
)

// headerProtector computes the 5-byte mask used to protect/unprotect the
// first byte and packet number bytes of a QUIC packet (RFC 9001 Section 5.4).
type headerProtector interface {
	mask(sample []byte) ([5]byte, error)
}

type aesHeaderProtector struct {
	block cipher.Block
}

func newAESHeaderProtector(hpKey []byte) (headerProtector, error) {
	block, err := aes.NewCipher(hpKey)
	if err != nil {
		return nil, newError(InternalError, err.Error())
	}
	return &aesHeaderProtector{block: block}, nil
}

func (p *aesHeaderProtector) mask(sample []byte) ([5]byte, error) {
	var out [5]byte
	if len(sample) < 16 {
		return out, newError(ProtocolViolation, "header protection sample too short")
	}
	var block [16]byte
	p.block.Encrypt(block[:], sample[:16])
	copy(out[:], block[:5])
	return out, nil
}

type chachaHeaderProtector struct {
	key [chacha20.KeySize]byte
}

func newChaChaHeaderProtector(hpKey []byte) (headerProtector, error) {
	if len(hpKey) != chacha20.KeySize {
		return nil, newError(InternalError, "invalid chacha20 hp key length")
	}
	p := &chachaHeaderProtector{}
	copy(p.key[:], hpKey)
	return p, nil
}

func (p *chachaHeaderProtector) mask(sample []byte) ([5]byte, error) {
	var out [5]byte
	if len(sample) < 16 {
		return out, newError(ProtocolViolation, "header protection sample too short")
	}
	// RFC 9001 Section 5.4.4: counter is the first 4 bytes of the sample
	// (little-endian), nonce is the remaining 12 bytes.
	counter := uint32(sample[0]) | uint32(sample[1])<<8 | uint32(sample[2])<<16 | uint32(sample[3])<<24
	nonce := sample[4:16]
	c, err := chacha20.NewUnauthenticatedCipher(p.key[:], nonce)
	if err != nil {
		return out, newError(InternalError, err.Error())
	}
	c.SetCounter(counter)
	var zeros [5]byte
	c.XORKeyStream(out[:], zeros[:])
	return out, nil
}

// applyHeaderProtection XORs the mask derived from the sample (16 bytes
// starting 4 bytes after pnOffset) into the first byte and the
// packetNumberLen packet-number bytes of pkt, in place.
func applyHeaderProtection(hp headerProtector, pkt []byte, pnOffset, packetNumberLen int, longHeader bool) error {
	sampleOffset := pnOffset + 4
	if sampleOffset+16 > len(pkt) {
		return newError(ProtocolViolation, "insufficient sample bytes")
	}
	mask, err := hp.mask(pkt[sampleOffset : sampleOffset+16])
	if err != nil {
		return err
	}
	if longHeader {
		pkt[0] ^= mask[0] & 0x0f
	} else {
		pkt[0] ^= mask[0] & 0x1f
	}
	for i := 0; i < packetNumberLen; i++ {
		pkt[pnOffset+i] ^= mask[1+i]
	}
	return nil
}

// removeHeaderProtection is the exact inverse of applyHeaderProtection: it
// unmasks the first byte first (to learn packetNumberLen from its low two
// bits), then unmasks that many packet number bytes. It returns the
// recovered packet-number length.
func removeHeaderProtection(hp headerProtector, pkt []byte, pnOffset int) (int, error) {
	sampleOffset := pnOffset + 4
	if sampleOffset+16 > len(pkt) {
		return 0, newError(ProtocolViolation, "insufficient sample bytes")
	}
	mask, err := hp.mask(pkt[sampleOffset : sampleOffset+16])
	if err != nil {
		return 0, err
	}
	longHeader := pkt[0]&0x80 != 0
	if longHeader {
		pkt[0] ^= mask[0] & 0x0f
	} else {
		pkt[0] ^= mask[0] & 0x1f
	}
	pnLen := int(pkt[0]&0x03) + 1
	if sampleOffset < pnOffset+pnLen {
		return 0, newError(ProtocolViolation, "packet number overlaps sample")
	}
	for i := 0; i < pnLen; i++ {
		pkt[pnOffset+i] ^= mask[1+i]
	}
	return pnLen, nil
}
