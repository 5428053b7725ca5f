package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// retryIntegrityKey and retryIntegrityNonce are the fixed AEAD_AES_128_GCM
// key and nonce used to compute the Retry Integrity Tag, RFC 9001 Section
// 5.8.
var (
	retryIntegrityKey = []byte{
		0xbe, 0x0c, 0x69, 0x0b, 0x9f, 0x66, 0x57, 0x5a,
		0x1d, 0x76, 0x6b, 0x54, 0xe3, 0x68, 0xc8, 0x4e,
	}
	retryIntegrityNonce = []byte{
		0x46, 0x15, 0x99, 0xd3, 0x5d, 0x63, 0x2b, 0xf2, 0x23, 0x98, 0x25, 0xbb,
	}
)

// computeRetryIntegrityTag computes the 16-byte tag appended to a Retry
// packet: an AEAD_AES_128_GCM tag (no plaintext) over the pseudo-packet
// built from the original DCID length-prefixed, followed by everything the
// server sends on the wire.
func computeRetryIntegrityTag(retryPacket, originalDCID []byte) ([]byte, error) {
	block, err := aes.NewCipher(retryIntegrityKey)
	if err != nil {
		return nil, newError(InternalError, err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, newError(InternalError, err.Error())
	}
	pseudo := make([]byte, 0, 1+len(originalDCID)+len(retryPacket))
	pseudo = append(pseudo, byte(len(originalDCID)))
	pseudo = append(pseudo, originalDCID...)
	pseudo = append(pseudo, retryPacket...)
	tag := aead.Seal(nil, retryIntegrityNonce, nil, pseudo)
	return tag, nil
}

// verifyRetryIntegrity checks the 16-byte tag trailing a received Retry
// packet in b against the original destination connection ID the client
// used when it sent the first Initial packet.
func verifyRetryIntegrity(b, originalDCID []byte) bool {
	const tagLen = 16
	if len(b) < tagLen {
		return false
	}
	body := b[:len(b)-tagLen]
	gotTag := b[len(b)-tagLen:]
	wantTag, err := computeRetryIntegrityTag(body, originalDCID)
	if err != nil {
		return false
	}
	return hmac.Equal(gotTag, wantTag)
}

// retryTokenKey authenticates tokens this endpoint issues, both for Retry
// and for NEW_TOKEN. A real deployment must rotate this key; this module
// keeps a single process-lifetime key, matching the minimal
// single-instance listener described for the reference server.
type retryTokenKey struct {
	key []byte
}

func newRetryTokenKey() (*retryTokenKey, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &retryTokenKey{key: key}, nil
}

// retryToken is the plaintext a server encodes into a Retry token: the
// original destination CID (so it can be recovered on the client's next
// Initial) and an issue time for expiry checking.
type retryToken struct {
	odcid     []byte
	issuedAt  time.Time
}

// mint produces an authenticated Retry token: HMAC-SHA256(key, odcid ||
// time) appended after the plaintext fields, so the server can verify and
// recover odcid without persisting per-client state.
func (k *retryTokenKey) mint(odcid []byte, now time.Time) []byte {
	body := make([]byte, 0, 1+len(odcid)+8)
	body = append(body, byte(len(odcid)))
	body = append(body, odcid...)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(now.Unix()))
	body = append(body, tsBuf[:]...)

	mac := hmac.New(sha256.New, k.key)
	mac.Write(body)
	sum := mac.Sum(nil)
	return append(body, sum...)
}

// RetryTokenKey issues and checks the address-validation tokens a Listener
// hands out during a stateless Retry, RFC 9000 Section 8.1.2. It is the
// exported counterpart of retryTokenKey so the quic package can mint and
// validate tokens without reimplementing the HMAC scheme.
type RetryTokenKey struct {
	inner *retryTokenKey
}

// NewRetryTokenKey generates a fresh, process-lifetime signing key.
func NewRetryTokenKey() (*RetryTokenKey, error) {
	k, err := newRetryTokenKey()
	if err != nil {
		return nil, err
	}
	return &RetryTokenKey{inner: k}, nil
}

// Mint issues a token binding odcid, the destination connection ID the
// client used on the Initial packet being retried.
func (k *RetryTokenKey) Mint(odcid []byte, now time.Time) []byte {
	return k.inner.mint(odcid, now)
}

// Validate recovers the original destination connection ID from a token
// produced by Mint, rejecting it once maxAge has elapsed or if it was
// tampered with or minted by a different key.
func (k *RetryTokenKey) Validate(token []byte, now time.Time, maxAge time.Duration) ([]byte, error) {
	rt, err := k.inner.validate(token, now, maxAge)
	if err != nil {
		return nil, err
	}
	return rt.odcid, nil
}

// BuildRetryPacket assembles the wire bytes of a Retry packet, RFC 9001
// Section 5.8: dcid and scid are this packet's own header fields (the
// client's chosen source connection ID echoed back as DCID, and the
// server's freshly chosen connection ID as SCID), token is a value minted
// by Mint, and odcid is the destination connection ID the client used on
// the Initial packet being retried, needed only to key the integrity tag.
func BuildRetryPacket(version uint32, dcid, scid, odcid, token []byte) ([]byte, error) {
	b := make([]byte, 0, 7+len(dcid)+len(scid)+len(token)+16)
	b = append(b, 0xf0) // long header, fixed bit set, type=Retry
	b = append(b, byte(version>>24), byte(version>>16), byte(version>>8), byte(version))
	b = append(b, byte(len(dcid)))
	b = append(b, dcid...)
	b = append(b, byte(len(scid)))
	b = append(b, scid...)
	b = append(b, token...)
	tag, err := computeRetryIntegrityTag(b, odcid)
	if err != nil {
		return nil, err
	}
	return append(b, tag...), nil
}

// validate recovers the original DCID from a token minted by mint,
// rejecting it if the MAC doesn't match or it has expired.
func (k *retryTokenKey) validate(token []byte, now time.Time, maxAge time.Duration) (*retryToken, error) {
	const macLen = sha256.Size
	if len(token) < 1+macLen {
		return nil, errInvalidToken
	}
	odcidLen := int(token[0])
	if len(token) < 1+odcidLen+8+macLen {
		return nil, errInvalidToken
	}
	body := token[:1+odcidLen+8]
	gotMAC := token[1+odcidLen+8:]

	mac := hmac.New(sha256.New, k.key)
	mac.Write(body)
	wantMAC := mac.Sum(nil)
	if !hmac.Equal(gotMAC, wantMAC) {
		return nil, errInvalidToken
	}
	odcid := append([]byte(nil), token[1:1+odcidLen]...)
	issuedAt := time.Unix(int64(binary.BigEndian.Uint64(token[1+odcidLen:1+odcidLen+8])), 0)
	if maxAge > 0 && now.Sub(issuedAt) > maxAge {
		return nil, errInvalidToken
	}
	return &retryToken{odcid: odcid, issuedAt: issuedAt}, nil
}
