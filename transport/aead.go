package transport

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"
)

// cipherSuite identifies one of the AEAD suites RFC 9001 requires.
type cipherSuite uint8

const (
	suiteAES128GCM cipherSuite = iota
	suiteAES256GCM
	suiteChaCha20Poly1305
)

// Key, IV, and header-protection key lengths per suite, RFC 9001 Section 5.
func suiteKeyLen(s cipherSuite) int {
	switch s {
	case suiteAES128GCM:
		return 16
	case suiteAES256GCM, suiteChaCha20Poly1305:
		return 32
	default:
		panic("unknown cipher suite")
	}
}

const aeadNonceLen = 12
const aeadTagLen = 16

// confidentialityLimit and integrityLimit are the AEAD usage limits of
// RFC 9001 Section 6.6, after which a connection MUST be closed with
// AEAD_LIMIT_REACHED.
func confidentialityLimit(s cipherSuite) uint64 {
	if s == suiteChaCha20Poly1305 {
		return maxVarint
	}
	return 1 << 23
}

func integrityLimit(s cipherSuite) uint64 {
	if s == suiteChaCha20Poly1305 {
		return 1 << 36
	}
	return 1 << 52
}

func newAEAD(suite cipherSuite, key []byte) (cipher.AEAD, error) {
	switch suite {
	case suiteAES128GCM, suiteAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, newError(InternalError, err.Error())
		}
		return cipher.NewGCM(block)
	case suiteChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, newError(InternalError, "unsupported cipher suite")
	}
}

func newHeaderProtectorForSuite(suite cipherSuite, hpKey []byte) (headerProtector, error) {
	if suite == suiteChaCha20Poly1305 {
		return newChaChaHeaderProtector(hpKey)
	}
	return newAESHeaderProtector(hpKey)
}

// protectionKeys is one direction's (read or write) keying material at one
// encryption level: the AEAD, its IV, the header protection key, and the
// RFC 9001 Section 6.6 usage counters.
type protectionKeys struct {
	suite cipherSuite
	aead  cipher.AEAD
	iv    []byte
	hp    headerProtector

	encrypted    uint64
	failedDecrypt uint64
}

func newProtectionKeys(suite cipherSuite, key, iv, hpKey []byte) (*protectionKeys, error) {
	aead, err := newAEAD(suite, key)
	if err != nil {
		return nil, err
	}
	hp, err := newHeaderProtectorForSuite(suite, hpKey)
	if err != nil {
		return nil, err
	}
	k := &protectionKeys{
		suite: suite,
		aead:  aead,
		iv:    append([]byte(nil), iv...),
		hp:    hp,
	}
	return k, nil
}

// nonce computes the per-packet AEAD nonce: IV XOR packet number,
// right-aligned and big-endian (RFC 9001 Section 5.3).
func (k *protectionKeys) nonce(pn uint64) []byte {
	n := make([]byte, len(k.iv))
	copy(n, k.iv)
	for i := 0; i < 8; i++ {
		n[len(n)-1-i] ^= byte(pn >> (8 * i))
	}
	return n
}

// seal encrypts plaintext in place-ish (returned slice may alias dst's
// backing array) and appends the result to dst.
func (k *protectionKeys) seal(dst []byte, pn uint64, ad, plaintext []byte) []byte {
	k.encrypted++
	return k.aead.Seal(dst, k.nonce(pn), plaintext, ad)
}

// open authenticates and decrypts ciphertext (which includes the trailing
// tag). Every call, successful or not, should be accounted by the caller
// against the suite's confidentiality/integrity limits.
func (k *protectionKeys) open(dst []byte, pn uint64, ad, ciphertext []byte) ([]byte, error) {
	out, err := k.aead.Open(dst, k.nonce(pn), ciphertext, ad)
	if err != nil {
		k.failedDecrypt++
		return nil, newError(ProtocolViolation, "aead authentication failed")
	}
	return out, nil
}

// limitsExceeded reports whether this key's usage has crossed the
// confidentiality or integrity limit for its suite and must no longer be
// used (RFC 9001 Section 6.6).
func (k *protectionKeys) limitsExceeded() bool {
	return k.encrypted >= confidentialityLimit(k.suite) || k.failedDecrypt >= integrityLimit(k.suite)
}

// initialAEAD derives the client and server Initial keys for a given
// destination connection ID (RFC 9001 Section 5.2).
type initialAEAD struct {
	client *directionalKeys
	server *directionalKeys
}

func (a *initialAEAD) init(dcid []byte) error {
	clientSecret, serverSecret, err := deriveInitialSecrets(dcid)
	if err != nil {
		return err
	}
	a.client, err = deriveDirectionalKeys(suiteAES128GCM, clientSecret)
	if err != nil {
		return err
	}
	a.server, err = deriveDirectionalKeys(suiteAES128GCM, serverSecret)
	return err
}
