package transport

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/hkdf"
)

// initialSalt is the QUIC v1 Initial salt, RFC 9001 Section 5.2.
var initialSalt = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3,
	0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad,
	0xcc, 0xbb, 0x7f, 0x0a,
}

func hashForSuite(suite cipherSuite) func() hash.Hash {
	if suite == suiteAES256GCM {
		return sha512.New384
	}
	return sha256.New
}

// hkdfExpandLabel implements HKDF-Expand-Label from RFC 8446 Section 7.1,
// used throughout RFC 9001's key schedule with the "tls13 " label prefix.
func hkdfExpandLabel(newHash func() hash.Hash, secret []byte, label string, context []byte, length int) []byte {
	fullLabel := "tls13 " + label
	hkdfLabel := make([]byte, 0, 2+1+len(fullLabel)+1+len(context))
	hkdfLabel = append(hkdfLabel, byte(length>>8), byte(length))
	hkdfLabel = append(hkdfLabel, byte(len(fullLabel)))
	hkdfLabel = append(hkdfLabel, fullLabel...)
	hkdfLabel = append(hkdfLabel, byte(len(context)))
	hkdfLabel = append(hkdfLabel, context...)

	out := make([]byte, length)
	r := hkdf.Expand(newHash, secret, hkdfLabel)
	if _, err := r.Read(out); err != nil {
		panic("quic: hkdf-expand-label: " + err.Error())
	}
	return out
}

// deriveInitialSecrets derives the client and server Initial traffic
// secrets from the client's chosen destination connection ID, RFC 9001
// Section 5.2.
func deriveInitialSecrets(clientDCID []byte) (clientSecret, serverSecret []byte, err error) {
	initialSecret := hkdf.Extract(sha256.New, clientDCID, initialSalt)
	clientSecret = hkdfExpandLabel(sha256.New, initialSecret, "client in", nil, sha256.Size)
	serverSecret = hkdfExpandLabel(sha256.New, initialSecret, "server in", nil, sha256.Size)
	return clientSecret, serverSecret, nil
}

// directionalKeys is a single direction's (read or write) traffic secret
// together with the packet- and header-protection keys derived from it.
// The secret itself is retained so a 1-RTT key update (RFC 9001 Section
// 6) can derive the next generation.
type directionalKeys struct {
	suite  cipherSuite
	secret []byte
	keys   *protectionKeys
}

func deriveDirectionalKeys(suite cipherSuite, secret []byte) (*directionalKeys, error) {
	newHash := hashForSuite(suite)
	keyLen := suiteKeyLen(suite)
	key := hkdfExpandLabel(newHash, secret, "quic key", nil, keyLen)
	iv := hkdfExpandLabel(newHash, secret, "quic iv", nil, aeadNonceLen)
	hp := hkdfExpandLabel(newHash, secret, "quic hp", nil, keyLen)
	keys, err := newProtectionKeys(suite, key, iv, hp)
	if err != nil {
		return nil, err
	}
	return &directionalKeys{suite: suite, secret: append([]byte(nil), secret...), keys: keys}, nil
}

// nextGeneration derives the next 1-RTT key generation for a key update
// (RFC 9001 Section 6): new_secret = HKDF-Expand-Label(old_secret, "quic ku", "", hash_len).
func (d *directionalKeys) nextGeneration() (*directionalKeys, error) {
	newHash := hashForSuite(d.suite)
	var outLen int
	switch d.suite {
	case suiteAES256GCM:
		outLen = sha512.Size384
	default:
		outLen = sha256.Size
	}
	newSecret := hkdfExpandLabel(newHash, d.secret, "quic ku", nil, outLen)
	return deriveDirectionalKeys(d.suite, newSecret)
}
