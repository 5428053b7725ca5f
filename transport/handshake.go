package transport

import (
	"context"
	"crypto/tls"
	"errors"
)

// quicLevelForSpace maps a packet number space to the crypto/tls QUIC
// encryption level that carries its CRYPTO data.
func quicLevelForSpace(space packetSpace) tls.QUICEncryptionLevel {
	switch space {
	case packetSpaceInitial:
		return tls.QUICEncryptionLevelInitial
	case packetSpaceHandshake:
		return tls.QUICEncryptionLevelHandshake
	default:
		return tls.QUICEncryptionLevelApplication
	}
}

// spaceForLevel is the inverse of quicLevelForSpace. Early (0-RTT) data is
// mapped onto the Application space since this module never installs
// 0-RTT keys and should never see the event in practice.
func spaceForLevel(level tls.QUICEncryptionLevel) packetSpace {
	switch level {
	case tls.QUICEncryptionLevelInitial:
		return packetSpaceInitial
	case tls.QUICEncryptionLevelHandshake:
		return packetSpaceHandshake
	default:
		return packetSpaceApplication
	}
}

func cipherSuiteFromTLS(id uint16) cipherSuite {
	switch id {
	case tls.TLS_AES_256_GCM_SHA384:
		return suiteAES256GCM
	case tls.TLS_CHACHA20_POLY1305_SHA256:
		return suiteChaCha20Poly1305
	default:
		return suiteAES128GCM
	}
}

// tlsHandshake drives the TLS 1.3 handshake carried in CRYPTO frames (RFC
// 9001) using the standard library's QUIC-mode TLS state machine
// (crypto/tls.QUICConn). It owns no network state of its own: secrets it
// derives are installed directly into the owning Conn's packet number
// spaces, and handshake bytes it wants to send are queued on the matching
// space's crypto stream for Conn.send to pick up.
type tlsHandshake struct {
	conn      *Conn
	tlsConfig *tls.Config
	quic      *tls.QUICConn

	started  bool
	complete bool

	localParams []byte
	peerParams  *Parameters
}

func (h *tlsHandshake) init(conn *Conn, tlsConfig *tls.Config) {
	h.conn = conn
	h.tlsConfig = tlsConfig
}

// reset discards in-progress handshake state after Retry or Version
// Negotiation forces the client to restart with a fresh Initial.
func (h *tlsHandshake) reset() {
	h.quic = nil
	h.started = false
	h.complete = false
	h.peerParams = nil
}

// setTransportParams records the local transport parameters to offer, and
// pushes them into an already-started TLS state machine if one exists.
func (h *tlsHandshake) setTransportParams(p *Parameters) {
	h.localParams = p.marshal()
	if h.quic != nil {
		h.quic.SetTransportParameters(h.localParams)
	}
}

func (h *tlsHandshake) ensureStarted() error {
	if h.started {
		return nil
	}
	cfg := &tls.QUICConfig{TLSConfig: h.tlsConfig}
	if h.conn.isClient {
		h.quic = tls.QUICClient(cfg)
	} else {
		h.quic = tls.QUICServer(cfg)
	}
	h.quic.SetTransportParameters(h.localParams)
	if err := h.quic.Start(context.Background()); err != nil {
		return wrapTLSError(err)
	}
	h.started = true
	return nil
}

// HandshakeComplete reports whether the TLS handshake has finished, RFC
// 9001 Section 4.1.1.
func (h *tlsHandshake) HandshakeComplete() bool {
	return h.complete
}

func (h *tlsHandshake) peerTransportParams() *Parameters {
	return h.peerParams
}

// writeSpace picks the highest packet number space whose keys are
// installed, used when there is nothing specific to retransmit but a
// packet still needs to go out (a close, or a PTO probe).
func (h *tlsHandshake) writeSpace() packetSpace {
	for space := packetSpaceApplication; space >= packetSpaceInitial; space-- {
		if h.conn.packetNumberSpaces[space].canEncrypt() {
			return space
		}
	}
	return packetSpaceInitial
}

// doHandshake drains any newly-received CRYPTO bytes into the TLS state
// machine and pumps every event it produces in response: installing keys,
// queuing outgoing CRYPTO data, and recording the peer's transport
// parameters once they arrive.
func (h *tlsHandshake) doHandshake() error {
	if h.complete {
		return nil
	}
	if err := h.ensureStarted(); err != nil {
		return err
	}
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		level := quicLevelForSpace(space)
		st := &h.conn.packetNumberSpaces[space].cryptoStream
		var buf [4096]byte
		for {
			n, err := st.Read(buf[:])
			if n == 0 || err != nil {
				break
			}
			if err := h.quic.HandleData(level, buf[:n]); err != nil {
				return wrapTLSError(err)
			}
		}
	}
	return h.pump()
}

func (h *tlsHandshake) pump() error {
	for {
		e := h.quic.NextEvent()
		switch e.Kind {
		case tls.QUICNoEvent:
			return nil
		case tls.QUICSetReadSecret:
			if err := h.installSecret(e, false); err != nil {
				return err
			}
		case tls.QUICSetWriteSecret:
			if err := h.installSecret(e, true); err != nil {
				return err
			}
		case tls.QUICWriteData:
			if err := h.writeCryptoData(e.Level, e.Data); err != nil {
				return err
			}
		case tls.QUICTransportParametersRequired:
			h.quic.SetTransportParameters(h.localParams)
		case tls.QUICTransportParameters:
			var p Parameters
			if err := p.unmarshal(e.Data); err != nil {
				return err
			}
			h.peerParams = &p
		case tls.QUICHandshakeDone:
			h.complete = true
		}
	}
}

func (h *tlsHandshake) installSecret(e tls.QUICEvent, write bool) error {
	space := spaceForLevel(e.Level)
	suite := cipherSuiteFromTLS(e.Suite)
	keys, err := deriveDirectionalKeys(suite, e.Data)
	if err != nil {
		return err
	}
	sp := &h.conn.packetNumberSpaces[space]
	if write {
		sp.sealer = keys
	} else {
		sp.opener = keys
	}
	return nil
}

func (h *tlsHandshake) writeCryptoData(level tls.QUICEncryptionLevel, data []byte) error {
	space := spaceForLevel(level)
	st := &h.conn.packetNumberSpaces[space].cryptoStream
	_, err := st.Write(data)
	return err
}

// wrapTLSError translates a crypto/tls QUIC handshake error into a
// transport Error, surfacing TLS alerts as the corresponding CRYPTO_ERROR
// code, RFC 9001 Section 4.8.
func wrapTLSError(err error) error {
	if err == nil {
		return nil
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return newError(cryptoErrorFirst+ErrorCode(alert), "tls alert")
	}
	return newError(InternalError, err.Error())
}
