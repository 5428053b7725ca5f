package transport

import (
	"crypto/tls"
	"time"
)

// ProtocolVersion1 is the wire version of QUIC defined by RFC 9000.
const ProtocolVersion1 uint32 = 0x00000001

// Transport parameter identifiers, RFC 9000 Section 18.2.
const (
	paramOriginalDestinationCID     uint64 = 0x00
	paramMaxIdleTimeout             uint64 = 0x01
	paramStatelessResetToken        uint64 = 0x02
	paramMaxUDPPayloadSize          uint64 = 0x03
	paramInitialMaxData             uint64 = 0x04
	paramInitialMaxStreamDataBidiLocal  uint64 = 0x05
	paramInitialMaxStreamDataBidiRemote uint64 = 0x06
	paramInitialMaxStreamDataUni    uint64 = 0x07
	paramInitialMaxStreamsBidi      uint64 = 0x08
	paramInitialMaxStreamsUni       uint64 = 0x09
	paramAckDelayExponent           uint64 = 0x0a
	paramMaxAckDelay                uint64 = 0x0b
	paramDisableActiveMigration     uint64 = 0x0c
	paramActiveConnectionIDLimit    uint64 = 0x0e
	paramInitialSourceCID           uint64 = 0x0f
	paramRetrySourceCID             uint64 = 0x10
)

// Defaults applied by NewParameters, matching the conservative values the
// reference client and server use when an application does not override
// them.
const (
	defaultMaxUDPPayloadSize       = 1452
	defaultAckDelayExponent        = 3
	defaultMaxAckDelay             = 25 * time.Millisecond
	defaultActiveConnectionIDLimit = 4
)

// Parameters is the set of QUIC transport parameters exchanged during the
// handshake, RFC 9000 Section 18.2.
type Parameters struct {
	OriginalDestinationCID []byte
	MaxIdleTimeout         time.Duration
	StatelessResetToken    []byte
	MaxUDPPayloadSize      uint64
	InitialMaxData         uint64

	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64

	InitialMaxStreamsBidi uint64
	InitialMaxStreamsUni  uint64

	AckDelayExponent uint64
	MaxAckDelay      time.Duration

	DisableActiveMigration bool
	ActiveConnectionIDLimit uint64

	InitialSourceCID []byte
	RetrySourceCID   []byte
}

// NewParameters returns a Parameters populated with the reference defaults.
func NewParameters() Parameters {
	return Parameters{
		MaxUDPPayloadSize:       defaultMaxUDPPayloadSize,
		InitialMaxData:          1 << 20,
		InitialMaxStreamDataBidiLocal:  1 << 18,
		InitialMaxStreamDataBidiRemote: 1 << 18,
		InitialMaxStreamDataUni:        1 << 18,
		InitialMaxStreamsBidi:          100,
		InitialMaxStreamsUni:           100,
		AckDelayExponent:               defaultAckDelayExponent,
		MaxAckDelay:                    defaultMaxAckDelay,
		ActiveConnectionIDLimit:        defaultActiveConnectionIDLimit,
	}
}

// marshal encodes p as the quic_transport_parameters TLS extension body.
func (p *Parameters) marshal() []byte {
	b := make([]byte, 0, 256)
	b = appendParamBytes(b, paramOriginalDestinationCID, p.OriginalDestinationCID)
	if p.MaxIdleTimeout > 0 {
		b = appendParamVarint(b, paramMaxIdleTimeout, uint64(p.MaxIdleTimeout/time.Millisecond))
	}
	b = appendParamBytes(b, paramStatelessResetToken, p.StatelessResetToken)
	if p.MaxUDPPayloadSize > 0 {
		b = appendParamVarint(b, paramMaxUDPPayloadSize, p.MaxUDPPayloadSize)
	}
	b = appendParamVarint(b, paramInitialMaxData, p.InitialMaxData)
	b = appendParamVarint(b, paramInitialMaxStreamDataBidiLocal, p.InitialMaxStreamDataBidiLocal)
	b = appendParamVarint(b, paramInitialMaxStreamDataBidiRemote, p.InitialMaxStreamDataBidiRemote)
	b = appendParamVarint(b, paramInitialMaxStreamDataUni, p.InitialMaxStreamDataUni)
	b = appendParamVarint(b, paramInitialMaxStreamsBidi, p.InitialMaxStreamsBidi)
	b = appendParamVarint(b, paramInitialMaxStreamsUni, p.InitialMaxStreamsUni)
	if p.AckDelayExponent > 0 {
		b = appendParamVarint(b, paramAckDelayExponent, p.AckDelayExponent)
	}
	if p.MaxAckDelay > 0 {
		b = appendParamVarint(b, paramMaxAckDelay, uint64(p.MaxAckDelay/time.Millisecond))
	}
	if p.DisableActiveMigration {
		b = appendParamBytes(b, paramDisableActiveMigration, nil)
	}
	if p.ActiveConnectionIDLimit > 0 {
		b = appendParamVarint(b, paramActiveConnectionIDLimit, p.ActiveConnectionIDLimit)
	}
	b = appendParamBytes(b, paramInitialSourceCID, p.InitialSourceCID)
	if len(p.RetrySourceCID) > 0 {
		b = appendParamBytes(b, paramRetrySourceCID, p.RetrySourceCID)
	}
	return b
}

// unmarshal decodes a quic_transport_parameters extension body received
// from the peer.
func (p *Parameters) unmarshal(b []byte) error {
	for len(b) > 0 {
		var id, length uint64
		n := getVarint(b, &id)
		if n == 0 {
			return newError(TransportParameterError, "param id")
		}
		b = b[n:]
		n = getVarint(b, &length)
		if n == 0 || uint64(len(b)-n) < length {
			return newError(TransportParameterError, "param length")
		}
		b = b[n:]
		value := b[:length]
		b = b[length:]
		if err := p.setParam(id, value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parameters) setParam(id uint64, value []byte) error {
	switch id {
	case paramOriginalDestinationCID:
		p.OriginalDestinationCID = append([]byte(nil), value...)
	case paramMaxIdleTimeout:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.MaxIdleTimeout = time.Duration(v) * time.Millisecond
	case paramStatelessResetToken:
		if len(value) != StatelessResetTokenLength {
			return newError(TransportParameterError, "stateless reset token")
		}
		p.StatelessResetToken = append([]byte(nil), value...)
	case paramMaxUDPPayloadSize:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.MaxUDPPayloadSize = v
	case paramInitialMaxData:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.InitialMaxData = v
	case paramInitialMaxStreamDataBidiLocal:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamDataBidiLocal = v
	case paramInitialMaxStreamDataBidiRemote:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamDataBidiRemote = v
	case paramInitialMaxStreamDataUni:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamDataUni = v
	case paramInitialMaxStreamsBidi:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamsBidi = v
	case paramInitialMaxStreamsUni:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.InitialMaxStreamsUni = v
	case paramAckDelayExponent:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.AckDelayExponent = v
	case paramMaxAckDelay:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.MaxAckDelay = time.Duration(v) * time.Millisecond
	case paramDisableActiveMigration:
		p.DisableActiveMigration = true
	case paramActiveConnectionIDLimit:
		v, err := decodeParamVarint(value)
		if err != nil {
			return err
		}
		p.ActiveConnectionIDLimit = v
	case paramInitialSourceCID:
		p.InitialSourceCID = append([]byte(nil), value...)
	case paramRetrySourceCID:
		p.RetrySourceCID = append([]byte(nil), value...)
	default:
		// Unknown parameters are ignored, RFC 9000 Section 18.1.
	}
	return nil
}

func appendParamVarint(b []byte, id, v uint64) []byte {
	b = appendVarint(b, id)
	b = appendVarint(b, uint64(varintLen(v)))
	return appendVarint(b, v)
}

func appendParamBytes(b []byte, id uint64, v []byte) []byte {
	b = appendVarint(b, id)
	b = appendVarint(b, uint64(len(v)))
	return append(b, v...)
}

func decodeParamVarint(b []byte) (uint64, error) {
	var v uint64
	n := getVarint(b, &v)
	if n != len(b) {
		return 0, newError(TransportParameterError, "malformed varint param")
	}
	return v, nil
}

// Config configures a new client or server Conn.
type Config struct {
	// Version is the QUIC version to speak, e.g. ProtocolVersion1.
	Version uint32
	// Params are the local transport parameters offered to the peer.
	Params Parameters
	// TLS is the TLS configuration driving the handshake. MinVersion is
	// forced to TLS 1.3, as required by RFC 9001 Section 4.
	TLS *tls.Config
}

// NewConfig returns a Config with reference defaults and the given TLS
// configuration, version-pinned to ProtocolVersion1.
func NewConfig(tlsConfig *tls.Config) *Config {
	return &Config{
		Version: ProtocolVersion1,
		Params:  NewParameters(),
		TLS:     tlsConfig,
	}
}
