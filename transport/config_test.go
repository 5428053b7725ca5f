package transport

import (
	"bytes"
	"testing"
	"time"
)

func TestParametersMarshalUnmarshalRoundTrip(t *testing.T) {
	p := NewParameters()
	p.OriginalDestinationCID = []byte{1, 2, 3, 4}
	p.InitialSourceCID = []byte{5, 6, 7, 8}
	p.RetrySourceCID = []byte{9, 9}
	p.MaxIdleTimeout = 30 * time.Second
	p.DisableActiveMigration = true

	b := p.marshal()

	var got Parameters
	if err := got.unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.OriginalDestinationCID, p.OriginalDestinationCID) {
		t.Fatalf("OriginalDestinationCID = %x, want %x", got.OriginalDestinationCID, p.OriginalDestinationCID)
	}
	if !bytes.Equal(got.InitialSourceCID, p.InitialSourceCID) {
		t.Fatalf("InitialSourceCID = %x, want %x", got.InitialSourceCID, p.InitialSourceCID)
	}
	if !bytes.Equal(got.RetrySourceCID, p.RetrySourceCID) {
		t.Fatalf("RetrySourceCID = %x, want %x", got.RetrySourceCID, p.RetrySourceCID)
	}
	if got.MaxIdleTimeout != p.MaxIdleTimeout {
		t.Fatalf("MaxIdleTimeout = %v, want %v", got.MaxIdleTimeout, p.MaxIdleTimeout)
	}
	if !got.DisableActiveMigration {
		t.Fatal("expected DisableActiveMigration to round-trip true")
	}
	if got.InitialMaxData != p.InitialMaxData {
		t.Fatalf("InitialMaxData = %d, want %d", got.InitialMaxData, p.InitialMaxData)
	}
	if got.InitialMaxStreamsBidi != p.InitialMaxStreamsBidi {
		t.Fatalf("InitialMaxStreamsBidi = %d, want %d", got.InitialMaxStreamsBidi, p.InitialMaxStreamsBidi)
	}
}

func TestParametersUnmarshalIgnoresUnknownID(t *testing.T) {
	var b []byte
	b = appendParamBytes(b, 0x1234, []byte{0xaa})
	b = appendParamVarint(b, paramInitialMaxData, 42)

	var p Parameters
	if err := p.unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if p.InitialMaxData != 42 {
		t.Fatalf("InitialMaxData = %d, want 42", p.InitialMaxData)
	}
}

func TestParametersUnmarshalRejectsTruncated(t *testing.T) {
	var p Parameters
	if err := p.unmarshal([]byte{0x04, 0x08, 0x01}); err == nil {
		t.Fatal("expected error decoding truncated transport parameters")
	}
}

func TestParametersUnmarshalRejectsBadStatelessResetTokenLength(t *testing.T) {
	var b []byte
	b = appendParamBytes(b, paramStatelessResetToken, []byte{1, 2, 3})
	var p Parameters
	if err := p.unmarshal(b); err == nil {
		t.Fatal("expected error for wrong-length stateless reset token")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig(nil)
	if c.Version != ProtocolVersion1 {
		t.Fatalf("Version = %x, want %x", c.Version, ProtocolVersion1)
	}
	if c.Params.InitialMaxStreamsBidi == 0 {
		t.Fatal("expected non-zero default InitialMaxStreamsBidi")
	}
}
