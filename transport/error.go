package transport

import "fmt"

// ErrorCode is a QUIC transport error code (RFC 9000 Section 20) or a
// CRYPTO_ERROR code (RFC 9001 Section 4.8).
type ErrorCode uint64

// Transport error codes, RFC 9000 Section 20.1.
const (
	NoError                  ErrorCode = 0x00
	InternalError            ErrorCode = 0x01
	ConnectionRefused        ErrorCode = 0x02
	FlowControlError         ErrorCode = 0x03
	StreamLimitError         ErrorCode = 0x04
	StreamStateError         ErrorCode = 0x05
	FinalSizeError           ErrorCode = 0x06
	FrameEncodingError       ErrorCode = 0x07
	TransportParameterError  ErrorCode = 0x08
	ConnectionIDLimitError   ErrorCode = 0x09
	ProtocolViolation        ErrorCode = 0x0a
	InvalidToken             ErrorCode = 0x0b
	ApplicationError         ErrorCode = 0x0c
	CryptoBufferExceeded     ErrorCode = 0x0d
	KeyUpdateError           ErrorCode = 0x0e
	AEADLimitReached         ErrorCode = 0x0f
	NoViablePath             ErrorCode = 0x10
	cryptoErrorFirst         ErrorCode = 0x0100
	cryptoErrorLast          ErrorCode = 0x01ff
)

// newError constructs a transport-level *Error.
func newError(code ErrorCode, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Error is a QUIC connection-level error: a transport or application
// error code plus an optional human-readable reason.
type Error struct {
	// Application is true when Code is an application-protocol error
	// rather than a transport error.
	Application bool
	Code        ErrorCode
	Message     string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("quic: %s", errorCodeString(e.Code))
	}
	return fmt.Sprintf("quic: %s: %s", errorCodeString(e.Code), e.Message)
}

// errInvalidToken and errFlowControl and errShortBuffer are the sentinel
// internal errors referenced throughout the packet and frame codecs.
var (
	errInvalidToken = newError(InvalidToken, "invalid retry token")
	errFlowControl  = newError(FlowControlError, "")
	errShortBuffer  = newError(InternalError, "short buffer")
)

func errorCodeString(code ErrorCode) string {
	switch code {
	case NoError:
		return "no_error"
	case InternalError:
		return "internal_error"
	case ConnectionRefused:
		return "connection_refused"
	case FlowControlError:
		return "flow_control_error"
	case StreamLimitError:
		return "stream_limit_error"
	case StreamStateError:
		return "stream_state_error"
	case FinalSizeError:
		return "final_size_error"
	case FrameEncodingError:
		return "frame_encoding_error"
	case TransportParameterError:
		return "transport_parameter_error"
	case ConnectionIDLimitError:
		return "connection_id_limit_error"
	case ProtocolViolation:
		return "protocol_violation"
	case InvalidToken:
		return "invalid_token"
	case ApplicationError:
		return "application_error"
	case CryptoBufferExceeded:
		return "crypto_buffer_exceeded"
	case KeyUpdateError:
		return "key_update_error"
	case AEADLimitReached:
		return "aead_limit_reached"
	case NoViablePath:
		return "no_viable_path"
	default:
		if code >= cryptoErrorFirst && code <= cryptoErrorLast {
			return fmt.Sprintf("crypto_error_%d", code-cryptoErrorFirst)
		}
		return fmt.Sprintf("error_0x%x", uint64(code))
	}
}

// asError unwraps err into a *Error, synthesizing an INTERNAL_ERROR wrapper
// for anything the codecs return that isn't already typed.
func asError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: InternalError, Message: err.Error()}
}
