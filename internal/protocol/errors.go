package protocol

import (
	"errors"
	"fmt"
)

// Socket error kinds. Every error returned by this package is a *SocketError
// whose Kind is one of these; match with errors.Is.
var (
	ErrCannotReadPayload = errors.New("cannot read payload")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrInvalidHandshake  = errors.New("invalid handshake")
	ErrInvalidFrame      = errors.New("invalid frame")
	ErrUnknown           = errors.New("unknown error")
)

// Causes attached to ErrInvalidFrame and ErrInvalidHandshake.
var (
	ErrInvalidOpcode    = errors.New("invalid opcode")
	ErrInvalidUTF8      = errors.New("text payload is not valid UTF-8")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrShortPayload     = errors.New("payload shorter than declared length")
	ErrMissingUpgrade   = errors.New("missing or invalid Upgrade header")
	ErrMissingConnUpg   = errors.New("Connection header does not contain Upgrade")
	ErrMissingSecKey    = errors.New("missing Sec-WebSocket-Key header")
	ErrMalformedRequest = errors.New("malformed upgrade request")
	ErrBadStatus        = errors.New("server did not switch protocols")
	ErrAcceptMismatch   = errors.New("Sec-WebSocket-Accept mismatch")
)

// SocketError is a transport-level failure. Kind classifies it, Err carries
// the underlying cause when there is one.
type SocketError struct {
	Kind error
	Err  error
}

func newError(kind, cause error) *SocketError {
	return &SocketError{Kind: kind, Err: cause}
}

func (e *SocketError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *SocketError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
