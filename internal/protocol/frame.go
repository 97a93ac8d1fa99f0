package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"
)

// Opcode is the 4-bit frame type.
type Opcode uint8

const (
	OpcodeContinuation     Opcode = 0x0
	OpcodeText             Opcode = 0x1
	OpcodeBinary           Opcode = 0x2
	OpcodeConnectionClosed Opcode = 0x8
	OpcodePing             Opcode = 0x9
	OpcodePong             Opcode = 0xA
)

// IsValid reports whether o is one of the supported opcodes.
func (o Opcode) IsValid() bool {
	switch o {
	case OpcodeContinuation, OpcodeText, OpcodeBinary,
		OpcodeConnectionClosed, OpcodePing, OpcodePong:
		return true
	default:
		return false
	}
}

// IsControl reports whether o is a control opcode.
func (o Opcode) IsControl() bool {
	return o == OpcodeConnectionClosed || o == OpcodePing || o == OpcodePong
}

func (o Opcode) String() string {
	switch o {
	case OpcodeContinuation:
		return "Continuation"
	case OpcodeText:
		return "Text"
	case OpcodeBinary:
		return "Binary"
	case OpcodeConnectionClosed:
		return "ConnectionClosed"
	case OpcodePing:
		return "Ping"
	case OpcodePong:
		return "Pong"
	default:
		return "Unknown"
	}
}

const (
	finBit    = 0x80
	flagsMask = 0xF0
	opMask    = 0x0F
	maskBit   = 0x80
	lenMask   = 0x7F

	len16Marker = 126
	len64Marker = 127

	maxInlineLen = 125
	max16Len     = 0xFFFF

	// DefaultMaxPayloadSize bounds the payload of a single incoming frame.
	DefaultMaxPayloadSize = 10 * 1024 * 1024 // 10MB
)

// Frame is a single WebSocket frame. After ReadFrame the payload is already
// unmasked; Mask records the key that was used.
type Frame struct {
	Flags   byte
	Opcode  Opcode
	Masked  bool
	Mask    [4]byte
	Payload []byte
}

// Text returns the payload as a string.
func (f *Frame) Text() string {
	return string(f.Payload)
}

// ReadFrame reads one frame from r. Each header part (first two bytes,
// extended length, mask, payload) is a separate blocking read. maxPayload
// bounds the declared payload length; zero or less means
// DefaultMaxPayloadSize. A length above the bound yields ErrFrameTooLarge
// before any payload is allocated.
//
// A clean end of stream before the header yields ErrConnectionClosed, a
// header part that cannot be read yields ErrCannotReadPayload, and a payload
// shorter than its declared length yields ErrInvalidFrame. Unknown opcodes and
// Text payloads that are not UTF-8 are also ErrInvalidFrame; in those cases
// the whole frame has been consumed and the stream is still aligned.
func ReadFrame(r io.Reader, maxPayload int64) (*Frame, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newError(ErrConnectionClosed, err)
		}
		return nil, newError(ErrCannotReadPayload, err)
	}

	f := &Frame{
		Flags:  header[0] & flagsMask,
		Opcode: Opcode(header[0] & opMask),
		Masked: header[1]&maskBit != 0,
	}

	length := uint64(header[1] & lenMask)
	switch length {
	case len16Marker:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, newError(ErrCannotReadPayload, err)
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case len64Marker:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, newError(ErrCannotReadPayload, err)
		}
		length = binary.BigEndian.Uint64(ext[:])
	}

	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadSize
	}
	if length > uint64(maxPayload) {
		return nil, newError(ErrInvalidFrame, ErrFrameTooLarge)
	}

	if f.Masked {
		if _, err := io.ReadFull(r, f.Mask[:]); err != nil {
			return nil, newError(ErrCannotReadPayload, err)
		}
	}

	f.Payload = make([]byte, length)
	if n, err := io.ReadFull(r, f.Payload); err != nil {
		if uint64(n) != length && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
			return nil, newError(ErrInvalidFrame, ErrShortPayload)
		}
		return nil, newError(ErrCannotReadPayload, err)
	}

	if f.Masked {
		MaskBytes(f.Mask, f.Payload)
	}

	if !f.Opcode.IsValid() {
		return nil, newError(ErrInvalidFrame, ErrInvalidOpcode)
	}
	if f.Opcode == OpcodeText && !utf8.Valid(f.Payload) {
		return nil, newError(ErrInvalidFrame, ErrInvalidUTF8)
	}

	return f, nil
}

// Encode serializes f. FIN is always set; the payload is XOR-ed with the
// mask in the output buffer when f.Masked is true, f.Payload is untouched.
func (f *Frame) Encode() []byte {
	n := len(f.Payload)

	size := 2 + n
	switch {
	case n > max16Len:
		size += 8
	case n > maxInlineLen:
		size += 2
	}
	if f.Masked {
		size += 4
	}

	buf := make([]byte, 0, size)
	buf = append(buf, (f.Flags|finBit)&flagsMask|byte(f.Opcode)&opMask)

	var maskFlag byte
	if f.Masked {
		maskFlag = maskBit
	}
	switch {
	case n <= maxInlineLen:
		buf = append(buf, maskFlag|byte(n))
	case n <= max16Len:
		buf = append(buf, maskFlag|len16Marker)
		buf = binary.BigEndian.AppendUint16(buf, uint16(n))
	default:
		buf = append(buf, maskFlag|len64Marker)
		buf = binary.BigEndian.AppendUint64(buf, uint64(n))
	}

	if f.Masked {
		buf = append(buf, f.Mask[:]...)
	}

	start := len(buf)
	buf = append(buf, f.Payload...)
	if f.Masked {
		MaskBytes(f.Mask, buf[start:])
	}
	return buf
}

// WriteFrame encodes f and writes it to w in a single call.
func WriteFrame(w io.Writer, f *Frame) error {
	_, err := w.Write(f.Encode())
	return err
}

// MaskBytes XORs b in place with mask, byte i with mask[i%4].
func MaskBytes(mask [4]byte, b []byte) {
	for i := range b {
		b[i] ^= mask[i%4]
	}
}

// NewMask returns four bytes from the OS random source.
func NewMask() ([4]byte, error) {
	var mask [4]byte
	if _, err := io.ReadFull(rand.Reader, mask[:]); err != nil {
		return mask, err
	}
	return mask, nil
}
