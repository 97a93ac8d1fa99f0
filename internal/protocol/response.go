package protocol

import "encoding/binary"

// Close status codes used by the server.
const (
	CloseNormalClosure   uint16 = 1000
	ClosePolicyViolation uint16 = 1008
)

// Response builds an outgoing frame. The zero value from NewResponse is an
// empty, unmasked Binary frame.
type Response struct {
	opcode  Opcode
	payload []byte
	masked  bool
	mask    [4]byte
}

// NewResponse returns an empty Binary response.
func NewResponse() *Response {
	return &Response{opcode: OpcodeBinary}
}

// Text returns a Text response carrying body.
func Text(body string) *Response {
	return NewResponse().SetBody(body)
}

// SetBody sets a text body and selects the Text opcode.
func (r *Response) SetBody(body string) *Response {
	r.payload = []byte(body)
	r.opcode = OpcodeText
	return r
}

// SetBinaryBody sets a binary body and selects the Binary opcode.
func (r *Response) SetBinaryBody(body []byte) *Response {
	r.payload = body
	r.opcode = OpcodeBinary
	return r
}

// SetMask masks the payload with mask when the response is built.
func (r *Response) SetMask(mask [4]byte) *Response {
	r.mask = mask
	r.masked = true
	return r
}

// Opcode reports the opcode selected for the response.
func (r *Response) Opcode() Opcode {
	return r.opcode
}

// Body returns the unmasked payload as a string.
func (r *Response) Body() string {
	return string(r.payload)
}

// Len returns the payload length in bytes.
func (r *Response) Len() int {
	return len(r.payload)
}

// Mask returns the mask set on the response, if any.
func (r *Response) Mask() ([4]byte, bool) {
	return r.mask, r.masked
}

// Frame returns the frame the response encodes to.
func (r *Response) Frame() *Frame {
	return &Frame{
		Flags:   finBit,
		Opcode:  r.opcode,
		Masked:  r.masked,
		Mask:    r.mask,
		Payload: r.payload,
	}
}

// Build serializes the response as a single frame.
func (r *Response) Build() []byte {
	return r.Frame().Encode()
}

// Pong answers ping with its own payload, reusing the ping's mask when it
// had one.
func Pong(ping *Frame) *Response {
	r := &Response{opcode: OpcodePong, payload: ping.Payload}
	if ping.Masked {
		r.SetMask(ping.Mask)
	}
	return r
}

// Close builds a ConnectionClosed frame carrying a status code and reason.
func Close(code uint16, reason string) *Response {
	payload := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(payload, code)
	payload = append(payload, reason...)
	return &Response{opcode: OpcodeConnectionClosed, payload: payload}
}
