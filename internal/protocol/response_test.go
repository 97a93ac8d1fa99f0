package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestResponseDefaults(t *testing.T) {
	t.Parallel()

	r := NewResponse()
	if r.Opcode() != OpcodeBinary {
		t.Errorf("default opcode = %v, want Binary", r.Opcode())
	}
	if r.Len() != 0 {
		t.Errorf("default length = %d, want 0", r.Len())
	}
	if _, masked := r.Mask(); masked {
		t.Error("default response should not be masked")
	}
	if got := r.Build(); !bytes.Equal(got, []byte{0x82, 0x00}) {
		t.Errorf("Build() = %x, want 8200", got)
	}
}

func TestResponseSetBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		build      func() *Response
		wantOpcode Opcode
		wantLen    int
	}{
		{"text body", func() *Response { return NewResponse().SetBody("OK") }, OpcodeText, 2},
		{"multibyte text", func() *Response { return Text("héllo") }, OpcodeText, 6},
		{"binary body", func() *Response { return NewResponse().SetBinaryBody([]byte{1, 2, 3}) }, OpcodeBinary, 3},
		{"text then binary", func() *Response { return Text("x").SetBinaryBody(nil) }, OpcodeBinary, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := tt.build()
			if r.Opcode() != tt.wantOpcode {
				t.Errorf("opcode = %v, want %v", r.Opcode(), tt.wantOpcode)
			}
			if r.Len() != tt.wantLen {
				t.Errorf("length = %d, want %d", r.Len(), tt.wantLen)
			}
		})
	}
}

func TestResponseBuildMasked(t *testing.T) {
	t.Parallel()

	mask := [4]byte{9, 8, 7, 6}
	data := Text("PONG").SetMask(mask).Build()

	f, err := ReadFrame(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !f.Masked || f.Mask != mask {
		t.Errorf("mask = %v/%v, want true/%v", f.Masked, f.Mask, mask)
	}
	if f.Text() != "PONG" {
		t.Errorf("payload = %q, want PONG", f.Text())
	}
}

func TestPongEchoesPing(t *testing.T) {
	t.Parallel()

	ping := &Frame{Opcode: OpcodePing, Masked: true, Mask: [4]byte{1, 2, 3, 4}, Payload: []byte("are you there")}
	pong := Pong(ping)

	if pong.Opcode() != OpcodePong {
		t.Errorf("opcode = %v, want Pong", pong.Opcode())
	}
	if pong.Body() != "are you there" {
		t.Errorf("body = %q, want ping payload", pong.Body())
	}
	if mask, masked := pong.Mask(); !masked || mask != ping.Mask {
		t.Errorf("mask = %v/%v, want ping mask", mask, masked)
	}

	unmasked := Pong(&Frame{Opcode: OpcodePing})
	if _, masked := unmasked.Mask(); masked {
		t.Error("pong for an unmasked ping should be unmasked")
	}
}

func TestCloseResponse(t *testing.T) {
	t.Parallel()

	r := Close(ClosePolicyViolation, "Rate limit exceeded")
	if r.Opcode() != OpcodeConnectionClosed {
		t.Fatalf("opcode = %v, want ConnectionClosed", r.Opcode())
	}

	body := []byte(r.Body())
	if got := binary.BigEndian.Uint16(body[:2]); got != ClosePolicyViolation {
		t.Errorf("status code = %d, want %d", got, ClosePolicyViolation)
	}
	if got := string(body[2:]); got != "Rate limit exceeded" {
		t.Errorf("reason = %q", got)
	}
}
