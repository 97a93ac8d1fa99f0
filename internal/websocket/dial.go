package websocket

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/luciancaetano/kagikachi/internal/protocol"
)

// CloseError is returned by Session.Receive when the server sends a Close
// frame.
type CloseError struct {
	Code   uint16
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed by server: %d %s", e.Code, e.Reason)
}

// Session is a client connection to a kagikachi server. Outgoing frames are
// always masked. Send and Receive may be used from different goroutines, but
// each must not be called concurrently with itself.
type Session struct {
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
}

// Dial connects to addr and performs the upgrade handshake. The context
// bounds both the TCP connect and the handshake.
func Dial(ctx context.Context, addr string) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	br := bufio.NewReader(conn)
	if err := protocol.ClientHandshake(br, conn, addr, "/"); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})

	return &Session{conn: conn, reader: br}, nil
}

// Send writes text as a single masked Text frame.
func (s *Session) Send(text string) error {
	return s.writeFrame(protocol.OpcodeText, []byte(text))
}

// SendBinary writes payload as a single masked Binary frame.
func (s *Session) SendBinary(payload []byte) error {
	return s.writeFrame(protocol.OpcodeBinary, payload)
}

// Ping sends a Ping frame carrying payload.
func (s *Session) Ping(payload []byte) error {
	return s.writeFrame(protocol.OpcodePing, payload)
}

func (s *Session) writeFrame(op protocol.Opcode, payload []byte) error {
	mask, err := protocol.NewMask()
	if err != nil {
		return err
	}
	f := &protocol.Frame{Opcode: op, Masked: true, Mask: mask, Payload: payload}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.WriteFrame(s.conn, f)
}

// ReadFrame returns the next frame from the server, whatever its opcode.
// Frames above protocol.DefaultMaxPayloadSize are rejected.
func (s *Session) ReadFrame() (*protocol.Frame, error) {
	return protocol.ReadFrame(s.reader, protocol.DefaultMaxPayloadSize)
}

// Receive returns the payload of the next Text or Binary frame. Pong frames
// are skipped; a Close frame ends the session with a *CloseError.
func (s *Session) Receive() (string, error) {
	for {
		f, err := s.ReadFrame()
		if err != nil {
			return "", err
		}
		switch f.Opcode {
		case protocol.OpcodePong:
			continue
		case protocol.OpcodeConnectionClosed:
			s.conn.Close()
			return "", parseClose(f.Payload)
		default:
			return f.Text(), nil
		}
	}
}

// Do sends one command and waits for its reply.
func (s *Session) Do(command string) (string, error) {
	if err := s.Send(command); err != nil {
		return "", err
	}
	return s.Receive()
}

// Close sends a Close frame and closes the connection.
func (s *Session) Close() error {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, protocol.CloseNormalClosure)
	writeErr := s.writeFrame(protocol.OpcodeConnectionClosed, payload)
	if err := s.conn.Close(); err != nil {
		return err
	}
	return writeErr
}

func parseClose(payload []byte) *CloseError {
	if len(payload) < 2 {
		return &CloseError{}
	}
	return &CloseError{
		Code:   binary.BigEndian.Uint16(payload[:2]),
		Reason: string(payload[2:]),
	}
}
