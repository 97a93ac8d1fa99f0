package protocol

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NewSecKey returns a random Sec-WebSocket-Key.
func NewSecKey() (string, error) {
	var b [16]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b[:]), nil
}

// ClientHandshake performs the client side of the upgrade: it writes a
// request for host and path to w, then reads the status line and headers
// from r and checks the accept token.
func ClientHandshake(r *bufio.Reader, w io.Writer, host, path string) error {
	key, err := NewSecKey()
	if err != nil {
		return newError(ErrInvalidHandshake, err)
	}
	if path == "" {
		path = "/"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&sb, "Host: %s\r\n", host)
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	fmt.Fprintf(&sb, "Sec-WebSocket-Key: %s\r\n", key)
	sb.WriteString("Sec-WebSocket-Version: 13\r\n")
	sb.WriteString("\r\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return newError(ErrInvalidHandshake, err)
	}

	status, err := readLine(r)
	if err != nil {
		return newError(ErrInvalidHandshake, fmt.Errorf("read status line: %w", err))
	}
	if !strings.HasPrefix(status, "HTTP/1.1 101") {
		return newError(ErrInvalidHandshake, fmt.Errorf("%w: %q", ErrBadStatus, status))
	}

	h := make(http.Header)
	if err := readHeaders(r, h); err != nil {
		return newError(ErrInvalidHandshake, err)
	}
	if h.Get("Sec-WebSocket-Accept") != AcceptKey(key) {
		return newError(ErrInvalidHandshake, ErrAcceptMismatch)
	}
	return nil
}
