package protocol

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// webSocketGUID is the fixed GUID from RFC 6455 section 1.3.
const webSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// maxHeaderLines bounds the number of lines read from an upgrade request.
const maxHeaderLines = 128

const badRequestResponse = "HTTP/1.1 400 Bad Request\r\n\r\n"

// HandshakeRequest is the parsed upgrade request.
type HandshakeRequest struct {
	Method string
	Path   string
	Proto  string
	Header http.Header
}

// AcceptKey computes the Sec-WebSocket-Accept token for a client key.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + webSocketGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Handshake reads an upgrade request from r and answers it on w. The
// Connection header must contain "Upgrade", the Upgrade header must equal
// "websocket" ignoring case, and Sec-WebSocket-Key must be present. On a
// validation failure a 400 response is written and ErrInvalidHandshake
// returned. The connection is never closed here.
func Handshake(r *bufio.Reader, w io.Writer) (*HandshakeRequest, error) {
	req, err := readRequest(r)
	if err != nil {
		return nil, newError(ErrInvalidHandshake, err)
	}

	if cause := validateRequest(req); cause != nil {
		if _, err := io.WriteString(w, badRequestResponse); err != nil {
			return req, newError(ErrInvalidHandshake, fmt.Errorf("%w: write response: %v", cause, err))
		}
		return req, newError(ErrInvalidHandshake, cause)
	}

	resp := buildUpgradeResponse(AcceptKey(req.Header.Get("Sec-WebSocket-Key")))
	if _, err := io.WriteString(w, resp); err != nil {
		return req, newError(ErrInvalidHandshake, err)
	}
	return req, nil
}

func validateRequest(req *HandshakeRequest) error {
	if !strings.Contains(req.Header.Get("Connection"), "Upgrade") {
		return ErrMissingConnUpg
	}
	if !strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		return ErrMissingUpgrade
	}
	if req.Header.Get("Sec-WebSocket-Key") == "" {
		return ErrMissingSecKey
	}
	return nil
}

func buildUpgradeResponse(accept string) string {
	var sb strings.Builder
	sb.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	sb.WriteString("Sec-WebSocket-Accept: " + accept + "\r\n")
	sb.WriteString("\r\n")
	return sb.String()
}

// readRequest reads the request line and headers up to the blank line.
func readRequest(r *bufio.Reader) (*HandshakeRequest, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("read request line: %w", err)
	}
	if line == "" {
		return nil, ErrMalformedRequest
	}

	req := &HandshakeRequest{Header: make(http.Header)}
	parts := strings.SplitN(line, " ", 3)
	req.Method = parts[0]
	if len(parts) > 1 {
		req.Path = parts[1]
	}
	if len(parts) > 2 {
		req.Proto = parts[2]
	}

	if err := readHeaders(r, req.Header); err != nil {
		return nil, err
	}
	return req, nil
}

func readHeaders(r *bufio.Reader, h http.Header) error {
	for i := 0; ; i++ {
		if i >= maxHeaderLines {
			return fmt.Errorf("%w: too many header lines", ErrMalformedRequest)
		}
		line, err := readLine(r)
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" {
			return nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
}

// readLine returns one CRLF-terminated line. A line longer than the reader's
// buffer is rejected with ErrMalformedRequest.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedRequest, r.Size())
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}
