package kagikachi

import (
	"context"
	"net"
)

// Server is a WebSocket document store server.
//
// Example usage:
//
//	import "github.com/luciancaetano/kagikachi/ws"
//
//	server := ws.New(ws.NewConfig("0.0.0.0:7878", ws.NoRateLimit(), nil, nil))
//	if err := server.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Stop(ctx)
type Server interface {
	// Start binds the listening socket and begins accepting connections in
	// the background. It returns once the listener is up.
	//
	// Returns an error if the server is already running or if the address
	// cannot be bound.
	Start(ctx context.Context) error

	// Stop closes the listener and every open connection.
	Stop(ctx context.Context) error

	// Addr returns the bound listener address, or nil before Start.
	Addr() net.Addr

	// ConnCount returns the number of connections currently being served.
	ConnCount() int
}

// MessageKind classifies a data frame handed to a MessageHandler.
type MessageKind uint8

const (
	// TextMessage carries a UTF-8 command.
	TextMessage MessageKind = iota + 1
	// BinaryMessage carries raw bytes.
	BinaryMessage
	// ContinuationMessage is a stray continuation frame; fragmentation is
	// not supported.
	ContinuationMessage
	// PongMessage is an unsolicited pong.
	PongMessage
)

// Message is a data frame received from a client.
type Message struct {
	Kind    MessageKind
	Payload []byte
	Client  Client
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Payload)
}

// MessageHandler turns a client message into a text reply.
//
// The server calls HandleMessage while holding its single store lock, so
// implementations see calls one at a time, across all connections, and must
// not block on network I/O.
type MessageHandler interface {
	HandleMessage(msg Message) string
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(msg Message) string

// HandleMessage calls f(msg).
func (f MessageHandlerFunc) HandleMessage(msg Message) string {
	return f(msg)
}

// Client represents a connected WebSocket client.
type Client interface {
	// ID returns a unique identifier generated when the client connected.
	ID() string

	// RemoteAddr returns the client's remote network address, for example
	// "192.168.1.100:54321".
	RemoteAddr() string

	// Context returns the connection's lifecycle context. It is cancelled
	// when the connection closes.
	Context() context.Context

	// Send writes a text frame to the client.
	//
	// Returns an error if the connection is closed or the context is done.
	Send(ctx context.Context, text string) error

	// Close shuts the connection down without a close handshake.
	Close(ctx context.Context) error

	// IsAlive reports whether the connection is still open.
	IsAlive() bool
}
