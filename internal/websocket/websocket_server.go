package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/protocol"
)

// OnConnectFn is called after the upgrade handshake completes and before the
// frame loop starts. It runs on the connection's goroutine.
type OnConnectFn = func(client kagikachi.Client)

// OnClientDisconnectFn is called once when a served client goes away. voluntary
// is true when the client sent a Close frame or ended the stream cleanly, and
// false for read failures, rate limiting and server shutdown.
type OnClientDisconnectFn = func(client kagikachi.Client, voluntary bool)

// ErrorHandlerFn receives transport errors: failed handshakes, bad frames,
// read failures and failed writes. client is nil for accept errors.
type ErrorHandlerFn = func(client kagikachi.Client, err error)

type ServerConfig struct {
	Addr            string
	Handler         kagikachi.MessageHandler
	RateLimitConfig *RateLimitConfig
	// MaskResponses masks every server frame with a fresh random key.
	// RFC 6455 clients reject masked server frames; disable it for them.
	MaskResponses bool
	// MaxPayloadSize caps the declared length of an incoming frame.
	// Zero or less means protocol.DefaultMaxPayloadSize.
	MaxPayloadSize int64
	// ReadTimeout bounds each frame read. Zero disables it.
	ReadTimeout        time.Duration
	OnConnect          OnConnectFn
	OnClientDisconnect OnClientDisconnectFn
	OnError            ErrorHandlerFn
}

// DefaultConfig returns the configuration the server runs with when nothing
// else is set: the default address, masked responses, the default payload
// cap and no rate limiting.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Addr:            kagikachi.DefaultAddr,
		RateLimitConfig: NoRateLimit(),
		MaskResponses:   true,
		MaxPayloadSize:  protocol.DefaultMaxPayloadSize,
	}
}

// RateLimitConfig defines rate limiting configuration for clients
type RateLimitConfig struct {
	// MessagesPerSecond defines how many frames a client can send per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 100 messages per second with burst of 200
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// Server accepts WebSocket connections and feeds their frames to a single
// MessageHandler. Every handler call runs under one lock, so commands from
// all clients are applied one at a time.
type Server struct {
	cfg      *ServerConfig
	handler  kagikachi.MessageHandler
	listener net.Listener
	clients  sync.Map // map[string]*Client
	count    atomic.Int64
	wg       sync.WaitGroup

	// store serializes handler calls.
	store sync.Mutex

	mu           sync.RWMutex
	running      bool
	onConnect    OnConnectFn
	onDisconnect OnClientDisconnectFn
	onError      ErrorHandlerFn
}

var _ kagikachi.Server = (*Server)(nil)

// New creates a new server from cfg. A nil RateLimitConfig disables rate
// limiting, a nil OnError logs errors, and a nil Handler answers every
// message with ReplyUnknownCommand.
//
// Example:
//
//	cfg := DefaultConfig()
//	cfg.Handler = command.NewProcessor()
//	server := New(cfg)
func New(cfg *ServerConfig) *Server {
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = NoRateLimit()
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = protocol.DefaultMaxPayloadSize
	}
	handler := cfg.Handler
	if handler == nil {
		handler = kagikachi.MessageHandlerFunc(func(kagikachi.Message) string {
			return kagikachi.ReplyUnknownCommand
		})
	}
	onError := cfg.OnError
	if onError == nil {
		onError = logError
	}
	return &Server{
		cfg:          cfg,
		handler:      handler,
		onConnect:    cfg.OnConnect,
		onDisconnect: cfg.OnClientDisconnect,
		onError:      onError,
	}
}

func logError(client kagikachi.Client, err error) {
	ev := log.Error().Err(err)
	if client != nil {
		ev = ev.Str("conn_id", client.ID()).Str("remote_addr", client.RemoteAddr())
	}
	ev.Msg("websocket error")
}

// Start binds the configured address and serves connections in the
// background.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if err := s.bind(ln); err != nil {
		ln.Close()
		return err
	}

	go s.acceptLoop(ln)
	return nil
}

// Serve accepts connections on ln until the server is stopped. It blocks,
// and returns nil after Stop.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.bind(ln); err != nil {
		return err
	}
	return s.acceptLoop(ln)
}

func (s *Server) bind(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf(kagikachi.ErrServerAlreadyRunning)
	}
	s.running = true
	s.listener = ln
	// Released when acceptLoop returns.
	s.wg.Add(1)
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) error {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.isRunning() {
				return nil
			}
			s.onError(nil, err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Stop closes the listener and every client connection, then waits for the
// connection goroutines to finish or ctx to end.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	ln := s.listener
	s.mu.Unlock()

	err := ln.Close()

	// Close all client connections
	s.clients.Range(func(key, value interface{}) bool {
		if client, ok := value.(*Client); ok {
			client.Close(ctx)
		}
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Addr returns the listener address, or nil before the server starts.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnCount returns the number of clients past the handshake.
func (s *Server) ConnCount() int {
	return int(s.count.Load())
}

// GetClient returns a client by ID
func (s *Server) GetClient(id string) (*Client, bool) {
	if client, ok := s.clients.Load(id); ok {
		return client.(*Client), true
	}
	return nil, false
}

// handleConn performs the handshake and then serves frames until the client
// leaves or a fatal read error occurs.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	client := NewClient(conn, s.cfg)
	s.clients.Store(client.ID(), client)
	defer s.clients.Delete(client.ID())

	// Stop may have swept the client map before the Store above.
	if !s.isRunning() {
		client.Close(context.Background())
		return
	}

	if _, err := client.handshake(); err != nil {
		if client.IsAlive() {
			s.onError(client, err)
		}
		client.Close(context.Background())
		return
	}

	s.count.Add(1)

	voluntary := false
	defer func() {
		s.count.Add(-1)
		client.Close(context.Background())
		log.Debug().Str("conn_id", client.ID()).Bool("voluntary", voluntary).Msg("client disconnected")
		if s.onDisconnect != nil {
			s.onDisconnect(client, voluntary)
		}
	}()

	log.Debug().Str("conn_id", client.ID()).Str("remote_addr", client.RemoteAddr()).Msg("client connected")
	if s.onConnect != nil {
		s.onConnect(client)
	}

	for {
		frame, err := client.readFrame()
		if err != nil {
			if !client.IsAlive() {
				return
			}
			if errors.Is(err, protocol.ErrConnectionClosed) {
				voluntary = true
				return
			}
			s.onError(client, err)
			if recoverable(err) {
				continue
			}
			return
		}

		// Check rate limit before processing the frame
		if !client.CheckRateLimit() {
			log.Warn().Str("conn_id", client.ID()).Str("remote_addr", client.RemoteAddr()).Msg("rate limit exceeded")
			client.CloseWithCode(context.Background(), protocol.ClosePolicyViolation, kagikachi.ReplyRateLimitExceeded)
			return
		}

		switch frame.Opcode {
		case protocol.OpcodePing:
			if err := client.WriteResponse(context.Background(), protocol.Pong(frame)); err != nil {
				s.onError(client, err)
				return
			}
		case protocol.OpcodeConnectionClosed:
			voluntary = true
			return
		default:
			reply := s.dispatch(client, frame)
			if err := client.Send(context.Background(), reply); err != nil {
				s.onError(client, err)
				return
			}
		}
	}
}

// dispatch runs the handler for one data frame under the store lock. Only
// the handler call is inside the critical section; the reply is written by
// the caller.
func (s *Server) dispatch(client *Client, frame *protocol.Frame) string {
	msg := kagikachi.Message{
		Kind:    messageKind(frame.Opcode),
		Payload: frame.Payload,
		Client:  client,
	}

	s.store.Lock()
	defer s.store.Unlock()
	return s.handler.HandleMessage(msg)
}

func messageKind(op protocol.Opcode) kagikachi.MessageKind {
	switch op {
	case protocol.OpcodeText:
		return kagikachi.TextMessage
	case protocol.OpcodeBinary:
		return kagikachi.BinaryMessage
	case protocol.OpcodePong:
		return kagikachi.PongMessage
	default:
		return kagikachi.ContinuationMessage
	}
}

// recoverable reports whether the frame loop can keep reading after err.
// Only frames that were read in full but rejected leave the stream aligned.
func recoverable(err error) bool {
	return errors.Is(err, protocol.ErrInvalidOpcode) || errors.Is(err, protocol.ErrInvalidUTF8)
}
