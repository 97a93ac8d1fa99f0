package ws

import (
	"context"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/command"
	"github.com/luciancaetano/kagikachi/internal/websocket"
)

type RateLimitConfig = websocket.RateLimitConfig
type OnConnectFn = websocket.OnConnectFn
type OnDisconnectFn = websocket.OnClientDisconnectFn
type ErrorHandlerFn = websocket.ErrorHandlerFn
type ServerConfig = *websocket.ServerConfig
type Session = websocket.Session
type CloseError = websocket.CloseError

// New creates a document store server from cfg. When cfg has no Handler, a
// fresh in-memory store is attached.
//
// Example:
//
//	server := ws.New(ws.NewConfig("0.0.0.0:7878", ws.NoRateLimit(), nil, nil))
//	if err := server.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func New(cfg ServerConfig) kagikachi.Server {
	if cfg.Handler == nil {
		cfg.Handler = command.NewProcessor()
	}
	return websocket.New(cfg)
}

// NewConfig returns the default configuration with the given address, rate
// limit and connection callbacks. onConnect and onDisconnect may be nil.
func NewConfig(addr string, rateLimitConfig *RateLimitConfig, onConnect OnConnectFn, onDisconnect OnDisconnectFn) ServerConfig {
	cfg := websocket.DefaultConfig()
	cfg.Addr = addr
	cfg.RateLimitConfig = rateLimitConfig
	cfg.OnConnect = onConnect
	cfg.OnClientDisconnect = onDisconnect
	return cfg
}

// DefaultConfig returns the server defaults: address 0.0.0.0:7878, masked
// responses, a 10 MiB payload cap and no rate limiting.
func DefaultConfig() ServerConfig {
	return websocket.DefaultConfig()
}

// Dial connects to a kagikachi server at addr.
func Dial(ctx context.Context, addr string) (*Session, error) {
	return websocket.Dial(ctx, addr)
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}
