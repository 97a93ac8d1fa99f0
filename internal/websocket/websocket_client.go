package websocket

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/protocol"
)

// Client implements the kagikachi.Client interface over a raw TCP connection.
// The server runs the upgrade handshake on it before reading frames.
type Client struct {
	id            string
	conn          net.Conn
	reader        *bufio.Reader
	remoteAddr    string
	ctx           context.Context
	cancel        context.CancelFunc
	writeMu       sync.Mutex
	mu            sync.RWMutex
	closed        bool
	rateLimiter   *rate.Limiter // Rate limiter for incoming frames
	maskResponses bool
	maxPayload    int64
	readTimeout   time.Duration
}

var _ kagikachi.Client = (*Client)(nil)

// NewClient wraps conn. Rate limiting is applied only when rateLimitConfig
// is enabled.
func NewClient(conn net.Conn, cfg *ServerConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	var limiter *rate.Limiter
	if cfg.RateLimitConfig != nil && cfg.RateLimitConfig.Enabled {
		limiter = rate.NewLimiter(cfg.RateLimitConfig.MessagesPerSecond, cfg.RateLimitConfig.Burst)
	}

	return &Client{
		id:            uuid.New().String(),
		conn:          conn,
		reader:        bufio.NewReader(conn),
		remoteAddr:    conn.RemoteAddr().String(),
		ctx:           ctx,
		cancel:        cancel,
		rateLimiter:   limiter,
		maskResponses: cfg.MaskResponses,
		maxPayload:    cfg.MaxPayloadSize,
		readTimeout:   cfg.ReadTimeout,
	}
}

// ID returns a unique identifier for the connected client
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the client's remote network address
func (c *Client) RemoteAddr() string {
	return c.remoteAddr
}

// Context returns the client's lifecycle context
func (c *Client) Context() context.Context {
	return c.ctx
}

// Send writes text to the client as a single Text frame.
func (c *Client) Send(ctx context.Context, text string) error {
	return c.WriteResponse(ctx, protocol.Text(text))
}

// WriteResponse encodes resp and writes it to the connection. When response
// masking is enabled, an unmasked response gets a fresh random mask; when it
// is disabled, any mask on resp is dropped.
func (c *Client) WriteResponse(ctx context.Context, resp *protocol.Response) error {
	if !c.IsAlive() {
		return fmt.Errorf(kagikachi.ErrConnectionClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f := resp.Frame()
	if !c.maskResponses {
		f.Masked = false
	} else if !f.Masked {
		mask, err := protocol.NewMask()
		if err != nil {
			return err
		}
		f.Masked, f.Mask = true, mask
	}
	data := f.Encode()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	_, err := c.conn.Write(data)
	return err
}

// handshake answers the upgrade request waiting on the connection.
func (c *Client) handshake() (*protocol.HandshakeRequest, error) {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return protocol.Handshake(c.reader, c.conn)
}

// readFrame blocks until the next frame arrives or the read fails.
func (c *Client) readFrame() (*protocol.Frame, error) {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return protocol.ReadFrame(c.reader, c.maxPayload)
}

// Close closes the client connection
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.cancel()
	return c.conn.Close()
}

// CloseWithCode sends a Close frame with a status code and reason, then
// closes the connection.
func (c *Client) CloseWithCode(ctx context.Context, code uint16, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	writeErr := c.WriteResponse(ctx, protocol.Close(code, reason))
	if err := c.Close(ctx); err != nil {
		return err
	}
	return writeErr
}

// IsAlive returns true if the connection is still active
func (c *Client) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// CheckRateLimit checks if the client has exceeded the rate limit
// Returns true if the frame is allowed, false if rate limited
func (c *Client) CheckRateLimit() bool {
	if c.rateLimiter == nil {
		// Rate limiting disabled
		return true
	}
	return c.rateLimiter.Allow()
}
