package websocket

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/command"
	"github.com/luciancaetano/kagikachi/internal/protocol"
)

func startServer(t *testing.T, configure func(*ServerConfig)) *Server {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Handler = command.NewProcessor()
	cfg.OnError = func(kagikachi.Client, error) {}
	if configure != nil {
		configure(cfg)
	}

	server := New(cfg)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Stop(ctx)
	})
	return server
}

func dial(t *testing.T, server *Server) *Session {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := Dial(ctx, server.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { session.conn.Close() })
	session.conn.SetDeadline(time.Now().Add(10 * time.Second))
	return session
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCommandsOverWebSocket(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	session := dial(t, server)

	steps := []struct {
		cmd  string
		want string
	}{
		{"PING", "PONG"},
		{`SET user.name "Ann"`, "Key not found"},
		{`SET user {"name": "Ann"}`, "OK"},
		{`SET user.name "Bob"`, "OK"},
		{"GET user.name", `"Bob"`},
		{"SET arr [1,2,3]", "OK"},
		{"DEL arr.1", "OK"},
		{"GET arr", "[1, 3]"},
		{"DEL arr", "OK"},
		{"GET arr", "Key not found"},
		{`LOAD {"a": 1, "b": 2}`, "OK"},
		{"GET a", "1"},
		{"DUMP", `{"a": 1, "b": 2, "user": {"name": "Bob"}}`},
		{"NOPE", "Unknown command"},
	}

	for _, s := range steps {
		reply, err := session.Do(s.cmd)
		require.NoError(t, err, "command %q", s.cmd)
		assert.Equal(t, s.want, reply, "command %q", s.cmd)
	}
}

func TestStoreIsSharedAcrossClients(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	writer := dial(t, server)
	reader := dial(t, server)

	reply, err := writer.Do("SET shared 42")
	require.NoError(t, err)
	require.Equal(t, "OK", reply)

	reply, err = reader.Do("GET shared")
	require.NoError(t, err)
	assert.Equal(t, "42", reply)
}

func TestResponsesAreMaskedByDefault(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	session := dial(t, server)

	require.NoError(t, session.Send("PING"))
	f, err := session.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.OpcodeText, f.Opcode)
	assert.True(t, f.Masked)
	assert.Equal(t, "PONG", f.Text())
}

func TestResponsesUnmaskedWhenDisabled(t *testing.T) {
	t.Parallel()

	server := startServer(t, func(cfg *ServerConfig) { cfg.MaskResponses = false })
	session := dial(t, server)

	require.NoError(t, session.Ping([]byte("hi")))
	f, err := session.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.OpcodePong, f.Opcode)
	assert.False(t, f.Masked, "pong must drop the ping's mask when masking is off")
	assert.Equal(t, "hi", f.Text())
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	session := dial(t, server)

	require.NoError(t, session.Ping([]byte("are you there")))
	f, err := session.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.OpcodePong, f.Opcode)
	assert.Equal(t, "are you there", f.Text())

	// The ping never reached the store.
	reply, err := session.Do("DUMP")
	require.NoError(t, err)
	assert.Equal(t, "{}", reply)
}

func TestBinaryFrameIsRejected(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	session := dial(t, server)

	require.NoError(t, session.SendBinary([]byte("SET a 1")))
	reply, err := session.Receive()
	require.NoError(t, err)
	assert.Equal(t, kagikachi.ReplyInvalidMessageType, reply)

	reply, err = session.Do("GET a")
	require.NoError(t, err)
	assert.Equal(t, kagikachi.ReplyKeyNotFound, reply)
}

func TestInvalidFrameKeepsConnection(t *testing.T) {
	t.Parallel()

	errs := make(chan error, 4)
	server := startServer(t, func(cfg *ServerConfig) {
		cfg.OnError = func(_ kagikachi.Client, err error) { errs <- err }
	})
	session := dial(t, server)

	// Masked text frame whose payload is not valid UTF-8.
	bad := (&protocol.Frame{Opcode: protocol.OpcodeText, Masked: true, Mask: [4]byte{1, 2, 3, 4}, Payload: []byte{0xff, 0xfe}}).Encode()
	_, err := session.conn.Write(bad)
	require.NoError(t, err)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, protocol.ErrInvalidUTF8)
	case <-time.After(5 * time.Second):
		t.Fatal("error handler not called")
	}

	reply, err := session.Do("PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", reply)
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	t.Parallel()

	errs := make(chan error, 4)
	server := startServer(t, func(cfg *ServerConfig) {
		cfg.MaxPayloadSize = 16
		cfg.OnError = func(_ kagikachi.Client, err error) { errs <- err }
	})
	session := dial(t, server)

	require.NoError(t, session.Send("SET k "+strings.Repeat("1", 32)))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
	case <-time.After(5 * time.Second):
		t.Fatal("error handler not called")
	}
	_, err := session.Receive()
	assert.Error(t, err)
}

func TestMalformedHandshakeGets400(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	conn, err := net.DialTimeout("tcp", server.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, "GET / HTTP/1.1\r\nHost: localhost\r\nConnection: Upgrade\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n")
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 400 Bad Request\r\n\r\n", string(resp))
	assert.Zero(t, server.ConnCount())
}

func TestHandshakeResponse(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	conn, err := net.DialTimeout("tcp", server.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, "GET /chat HTTP/1.1\r\nHost: localhost\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n")
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	assert.Equal(t, []string{
		"HTTP/1.1 101 Switching Protocols",
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=",
	}, lines)
}

func TestConnectionHooks(t *testing.T) {
	t.Parallel()

	connected := make(chan kagikachi.Client, 1)
	disconnected := make(chan bool, 1)
	server := startServer(t, func(cfg *ServerConfig) {
		cfg.OnConnect = func(c kagikachi.Client) { connected <- c }
		cfg.OnClientDisconnect = func(_ kagikachi.Client, voluntary bool) { disconnected <- voluntary }
	})
	session := dial(t, server)

	var client kagikachi.Client
	select {
	case client = <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("OnConnect not called")
	}
	_, err := uuid.Parse(client.ID())
	assert.NoError(t, err, "client ID should be a UUID")
	assert.NotEmpty(t, client.RemoteAddr())
	assert.True(t, client.IsAlive())
	waitFor(t, func() bool { return server.ConnCount() == 1 })

	require.NoError(t, session.Close())

	select {
	case voluntary := <-disconnected:
		assert.True(t, voluntary, "close frame should count as a voluntary disconnect")
	case <-time.After(5 * time.Second):
		t.Fatal("OnClientDisconnect not called")
	}
	assert.False(t, client.IsAlive())
	assert.Error(t, client.Context().Err())
	waitFor(t, func() bool { return server.ConnCount() == 0 })
}

func TestServerSendToClient(t *testing.T) {
	t.Parallel()

	connected := make(chan kagikachi.Client, 1)
	server := startServer(t, func(cfg *ServerConfig) {
		cfg.OnConnect = func(c kagikachi.Client) { connected <- c }
	})
	session := dial(t, server)

	client := <-connected
	found, ok := server.GetClient(client.ID())
	require.True(t, ok)
	require.NoError(t, found.Send(context.Background(), "hello"))

	reply, err := session.Receive()
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
}

func TestRateLimitClosesConnection(t *testing.T) {
	t.Parallel()

	disconnected := make(chan bool, 1)
	server := startServer(t, func(cfg *ServerConfig) {
		cfg.RateLimitConfig = &RateLimitConfig{
			MessagesPerSecond: rate.Every(time.Hour),
			Burst:             1,
			Enabled:           true,
		}
		cfg.OnClientDisconnect = func(_ kagikachi.Client, voluntary bool) { disconnected <- voluntary }
	})
	session := dial(t, server)

	reply, err := session.Do("PING")
	require.NoError(t, err)
	require.Equal(t, "PONG", reply)

	require.NoError(t, session.Send("PING"))
	_, err = session.Receive()
	var closeErr *CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, protocol.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, kagikachi.ReplyRateLimitExceeded, closeErr.Reason)

	select {
	case voluntary := <-disconnected:
		assert.False(t, voluntary)
	case <-time.After(5 * time.Second):
		t.Fatal("OnClientDisconnect not called")
	}
}

func TestReadTimeoutClosesIdleConnection(t *testing.T) {
	t.Parallel()

	server := startServer(t, func(cfg *ServerConfig) { cfg.ReadTimeout = 50 * time.Millisecond })
	session := dial(t, server)

	_, err := session.Receive()
	assert.Error(t, err)
	waitFor(t, func() bool { return server.ConnCount() == 0 })
}

func TestStopClosesClients(t *testing.T) {
	t.Parallel()

	server := startServer(t, nil)
	session := dial(t, server)
	waitFor(t, func() bool { return server.ConnCount() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	_, err := session.Receive()
	assert.Error(t, err)
	assert.Zero(t, server.ConnCount())
}

// Concurrent writers on separate connections must all be applied.
func TestConcurrentClients(t *testing.T) {
	t.Parallel()

	const clients, writes = 8, 25
	server := startServer(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		session := dial(t, server)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < writes; j++ {
				reply, err := session.Do(fmt.Sprintf("SET c%d %d", i, j))
				if !assert.NoError(t, err) || !assert.Equal(t, "OK", reply) {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	session := dial(t, server)
	for i := 0; i < clients; i++ {
		reply, err := session.Do(fmt.Sprintf("GET c%d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(writes-1), reply)
	}
}

// RFC 6455 clients reject masked server frames, so interop requires masking
// to be off.
func TestGorillaClientInterop(t *testing.T) {
	t.Parallel()

	server := startServer(t, func(cfg *ServerConfig) { cfg.MaskResponses = false })

	conn, resp, err := gorilla.DefaultDialer.Dial("ws://"+server.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, 101, resp.StatusCode)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	for _, step := range []struct{ cmd, want string }{
		{"SET greeting \"hello\"", "OK"},
		{"GET greeting", `"hello"`},
		{"ping", "PONG"},
	} {
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(step.cmd)))
		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, gorilla.TextMessage, mt)
		assert.Equal(t, step.want, string(data))
	}

	pong := make(chan string, 1)
	conn.SetPongHandler(func(appData string) error {
		pong <- appData
		return nil
	})
	require.NoError(t, conn.WriteControl(gorilla.PingMessage, []byte("ka"), time.Now().Add(time.Second)))
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("PING")))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "PONG", string(data))
	select {
	case got := <-pong:
		assert.Equal(t, "ka", got)
	default:
		t.Error("pong handler not called before the next data frame")
	}
}
