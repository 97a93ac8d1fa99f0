package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luciancaetano/kagikachi/internal/command"
)

// TestStressManyClients opens many concurrent sessions that each write and
// read back their own key.
func TestStressManyClients(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	server := startServer(t, nil)

	const numClients = 200
	const commandsPerClient = 20

	var (
		connected int64
		failed    int64
		commands  int64
		latency   int64
		wg        sync.WaitGroup
	)

	start := time.Now()
	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			session, err := Dial(ctx, server.Addr().String())
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			defer session.Close()
			atomic.AddInt64(&connected, 1)

			key := fmt.Sprintf("client%d", id)
			for j := 0; j < commandsPerClient; j++ {
				sent := time.Now()
				reply, err := session.Do(fmt.Sprintf(`SET %s {"seq": %d}`, key, j))
				if err != nil || reply != "OK" {
					t.Errorf("client %d: SET reply = %q, err = %v", id, reply, err)
					return
				}
				reply, err = session.Do("GET " + key + ".seq")
				if err != nil || reply != fmt.Sprint(j) {
					t.Errorf("client %d: GET reply = %q, err = %v", id, reply, err)
					return
				}
				atomic.AddInt64(&latency, int64(time.Since(sent)))
				atomic.AddInt64(&commands, 2)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	t.Logf("connected=%d failed=%d commands=%d elapsed=%v", connected, failed, commands, elapsed)
	if n := atomic.LoadInt64(&commands); n > 0 {
		t.Logf("avg round trip pair: %v, throughput: %.0f cmd/s",
			time.Duration(latency/(n/2)), float64(n)/elapsed.Seconds())
	}
	if failed > 0 {
		t.Errorf("%d of %d clients failed to connect", failed, numClients)
	}
}

func BenchmarkRoundTrip(b *testing.B) {
	server := New(&ServerConfig{Addr: "127.0.0.1:0", Handler: command.NewProcessor(), MaskResponses: true})
	if err := server.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	defer server.Stop(context.Background())

	session, err := Dial(context.Background(), server.Addr().String())
	if err != nil {
		b.Fatal(err)
	}
	defer session.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := session.Do("PING"); err != nil {
			b.Fatal(err)
		}
	}
}
