// Package kagikachi is an in-memory hierarchical document store served over
// WebSocket.
//
// Clients open a WebSocket connection and send one command per Text frame.
// Every command gets exactly one Text frame back.
//
//	SET <key[.path]> <value>   store a value, or replace a node inside one
//	GET <key[.path]>           read a value
//	DEL <key[.path]>           remove a key, object member or array element
//	DUMP                       the whole store as one object
//	LOAD <object>              merge an object into the store
//	PING                       PONG
//
// Values use a JSON-like text format: objects, arrays, strings, integers,
// floats, booleans and null. Paths are dot-separated; a segment is an object
// key, or an index when the current node is an array. Nested SET and DEL
// never create intermediate nodes.
//
// # Quick Start
//
//	import "github.com/luciancaetano/kagikachi/ws"
//
//	server := ws.New(ws.NewConfig("0.0.0.0:7878", ws.NoRateLimit(), nil, nil))
//	if err := server.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Stop(ctx)
//
//	session, _ := ws.Dial(ctx, "127.0.0.1:7878")
//	reply, _ := session.Do(`SET user {"name": "Ann"}`) // "OK"
//
// # Concurrency
//
// Each connection is served by its own goroutine. All commands from all
// connections run under a single lock, so they are applied one at a time and
// every client observes the same order.
//
// # Masking
//
// By default the server masks its frames with a fresh random key. Strict
// RFC 6455 clients such as browsers reject masked server frames; set
// MaskResponses to false to talk to them.
//
// # Rate Limiting
//
// Rate limiting is off by default. When enabled, each client has its own
// token bucket; exceeding it gets a Close frame with status 1008 and the
// reason "Rate limit exceeded".
package kagikachi
