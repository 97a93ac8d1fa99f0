package kagikachi

// Command replies. These strings are the wire protocol: clients match on them.
const (
	ReplyOK                 = "OK"
	ReplyPong               = "PONG"
	ReplyKeyNotFound        = "Key not found"
	ReplyInvalidArguments   = "Invalid arguments"
	ReplyInvalidType        = "Invalid type"
	ReplyUnknownCommand     = "Unknown command"
	ReplyInvalidMessageType = "Invalid message type"
	ReplyRateLimitExceeded  = "Rate limit exceeded"
)

// Standard error messages
const (
	ErrConnectionClosed     = "client connection is closed"
	ErrContextCancelled     = "client context cancelled"
	ErrServerAlreadyRunning = "server already running"
	ErrServerNotRunning     = "server not running"
)

// DefaultAddr is the address the server binds when none is configured.
const DefaultAddr = "0.0.0.0:7878"
