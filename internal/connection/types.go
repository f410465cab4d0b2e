package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// State is the primary channel's connection state.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateConnecting
	StateOpen
	StateClosing
	StateReconnecting
	StateFailed
)

// AllStates lists every state, in declaration order.
var AllStates = []State{
	StateIdle,
	StateProbing,
	StateConnecting,
	StateOpen,
	StateClosing,
	StateReconnecting,
	StateFailed,
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the manager's connection state.
type Snapshot struct {
	State             State     `json:"-"`
	StateName         string    `json:"state"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	ManualClose       bool      `json:"manual_close"`
	LastHeartbeatAt   time.Time `json:"last_heartbeat_at"`
	SendEnabled       bool      `json:"send_enabled"`
}

// StateChange is published on every transition of the primary channel.
type StateChange struct {
	From     State
	To       State
	Attempts int
	Err      error // cause, when the transition was caused by a failure
	At       time.Time
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8000/ws/llm/)
	HandshakeTimeout time.Duration // Upper bound for the opening handshake
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the primary channel manager.
type ManagerConfig struct {
	URL                  string        // Primary WebSocket URL
	MaxReconnectAttempts int           // Retries before giving up (default: 5)
	ReconnectBaseDelay   time.Duration // Backoff base (default: 1s)
	ConnectTimeout       time.Duration // Dial deadline (default: 5s)
	ClosedRetryDelay     time.Duration // Pause after an unexpected close (default: 1s)
	WriteTimeout         time.Duration
	BufferSize           int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxReconnectAttempts: 5,
		ReconnectBaseDelay:   time.Second,
		ConnectTimeout:       5 * time.Second,
		ClosedRetryDelay:     time.Second,
		WriteTimeout:         5 * time.Second,
		BufferSize:           256,
	}
}

// SecondaryConfig configures the secondary channel.
type SecondaryConfig struct {
	URL          string
	RetryDelay   time.Duration // Fixed pause between dials (default: 3s)
	WriteTimeout time.Duration
	BufferSize   int
}
