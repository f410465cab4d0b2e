package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/eva-client/internal/connection"
)

// Errors
var (
	ErrNotConnected = connection.ErrNotConnected
	ErrEmptyMessage = errors.New("empty message")
)

// Sender writes frames on the primary channel.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// Acker records heartbeat acknowledgements.
type Acker interface {
	Ack(t time.Time)
}

// Player plays a speech clip given its path on the backend.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Config holds dispatcher configuration.
type Config struct {
	DefaultAPI      string   // API used when the caller does not choose one
	SpeechAPIs      []string // APIs whose replies carry synthesized speech
	VoiceIndex      int
	PlaybackQueue   int           // Pending speech clips (default: 16)
	PlaybackTimeout time.Duration // Per clip, including fallback (default: 60s)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultAPI:      "deepseek",
		SpeechAPIs:      []string{"deepseek"},
		PlaybackQueue:   16,
		PlaybackTimeout: 60 * time.Second,
	}
}
