package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/eva-client/internal/connection"
)

// Event kinds.
const (
	KindState = "state" // primary channel state transition
	KindDial  = "dial"  // secondary channel dial result
)

// Channels.
const (
	ChannelPrimary   = "primary"
	ChannelSecondary = "secondary"
)

// Config contains configuration for the journal writer.
type Config struct {
	// BatchSize is the number of events to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the capacity of the input queue. Events recorded while
	// it is full are dropped.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    1000,
	}
}

// Event is one row of the connection_events table.
type Event struct {
	ID         string
	OccurredAt time.Time
	Channel    string
	Kind       string
	FromState  string
	ToState    string
	Attempts   int
	Error      string
}

// FromStateChange converts a primary channel transition to an Event.
func FromStateChange(c connection.StateChange) Event {
	ev := Event{
		ID:         uuid.NewString(),
		OccurredAt: c.At,
		Channel:    ChannelPrimary,
		Kind:       KindState,
		FromState:  c.From.String(),
		ToState:    c.To.String(),
		Attempts:   c.Attempts,
	}
	if c.Err != nil {
		ev.Error = c.Err.Error()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	return ev
}

// DialEvent builds an Event for a secondary channel dial. A nil err
// records a successful connect.
func DialEvent(err error) Event {
	ev := Event{
		ID:         uuid.NewString(),
		OccurredAt: time.Now(),
		Channel:    ChannelSecondary,
		Kind:       KindDial,
		ToState:    "connected",
	}
	if err != nil {
		ev.ToState = "failed"
		ev.Error = err.Error()
	}
	return ev
}

// DB is the subset of *pgxpool.Pool the journal uses.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Stats holds counters for a writer.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}
