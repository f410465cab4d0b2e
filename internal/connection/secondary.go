package connection

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/eva-client/internal/metrics"
)

// SecondaryChannel keeps the memory channel connected. It retries forever
// at a fixed interval, never probes the backend and never notifies the user.
type SecondaryChannel struct {
	cfg     SecondaryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	received  atomic.Int64
	connected atomic.Bool
	onDial    func(err error)
}

// NewSecondaryChannel creates a secondary channel.
func NewSecondaryChannel(cfg SecondaryConfig, m *metrics.Metrics, logger *slog.Logger) *SecondaryChannel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 3 * time.Second
	}
	return &SecondaryChannel{
		cfg:     cfg,
		metrics: m,
		logger:  logger.With("channel", "secondary"),
	}
}

// OnDial registers fn to be called after every dial attempt with its
// result. It must be called before Run.
func (s *SecondaryChannel) OnDial(fn func(err error)) {
	s.onDial = fn
}

// Run dials and redials until ctx is cancelled. It always returns nil.
func (s *SecondaryChannel) Run(ctx context.Context) error {
	s.logger.Info("secondary channel started", "url", s.cfg.URL, "retry_delay", s.cfg.RetryDelay)

	for {
		c := NewClient(ClientConfig{
			URL:          s.cfg.URL,
			WriteTimeout: s.cfg.WriteTimeout,
			BufferSize:   s.cfg.BufferSize,
		}, s.logger)

		if err := c.Connect(ctx); err != nil {
			c.Close()
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.SecondaryConnect("error")
			s.logger.Debug("secondary dial failed", "error", err)
			s.dialed(err)
		} else {
			s.metrics.SecondaryConnect("ok")
			s.dialed(nil)
			s.logger.Info("secondary channel connected")
			s.connected.Store(true)
			err := s.consume(ctx, c)
			s.connected.Store(false)
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Info("secondary channel closed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

func (s *SecondaryChannel) dialed(err error) {
	if s.onDial != nil {
		s.onDial(err)
	}
}

// Connected reports whether the channel is currently open.
func (s *SecondaryChannel) Connected() bool {
	return s.connected.Load()
}

// Received returns the number of frames read so far.
func (s *SecondaryChannel) Received() int64 {
	return s.received.Load()
}

// consume reads frames until the connection ends and returns its cause.
func (s *SecondaryChannel) consume(ctx context.Context, c Client) error {
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.Messages():
			s.received.Add(1)
			s.logger.Debug("secondary frame", "bytes", len(msg.Data))
		case <-c.Done():
			select {
			case err := <-c.Errors():
				return err
			default:
				return nil
			}
		}
	}
}
