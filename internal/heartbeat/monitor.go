package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/eva-client/internal/metrics"
	"github.com/rickgao/eva-client/internal/model"
)

// Target is the narrow view of a transport the monitor pings through.
type Target interface {
	IsConnected() bool
	Send(data []byte) error
}

// Config holds monitor configuration.
type Config struct {
	Interval     time.Duration // Heartbeat interval (default: 30s)
	StaleTimeout time.Duration // Max time without a pong (0 = record only)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Second,
		StaleTimeout: 45 * time.Second,
	}
}

// Monitor sends heartbeats to one target at a time.
type Monitor struct {
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	frame   []byte

	mu      sync.Mutex
	run     uint64 // incremented by every Start and Stop
	running bool
	cancel  context.CancelFunc
	lastAck time.Time // zero until the first pong of this run
	since   time.Time // staleness is measured from here
}

// New creates a new Monitor.
func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	frame, _ := model.EncodeOutbound(model.Heartbeat{})
	return &Monitor{
		cfg:     cfg,
		metrics: m,
		logger:  logger.With("component", "heartbeat"),
		frame:   frame,
	}
}

// Start begins sending heartbeats to target. onStale is called at most once,
// from the monitor's goroutine, if the target stops answering. Start returns
// false and does nothing when the monitor is already running.
func (m *Monitor) Start(target Target, onStale func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.run++
	m.running = true
	m.cancel = cancel
	m.lastAck = time.Time{}
	m.since = time.Now()

	go m.loop(ctx, m.run, target, onStale)

	m.logger.Debug("heartbeat started",
		"interval", m.cfg.Interval,
		"stale_timeout", m.cfg.StaleTimeout,
	)
	return true
}

// Stop halts the heartbeat. It is safe to call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.run++
	m.running = false
	m.cancel()
	m.logger.Debug("heartbeat stopped")
}

// Ack records a pong received at t.
func (m *Monitor) Ack(t time.Time) {
	m.mu.Lock()
	m.lastAck = t
	m.since = t
	m.mu.Unlock()
	m.metrics.HeartbeatAck()
}

// LastAck returns the time of the last pong since Start, or the zero time
// when none has arrived.
func (m *Monitor) LastAck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAck
}

// Running reports whether heartbeats are being sent.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, run uint64, target Target, onStale func()) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.beat(target)
			if m.stale(run) {
				if onStale != nil {
					onStale()
				}
				return
			}
		}
	}
}

func (m *Monitor) beat(target Target) {
	if !target.IsConnected() {
		return
	}
	if err := target.Send(m.frame); err != nil {
		m.logger.Debug("failed to send heartbeat", "error", err)
		m.metrics.Outbound(model.TypeHeartbeat, "error")
		return
	}
	m.metrics.HeartbeatSent()
	m.metrics.Outbound(model.TypeHeartbeat, "ok")
}

// stale checks the ack deadline and, when it has passed, ends this run.
func (m *Monitor) stale(run uint64) bool {
	if m.cfg.StaleTimeout <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run != run {
		return false
	}
	if time.Since(m.since) <= m.cfg.StaleTimeout {
		return false
	}

	m.logger.Warn("no pong received, connection stale",
		"last_ack", m.lastAck,
		"since", m.since,
		"timeout", m.cfg.StaleTimeout,
	)
	m.metrics.HeartbeatStale()
	m.run++
	m.running = false
	m.cancel()
	return true
}
