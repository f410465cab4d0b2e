package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/eva-client/internal/health"
	"github.com/rickgao/eva-client/internal/heartbeat"
	"github.com/rickgao/eva-client/internal/metrics"
	"github.com/rickgao/eva-client/internal/notify"
)

// Prober checks the backend before each connection attempt.
type Prober interface {
	Probe(ctx context.Context) health.Status
}

// Heartbeat is the keepalive run while the primary channel is open.
type Heartbeat interface {
	Start(target heartbeat.Target, onStale func()) bool
	Stop()
	LastAck() time.Time
}

// ClientFactory creates transports. NewClient is the default.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClientFactory replaces the transport constructor.
func WithClientFactory(f ClientFactory) ManagerOption {
	return func(m *Manager) {
		m.newClient = f
	}
}

type eventKind int

const (
	evConnect eventKind = iota
	evClose
	evProbeDone
	evDialDone
	evClosed
	evFrame
	evRetry
	evStale
	evSend
)

type event struct {
	kind    eventKind
	gen     uint64
	manual  bool
	backoff bool // evRetry: schedule a backoff retry instead of probing
	status  health.Status
	client  Client
	err     error
	data    []byte
	reply   chan error
}

// Manager owns the primary channel. A single goroutine applies every state
// transition; probes, dials and timers report back to it as events tagged
// with a generation, and events from an older generation are discarded.
type Manager struct {
	cfg       ManagerConfig
	prober    Prober
	heartbeat Heartbeat
	notifier  *notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	newClient ClientFactory

	events   chan event
	states   chan StateChange
	loopDone chan struct{}

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    atomic.Bool
	statesOnce sync.Once

	handlerMu sync.RWMutex
	handler   func(data []byte)

	snapMu sync.RWMutex
	snap   Snapshot

	// Owned by the loop goroutine.
	state        State
	attempts     int
	gen          uint64
	current      Client
	manualFor    Client // next closure of this transport is expected
	staleFor     Client
	replacing    bool // re-probe requested while open
	pending      bool // connect requested while closing
	featureReady bool
	timer        *time.Timer
}

// NewManager creates a new primary channel manager.
func NewManager(cfg ManagerConfig, prober Prober, hb Heartbeat, notifier *notify.Notifier, m *metrics.Metrics, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	mgr := &Manager{
		cfg:       cfg,
		prober:    prober,
		heartbeat: hb,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.With("channel", "primary"),
		newClient: NewClient,
		events:    make(chan event, 64),
		states:    make(chan StateChange, 64),
		loopDone:  make(chan struct{}),
		snap:      Snapshot{State: StateIdle, StateName: StateIdle.String()},
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Start runs the manager loop. It does not connect; call Connect.
func (m *Manager) Start(ctx context.Context) error {
	if m.started.Swap(true) {
		return errors.New("manager already started")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.metrics.SetConnectionState(StateIdle.String())

	m.wg.Add(1)
	go m.run()

	m.logger.Info("connection manager started",
		"url", m.cfg.URL,
		"max_reconnect_attempts", m.cfg.MaxReconnectAttempts,
	)
	return nil
}

// Stop closes the primary channel and waits for the manager's goroutines.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.started.Load() || m.cancel == nil {
		return nil
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.statesOnce.Do(func() { close(m.states) })
		m.logger.Info("connection manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
		return ctx.Err()
	}
}

// Connect requests a connection. It is a no-op while a connection attempt
// is already in progress, re-probes and replaces the transport when open,
// and resets the retry budget when the manager has given up. While a manual
// close is in progress the request is held until the transport has closed.
func (m *Manager) Connect() {
	m.post(event{kind: evConnect})
}

// Close closes the primary channel. A manual close is not followed by a
// reconnect; a non-manual close is handled like a dropped connection.
func (m *Manager) Close(manual bool) {
	m.post(event{kind: evClose, manual: manual})
}

// Send writes a frame on the open primary channel.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	if !m.started.Load() {
		return ErrNotConnected
	}

	reply := make(chan error, 1)
	select {
	case m.events <- event{kind: evSend, data: data, reply: reply}:
	case <-m.loopDone:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-m.loopDone:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnMessage sets the handler for inbound frames. The handler runs on the
// manager goroutine and must not call back into the Manager synchronously.
func (m *Manager) OnMessage(fn func(data []byte)) {
	m.handlerMu.Lock()
	m.handler = fn
	m.handlerMu.Unlock()
}

// Snapshot returns a copy of the current connection state.
func (m *Manager) Snapshot() Snapshot {
	m.snapMu.RLock()
	s := m.snap
	m.snapMu.RUnlock()

	if m.heartbeat != nil && s.State == StateOpen {
		s.LastHeartbeatAt = m.heartbeat.LastAck()
	}
	return s
}

// States returns a channel of state transitions. Transitions are dropped
// when the reader falls behind. The channel is closed by Stop.
func (m *Manager) States() <-chan StateChange {
	return m.states
}

func (m *Manager) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.loopDone:
		return false
	}
}

// run is the manager loop.
func (m *Manager) run() {
	defer m.wg.Done()
	defer close(m.loopDone)

	for {
		select {
		case <-m.ctx.Done():
			m.shutdown()
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev event) {
	switch ev.kind {
	case evConnect:
		m.onConnect()
	case evClose:
		m.onClose(ev.manual)
	case evProbeDone:
		m.onProbeDone(ev.gen, ev.status)
	case evDialDone:
		m.onDialDone(ev.gen, ev.client, ev.err)
	case evClosed:
		m.onClosed(ev.client, ev.err)
	case evFrame:
		m.onFrame(ev.client, ev.data)
	case evRetry:
		m.onRetry(ev.gen, ev.backoff)
	case evStale:
		m.onStale(ev.client)
	case evSend:
		ev.reply <- m.sendCurrent(ev.data)
	}
}

func (m *Manager) onConnect() {
	switch m.state {
	case StateIdle:
		m.probe()
	case StateFailed:
		m.logger.Info("connect requested after giving up, resetting attempts")
		m.attempts = 0
		m.metrics.SetReconnectAttempts(0)
		m.probe()
	case StateOpen:
		m.logger.Info("connect requested while open, re-probing")
		m.replacing = true
		m.startProbe()
	case StateClosing:
		m.logger.Debug("connect requested while closing, deferring")
		m.pending = true
	default:
		m.logger.Debug("connect ignored", "state", m.state)
	}
}

func (m *Manager) onClose(manual bool) {
	switch m.state {
	case StateOpen:
		if !manual {
			m.logger.Info("closing primary channel")
			m.current.Close()
			return
		}
		m.setState(StateClosing, nil)
		m.notifier.SetSendEnabled(false)
		m.closeCurrent(true)
		m.sync()
	case StateProbing, StateConnecting, StateReconnecting:
		if !manual {
			return
		}
		m.gen++
		m.stopTimer()
		m.setState(StateIdle, nil)
		m.notifier.SetSendEnabled(false)
		m.notifier.Status(notify.MsgDisconnected)
	case StateClosing:
		if manual {
			m.pending = false
		}
	default:
		m.logger.Debug("close ignored", "state", m.state)
	}
}

// probe moves to Probing and checks the backend.
func (m *Manager) probe() {
	m.setState(StateProbing, nil)
	m.startProbe()
}

func (m *Manager) startProbe() {
	m.gen++
	gen := m.gen

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		st := m.prober.Probe(m.ctx)
		m.post(event{kind: evProbeDone, gen: gen, status: st})
	}()
}

func (m *Manager) onProbeDone(gen uint64, st health.Status) {
	if gen != m.gen {
		return
	}

	switch {
	case m.state == StateProbing:
		if !st.Healthy {
			m.scheduleRetry(st.Err)
			return
		}
	case m.state == StateOpen && m.replacing:
		m.replacing = false
		if !st.Healthy {
			m.logger.Warn("re-probe failed, keeping current channel", "outcome", st.Outcome)
			return
		}
	default:
		return
	}

	m.featureReady = st.FeatureModuleReady
	m.dial()
}

// dial closes any existing transport and opens a new one.
func (m *Manager) dial() {
	if m.current != nil {
		m.logger.Info("closing existing channel before reconnecting")
		m.closeCurrent(true)
	}

	m.setState(StateConnecting, nil)
	m.notifier.ClearNotices()
	m.notifier.Show(notify.KindSystem, notify.MsgConnectingNotice)
	m.notifier.Status(notify.MsgOpeningSocket)

	m.gen++
	gen := m.gen
	c := m.newClient(ClientConfig{
		URL:              m.cfg.URL,
		HandshakeTimeout: m.cfg.ConnectTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		BufferSize:       m.cfg.BufferSize,
	}, m.logger)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(m.ctx, m.cfg.ConnectTimeout)
		defer cancel()

		err := c.Connect(ctx)
		if err != nil {
			c.Close()
		}
		if !m.post(event{kind: evDialDone, gen: gen, client: c, err: err}) && err == nil {
			c.Close()
		}
	}()
}

func (m *Manager) onDialDone(gen uint64, c Client, err error) {
	if gen != m.gen || m.state != StateConnecting {
		if err == nil {
			c.Close()
		}
		return
	}

	if err != nil {
		if isTimeout(err) {
			m.logger.Warn("websocket connect timed out", "timeout", m.cfg.ConnectTimeout)
			m.notifier.Status(notify.MsgSocketTimeout)
		} else {
			m.logger.Warn("websocket connect failed", "error", err)
			m.notifier.Status(notify.MsgSocketError, err)
		}
		m.scheduleRetry(fmt.Errorf("dial: %w", err))
		return
	}

	m.open(c)
}

func (m *Manager) open(c Client) {
	m.current = c
	m.attempts = 0
	m.metrics.SetReconnectAttempts(0)
	m.setState(StateOpen, nil)

	m.notifier.ClearNotices()
	m.notifier.Show(notify.KindSystem, notify.MsgConnectedNotice)
	m.notifier.Status(notify.MsgConnected)
	m.notifier.Connected()
	if !m.featureReady {
		m.notifier.Show(notify.KindWarning, notify.MsgDegraded)
	}
	m.notifier.SetSendEnabled(true)

	m.heartbeat.Start(c, func() {
		m.post(event{kind: evStale, client: c})
	})

	m.wg.Add(1)
	go m.watch(c)

	m.logger.Info("primary channel open", "feature_module_ready", m.featureReady)
}

// scheduleRetry consumes one attempt from the retry budget, or gives up.
func (m *Manager) scheduleRetry(cause error) {
	m.stopTimer()

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.setState(StateFailed, cause)
		m.notifier.SetSendEnabled(false)
		m.notifier.Show(notify.KindError, notify.MsgCannotConnect)
		m.notifier.Status(notify.MsgConnectFailed)
		m.logger.Error("giving up on primary channel",
			"attempts", m.attempts,
			"error", cause,
		)
		return
	}

	m.attempts++
	m.metrics.SetReconnectAttempts(m.attempts)
	delay := Backoff(m.cfg.ReconnectBaseDelay, m.attempts)

	m.setState(StateReconnecting, cause)
	m.notifier.Status(notify.MsgReconnecting, m.attempts, m.cfg.MaxReconnectAttempts)
	m.logger.Info("scheduling reconnect",
		"attempt", m.attempts,
		"max", m.cfg.MaxReconnectAttempts,
		"delay", delay,
	)

	m.after(delay, false)
}

func (m *Manager) onRetry(gen uint64, backoff bool) {
	if gen != m.gen || m.state != StateReconnecting {
		return
	}
	if backoff {
		m.scheduleRetry(nil)
		return
	}
	m.probe()
}

func (m *Manager) onClosed(c Client, err error) {
	if c == m.manualFor {
		m.manualFor = nil
		m.sync()
		m.logger.Debug("transport closed on request")
		if m.state == StateClosing {
			m.setState(StateIdle, nil)
			m.notifier.Status(notify.MsgDisconnected)
			if m.pending {
				m.pending = false
				m.probe()
			}
		}
		return
	}
	if c != m.current {
		return
	}

	if c == m.staleFor {
		m.staleFor = nil
		err = ErrStaleConnection
	}

	m.current = nil
	m.heartbeat.Stop()
	m.notifier.SetSendEnabled(false)
	m.notifier.ClearNotices()
	if abnormal(err) {
		m.notifier.Show(notify.KindError, notify.MsgSocketError, err)
	}
	m.notifier.Show(notify.KindSystem, notify.MsgConnectionLost)
	m.notifier.Status(notify.MsgConnectionLostLine)
	m.logger.Warn("primary channel closed unexpectedly", "error", err)

	m.setState(StateReconnecting, err)
	m.after(m.cfg.ClosedRetryDelay, true)
}

func (m *Manager) onFrame(c Client, data []byte) {
	if c != m.current {
		return
	}

	m.handlerMu.RLock()
	fn := m.handler
	m.handlerMu.RUnlock()

	if fn != nil {
		fn(data)
	}
}

func (m *Manager) onStale(c Client) {
	if c != m.current || m.state != StateOpen {
		return
	}
	m.logger.Warn("heartbeat stale, dropping primary channel")
	m.notifier.Show(notify.KindWarning, notify.MsgHeartbeatStale)
	m.staleFor = c
	c.Close()
}

func (m *Manager) sendCurrent(data []byte) error {
	if m.state != StateOpen || m.current == nil {
		return ErrNotConnected
	}
	return m.current.Send(data)
}

// watch forwards frames and the closure of c to the manager loop.
func (m *Manager) watch(c Client) {
	defer m.wg.Done()

	for {
		select {
		case msg := <-c.Messages():
			if !m.post(event{kind: evFrame, client: c, data: msg.Data}) {
				return
			}
		case <-c.Done():
			for drained := false; !drained; {
				select {
				case msg := <-c.Messages():
					if !m.post(event{kind: evFrame, client: c, data: msg.Data}) {
						return
					}
				default:
					drained = true
				}
			}
			var err error
			select {
			case err = <-c.Errors():
			default:
			}
			m.post(event{kind: evClosed, client: c, err: err})
			return
		case <-m.loopDone:
			return
		}
	}
}

// closeCurrent closes the current transport, stopping the heartbeat first.
func (m *Manager) closeCurrent(manual bool) {
	c := m.current
	m.current = nil
	m.heartbeat.Stop()
	if manual {
		m.manualFor = c
	}
	c.Close()
}

// after posts an evRetry once d has elapsed, unless the generation moves on.
func (m *Manager) after(d time.Duration, backoff bool) {
	m.stopTimer()
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(d, func() {
		m.post(event{kind: evRetry, gen: gen, backoff: backoff})
	})
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) shutdown() {
	m.stopTimer()
	m.gen++
	m.pending = false
	if m.current != nil {
		m.closeCurrent(true)
	} else {
		m.heartbeat.Stop()
	}
	m.notifier.SetSendEnabled(false)
	m.setState(StateIdle, nil)
}

func (m *Manager) setState(s State, cause error) {
	from := m.state
	m.state = s
	if s != StateOpen {
		m.replacing = false
	}
	m.metrics.SetConnectionState(s.String())
	m.sync()

	m.logger.Debug("state change", "from", from, "to", s, "attempts", m.attempts)

	change := StateChange{
		From:     from,
		To:       s,
		Attempts: m.attempts,
		Err:      cause,
		At:       time.Now(),
	}
	select {
	case m.states <- change:
	default:
		m.logger.Debug("state change dropped, observer behind", "to", s)
	}
}

// sync refreshes the snapshot mirror read by Snapshot.
func (m *Manager) sync() {
	m.snapMu.Lock()
	m.snap = Snapshot{
		State:             m.state,
		StateName:         m.state.String(),
		ReconnectAttempts: m.attempts,
		ManualClose:       m.manualFor != nil,
		SendEnabled:       m.state == StateOpen,
	}
	m.snapMu.Unlock()
}

// abnormal reports whether a closure cause should be shown as a transport error.
func abnormal(err error) bool {
	if err == nil || errors.Is(err, ErrStaleConnection) {
		return false
	}
	return !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
