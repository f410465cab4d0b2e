package heartbeat

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockTarget records frames sent through it.
type mockTarget struct {
	mu        sync.Mutex
	connected bool
	frames    []string
	err       error
}

func (m *mockTarget) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockTarget) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.frames = append(m.frames, string(data))
	return nil
}

func (m *mockTarget) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMonitor_SendsHeartbeats(t *testing.T) {
	target := &mockTarget{connected: true}
	m := New(Config{Interval: 10 * time.Millisecond}, nil, nil)

	if !m.Start(target, nil) {
		t.Fatal("Start returned false on a stopped monitor")
	}
	defer m.Stop()

	waitFor(t, func() bool { return target.count() >= 2 })

	target.mu.Lock()
	defer target.mu.Unlock()
	want := `{"type":"heartbeat","ping":true}`
	if target.frames[0] != want {
		t.Errorf("frame = %s, want %s", target.frames[0], want)
	}
}

func TestMonitor_SkipsClosedTarget(t *testing.T) {
	target := &mockTarget{connected: false}
	m := New(Config{Interval: 5 * time.Millisecond}, nil, nil)

	m.Start(target, nil)
	time.Sleep(40 * time.Millisecond)
	m.Stop()

	if n := target.count(); n != 0 {
		t.Errorf("frames sent to closed target = %d, want 0", n)
	}
}

func TestMonitor_DoubleStartIsNoop(t *testing.T) {
	first := &mockTarget{connected: true}
	second := &mockTarget{connected: true}
	m := New(Config{Interval: 10 * time.Millisecond}, nil, nil)

	if !m.Start(first, nil) {
		t.Fatal("first Start returned false")
	}
	if m.Start(second, nil) {
		t.Error("second Start returned true, want false")
	}
	defer m.Stop()

	waitFor(t, func() bool { return first.count() >= 1 })
	if n := second.count(); n != 0 {
		t.Errorf("second target got %d frames, want 0", n)
	}
}

func TestMonitor_Stop(t *testing.T) {
	target := &mockTarget{connected: true}
	m := New(Config{Interval: 5 * time.Millisecond}, nil, nil)

	m.Start(target, nil)
	if !m.Running() {
		t.Error("Running = false after Start")
	}

	m.Stop()
	m.Stop() // idempotent

	if m.Running() {
		t.Error("Running = true after Stop")
	}

	time.Sleep(20 * time.Millisecond)
	after := target.count()
	time.Sleep(30 * time.Millisecond)
	if target.count() != after {
		t.Error("frames still sent after Stop")
	}

	if !m.Start(target, nil) {
		t.Error("Start after Stop returned false")
	}
	m.Stop()
}

func TestMonitor_Stale(t *testing.T) {
	target := &mockTarget{connected: true}
	m := New(Config{Interval: 5 * time.Millisecond, StaleTimeout: 20 * time.Millisecond}, nil, nil)

	var staleCalls atomic.Int32
	m.Start(target, func() { staleCalls.Add(1) })

	waitFor(t, func() bool { return staleCalls.Load() == 1 })

	if m.Running() {
		t.Error("Running = true after stale report")
	}
	time.Sleep(30 * time.Millisecond)
	if n := staleCalls.Load(); n != 1 {
		t.Errorf("stale callbacks = %d, want 1", n)
	}
}

func TestMonitor_AckKeepsAlive(t *testing.T) {
	target := &mockTarget{connected: true}
	m := New(Config{Interval: 5 * time.Millisecond, StaleTimeout: 50 * time.Millisecond}, nil, nil)

	var staleCalls atomic.Int32
	m.Start(target, func() { staleCalls.Add(1) })
	defer m.Stop()

	stop := time.After(150 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case now := <-ticker.C:
			m.Ack(now)
		case <-stop:
			break loop
		}
	}

	if n := staleCalls.Load(); n != 0 {
		t.Errorf("stale callbacks = %d, want 0 while acks arrive", n)
	}
	if time.Since(m.LastAck()) > 50*time.Millisecond {
		t.Errorf("LastAck = %v, want recent", m.LastAck())
	}
}

func TestMonitor_LastAckZeroUntilPong(t *testing.T) {
	m := New(Config{Interval: time.Hour}, nil, nil)

	m.Start(&mockTarget{connected: true}, nil)
	if got := m.LastAck(); !got.IsZero() {
		t.Errorf("LastAck after Start = %v, want zero", got)
	}

	at := time.Now()
	m.Ack(at)
	if got := m.LastAck(); !got.Equal(at) {
		t.Errorf("LastAck = %v, want %v", got, at)
	}

	m.Stop()
	m.Start(&mockTarget{connected: true}, nil)
	defer m.Stop()
	if got := m.LastAck(); !got.IsZero() {
		t.Errorf("LastAck after restart = %v, want zero", got)
	}
}

func TestMonitor_PassiveWithoutStaleTimeout(t *testing.T) {
	target := &mockTarget{connected: true}
	m := New(Config{Interval: 5 * time.Millisecond}, nil, nil)

	var staleCalls atomic.Int32
	m.Start(target, func() { staleCalls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	if n := staleCalls.Load(); n != 0 {
		t.Errorf("stale callbacks = %d, want 0", n)
	}
}

func TestMonitor_SendError(t *testing.T) {
	target := &mockTarget{connected: true, err: errors.New("broken pipe")}
	m := New(Config{Interval: 5 * time.Millisecond}, nil, nil)

	m.Start(target, nil)
	time.Sleep(30 * time.Millisecond)

	if !m.Running() {
		t.Error("send errors must not stop the monitor")
	}
	m.Stop()
}
