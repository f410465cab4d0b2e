package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/eva-client/internal/connection"
	"github.com/rickgao/eva-client/internal/metrics"
)

type fixedSource struct {
	snap connection.Snapshot
}

func (f fixedSource) Snapshot() connection.Snapshot { return f.snap }

type fixedSecondary struct {
	connected bool
	received  int64
}

func (f fixedSecondary) Connected() bool { return f.connected }
func (f fixedSecondary) Received() int64 { return f.received }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		state connection.State
		want  int
	}{
		{connection.StateOpen, http.StatusOK},
		{connection.StateIdle, http.StatusServiceUnavailable},
		{connection.StateReconnecting, http.StatusServiceUnavailable},
		{connection.StateFailed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := New(Config{}, fixedSource{connection.Snapshot{State: tt.state}}, nil, nil)
			rec := get(t, s.Handler(), "/health")

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.state.String() {
				t.Errorf("body status = %q, want %q", body["status"], tt.state.String())
			}
		})
	}
}

func TestState(t *testing.T) {
	snap := connection.Snapshot{
		State:             connection.StateReconnecting,
		StateName:         "reconnecting",
		ReconnectAttempts: 3,
	}
	s := New(Config{}, fixedSource{snap}, nil, nil, WithSecondary(fixedSecondary{connected: true, received: 7}))
	rec := get(t, s.Handler(), "/state")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Primary   map[string]any `json:"primary"`
		Secondary *struct {
			Connected bool  `json:"connected"`
			Received  int64 `json:"received"`
		} `json:"secondary"`
		Version map[string]any `json:"version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Primary["state"] != "reconnecting" {
		t.Errorf("state = %v, want reconnecting", got.Primary["state"])
	}
	if got.Primary["reconnect_attempts"] != float64(3) {
		t.Errorf("reconnect_attempts = %v, want 3", got.Primary["reconnect_attempts"])
	}
	if got.Secondary == nil || !got.Secondary.Connected || got.Secondary.Received != 7 {
		t.Errorf("secondary = %+v, want connected with 7 frames", got.Secondary)
	}
	if got.Version == nil {
		t.Error("version missing")
	}
}

func TestState_WithoutSecondary(t *testing.T) {
	s := New(Config{}, fixedSource{connection.Snapshot{StateName: "idle"}}, nil, nil)
	rec := get(t, s.Handler(), "/state")

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["secondary"]; ok {
		t.Error("secondary present without a source")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.SetConnectionState("open")

	s := New(Config{MetricsPath: "/metrics"}, fixedSource{}, m.Handler(), nil)
	rec := get(t, s.Handler(), "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `eva_connection_state{state="open"} 1`) {
		t.Error("metrics output missing connection state")
	}
}

func TestVersionAndUnknownRoute(t *testing.T) {
	s := New(Config{}, fixedSource{}, nil, nil)

	if rec := get(t, s.Handler(), "/version"); rec.Code != http.StatusOK {
		t.Errorf("/version status = %d, want 200", rec.Code)
	}
	if rec := get(t, s.Handler(), "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without handler status = %d, want 404", rec.Code)
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := New(Config{}, fixedSource{connection.Snapshot{State: connection.StateOpen}}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
