package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rickgao/eva-client/internal/connection"
	"github.com/rickgao/eva-client/internal/version"
)

const readTimeout = 10 * time.Second

// StateSource reports the primary channel state.
type StateSource interface {
	Snapshot() connection.Snapshot
}

// SecondarySource reports the secondary channel status.
type SecondarySource interface {
	Connected() bool
	Received() int64
}

// Option configures a Server.
type Option func(*Server)

// WithSecondary includes the secondary channel in /state.
func WithSecondary(src SecondarySource) Option {
	return func(s *Server) {
		s.secondary = src
	}
}

// Config holds server configuration.
type Config struct {
	Addr        string // e.g. "127.0.0.1:9464"
	MetricsPath string // default "/metrics"
}

// Server is the local admin HTTP server.
type Server struct {
	cfg       Config
	source    StateSource
	secondary SecondarySource
	router    chi.Router
	logger    *slog.Logger
}

type secondaryState struct {
	Connected bool  `json:"connected"`
	Received  int64 `json:"received"`
}

type stateResponse struct {
	Primary   connection.Snapshot `json:"primary"`
	Secondary *secondaryState     `json:"secondary,omitempty"`
	Version   version.Info        `json:"version"`
}

// New creates a Server. metrics may be nil to omit the metrics endpoint.
func New(cfg Config, source StateSource, metrics http.Handler, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	s := &Server{
		cfg:    cfg,
		source: source,
		logger: logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.recovery)
	r.Use(s.requestLog)

	r.Get("/health", s.health)
	r.Get("/state", s.state)
	r.Get("/version", s.version)
	if metrics != nil {
		r.Handle(cfg.MetricsPath, metrics)
	}

	s.router = r
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.router,
		ReadTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("admin server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("admin server stopped")
	return nil
}

// health answers 200 while the primary channel is open and 503 otherwise.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	status := http.StatusOK
	if snap.State != connection.StateOpen {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, map[string]string{"status": snap.State.String()}, status)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Primary: s.source.Snapshot(),
		Version: version.Get(),
	}
	if s.secondary != nil {
		resp.Secondary = &secondaryState{
			Connected: s.secondary.Connected(),
			Received:  s.secondary.Received(),
		}
	}
	respondJSON(w, resp, http.StatusOK)
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, version.Get(), http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
