package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/rickgao/eva-client/internal/api"
	"github.com/rickgao/eva-client/internal/metrics"
	"github.com/rickgao/eva-client/internal/notify"
)

// Probe outcomes, used as metric labels.
const (
	OutcomeHealthy     = "healthy"
	OutcomeUnhealthy   = "unhealthy"    // 2xx with status other than "ok"
	OutcomeUnavailable = "unavailable"  // 503, dependencies not ready
	OutcomeServerError = "server_error" // other 5xx
	OutcomeRejected    = "rejected"     // 4xx
	OutcomeTimeout     = "timeout"
	OutcomeUnreachable = "unreachable"
)

// Status is the result of one probe. It is never cached.
type Status struct {
	Healthy            bool
	FeatureModuleReady bool
	Outcome            string
	HTTPStatus         int   // 0 when no response was received
	Err                error // cause of an unhealthy result, for logging
}

// Config configures a Prober.
type Config struct {
	HealthPath     string
	ModulesPath    string
	ProbeTimeout   time.Duration
	ModulesTimeout time.Duration
}

// Prober checks backend liveness and feature module readiness.
type Prober struct {
	cfg      Config
	client   *api.Client
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Prober.
func New(cfg Config, client *api.Client, notifier *notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		cfg:      cfg,
		client:   client,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With("component", "health"),
	}
}

// Probe queries the backend. It never fails: every error is folded into an
// unhealthy Status, and only severe backend faults reach the user as errors.
func (p *Prober) Probe(ctx context.Context) Status {
	p.notifier.Status(notify.MsgCheckingBackend)

	st := p.checkLiveness(ctx)
	p.metrics.ProbeResult(st.Outcome)
	if !st.Healthy {
		p.logger.Info("backend not healthy",
			"outcome", st.Outcome,
			"http_status", st.HTTPStatus,
			"error", st.Err,
		)
		return st
	}

	st.FeatureModuleReady = p.checkModules(ctx)
	p.metrics.SetFeatureModuleReady(st.FeatureModuleReady)
	p.notifier.Status(notify.MsgBackendHealthy)

	p.logger.Debug("backend healthy", "feature_module_ready", st.FeatureModuleReady)
	return st
}

func (p *Prober) checkLiveness(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	resp, err := p.client.GetHealth(ctx, p.cfg.HealthPath)
	if err != nil && !errors.Is(err, api.ErrInvalidResponse) {
		return p.classify(err)
	}

	// The backend answered; earlier connection notices are stale now.
	p.notifier.ClearNotices()

	if err != nil {
		p.notifier.Status(notify.MsgInvalidResponse)
		return Status{Outcome: OutcomeUnhealthy, HTTPStatus: 200, Err: err}
	}

	if resp.Status != api.StatusOK {
		p.notifier.Status(notify.MsgBackendStatus, resp.Status)
		return Status{
			Outcome:    OutcomeUnhealthy,
			HTTPStatus: 200,
			Err:        errors.New("health status " + resp.Status),
		}
	}

	return Status{Healthy: true, Outcome: OutcomeHealthy, HTTPStatus: 200}
}

// classify maps a liveness failure onto the error taxonomy.
func (p *Prober) classify(err error) Status {
	st := Status{Err: err}

	if apiErr, ok := api.AsAPIError(err); ok {
		st.HTTPStatus = apiErr.StatusCode
		switch {
		case apiErr.IsServerFault():
			st.Outcome = OutcomeServerError
			p.notifier.Show(notify.KindError, notify.MsgBackendHTTPError, apiErr.StatusCode)
			p.notifier.Status(notify.MsgBackendReturned, apiErr.StatusCode)
		case apiErr.IsSoftUnavailable():
			st.Outcome = OutcomeUnavailable
			p.notifier.Status(notify.MsgBackendNotReady, apiErr.StatusCode)
		default:
			st.Outcome = OutcomeRejected
			p.notifier.Status(notify.MsgBackendReturned, apiErr.StatusCode)
		}
		return st
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		st.Outcome = OutcomeTimeout
		p.notifier.Status(notify.MsgBackendTimeout)
		return st
	}

	st.Outcome = OutcomeUnreachable
	p.notifier.Status(notify.MsgBackendUnreachable, err)
	return st
}

// checkModules reports whether the emotion analysis module is loaded.
// Failure is logged and degrades to false.
func (p *Prober) checkModules(ctx context.Context) bool {
	p.notifier.Status(notify.MsgCheckingModule)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ModulesTimeout)
	defer cancel()

	resp, err := p.client.GetModulesStatus(ctx, p.cfg.ModulesPath)
	if err != nil {
		p.logger.Warn("feature module status check failed", "error", err)
		p.notifier.Show(notify.KindSystem, notify.MsgModuleNotLoaded)
		return false
	}

	if resp.EmotionalAnalyzer != api.ModuleLoaded {
		p.logger.Warn("feature module not loaded", "emotional_analyzer", resp.EmotionalAnalyzer)
		p.notifier.Show(notify.KindSystem, notify.MsgModuleNotLoaded)
		return false
	}

	return true
}
