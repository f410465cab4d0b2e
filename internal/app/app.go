package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/eva-client/internal/admin"
	"github.com/rickgao/eva-client/internal/api"
	"github.com/rickgao/eva-client/internal/config"
	"github.com/rickgao/eva-client/internal/connection"
	"github.com/rickgao/eva-client/internal/database"
	"github.com/rickgao/eva-client/internal/dispatch"
	"github.com/rickgao/eva-client/internal/health"
	"github.com/rickgao/eva-client/internal/heartbeat"
	"github.com/rickgao/eva-client/internal/journal"
	"github.com/rickgao/eva-client/internal/metrics"
	"github.com/rickgao/eva-client/internal/notify"
	"github.com/rickgao/eva-client/internal/speech"
	"github.com/rickgao/eva-client/internal/version"
)

const (
	preflightTimeout = time.Second
	shutdownTimeout  = 5 * time.Second
)

// App owns every long-lived component of the client.
type App struct {
	cfg     *config.Config
	base    *slog.Logger
	logger  *slog.Logger
	metrics *metrics.Metrics

	notifier   *notify.Notifier
	prober     *health.Prober
	heartbeat  *heartbeat.Monitor
	manager    *connection.Manager
	dispatcher *dispatch.Dispatcher
	secondary  *connection.SecondaryChannel
	admin      *admin.Server
}

// New builds the client from cfg. Presenter calls go to presenter.
func New(cfg *config.Config, presenter notify.Presenter, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New()
	notifier := notify.New(presenter, cfg.UI.Locale)

	client := api.NewClient(cfg.Backend.BaseURL,
		api.WithLogger(logger),
		api.WithUserAgent(version.UserAgent()),
	)

	prober := health.New(health.Config{
		HealthPath:     cfg.Backend.HealthPath,
		ModulesPath:    cfg.Backend.ModulesPath,
		ProbeTimeout:   cfg.Backend.ProbeTimeout,
		ModulesTimeout: cfg.Backend.ModulesTimeout,
	}, client, notifier, m, logger)

	staleTimeout := cfg.Heartbeat.StaleTimeout
	if staleTimeout < 0 {
		staleTimeout = 0
	}
	hb := heartbeat.New(heartbeat.Config{
		Interval:     cfg.Heartbeat.Interval,
		StaleTimeout: staleTimeout,
	}, m, logger)

	manager := connection.NewManager(connection.ManagerConfig{
		URL:                  cfg.Backend.PrimaryWSURL,
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Connection.ReconnectBaseDelay,
		ConnectTimeout:       cfg.Connection.ConnectTimeout,
		ClosedRetryDelay:     cfg.Connection.ClosedRetryDelay,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		BufferSize:           cfg.Connection.BufferSize,
	}, prober, hb, notifier, m, logger)

	var player dispatch.Player
	if !cfg.Speech.Disabled {
		player = speech.NewSpeaker(speech.NewHTTPPlayer(newSpeechClient(cfg, logger), cfg.Speech.Command, logger), notifier, m, logger)
	}
	dispatcher := dispatch.New(dispatch.Config{
		DefaultAPI:      cfg.Chat.DefaultAPI,
		SpeechAPIs:      cfg.Chat.SpeechAPIs,
		VoiceIndex:      cfg.Chat.VoiceIndex,
		PlaybackTimeout: cfg.Speech.Timeout,
	}, manager, hb, player, notifier, m, logger)
	manager.OnMessage(dispatcher.HandleMessage)

	a := &App{
		cfg:        cfg,
		base:       logger,
		logger:     logger.With("component", "app"),
		metrics:    m,
		notifier:   notifier,
		prober:     prober,
		heartbeat:  hb,
		manager:    manager,
		dispatcher: dispatcher,
	}

	if !cfg.Secondary.Disabled {
		a.secondary = connection.NewSecondaryChannel(connection.SecondaryConfig{
			URL:          cfg.Backend.SecondaryWSURL,
			RetryDelay:   cfg.Secondary.RetryDelay,
			WriteTimeout: cfg.Connection.WriteTimeout,
			BufferSize:   cfg.Connection.BufferSize,
		}, m, logger)
	}

	if cfg.Admin.Addr != "" {
		var opts []admin.Option
		if a.secondary != nil {
			opts = append(opts, admin.WithSecondary(a.secondary))
		}
		a.admin = admin.New(admin.Config{
			Addr:        cfg.Admin.Addr,
			MetricsPath: cfg.Admin.MetricsPath,
		}, manager, m.Handler(), logger, opts...)
	}

	return a
}

// newSpeechClient builds the client clips are downloaded with. Unlike the
// probe client it retries server errors itself, since nothing else
// reschedules a failed download.
func newSpeechClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(cfg.Backend.BaseURL,
		api.WithLogger(logger),
		api.WithUserAgent(version.UserAgent()),
		api.WithTimeout(cfg.Speech.Timeout),
		api.WithRetries(max(cfg.Speech.Retries, 0), cfg.Speech.RetryBackoff),
	)
}

// Dispatcher returns the chat dispatcher the shell submits through.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Manager returns the primary channel manager.
func (a *App) Manager() *connection.Manager {
	return a.manager
}

// Metrics returns the client's metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Run waits for ready, then connects and supervises the client until ctx is
// cancelled. It returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
	case <-ctx.Done():
		return nil
	}

	a.logger.Info("shell ready, starting client",
		"version", version.Version,
		"base_url", a.cfg.Backend.BaseURL,
		"primary_url", a.cfg.Backend.PrimaryWSURL,
	)

	if !a.cfg.Backend.SkipPreflight {
		a.preflight(ctx)
	}

	jw, pool := a.startJournal(ctx)
	if pool != nil {
		defer pool.Close()
	}

	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("start manager: %w", err)
	}
	if err := a.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	a.manager.Connect()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if a.secondary != nil {
		if jw != nil {
			a.secondary.OnDial(func(err error) { jw.Record(journal.DialEvent(err)) })
		}
		g.Go(func() error { return a.secondary.Run(gctx) })
	}
	if a.admin != nil {
		g.Go(func() error { return a.admin.Run(gctx) })
	}
	if jw != nil {
		g.Go(func() error { return jw.Follow(gctx, a.manager.States()) })
	}

	err := g.Wait()

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.dispatcher.Stop(shutdownCtx)
	a.manager.Stop(shutdownCtx)
	if jw != nil {
		jw.Stop(shutdownCtx)
	}

	a.logger.Info("client stopped")
	return err
}

// preflight warns when nothing listens on the backend port at all, which
// means the backend was never started.
func (a *App) preflight(ctx context.Context) {
	addr, err := health.ListenerAddr(a.cfg.Backend.BaseURL)
	if err != nil {
		a.logger.Warn("preflight skipped", "error", err)
		return
	}
	if health.Listening(ctx, addr, preflightTimeout) {
		return
	}
	a.logger.Warn("backend port not listening", "addr", addr)
	a.notifier.Show(notify.KindWarning, notify.MsgPortFree, addr)
}

// startJournal opens the journal database when enabled. A journal that
// cannot start is logged and skipped; it never stops the client.
func (a *App) startJournal(ctx context.Context) (*journal.Writer, *pgxpool.Pool) {
	if !a.cfg.Journal.Enabled {
		return nil, nil
	}

	db := a.cfg.Journal.Database
	a.logger.Info("connecting to journal database",
		"host", db.Host,
		"port", db.Port,
		"database", db.Name,
	)

	pool, err := database.Connect(ctx, db)
	if err != nil {
		a.logger.Warn("journal disabled, database unavailable", "error", err)
		return nil, nil
	}
	if err := journal.EnsureSchema(ctx, pool); err != nil {
		a.logger.Warn("journal disabled, schema setup failed", "error", err)
		pool.Close()
		return nil, nil
	}

	w := journal.NewWriter(journal.Config{
		BatchSize:     a.cfg.Journal.BatchSize,
		FlushInterval: a.cfg.Journal.FlushInterval,
		BufferSize:    a.cfg.Journal.BufferSize,
	}, pool, a.metrics, a.base)
	w.Start(ctx)
	return w, pool
}
