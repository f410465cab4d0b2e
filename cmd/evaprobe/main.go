// evaprobe checks the EVA backend once and optionally streams the primary
// channel to the console.
// Usage: go run ./cmd/evaprobe --config configs/eva.example.yaml [-stream]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/eva-client/internal/api"
	"github.com/rickgao/eva-client/internal/config"
	"github.com/rickgao/eva-client/internal/connection"
	"github.com/rickgao/eva-client/internal/health"
	"github.com/rickgao/eva-client/internal/model"
	"github.com/rickgao/eva-client/internal/notify"
	"github.com/rickgao/eva-client/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	stream := flag.Bool("stream", false, "connect to the primary channel and print inbound frames")
	verbose := flag.Bool("verbose", false, "print raw frames")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	notifier := notify.New(notify.NewConsole(os.Stdout), cfg.UI.Locale)
	client := api.NewClient(cfg.Backend.BaseURL,
		api.WithLogger(logger),
		api.WithUserAgent(version.UserAgent()),
	)

	if addr, err := health.ListenerAddr(cfg.Backend.BaseURL); err == nil {
		if !health.Listening(ctx, addr, time.Second) {
			notifier.Show(notify.KindWarning, notify.MsgPortFree, addr)
		}
	}

	prober := health.New(health.Config{
		HealthPath:     cfg.Backend.HealthPath,
		ModulesPath:    cfg.Backend.ModulesPath,
		ProbeTimeout:   cfg.Backend.ProbeTimeout,
		ModulesTimeout: cfg.Backend.ModulesTimeout,
	}, client, notifier, nil, logger)

	st := prober.Probe(ctx)
	fmt.Printf("healthy=%t feature_module_ready=%t outcome=%s http_status=%d\n",
		st.Healthy, st.FeatureModuleReady, st.Outcome, st.HTTPStatus)

	if !*stream {
		if !st.Healthy {
			os.Exit(1)
		}
		return
	}

	if err := streamPrimary(ctx, cfg, *verbose, logger); err != nil {
		logger.Error("stream failed", "error", err)
		os.Exit(1)
	}
}

// streamPrimary prints decoded inbound frames and sends a heartbeat every
// heartbeat interval until ctx is cancelled or the channel closes.
func streamPrimary(ctx context.Context, cfg *config.Config, verbose bool, logger *slog.Logger) error {
	c := connection.NewClient(connection.ClientConfig{
		URL:              cfg.Backend.PrimaryWSURL,
		HandshakeTimeout: cfg.Connection.ConnectTimeout,
		WriteTimeout:     cfg.Connection.WriteTimeout,
		BufferSize:       cfg.Connection.BufferSize,
	}, logger)

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Backend.PrimaryWSURL, err)
	}
	defer c.Close()

	heartbeat, err := model.EncodeOutbound(model.Heartbeat{})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Heartbeat.Interval)
	defer ticker.Stop()

	logger.Info("streaming started - press Ctrl+C to stop", "url", cfg.Backend.PrimaryWSURL)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.Done():
			select {
			case err := <-c.Errors():
				return err
			default:
				return nil
			}
		case <-ticker.C:
			if err := c.Send(heartbeat); err != nil {
				logger.Warn("heartbeat failed", "error", err)
			}
		case msg := <-c.Messages():
			printFrame(msg, verbose)
		}
	}
}

func printFrame(msg connection.TimestampedMessage, verbose bool) {
	ts := msg.ReceivedAt.Format("15:04:05.000")
	if verbose {
		fmt.Printf("%s [RAW] %s\n", ts, msg.Data)
	}

	in, err := model.DecodeInbound(msg.Data)
	if err != nil {
		fmt.Printf("%s [INVALID] %v\n", ts, err)
		return
	}

	switch v := in.(type) {
	case model.Pong:
		fmt.Printf("%s [PONG]\n", ts)
	case model.Response:
		fmt.Printf("%s [RESPONSE] %s speech=%q\n", ts, v.Text, v.SpeechURL)
	case model.Error:
		fmt.Printf("%s [ERROR] %s\n", ts, v.Text)
	case model.System:
		fmt.Printf("%s [SYSTEM] %s\n", ts, v.Text)
	case model.Warning:
		fmt.Printf("%s [WARNING] %s\n", ts, v.Text)
	case model.Unknown:
		fmt.Printf("%s [UNKNOWN] type=%q\n", ts, v.Type)
	}
}
