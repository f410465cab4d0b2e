// eva is the EVA chat client.
// Usage: go run ./cmd/eva --config configs/eva.example.yaml
//
// Without -headless it runs the terminal shell and logs to log.file.
// With -headless it prints to stdout and reads chat lines from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/eva-client/internal/app"
	"github.com/rickgao/eva-client/internal/config"
	"github.com/rickgao/eva-client/internal/dispatch"
	"github.com/rickgao/eva-client/internal/notify"
	"github.com/rickgao/eva-client/internal/tui"
	"github.com/rickgao/eva-client/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	headless := flag.Bool("headless", false, "run without the terminal shell")
	logLevel := flag.String("log-level", "", "override log.level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		info := version.Get()
		fmt.Printf("eva %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildTime)
		return
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *headless {
		cfg.UI.Headless = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting eva",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"headless", cfg.UI.Headless,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.UI.Headless {
		err = runHeadless(ctx, cfg, logger)
	} else {
		err = runShell(ctx, cancel, cfg, logger)
	}
	if err != nil {
		logger.Error("eva stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("eva stopped")
}

// newLogger writes to stderr in headless mode. The shell owns the terminal,
// so otherwise logs go to log.file (a file in the temp dir by default).
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}

	path := cfg.Log.File
	if path == "" && !cfg.UI.Headless {
		path = filepath.Join(os.TempDir(), "eva-client.log")
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

func runShell(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	bus := tui.NewBus(256)
	a := app.New(cfg, bus, logger)

	m := tui.New(tui.Config{
		Title:       "EVA",
		APIChoices:  cfg.Chat.APIChoices,
		DefaultAPI:  cfg.Chat.DefaultAPI,
		SendTimeout: cfg.Connection.WriteTimeout,
	}, bus, a.Dispatcher())

	appErr := make(chan error, 1)
	go func() { appErr <- a.Run(ctx, m.Ready()) }()

	err := tui.Run(ctx, m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// The program no longer drains the bus; unblock the client before
	// waiting for it.
	bus.Close()
	cancel()

	select {
	case runErr := <-appErr:
		if err == nil {
			err = runErr
		}
	case <-time.After(10 * time.Second):
		logger.Warn("client shutdown timed out")
	}
	return err
}

func runHeadless(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a := app.New(cfg, notify.NewConsole(os.Stdout), logger)

	ready := make(chan struct{})
	close(ready)

	go readChat(ctx, os.Stdin, a.Dispatcher(), cfg.Chat.DefaultAPI, logger)

	return a.Run(ctx, ready)
}

// readChat sends every stdin line as a chat message. "/api NAME" switches
// the provider for later lines.
func readChat(ctx context.Context, r io.Reader, d *dispatch.Dispatcher, apiChoice string, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "/api "); ok {
			apiChoice = strings.TrimSpace(name)
			fmt.Printf("api choice: %s\n", apiChoice)
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := d.SendChat(sendCtx, line, apiChoice)
		cancel()
		if err != nil && !errors.Is(err, dispatch.ErrEmptyMessage) {
			logger.Debug("chat not sent", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("stdin read failed", "error", err)
	}
}
