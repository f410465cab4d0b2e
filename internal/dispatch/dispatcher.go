package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/eva-client/internal/metrics"
	"github.com/rickgao/eva-client/internal/model"
	"github.com/rickgao/eva-client/internal/notify"
)

// Dispatcher routes inbound frames and sends outbound ones.
type Dispatcher struct {
	cfg      Config
	sender   Sender
	acker    Acker
	player   Player
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// Speech clips waiting for the playback loop
	speech chan string

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Dispatcher. player may be nil to disable speech.
func New(cfg Config, sender Sender, acker Acker, player Player, notifier *notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PlaybackQueue <= 0 {
		cfg.PlaybackQueue = DefaultConfig().PlaybackQueue
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = DefaultConfig().PlaybackTimeout
	}

	return &Dispatcher{
		cfg:      cfg,
		sender:   sender,
		acker:    acker,
		player:   player,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With("component", "dispatch"),
		speech:   make(chan string, cfg.PlaybackQueue),
	}
}

// Start begins the playback loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.playLoop()

	d.logger.Info("dispatcher started",
		"default_api", d.cfg.DefaultAPI,
		"speech_apis", d.cfg.SpeechAPIs,
	)
	return nil
}

// Stop halts playback, abandoning queued clips.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendChat sends a user message. Blank text is rejected without a frame.
// An empty apiChoice selects the configured default.
func (d *Dispatcher) SendChat(ctx context.Context, text, apiChoice string) (model.Chat, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		d.logger.Debug("refusing to send empty message")
		return model.Chat{}, ErrEmptyMessage
	}
	if apiChoice == "" {
		apiChoice = d.cfg.DefaultAPI
	}

	chat := model.Chat{
		ID:         uuid.NewString(),
		Text:       text,
		APIChoice:  apiChoice,
		NeedSpeech: slices.Contains(d.cfg.SpeechAPIs, apiChoice),
		VoiceIndex: d.cfg.VoiceIndex,
	}

	if err := d.Send(ctx, chat); err != nil {
		if errors.Is(err, ErrNotConnected) {
			d.notifier.Show(notify.KindError, notify.MsgNotConnected)
		} else {
			d.notifier.Show(notify.KindError, notify.MsgSendFailed)
		}
		return model.Chat{}, err
	}

	d.notifier.ShowText(notify.KindUser, text)
	d.logger.Debug("chat sent",
		"message_id", chat.ID,
		"api_choice", chat.APIChoice,
		"need_speech", chat.NeedSpeech,
	)
	return chat, nil
}

// Send encodes and writes one outbound frame.
func (d *Dispatcher) Send(ctx context.Context, out model.Outbound) error {
	data, err := model.EncodeOutbound(out)
	if err != nil {
		return fmt.Errorf("encode %s: %w", out.OutboundType(), err)
	}

	if err := d.sender.Send(ctx, data); err != nil {
		d.metrics.Outbound(out.OutboundType(), "error")
		if errors.Is(err, ErrNotConnected) {
			return err
		}
		return fmt.Errorf("send %s: %w", out.OutboundType(), err)
	}

	d.metrics.Outbound(out.OutboundType(), "ok")
	return nil
}

// HandleMessage routes one inbound frame.
func (d *Dispatcher) HandleMessage(raw []byte) {
	in, err := model.DecodeInbound(raw)
	if err != nil {
		d.metrics.Inbound("invalid")
		d.logger.Warn("failed to parse frame", "error", err, "bytes", len(raw))
		d.notifier.Show(notify.KindError, notify.MsgInvalidResponse)
		return
	}

	switch v := in.(type) {
	case model.Pong:
		if d.acker != nil {
			d.acker.Ack(time.Now())
		}
	case model.Error:
		d.notifier.ShowText(notify.KindError, v.Text)
	case model.Response:
		d.notifier.ShowText(notify.KindAssistant, v.Text)
		if v.SpeechURL != "" {
			d.enqueueSpeech(v.SpeechURL)
		}
	case model.System:
		d.notifier.ShowText(notify.KindSystem, v.Text)
	case model.Warning:
		d.notifier.ShowText(notify.KindWarning, v.Text)
	case model.Unknown:
		d.metrics.Inbound("unknown")
		d.logger.Debug("dropping frame", "type", v.Type)
		return
	}

	d.metrics.Inbound(in.InboundType())
}

func (d *Dispatcher) enqueueSpeech(path string) {
	if d.player == nil {
		d.logger.Debug("speech disabled, skipping clip", "path", path)
		return
	}

	select {
	case d.speech <- path:
	default:
		d.logger.Warn("playback queue full, dropping clip", "path", path)
	}
}

// playLoop plays queued clips one at a time.
func (d *Dispatcher) playLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case path := <-d.speech:
			ctx, cancel := context.WithTimeout(d.ctx, d.cfg.PlaybackTimeout)
			if err := d.player.Play(ctx, path); err != nil {
				d.logger.Warn("speech playback failed", "path", path, "error", err)
			}
			cancel()
		}
	}
}
