package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/eva-client/internal/metrics"
	"github.com/rickgao/eva-client/internal/notify"
)

// ErrNoPath is returned when a reply carries an empty speech path.
var ErrNoPath = errors.New("no speech path")

// Player plays one clip.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Speaker plays clips with the .wav to .mp3 fallback and reports the final
// failure to the user.
type Speaker struct {
	player   Player
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSpeaker creates a Speaker.
func NewSpeaker(player Player, notifier *notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		player:   player,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With("component", "speech"),
	}
}

// Play plays the clip at path.
func (s *Speaker) Play(ctx context.Context, path string) error {
	if path == "" {
		s.notifier.Show(notify.KindError, notify.MsgPlaybackFailed)
		return ErrNoPath
	}

	err := s.player.Play(ctx, path)
	if err == nil {
		s.metrics.Playback("ok")
		s.logger.Debug("clip played", "path", path)
		return nil
	}

	if strings.HasSuffix(path, ".wav") {
		alt := strings.TrimSuffix(path, ".wav") + ".mp3"
		s.logger.Info("wav playback failed, trying mp3", "path", path, "error", err)

		altErr := s.player.Play(ctx, alt)
		if altErr == nil {
			s.metrics.Playback("fallback")
			s.logger.Debug("clip played", "path", alt)
			return nil
		}
		err = errors.Join(err, altErr)
	}

	s.metrics.Playback("error")
	s.logger.Warn("playback failed", "path", path, "error", err)
	s.notifier.Show(notify.KindError, notify.MsgPlaybackFailed)
	return fmt.Errorf("play %s: %w", path, err)
}
