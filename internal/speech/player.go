package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/rickgao/eva-client/internal/api"
)

// ErrNotAudio is returned when the backend answers with something other than audio.
var ErrNotAudio = errors.New("response is not audio")

// HTTPPlayer downloads clips from the backend and hands them to an external
// command such as ffplay. Without a command the clip is only fetched.
type HTTPPlayer struct {
	client  *api.Client
	command []string
	logger  *slog.Logger
}

// NewHTTPPlayer creates an HTTPPlayer. command is the player argv; the clip's
// file name is appended as the last argument.
func NewHTTPPlayer(client *api.Client, command []string, logger *slog.Logger) *HTTPPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPPlayer{
		client:  client,
		command: command,
		logger:  logger.With("component", "player"),
	}
}

// Play fetches and plays the clip at p.
func (h *HTTPPlayer) Play(ctx context.Context, p string) error {
	data, contentType, err := h.client.Fetch(ctx, p)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrNotAudio)
	}
	if !isAudio(contentType) {
		return fmt.Errorf("%w: content type %q", ErrNotAudio, contentType)
	}

	if len(h.command) == 0 {
		h.logger.Debug("no player command configured, clip fetched only", "path", p, "bytes", len(data))
		return nil
	}

	f, err := os.CreateTemp("", "eva-speech-*"+path.Ext(p))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	args := append(append([]string(nil), h.command[1:]...), f.Name())
	cmd := exec.CommandContext(ctx, h.command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %s: %w: %s", h.command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func isAudio(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "application/octet-stream")
}
