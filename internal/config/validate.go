package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validateURL("backend.base_url", c.Backend.BaseURL, "http", "https"); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Backend.HealthPath, "/") {
		return errors.New("backend.health_path must start with /")
	}
	if !strings.HasPrefix(c.Backend.ModulesPath, "/") {
		return errors.New("backend.modules_path must start with /")
	}
	if err := validateURL("backend.primary_ws_url", c.Backend.PrimaryWSURL, "ws", "wss"); err != nil {
		return err
	}
	if !c.Secondary.Disabled {
		if err := validateURL("backend.secondary_ws_url", c.Backend.SecondaryWSURL, "ws", "wss"); err != nil {
			return err
		}
	}
	if c.Backend.ProbeTimeout <= 0 {
		return errors.New("backend.probe_timeout must be > 0")
	}

	if c.Connection.MaxReconnectAttempts < 1 {
		return errors.New("connection.max_reconnect_attempts must be >= 1")
	}
	if c.Connection.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be > 0")
	}
	if c.Connection.ConnectTimeout <= 0 {
		return errors.New("connection.connect_timeout must be > 0")
	}
	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	if c.Heartbeat.Interval <= 0 {
		return errors.New("heartbeat.interval must be > 0")
	}
	if c.Heartbeat.StaleTimeout > 0 && c.Heartbeat.StaleTimeout <= c.Heartbeat.Interval {
		return fmt.Errorf("heartbeat.stale_timeout (%s) must exceed heartbeat.interval (%s)",
			c.Heartbeat.StaleTimeout, c.Heartbeat.Interval)
	}

	if c.Secondary.RetryDelay <= 0 {
		return errors.New("secondary.retry_delay must be > 0")
	}

	if !slices.Contains(c.Chat.APIChoices, c.Chat.DefaultAPI) {
		return fmt.Errorf("chat.default_api %q is not one of chat.api_choices", c.Chat.DefaultAPI)
	}
	if c.Chat.VoiceIndex < 0 {
		return errors.New("chat.voice_index must be >= 0")
	}

	if c.Speech.Retries > 0 && c.Speech.RetryBackoff <= 0 {
		return errors.New("speech.retry_backoff must be > 0 when retries are enabled")
	}

	switch c.UI.Locale {
	case "zh-Hans", "zh-CN", "zh", "en", "en-US":
	default:
		return fmt.Errorf("ui.locale %q is not supported", c.UI.Locale)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	if c.Admin.Addr != "" && !strings.HasPrefix(c.Admin.MetricsPath, "/") {
		return errors.New("admin.metrics_path must start with /")
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Errorf("%s must use scheme %s, got %q", field, strings.Join(schemes, " or "), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
