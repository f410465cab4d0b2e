package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL              = "http://localhost:8000"
	DefaultHealthPath           = "/api/health/"
	DefaultModulesPath          = "/api/modules/status"
	DefaultPrimaryWSURL         = "ws://localhost:8000/ws/llm/"
	DefaultSecondaryWSURL       = "ws://localhost:8000/ws/memory/"
	DefaultProbeTimeout         = 3 * time.Second
	DefaultModulesTimeout       = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultConnectTimeout       = 5 * time.Second
	DefaultClosedRetryDelay     = 1 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBufferSize           = 256
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultStaleTimeout         = 45 * time.Second
	DefaultSecondaryRetryDelay  = 3 * time.Second
	DefaultAPI                  = "deepseek"
	DefaultSpeechTimeout        = 30 * time.Second
	DefaultSpeechRetries        = 2
	DefaultSpeechRetryBackoff   = 500 * time.Millisecond
	DefaultLocale               = "zh-Hans"
	DefaultLogLevel             = "info"
	DefaultMetricsPath          = "/metrics"
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultJournalBatchSize     = 100
	DefaultJournalFlush         = 2 * time.Second
	DefaultJournalBufferSize    = 1000
)

// DefaultAPIChoices are the LLM providers the backend serves.
var DefaultAPIChoices = []string{"deepseek", "siliconflow"}

// DefaultSpeechAPIs are the providers whose replies come with speech.
var DefaultSpeechAPIs = []string{"deepseek"}

func (c *Config) applyDefaults() {
	// Backend defaults
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBaseURL
	}
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = DefaultHealthPath
	}
	if c.Backend.ModulesPath == "" {
		c.Backend.ModulesPath = DefaultModulesPath
	}
	if c.Backend.PrimaryWSURL == "" {
		c.Backend.PrimaryWSURL = DefaultPrimaryWSURL
	}
	if c.Backend.SecondaryWSURL == "" {
		c.Backend.SecondaryWSURL = DefaultSecondaryWSURL
	}
	if c.Backend.ProbeTimeout == 0 {
		c.Backend.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Backend.ModulesTimeout == 0 {
		c.Backend.ModulesTimeout = DefaultModulesTimeout
	}

	// Connection defaults
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Connection.ClosedRetryDelay == 0 {
		c.Connection.ClosedRetryDelay = DefaultClosedRetryDelay
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Heartbeat defaults
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultHeartbeatInterval
	}
	if c.Heartbeat.StaleTimeout == 0 {
		c.Heartbeat.StaleTimeout = DefaultStaleTimeout
	}

	if c.Secondary.RetryDelay == 0 {
		c.Secondary.RetryDelay = DefaultSecondaryRetryDelay
	}

	// Chat defaults
	if len(c.Chat.APIChoices) == 0 {
		c.Chat.APIChoices = append([]string(nil), DefaultAPIChoices...)
	}
	if c.Chat.DefaultAPI == "" {
		c.Chat.DefaultAPI = c.Chat.APIChoices[0]
	}
	if c.Chat.SpeechAPIs == nil {
		c.Chat.SpeechAPIs = append([]string(nil), DefaultSpeechAPIs...)
	}

	if c.Speech.Timeout == 0 {
		c.Speech.Timeout = DefaultSpeechTimeout
	}
	if c.Speech.Retries == 0 {
		c.Speech.Retries = DefaultSpeechRetries
	}
	if c.Speech.RetryBackoff == 0 {
		c.Speech.RetryBackoff = DefaultSpeechRetryBackoff
	}
	if c.UI.Locale == "" {
		c.UI.Locale = DefaultLocale
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Admin.MetricsPath == "" {
		c.Admin.MetricsPath = DefaultMetricsPath
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
