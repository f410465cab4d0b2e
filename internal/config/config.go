package config

import "time"

// Config is the root configuration for the EVA client.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Connection ConnectionConfig `yaml:"connection"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Secondary  SecondaryConfig  `yaml:"secondary"`
	Chat       ChatConfig       `yaml:"chat"`
	Speech     SpeechConfig     `yaml:"speech"`
	UI         UIConfig         `yaml:"ui"`
	Log        LogConfig        `yaml:"log"`
	Admin      AdminConfig      `yaml:"admin"`
	Journal    JournalConfig    `yaml:"journal"`
}

// BackendConfig locates the EVA backend endpoints.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`         // e.g. http://localhost:8000
	HealthPath     string        `yaml:"health_path"`      // GET, {"status":"ok"}
	ModulesPath    string        `yaml:"modules_path"`     // GET, {"emotional_analyzer":"loaded"}
	PrimaryWSURL   string        `yaml:"primary_ws_url"`   // chat channel
	SecondaryWSURL string        `yaml:"secondary_ws_url"` // memory channel
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	ModulesTimeout time.Duration `yaml:"modules_timeout"`
	SkipPreflight  bool          `yaml:"skip_preflight"` // skip the port availability check at startup
}

// ConnectionConfig holds primary channel recovery settings.
type ConnectionConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	ClosedRetryDelay     time.Duration `yaml:"closed_retry_delay"` // pause after an unexpected closure
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// HeartbeatConfig holds application-level heartbeat settings.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
	// StaleTimeout is the longest silence tolerated after the last pong.
	// A negative value disables enforcement.
	StaleTimeout time.Duration `yaml:"stale_timeout"`
}

// SecondaryConfig holds memory channel settings.
type SecondaryConfig struct {
	Disabled   bool          `yaml:"disabled"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ChatConfig holds chat request settings.
type ChatConfig struct {
	APIChoices []string `yaml:"api_choices"`
	DefaultAPI string   `yaml:"default_api"`
	SpeechAPIs []string `yaml:"speech_apis"` // choices that request synthesized speech
	VoiceIndex int      `yaml:"voice_index"`
}

// SpeechConfig holds speech playback settings.
type SpeechConfig struct {
	Disabled bool          `yaml:"disabled"`
	Command  []string      `yaml:"command"` // player argv, the audio file path is appended
	Timeout  time.Duration `yaml:"timeout"`

	// Clip downloads are retried on 5xx and 429. Negative disables retries.
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"` // doubled per retry, with jitter
}

// UIConfig holds shell settings.
type UIConfig struct {
	Locale   string `yaml:"locale"` // "zh-Hans" or "en"
	Headless bool   `yaml:"headless"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty = stderr in headless mode
}

// AdminConfig holds the local status server settings.
type AdminConfig struct {
	Addr        string `yaml:"addr"` // empty disables the server
	MetricsPath string `yaml:"metrics_path"`
}

// JournalConfig holds connection event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthURL returns the absolute health endpoint URL.
func (b BackendConfig) HealthURL() string {
	return b.BaseURL + b.HealthPath
}

// ModulesURL returns the absolute feature module status URL.
func (b BackendConfig) ModulesURL() string {
	return b.BaseURL + b.ModulesPath
}
