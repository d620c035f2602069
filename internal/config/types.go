package config

// Config is the root configuration document.
//
// The file on disk is YAML (or JSON); both are decoded strictly, so unknown
// keys are rejected rather than silently ignored.
//
// All duration fields are Go duration strings (e.g. "500ms", "10s", "5m").
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Keywords KeywordsConfig `json:"keywords"`
	Monitor  MonitorConfig  `json:"monitor"`
	Sources  SourcesConfig  `json:"sources"`
	Notify   NotifyConfig   `json:"notify"`
	Web      WebConfig      `json:"web,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects the persistence driver.
// Driver "sqlite" stores to Path; "none" (or empty) disables persistence.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// KeywordsConfig is the file-based keyword list. Keywords enabled in storage
// take precedence over this list when both are present.
type KeywordsConfig struct {
	List           []string `json:"list,omitempty"`
	Mode           string   `json:"mode,omitempty"` // contains | exact | fuzzy
	CaseSensitive  bool     `json:"case_sensitive,omitempty"`
	FuzzyThreshold float64  `json:"fuzzy_threshold,omitempty"`
}

// MonitorConfig tunes the scheduling loop.
//
// Defaults (when fields are omitted/zero):
//   - tick: "100ms"
//   - heartbeat: "30s"
//   - keyword_refresh: "5m"
type MonitorConfig struct {
	Tick           string `json:"tick,omitempty"`
	Heartbeat      string `json:"heartbeat,omitempty"`
	KeywordRefresh string `json:"keyword_refresh,omitempty"`
}

type SourcesConfig struct {
	Webhook []WebhookSourceConfig `json:"webhook,omitempty"`
	Tail    []TailSourceConfig    `json:"tail,omitempty"`
}

// WebhookSourceConfig configures a push-delivered source. Platform events are
// POSTed to the web server and buffered in a per-source bounded queue until
// the next poll drains them.
type WebhookSourceConfig struct {
	Name         string `json:"name"`
	Platform     string `json:"platform,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"`
	Token        string `json:"token,omitempty"`
	QueueSize    int    `json:"queue_size,omitempty"`
}

// TailSourceConfig configures a source that follows an append-only JSONL file
// written by an external capture agent (e.g. the OCR bridge).
type TailSourceConfig struct {
	Name         string `json:"name"`
	Platform     string `json:"platform,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"`
	Path         string `json:"path"`
}

// NotifyConfig controls the notification engine.
type NotifyConfig struct {
	Enabled         bool           `json:"enabled"`
	DefaultChannels []string       `json:"default_channels,omitempty"`
	Workers         int            `json:"workers,omitempty"`
	QueueSize       int            `json:"queue_size,omitempty"`
	RatePerSec      int            `json:"rate_per_sec,omitempty"`
	SendTimeout     string         `json:"send_timeout,omitempty"`
	Rules           []RuleConfig   `json:"rules,omitempty"`
	Channels        ChannelsConfig `json:"channels,omitempty"`
}

// RuleConfig routes matched keywords to channels.
// Enabled is a pointer so "omitted" defaults to true.
type RuleConfig struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Channels []string `json:"channels"`
	Priority int      `json:"priority,omitempty"`
	Cooldown string   `json:"cooldown,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
}

type ChannelsConfig struct {
	Console  *ConsoleChannelConfig   `json:"console,omitempty"`
	File     *FileChannelConfig      `json:"file,omitempty"`
	Webhook  []WebhookChannelConfig  `json:"webhook,omitempty"`
	Telegram *TelegramChannelConfig  `json:"telegram,omitempty"`
	Email    *EmailChannelConfig     `json:"email,omitempty"`
	Desktop  *DesktopChannelConfig   `json:"desktop,omitempty"`
}

type ConsoleChannelConfig struct {
	Enabled bool `json:"enabled"`
}

type FileChannelConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// WebhookChannelConfig posts JSON to a chat-bot webhook (DingTalk/WeCom style).
// When Secret is set, requests carry a signed timestamp.
type WebhookChannelConfig struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Secret  string `json:"secret,omitempty"`
}

type TelegramChannelConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

type EmailChannelConfig struct {
	Enabled  bool     `json:"enabled"`
	SMTPHost string   `json:"smtp_host,omitempty"`
	SMTPPort int      `json:"smtp_port,omitempty"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	To       []string `json:"to,omitempty"`
}

type DesktopChannelConfig struct {
	Enabled bool `json:"enabled"`
}

// WebConfig controls the status/ingest HTTP server.
type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen,omitempty"` // default ":8321"
}
