package config

type Config struct {
	Source        SourceConfig        `json:"source"`
	Storage       StorageConfig       `json:"storage"`
	Scheduler     SchedulerConfig     `json:"scheduler"`
	Format        FormatConfig        `json:"format"`
	Publishers    PublishersConfig    `json:"publishers"`
	Run           RunConfig           `json:"run"`
	Logging       LoggingConfig       `json:"logging"`
	Observability ObservabilityConfig `json:"observability,omitempty"`
}

// SourceConfig points at the published list.
type SourceConfig struct {
	URL string `json:"url"`
	// Timeout is a Go duration string (e.g. "30s"). Default: 60s.
	Timeout   string `json:"timeout,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// StorageConfig selects where the last-known snapshot lives.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./previous_state.json" }
//	"storage": { "driver": "redis", "url": "redis://localhost:6379/0" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`         // file, sqlite
	URL         string `json:"url,omitempty"`          // redis, postgres
	Key         string `json:"key,omitempty"`          // default: previous_state
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SchedulerConfig controls the periodic trigger used by `serve`.
//
// Schedule accepts a cron expression ("0 9 * * *"), a descriptor ("@daily"),
// an interval ("24h", "02:30") or a daily wall-clock time ("at:09:00").
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	// Trigger timezone (IANA, e.g. "America/New_York").
	Timezone string `json:"timezone,omitempty"`
}

type FormatConfig struct {
	Separator string `json:"separator,omitempty"` // default " | "
}

type PublishersConfig struct {
	Twitter  TwitterConfig  `json:"twitter"`
	Telegram TelegramConfig `json:"telegram"`
}

// TwitterConfig holds OAuth 1.0a user-context credentials for the X API.
// Secrets are usually supplied through the environment instead of the file.
type TwitterConfig struct {
	Enabled           bool   `json:"enabled"`
	ConsumerKey       string `json:"consumer_key,omitempty"`
	ConsumerSecret    string `json:"consumer_secret,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	AccessTokenSecret string `json:"access_token_secret,omitempty"`
	Endpoint          string `json:"endpoint,omitempty"`   // default https://api.twitter.com/2/tweets
	MaxLength         int    `json:"max_length,omitempty"` // default 280
	Thread            *bool  `json:"thread,omitempty"`     // default true
	Timeout           string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token,omitempty"`
	ChatID    int64  `json:"chat_id,omitempty"`
	ThreadID  int    `json:"thread_id,omitempty"`  // forum topic (0 if none)
	MaxLength int    `json:"max_length,omitempty"` // default 4096
	Thread    *bool  `json:"thread,omitempty"`     // default true
	// AlertChatID receives forwarded WARN+ log lines when logging.alerts is enabled.
	// Defaults to ChatID.
	AlertChatID int64 `json:"alert_chat_id,omitempty"`
}

// RunConfig tunes orchestrator policy.
type RunConfig struct {
	// PersistOnPublishFailure saves the new snapshot even if a publisher failed
	// (no duplicate alerts next run). Default true.
	PersistOnPublishFailure *bool  `json:"persist_on_publish_failure,omitempty"`
	DryRun                  bool   `json:"dry_run,omitempty"`
	Timeout                 string `json:"timeout,omitempty"` // per-run deadline, e.g. "10m"; empty means none
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Alerts  LoggingAlerts `json:"alerts"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingAlerts forwards log lines to the Telegram alert chat.
type LoggingAlerts struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// ObservabilityConfig controls the optional metrics/health HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:9464").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type ObservabilityConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:9464"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

const (
	DefaultListURL      = "https://data.trade.gov/downloadable_consolidated_screening_list/v1/consolidated.json"
	DefaultStatePath    = "./previous_state.json"
	DefaultStateKey     = "previous_state"
	DefaultObservAddr   = "127.0.0.1:9464"
	DefaultTwitterURL   = "https://api.twitter.com/2/tweets"
	DefaultTwitterLimit = 280
	DefaultTelegramMax  = 4096
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:  SourceConfig{URL: DefaultListURL},
		Storage: StorageConfig{Driver: "file", Path: DefaultStatePath},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (c TwitterConfig) Threaded() bool  { return boolOr(c.Thread, true) }
func (c TelegramConfig) Threaded() bool { return boolOr(c.Thread, true) }

func (c RunConfig) PersistOnFailure() bool { return boolOr(c.PersistOnPublishFailure, true) }
