// Package config holds the configuration shared by every bot built on core:
// Telegram access, update delivery, logging, rate limiting and the outbound
// sender. Bots embed Config inline and add their own sections.
package config

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by RateLimitConfig.ExcludeUpdates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	// RunMode is webhook or longpoll. "polling" and empty mean longpoll.
	RunMode                string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig selects the log format and sinks. Empty fields fall back to
// the defaults of the chosen profile.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	Profile     string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig enforces a minimum gap between updates of one user.
// Zero IntervalMS disables the limit.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// SenderConfig tunes the outbound dispatcher. Zero values take the
// dispatcher defaults.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size"`
	Workers        int `yaml:"workers"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
}

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sender    SenderConfig    `yaml:"sender"`
}
