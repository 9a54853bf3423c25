package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	KeysOrder string `yaml:"keys_order"`
	Dir       string `yaml:"dir"`
	BotFile   string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// StorageBackendJSON persists documents as JSON files on disk.
	StorageBackendJSON = "json"
	// StorageBackendPostgres persists documents as jsonb rows in Postgres.
	StorageBackendPostgres = "postgres"
)

// PostgresConfig holds connection settings for the Postgres document backend.
type PostgresConfig struct {
	Host     string `yaml:"host" envconfig:"PG_HOST"`
	Port     int    `yaml:"port" envconfig:"PG_PORT"`
	User     string `yaml:"user" envconfig:"PG_USER"`
	Password string `yaml:"password" envconfig:"PG_PASSWORD"`
	Name     string `yaml:"name" envconfig:"PG_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"PG_SSLMODE"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend         string         `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	DataDir         string         `yaml:"data_dir" envconfig:"STORAGE_DATA_DIR"`
	DebounceSeconds int            `yaml:"debounce_seconds" envconfig:"STORAGE_DEBOUNCE_SECONDS"`
	Postgres        PostgresConfig `yaml:"postgres"`
}

// SessionConfig controls editor session lifetimes.
type SessionConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes" envconfig:"SESSION_TIMEOUT_MINUTES"`
}

// Config aggregates all bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if backend == "" {
		backend = StorageBackendJSON
	}
	switch backend {
	case StorageBackendJSON:
		if strings.TrimSpace(cfg.Storage.DataDir) == "" {
			cfg.Storage.DataDir = "data"
		}
	case StorageBackendPostgres:
		if strings.TrimSpace(cfg.Storage.Postgres.Host) == "" {
			return fmt.Errorf("storage.postgres.host is required when storage.backend is 'postgres'")
		}
		if cfg.Storage.Postgres.Port <= 0 {
			cfg.Storage.Postgres.Port = 5432
		}
		if strings.TrimSpace(cfg.Storage.Postgres.Name) == "" {
			return fmt.Errorf("storage.postgres.name is required when storage.backend is 'postgres'")
		}
		if strings.TrimSpace(cfg.Storage.Postgres.SSLMode) == "" {
			cfg.Storage.Postgres.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: json, postgres", cfg.Storage.Backend)
	}
	cfg.Storage.Backend = backend

	if cfg.Storage.DebounceSeconds < 0 {
		return fmt.Errorf("storage.debounce_seconds must be >= 0")
	}
	if cfg.Storage.DebounceSeconds == 0 {
		cfg.Storage.DebounceSeconds = 5
	}

	if cfg.Session.TimeoutMinutes < 0 {
		return fmt.Errorf("session.timeout_minutes must be >= 0")
	}
	if cfg.Session.TimeoutMinutes == 0 {
		cfg.Session.TimeoutMinutes = 30
	}
	return nil
}
