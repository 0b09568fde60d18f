// Package config defines the top-level configuration for the sold-item scrape
// orchestrator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SOLDSCOUT_* environment variables.
type Config struct {
	Dataset  DatasetConfig  `toml:"dataset"`
	Scrape   ScrapeConfig   `toml:"scrape"`
	Browser  BrowserConfig  `toml:"browser"`
	Pool     PoolConfig     `toml:"pool"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatasetConfig holds the file paths of the input, output, and proxy datasets.
type DatasetConfig struct {
	InputPath  string `toml:"input_path"`
	OutputPath string `toml:"output_path"`
	ProxyPath  string `toml:"proxy_path"`
}

// ScrapeConfig holds the per-row scrape parameters: target API relevance path,
// window length, retry policy, and proxy behavior.
type ScrapeConfig struct {
	// APIPath is the substring a response URL must contain to be relevant.
	APIPath string `toml:"api_path"`
	// WindowDays is the trailing lookback for the "recent" sub-count.
	WindowDays int `toml:"window_days"`
	// MaxAttempts bounds the retries of one scrape unit.
	MaxAttempts int `toml:"max_attempts"`
	// RetryDelay is the fixed wait between attempts.
	RetryDelay duration `toml:"retry_delay"`
	// NavTimeout bounds one navigation including network settle.
	NavTimeout duration `toml:"nav_timeout"`
	// ProxyActive toggles proxy binding for sessions.
	ProxyActive bool `toml:"proxy_active"`
	// ProxySelection is "rotate" (row index modulo) or "random".
	ProxySelection string `toml:"proxy_selection"`
	// RateLimit caps navigations per RateWindow when Redis is enabled.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// BrowserConfig holds automation engine parameters.
type BrowserConfig struct {
	Headless bool `toml:"headless"`
	// Bin is an optional explicit browser binary path.
	Bin string `toml:"bin"`
	// UserAgents is the pool a session's user agent is drawn from. Empty
	// falls back to a built-in list.
	UserAgents []string `toml:"user_agents"`
}

// PoolConfig holds the bounded-concurrency execution parameters.
type PoolConfig struct {
	Workers int `toml:"workers"`
}

// RedisConfig holds Redis connection parameters for the navigation rate
// limiter. Disabled by default so the batch runs standalone.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds connection parameters for the optional run store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the optional
// run-snapshot archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	SMTPHost          string   `toml:"smtp_host"`
	SMTPPort          int      `toml:"smtp_port"`
	SMTPUser          string   `toml:"smtp_user"`
	SMTPPassword      string   `toml:"smtp_password"`
	EmailSender       string   `toml:"email_sender"`
	EmailRecipient    string   `toml:"email_recipient"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "60s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Dataset: DatasetConfig{
			InputPath:  "data/input.csv",
			OutputPath: "data/output.csv",
			ProxyPath:  "data/proxies.json",
		},
		Scrape: ScrapeConfig{
			APIPath:        "https://api.mercari.jp/v2/entities:search",
			WindowDays:     30,
			MaxAttempts:    3,
			RetryDelay:     duration{60 * time.Second},
			NavTimeout:     duration{300 * time.Second},
			ProxyActive:    false,
			ProxySelection: "rotate",
			RateLimit:      0,
			RateWindow:     duration{time.Second},
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Pool: PoolConfig{
			Workers: 4,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "soldscout",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "soldscout-runs",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
			Events:   []string{"run_completed", "run_failed"},
		},
		Mode:     "sequential",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"sequential": true,
	"pool":       true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validProxySelection enumerates the accepted proxy selection policies.
var validProxySelection = map[string]bool{
	"rotate": true,
	"random": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sequential, pool)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Dataset.InputPath == "" {
		errs = append(errs, "dataset: input_path must not be empty")
	}
	if c.Dataset.OutputPath == "" {
		errs = append(errs, "dataset: output_path must not be empty")
	}
	if c.Scrape.ProxyActive && c.Dataset.ProxyPath == "" {
		errs = append(errs, "dataset: proxy_path is required when scrape.proxy_active is true")
	}

	if c.Scrape.APIPath == "" {
		errs = append(errs, "scrape: api_path must not be empty")
	}
	if c.Scrape.WindowDays < 1 {
		errs = append(errs, "scrape: window_days must be >= 1")
	}
	if c.Scrape.MaxAttempts < 1 {
		errs = append(errs, "scrape: max_attempts must be >= 1")
	}
	if c.Scrape.NavTimeout.Duration <= 0 {
		errs = append(errs, "scrape: nav_timeout must be positive")
	}
	if !validProxySelection[strings.ToLower(c.Scrape.ProxySelection)] {
		errs = append(errs, fmt.Sprintf("scrape: unknown proxy_selection %q (valid: rotate, random)", c.Scrape.ProxySelection))
	}
	if c.Scrape.RateLimit > 0 && !c.Redis.Enabled {
		errs = append(errs, "scrape: rate_limit requires redis.enabled")
	}

	if strings.ToLower(c.Mode) == "pool" && c.Pool.Workers < 1 {
		errs = append(errs, "pool: workers must be >= 1 for pool mode")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Email settings must be set together or all empty.
	eh := c.Notify.SMTPHost != ""
	es := c.Notify.EmailSender != ""
	er := c.Notify.EmailRecipient != ""
	if eh || es || er {
		if !(eh && es && er) {
			errs = append(errs, "notify: smtp_host, email_sender, and email_recipient must all be set together")
		}
		if c.Notify.SMTPPort <= 0 || c.Notify.SMTPPort > 65535 {
			errs = append(errs, fmt.Sprintf("notify: smtp_port must be 1-65535, got %d", c.Notify.SMTPPort))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
