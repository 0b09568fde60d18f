package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SOLDSCOUT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SOLDSCOUT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Dataset ──
	setStr(&cfg.Dataset.InputPath, "SOLDSCOUT_DATASET_INPUT_PATH")
	setStr(&cfg.Dataset.OutputPath, "SOLDSCOUT_DATASET_OUTPUT_PATH")
	setStr(&cfg.Dataset.ProxyPath, "SOLDSCOUT_DATASET_PROXY_PATH")

	// ── Scrape ──
	setStr(&cfg.Scrape.APIPath, "SOLDSCOUT_SCRAPE_API_PATH")
	setInt(&cfg.Scrape.WindowDays, "SOLDSCOUT_SCRAPE_WINDOW_DAYS")
	setInt(&cfg.Scrape.MaxAttempts, "SOLDSCOUT_SCRAPE_MAX_ATTEMPTS")
	setDuration(&cfg.Scrape.RetryDelay, "SOLDSCOUT_SCRAPE_RETRY_DELAY")
	setDuration(&cfg.Scrape.NavTimeout, "SOLDSCOUT_SCRAPE_NAV_TIMEOUT")
	setBool(&cfg.Scrape.ProxyActive, "SOLDSCOUT_SCRAPE_PROXY_ACTIVE")
	setBool(&cfg.Scrape.ProxyActive, "IS_PROXY_ACTIVE") // compatibility alias
	setStr(&cfg.Scrape.ProxySelection, "SOLDSCOUT_SCRAPE_PROXY_SELECTION")
	setInt(&cfg.Scrape.RateLimit, "SOLDSCOUT_SCRAPE_RATE_LIMIT")
	setDuration(&cfg.Scrape.RateWindow, "SOLDSCOUT_SCRAPE_RATE_WINDOW")

	// ── Browser ──
	setBool(&cfg.Browser.Headless, "SOLDSCOUT_BROWSER_HEADLESS")
	setStr(&cfg.Browser.Bin, "SOLDSCOUT_BROWSER_BIN")
	setStringSlice(&cfg.Browser.UserAgents, "SOLDSCOUT_BROWSER_USER_AGENTS")

	// ── Pool ──
	setInt(&cfg.Pool.Workers, "SOLDSCOUT_POOL_WORKERS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SOLDSCOUT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SOLDSCOUT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SOLDSCOUT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SOLDSCOUT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SOLDSCOUT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SOLDSCOUT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SOLDSCOUT_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SOLDSCOUT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SOLDSCOUT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SOLDSCOUT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SOLDSCOUT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SOLDSCOUT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SOLDSCOUT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SOLDSCOUT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SOLDSCOUT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SOLDSCOUT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SOLDSCOUT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SOLDSCOUT_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SOLDSCOUT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SOLDSCOUT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SOLDSCOUT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SOLDSCOUT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SOLDSCOUT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SOLDSCOUT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SOLDSCOUT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SOLDSCOUT_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.SMTPHost, "SOLDSCOUT_NOTIFY_SMTP_HOST")
	setStr(&cfg.Notify.SMTPHost, "SMTP_HOST") // compatibility alias
	setInt(&cfg.Notify.SMTPPort, "SOLDSCOUT_NOTIFY_SMTP_PORT")
	setInt(&cfg.Notify.SMTPPort, "SMTP_PORT") // compatibility alias
	setStr(&cfg.Notify.SMTPUser, "SOLDSCOUT_NOTIFY_SMTP_USER")
	setStr(&cfg.Notify.SMTPPassword, "SOLDSCOUT_NOTIFY_SMTP_PASSWORD")
	setStr(&cfg.Notify.EmailSender, "SOLDSCOUT_NOTIFY_EMAIL_SENDER")
	setStr(&cfg.Notify.EmailRecipient, "SOLDSCOUT_NOTIFY_EMAIL_RECIPIENT")
	setStr(&cfg.Notify.TelegramToken, "SOLDSCOUT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SOLDSCOUT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SOLDSCOUT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SOLDSCOUT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SOLDSCOUT_MODE")
	setStr(&cfg.LogLevel, "SOLDSCOUT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
