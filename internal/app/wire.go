package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/soldscout/internal/blob/s3"
	"github.com/alanyoungcy/soldscout/internal/browser"
	"github.com/alanyoungcy/soldscout/internal/cache/redis"
	"github.com/alanyoungcy/soldscout/internal/config"
	"github.com/alanyoungcy/soldscout/internal/domain"
	"github.com/alanyoungcy/soldscout/internal/notify"
	"github.com/alanyoungcy/soldscout/internal/proxy"
	"github.com/alanyoungcy/soldscout/internal/scrape"
	"github.com/alanyoungcy/soldscout/internal/store/postgres"
)

// Dependencies bundles every dependency the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function. RunStore and Archiver are nil when their backends are disabled.
type Dependencies struct {
	Proxies *proxy.Pool
	Unit    *scrape.Unit
	Retry   *scrape.Controller

	RunStore domain.RunStore
	Archiver domain.Archiver
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Proxies ---
	if cfg.Scrape.ProxyActive {
		pool, err := proxy.Load(cfg.Dataset.ProxyPath, cfg.Scrape.ProxySelection)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: proxies: %w", err)
		}
		logger.Info("proxy pool loaded",
			slog.Int("proxies", pool.Size()),
			slog.String("selection", cfg.Scrape.ProxySelection),
		)
		deps.Proxies = pool
	} else {
		deps.Proxies = proxy.Disabled()
	}

	// --- Redis rate limiter (optional) ---
	var limiter domain.RateLimiter
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		limiter = redis.NewRateLimiter(redisClient)
	}

	// --- Browser session provider and scrape unit ---
	provider := browser.NewProvider(browser.Config{
		Headless:   cfg.Browser.Headless,
		Bin:        cfg.Browser.Bin,
		UserAgents: cfg.Browser.UserAgents,
	}, logger)

	windowStart := time.Now().UTC().AddDate(0, 0, -cfg.Scrape.WindowDays)
	deps.Unit = scrape.NewUnit(provider, limiter, scrape.UnitConfig{
		APIPath:     cfg.Scrape.APIPath,
		NavTimeout:  cfg.Scrape.NavTimeout.Duration,
		WindowStart: windowStart,
		RateLimit:   cfg.Scrape.RateLimit,
		RateWindow:  cfg.Scrape.RateWindow.Duration,
	}, logger)

	deps.Retry = scrape.NewController(cfg.Scrape.MaxAttempts, cfg.Scrape.RetryDelay.Duration, logger)

	// --- PostgreSQL run store (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.RunStore = postgres.NewRunStore(pgClient)
	}

	// --- S3 archiver (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.SMTPHost != "" && cfg.Notify.EmailSender != "" && cfg.Notify.EmailRecipient != "" {
		senders = append(senders, notify.NewEmailSender(
			cfg.Notify.SMTPHost,
			cfg.Notify.SMTPPort,
			cfg.Notify.SMTPUser,
			cfg.Notify.SMTPPassword,
			cfg.Notify.EmailSender,
			cfg.Notify.EmailRecipient,
			logger,
		))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
