// Package browser implements the domain session interfaces on top of go-rod.
// Each session is an isolated headless browser process with a stealth page, a
// randomized mobile user agent, and an optional authenticated proxy binding.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// defaultUserAgents is used when the config provides none. Mobile agents
// match the mobile-like viewport.
var defaultUserAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
}

// Config holds automation engine parameters.
type Config struct {
	Headless   bool
	Bin        string
	UserAgents []string
}

// Provider launches one browser per Acquire call. Sessions are never shared;
// the caller owns the returned session and must Close it exactly once.
type Provider struct {
	cfg    Config
	logger *slog.Logger
}

// NewProvider creates a Provider.
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "browser")),
	}
}

// Acquire starts a fresh browser bound to the optional proxy and returns a
// session wrapping a single stealth page. Launch failures surface as
// domain.ErrSessionStart; they are not retried here.
func (p *Provider) Acquire(ctx context.Context, proxy *domain.Proxy) (domain.Session, error) {
	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-webgl").
		Set("disable-webrtc").
		Set("disable-dev-shm-usage").
		Set("window-size", "375,667")

	if p.cfg.Bin != "" {
		l = l.Bin(p.cfg.Bin)
	}
	if proxy != nil && proxy.URL != "" {
		l = l.Proxy(proxy.URL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w: %v", domain.ErrSessionStart, err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w: %v", domain.ErrSessionStart, err)
	}

	// Credential handshake before any navigation.
	if proxy != nil && proxy.Username != "" {
		authHandler := b.HandleAuth(proxy.Username, proxy.Password)
		go func() {
			if authErr := authHandler(); authErr != nil {
				p.logger.Debug("proxy auth handler exited",
					slog.String("error", authErr.Error()),
				)
			}
		}()
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("browser: stealth page: %w: %v", domain.ErrSessionStart, err)
	}

	ua := p.pickUserAgent()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		p.logger.Warn("set user agent failed", slog.String("error", err.Error()))
	}

	return &session{
		launcher: l,
		browser:  b,
		page:     page,
		logger:   p.logger,
	}, nil
}

func (p *Provider) pickUserAgent() string {
	pool := p.cfg.UserAgents
	if len(pool) == 0 {
		pool = defaultUserAgents
	}
	return pool[rand.Intn(len(pool))]
}

// Compile-time interface check.
var _ domain.SessionProvider = (*Provider)(nil)
