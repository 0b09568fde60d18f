package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// UnitConfig holds the parameters shared by every scrape unit in a run.
type UnitConfig struct {
	APIPath     string
	NavTimeout  time.Duration
	WindowStart time.Time
	// RateLimit/RateWindow gate navigations when a limiter is wired.
	RateLimit  int
	RateWindow time.Duration
}

// Unit executes one navigate-extract-aggregate attempt against a target URL.
// Every attempt acquires a fresh session and closes it unconditionally;
// state from a failed navigation is never reused.
type Unit struct {
	provider  domain.SessionProvider
	limiter   domain.RateLimiter // nil when rate limiting is disabled
	extractor *Extractor
	cfg       UnitConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewUnit creates a Unit. limiter may be nil.
func NewUnit(provider domain.SessionProvider, limiter domain.RateLimiter, cfg UnitConfig, logger *slog.Logger) *Unit {
	return &Unit{
		provider:  provider,
		limiter:   limiter,
		extractor: NewExtractor(cfg.APIPath, logger),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scrape_unit")),
		now:       time.Now,
	}
}

// Attempt navigates to target through a fresh session bound to proxy and
// returns everything aggregated from relevant responses captured during the
// navigation. The session is closed before Attempt returns, on success and
// failure alike.
func (u *Unit) Attempt(ctx context.Context, target string, proxy *domain.Proxy) (domain.AggregateResult, error) {
	if u.limiter != nil && u.cfg.RateLimit > 0 {
		if err := u.limiter.Wait(ctx, rateKey(target), u.cfg.RateLimit, u.cfg.RateWindow); err != nil {
			return domain.AggregateResult{}, fmt.Errorf("scrape: rate limit: %w", err)
		}
	}

	session, err := u.provider.Acquire(ctx, proxy)
	if err != nil {
		return domain.AggregateResult{}, fmt.Errorf("scrape: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			u.logger.Warn("session close failed", slog.String("error", closeErr.Error()))
		}
	}()

	acc := NewAccumulator(u.cfg.WindowStart, u.now())
	session.OnResponse(func(resp domain.CapturedResponse) {
		if !u.extractor.IsRelevant(resp.URL) {
			return
		}
		acc.Add(u.extractor.Extract(resp.Body))
	})

	if err := session.Navigate(ctx, target, u.cfg.NavTimeout); err != nil {
		return domain.AggregateResult{}, fmt.Errorf("scrape: navigate %s: %w", target, err)
	}

	return acc.Result(), nil
}

// ConditionAcceptable is the acceptability heuristic for the recency/search-
// condition query: a keyword, an exclusion keyword, and a max price must all
// have been observed.
func ConditionAcceptable(r domain.AggregateResult) bool {
	return r.Condition.Keyword != "" && r.Condition.ExcludeKeyword != "" && r.Condition.PriceMax > 0
}

// ListingAcceptable is the acceptability heuristic for the original query: at
// least one matched item and one price sample.
func ListingAcceptable(r domain.AggregateResult) bool {
	return r.MatchedCount > 0 && len(r.Prices) > 0
}

// rateKey buckets rate limiting by target host so all navigations against the
// marketplace share one window.
func rateKey(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "nav"
	}
	return "nav:" + u.Host
}
