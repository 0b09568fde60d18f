package domain

import (
	"context"
	"time"
)

// CapturedResponse is one raw network response observed by a session. The
// session does not parse bodies; relevance and decoding are the extractor's
// concern.
type CapturedResponse struct {
	URL  string
	Body []byte
}

// Session is one isolated automation context: its own cookies and cache, an
// optional proxy binding, and an attached response listener. A session is
// created before a navigation attempt and destroyed unconditionally after,
// never shared across retries.
type Session interface {
	// Navigate loads the URL and blocks until the page settles or the
	// timeout elapses.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// OnResponse registers a handler invoked for every network response the
	// page produces. Must be called before Navigate.
	OnResponse(handler func(CapturedResponse))
	// Close tears the session down. Safe to call exactly once.
	Close() error
}

// SessionProvider opens sessions bound to an optional proxy. Acquire failures
// surface as fatal: the provider is not retried at this layer.
type SessionProvider interface {
	Acquire(ctx context.Context, proxy *Proxy) (Session, error)
}
