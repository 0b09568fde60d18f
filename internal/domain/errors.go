package domain

import "errors"

var (
	// ErrInvalidSourceURL marks a permanent row skip: the source URL does not
	// match the expected marketplace search path. Never retried.
	ErrInvalidSourceURL = errors.New("source url does not match search pattern")
	// ErrSessionStart is returned when the automation engine cannot start.
	ErrSessionStart = errors.New("session start failed")
	// ErrRowCountMismatch is the fatal run-end invariant failure: output row
	// cardinality differs from input.
	ErrRowCountMismatch = errors.New("output row count does not match input")
	// ErrNoInput is returned when the input dataset is missing or empty.
	ErrNoInput = errors.New("input dataset missing or empty")
	// ErrNoProxies is returned when proxy use is enabled but the pool is empty.
	ErrNoProxies = errors.New("proxy pool is empty")
	// ErrRateLimited is returned by the rate limiter when a request is denied.
	ErrRateLimited = errors.New("rate limited")
	// ErrContextDone is returned when work is abandoned due to cancellation.
	ErrContextDone = errors.New("context cancelled")
)
