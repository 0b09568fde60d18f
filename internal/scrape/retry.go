package scrape

import (
	"context"
	"log/slog"
	"time"
)

// SleepFunc waits for d or returns early with ctx's error. Tests inject a
// recording implementation so retry timing is verified without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RealSleep is the production SleepFunc.
func RealSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Controller wraps a unit of work with bounded retries and a fixed delay.
// Each attempt runs against a fresh session (the unit acquires its own);
// after MaxAttempts the fallback value is returned rather than an error, so
// retry exhaustion degrades to default data instead of failing the batch.
type Controller struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       SleepFunc
	Logger      *slog.Logger
}

// NewController creates a Controller with the production sleep.
func NewController(maxAttempts int, delay time.Duration, logger *slog.Logger) *Controller {
	return &Controller{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Sleep:       RealSleep,
		Logger:      logger.With(slog.String("component", "retry")),
	}
}

// attempt states of one retry run.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateSucceeded
	stateRetryable
	stateExhausted
)

// Run drives unit through the retry state machine. An attempt succeeds when
// unit returns no error and acceptable approves the value; otherwise the
// attempt is retryable and the controller sleeps before the next one. On
// exhaustion Run returns (fallback, false). Run never returns an error from
// the unit itself; only context cancellation during a sleep aborts early,
// also yielding the fallback.
func Run[T any](ctx context.Context, c *Controller, name string, unit func(context.Context) (T, error), acceptable func(T) bool, fallback T) (T, bool) {
	state := stateAttempting
	var value T

	for attempt := 1; state == stateAttempting; attempt++ {
		v, err := unit(ctx)
		switch {
		case err == nil && acceptable(v):
			value = v
			state = stateSucceeded
		case attempt >= c.MaxAttempts:
			state = stateExhausted
		default:
			state = stateRetryable
		}

		if err != nil {
			c.Logger.Warn("scrape attempt failed",
				slog.String("unit", name),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		} else if state == stateRetryable || state == stateExhausted {
			c.Logger.Warn("scrape attempt unacceptable",
				slog.String("unit", name),
				slog.Int("attempt", attempt),
			)
		}

		if state == stateRetryable {
			c.Logger.Info("retrying after delay",
				slog.String("unit", name),
				slog.Int("attempt", attempt),
				slog.Duration("delay", c.Delay),
			)
			if sleepErr := c.Sleep(ctx, c.Delay); sleepErr != nil {
				state = stateExhausted
				break
			}
			state = stateAttempting
		}
	}

	if state == stateSucceeded {
		return value, true
	}

	c.Logger.Warn("retries exhausted, using defaults", slog.String("unit", name))
	return fallback, false
}
