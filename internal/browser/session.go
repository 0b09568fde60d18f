package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// requestIdleWindow is how long the network must stay quiet after load before
// a navigation is considered settled.
const requestIdleWindow = 2 * time.Second

// session wraps one browser process and its single page. Navigate may be
// called repeatedly; handlers registered via OnResponse persist across
// navigations. Close tears the whole process down.
type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *slog.Logger

	mu       sync.Mutex
	handlers []func(domain.CapturedResponse)
	closed   bool
}

// OnResponse registers a handler invoked for every network response captured
// while a navigation is in flight. Handlers run on the event loop goroutine
// and must not block.
func (s *session) OnResponse(fn func(domain.CapturedResponse)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Navigate drives the page to url, waits for the document load event and a
// quiet network, and dispatches every response body observed along the way.
// The whole sequence is bounded by timeout. All handler dispatch happens on a
// capture goroutine that is joined before Navigate returns.
func (s *session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)

	// EachEvent returns a wait function: callbacks fire only while it runs,
	// and with a void callback it returns only once its page context closes.
	// It gets its own context so the subscription can be ended independently
	// of the navigation deadline.
	evCtx, cancelCapture := context.WithCancel(ctx)
	evPage := s.page.Context(evCtx)
	stop := startCapture(evPage.EachEvent(func(e *proto.NetworkResponseReceived) {
		s.capture(evPage, e)
	}), cancelCapture)
	defer stop()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate: %w", wrapDeadline(ctx, err))
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load: %w", wrapDeadline(ctx, err))
	}

	// Let late XHR responses land before the accumulator is read.
	wait := page.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("browser: wait idle: %w", ctx.Err())
	case <-time.After(timeout):
		s.logger.Debug("request idle wait hit timeout", slog.String("url", url))
	}

	return nil
}

// startCapture drives the event drain on its own goroutine. The returned stop
// function cancels the subscription and blocks until the drain has returned,
// so no callback runs past stop.
func startCapture(wait func(), cancel context.CancelFunc) (stop func()) {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		wait()
	}()
	return func() {
		cancel()
		<-drained
	}
}

// capture fetches the body for one received response and fans it out to the
// registered handlers. Bodies that cannot be fetched (redirects, evicted
// buffers) are skipped silently.
func (s *session) capture(page *rod.Page, e *proto.NetworkResponseReceived) {
	body, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(page)
	if err != nil {
		return
	}

	raw := []byte(body.Body)
	if body.Base64Encoded {
		decoded, decErr := base64.StdEncoding.DecodeString(body.Body)
		if decErr != nil {
			s.logger.Debug("undecodable response body",
				slog.String("url", e.Response.URL),
				slog.String("error", decErr.Error()),
			)
			return
		}
		raw = decoded
	}

	resp := domain.CapturedResponse{URL: e.Response.URL, Body: raw}

	s.mu.Lock()
	handlers := make([]func(domain.CapturedResponse), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(resp)
	}
}

// Close shuts the browser down and reaps the launched process. Safe to call
// once only from the owning goroutine.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.browser.Close()
	s.launcher.Cleanup()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("browser: close: %w", err)
	}
	return nil
}

// wrapDeadline maps context expiry observed during a page operation onto the
// context error so callers can distinguish timeouts from protocol failures.
func wrapDeadline(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

var _ domain.Session = (*session)(nil)
