package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// Email delivery retry policy, matching the scrape retry cadence.
const (
	emailMaxAttempts = 3
	emailRetryDelay  = 60 * time.Second
)

// EmailSender delivers notifications over SMTP. Delivery is retried with a
// fixed delay; transient relay failures are common enough on long scrape runs
// that a single attempt would drop most end-of-run reports.
type EmailSender struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	recipient string
	delay     time.Duration
	logger    *slog.Logger
}

// NewEmailSender creates an EmailSender for the given SMTP relay.
func NewEmailSender(host string, port int, username, password, from, recipient string, logger *slog.Logger) *EmailSender {
	return &EmailSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		from:      from,
		recipient: recipient,
		delay:     emailRetryDelay,
		logger:    logger.With(slog.String("component", "email")),
	}
}

// Send delivers the notification as a plain-text email with title as the
// subject. It retries up to emailMaxAttempts times, pausing between attempts,
// and returns the last error when all attempts fail.
func (e *EmailSender) Send(ctx context.Context, title, message string) error {
	var lastErr error
	for attempt := 1; attempt <= emailMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("email: %w", err)
		}

		if lastErr = e.deliver(title, message); lastErr == nil {
			return nil
		}

		e.logger.Warn("email delivery failed",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt < emailMaxAttempts {
			timer := time.NewTimer(e.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("email: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}
	return fmt.Errorf("email: %d attempts failed: %w", emailMaxAttempts, lastErr)
}

func (e *EmailSender) deliver(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	msg := strings.Join([]string{
		"From: " + e.from,
		"To: " + e.recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, e.from, []string{e.recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("send via %s: %w", addr, err)
	}
	return nil
}

// Name returns the sender identifier.
func (e *EmailSender) Name() string {
	return "email"
}
