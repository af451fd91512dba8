package notify

import (
	"context"

	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// LogNotifier logs notifications instead of sending them.
type LogNotifier struct{}

// Send writes the notification to the log.
func (LogNotifier) Send(ctx context.Context, address, subject, body string) error {
	logger.InfoKV(ctx, "Notification (log only)", "address", address, "subject", subject, "body", body)

	return nil
}
