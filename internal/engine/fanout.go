package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// Notification subjects.
const (
	SubjectNewPackage = "NEW PACKAGE"
	SubjectAlarm      = "ALARM"
)

// fanOut sends the message to every recipient in order. A failed send is
// logged and the remaining recipients are still tried. The returned error
// joins all failures.
func fanOut(ctx context.Context, notifier Notifier, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		logger.InfoKV(ctx, "No subscribers to notify", "subject", subject)
		return nil
	}

	var failures []error

	for _, address := range recipients {
		if err := notifier.Send(ctx, address, subject, body); err != nil {
			logger.ErrorKV(ctx, "Notification failed", "address", address, "subject", subject, "error", err)
			failures = append(failures, fmt.Errorf("send to %s: %w", address, err))

			continue
		}

		logger.InfoKV(ctx, "Notification sent", "address", address, "subject", subject)
	}

	return errors.Join(failures...)
}
