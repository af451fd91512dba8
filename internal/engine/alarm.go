package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// AlarmHandler escalates every tamper alarm to the subscribers of its sensor.
// It does not need threshold configuration to exist.
type AlarmHandler struct {
	store    Store
	notifier Notifier
	cache    StateCache
	now      func() time.Time
}

// Handle stores the alarm and notifies every subscriber.
func (h *AlarmHandler) Handle(ctx context.Context, sensorID string, payload []byte) error {
	value, err := mailbox.DecodeAlarm(payload)
	if err != nil {
		return err
	}

	sample := mailbox.AlarmSample{
		Timestamp: h.now(),
		SensorID:  sensorID,
		Value:     value,
	}

	if err = h.persist(ctx, sample); err != nil {
		return err
	}

	if cacheErr := h.cache.RecordAlarm(ctx, sample); cacheErr != nil {
		logger.WarnKV(ctx, "Unable to update sensor state cache", "error", cacheErr)
	}

	logger.InfoKV(ctx, "Alarm received", "value", value)

	recipients, err := h.store.Subscribers(ctx, sensorID)
	if err != nil {
		return fmt.Errorf("%w: subscribers: %w", mailbox.ErrStore, err)
	}

	//nolint:errcheck // Every failed recipient is already logged by fanOut.
	_ = fanOut(ctx, h.notifier, recipients, SubjectAlarm, "Alarm detected with value "+value)

	return nil
}

// persist appends the alarm in its own unit of work.
func (h *AlarmHandler) persist(ctx context.Context, sample mailbox.AlarmSample) error {
	tx, err := h.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", mailbox.ErrStore, err)
	}

	defer func() {
		//nolint:errcheck // Rollback after Commit is a no-op.
		_ = tx.Rollback(ctx)
	}()

	if err = tx.AppendAlarm(ctx, sample); err != nil {
		return fmt.Errorf("%w: append alarm: %w", mailbox.ErrStore, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", mailbox.ErrStore, err)
	}

	return nil
}
