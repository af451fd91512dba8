package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// WeightHandler detects newly delivered packages from weight samples.
type WeightHandler struct {
	store       Store
	notifier    Notifier
	publisher   Publisher
	cache       StateCache
	initializer *Initializer
	window      time.Duration
	now         func() time.Time
}

// Handle stores the sample, compares it with the rolling average and, when a
// package is detected, notifies subscribers and arms the actuator.
func (h *WeightHandler) Handle(ctx context.Context, sensorID string, payload []byte) error {
	weight, err := mailbox.DecodeWeight(payload)
	if err != nil {
		return err
	}

	decision, err := h.evaluate(ctx, sensorID, weight)
	if err != nil {
		if !errors.Is(err, mailbox.ErrSensorUnknown) {
			return err
		}

		if initErr := h.initializer.Initialize(ctx, sensorID); initErr != nil {
			return errors.Join(err, initErr)
		}

		return err
	}

	if !decision.PackageDetected {
		logger.DebugKV(ctx, "No package detected",
			"weight", decision.Weight,
			"package_threshold", decision.PackageThreshold)

		return nil
	}

	logger.InfoKV(ctx, "Package detected",
		"weight", decision.Weight,
		"average_weight", decision.AverageWeight,
		"package_weight", decision.PackageWeight,
		"arm_threshold", decision.ArmThreshold)

	recipients, err := h.store.Subscribers(ctx, sensorID)
	if err != nil {
		// Arming does not depend on who gets notified.
		logger.ErrorKV(ctx, "Unable to load subscribers", "error", err)
	} else {
		body := "New package detected with weight " + formatWeight(decision.PackageWeight)
		//nolint:errcheck // Every failed recipient is already logged by fanOut.
		_ = fanOut(ctx, h.notifier, recipients, SubjectNewPackage, body)
	}

	if err = h.publisher.Arm(ctx, sensorID, decision.ArmThreshold); err != nil {
		return fmt.Errorf("%w: publish arm command: %w", mailbox.ErrDispatch, err)
	}

	logger.InfoKV(ctx, "Arm command published", "arm_threshold", decision.ArmThreshold)

	return nil
}

// evaluate runs the store part of the procedure in one unit of work: append the
// sample, read thresholds and the rolling average, then commit. The sample is
// committed even when the sensor has no thresholds or the window is empty.
func (h *WeightHandler) evaluate(ctx context.Context, sensorID string, weight float64) (mailbox.Decision, error) {
	tx, err := h.store.Begin(ctx)
	if err != nil {
		return mailbox.Decision{}, fmt.Errorf("%w: begin: %w", mailbox.ErrStore, err)
	}

	defer func() {
		//nolint:errcheck // Rollback after Commit is a no-op.
		_ = tx.Rollback(ctx)
	}()

	now := h.now()
	sample := mailbox.WeightSample{
		Timestamp: now,
		SensorID:  sensorID,
		Value:     weight,
	}

	if err = tx.AppendWeight(ctx, sample); err != nil {
		return mailbox.Decision{}, fmt.Errorf("%w: append weight: %w", mailbox.ErrStore, err)
	}

	thresholds, evalErr := readThresholds(ctx, tx, sensorID)

	var average float64
	if evalErr == nil {
		average, evalErr = tx.AverageWeight(ctx, sensorID, now.Add(-h.window), now)
	}

	if evalErr != nil && !keepsSample(evalErr) {
		return mailbox.Decision{}, fmt.Errorf("%w: %w", mailbox.ErrStore, evalErr)
	}

	if err = tx.Commit(ctx); err != nil {
		return mailbox.Decision{}, fmt.Errorf("%w: commit: %w", mailbox.ErrStore, err)
	}

	if cacheErr := h.cache.RecordWeight(ctx, sample); cacheErr != nil {
		logger.WarnKV(ctx, "Unable to update sensor state cache", "error", cacheErr)
	}

	if evalErr != nil {
		return mailbox.Decision{}, evalErr
	}

	return mailbox.Evaluate(weight, average, thresholds), nil
}

// readThresholds loads both threshold values; either one missing means the sensor is unknown.
func readThresholds(ctx context.Context, tx Tx, sensorID string) (mailbox.Thresholds, error) {
	sensitivity, err := tx.ThresholdSensitivity(ctx, sensorID)
	if err != nil {
		return mailbox.Thresholds{}, fmt.Errorf("threshold sensitivity: %w", err)
	}

	upper, err := tx.UpperThreshold(ctx, sensorID)
	if err != nil {
		return mailbox.Thresholds{}, fmt.Errorf("upper threshold: %w", err)
	}

	return mailbox.Thresholds{
		UpperThreshold: upper,
		Sensitivity:    sensitivity,
	}, nil
}

// keepsSample reports whether the unit of work is still committed after err.
func keepsSample(err error) bool {
	return errors.Is(err, mailbox.ErrSensorUnknown) || errors.Is(err, mailbox.ErrNoRecentData)
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
