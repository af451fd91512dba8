package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// Initializer provisions default thresholds for sensors seen for the first time.
type Initializer struct {
	store    Store
	defaults mailbox.Thresholds
}

// NewInitializer creates an Initializer writing defaults through store.
func NewInitializer(store Store, defaults mailbox.Thresholds) *Initializer {
	return &Initializer{
		store:    store,
		defaults: defaults,
	}
}

// Initialize creates the threshold rows for sensorID. A sensor that was
// initialized concurrently by someone else counts as success.
func (i *Initializer) Initialize(ctx context.Context, sensorID string) error {
	err := i.store.InitializeSensor(ctx, sensorID, i.defaults)
	switch {
	case err == nil:
		logger.InfoKV(ctx, "Sensor initialized",
			"upper_threshold", i.defaults.UpperThreshold,
			"threshold_sensitivity", i.defaults.Sensitivity)

		return nil
	case errors.Is(err, mailbox.ErrSensorAlreadyInitialized):
		logger.InfoKV(ctx, "Sensor already initialized")

		return nil
	default:
		return fmt.Errorf("%w: initialize sensor: %w", mailbox.ErrStore, err)
	}
}
