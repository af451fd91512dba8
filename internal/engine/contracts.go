package engine

import (
	"context"
	"time"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

// Store opens units of work over the telemetry and threshold data.
type Store interface {
	// Begin starts a unit of work scoped to a single event.
	Begin(ctx context.Context) (Tx, error)
	// Subscribers returns the notification addresses registered for a sensor.
	Subscribers(ctx context.Context, sensorID string) ([]string, error)
	// InitializeSensor creates whichever threshold rows of a sensor are missing.
	// It returns mailbox.ErrSensorAlreadyInitialized if both rows already exist.
	InitializeSensor(ctx context.Context, sensorID string, defaults mailbox.Thresholds) error
}

// Tx is a unit of work. Rollback after Commit is a no-op.
type Tx interface {
	AppendWeight(ctx context.Context, sample mailbox.WeightSample) error
	AppendAlarm(ctx context.Context, sample mailbox.AlarmSample) error
	// AverageWeight returns the mean weight in [from, to], or mailbox.ErrNoRecentData.
	AverageWeight(ctx context.Context, sensorID string, from, to time.Time) (float64, error)
	// UpperThreshold returns the configured offset, or mailbox.ErrSensorUnknown.
	UpperThreshold(ctx context.Context, sensorID string) (float64, error)
	// ThresholdSensitivity returns the configured sensitivity, or mailbox.ErrSensorUnknown.
	ThresholdSensitivity(ctx context.Context, sensorID string) (float64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Notifier delivers a message to a single recipient.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// Publisher sends commands to the mailbox actuator.
type Publisher interface {
	Arm(ctx context.Context, sensorID string, threshold float64) error
	Disarm(ctx context.Context, sensorID string) error
}

// StateCache keeps the latest readings of each sensor for dashboards.
// Failures are logged and never affect event processing.
type StateCache interface {
	RecordWeight(ctx context.Context, sample mailbox.WeightSample) error
	RecordAlarm(ctx context.Context, sample mailbox.AlarmSample) error
}

// Handler processes the payload of one event type for a sensor.
type Handler interface {
	Handle(ctx context.Context, sensorID string, payload []byte) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, sensorID string, payload []byte) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, sensorID string, payload []byte) error {
	return f(ctx, sensorID, payload)
}

// noopCache is used when no StateCache is configured.
type noopCache struct{}

func (noopCache) RecordWeight(context.Context, mailbox.WeightSample) error { return nil }

func (noopCache) RecordAlarm(context.Context, mailbox.AlarmSample) error { return nil }
