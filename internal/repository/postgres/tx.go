package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

const (
	insertWeight = `INSERT INTO weights (timestamp, sensor_id, value) VALUES ($1, $2, $3)`
	insertAlarm  = `INSERT INTO alarms (timestamp, sensor_id, value) VALUES ($1, $2, $3)`

	queryAverageWeight = `
		SELECT avg(value)
		FROM weights
		WHERE sensor_id = $1
		  AND timestamp >= $2
		  AND timestamp <= $3`

	queryUpperThreshold       = `SELECT value FROM upper_threshold WHERE sensor_id = $1`
	queryThresholdSensitivity = `SELECT value FROM threshold_sensitivity WHERE sensor_id = $1`
)

// unitOfWork wraps a pgx transaction. The rolling average is read inside the
// same transaction as the append, so it always includes the new sample.
type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) AppendWeight(ctx context.Context, sample mailbox.WeightSample) error {
	if _, err := u.tx.Exec(ctx, insertWeight, sample.Timestamp, sample.SensorID, sample.Value); err != nil {
		return fmt.Errorf("insert weight: %w", err)
	}

	return nil
}

func (u *unitOfWork) AppendAlarm(ctx context.Context, sample mailbox.AlarmSample) error {
	if _, err := u.tx.Exec(ctx, insertAlarm, sample.Timestamp, sample.SensorID, sample.Value); err != nil {
		return fmt.Errorf("insert alarm: %w", err)
	}

	return nil
}

func (u *unitOfWork) AverageWeight(ctx context.Context, sensorID string, from, to time.Time) (float64, error) {
	return scanAverage(u.tx.QueryRow(ctx, queryAverageWeight, sensorID, from, to))
}

func (u *unitOfWork) UpperThreshold(ctx context.Context, sensorID string) (float64, error) {
	return scanThreshold(u.tx.QueryRow(ctx, queryUpperThreshold, sensorID))
}

func (u *unitOfWork) ThresholdSensitivity(ctx context.Context, sensorID string) (float64, error) {
	return scanThreshold(u.tx.QueryRow(ctx, queryThresholdSensitivity, sensorID))
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Rollback ignores pgx.ErrTxClosed so it can be deferred after Commit.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return fmt.Errorf("rollback: %w", err)
}

// scanAverage maps a NULL average (no rows in the window) to mailbox.ErrNoRecentData.
func scanAverage(row pgx.Row) (float64, error) {
	var average *float64
	if err := row.Scan(&average); err != nil {
		return 0, fmt.Errorf("average weight: %w", err)
	}

	if average == nil {
		return 0, mailbox.ErrNoRecentData
	}

	return *average, nil
}

// scanThreshold maps a missing row to mailbox.ErrSensorUnknown.
// A row holding zero is a configured value, not a missing one.
func scanThreshold(row pgx.Row) (float64, error) {
	var value float64

	err := row.Scan(&value)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, mailbox.ErrSensorUnknown
	default:
		return 0, fmt.Errorf("threshold: %w", err)
	}
}
