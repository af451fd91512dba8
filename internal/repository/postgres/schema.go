package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schema creates the tables the store reads and writes. Every statement is
// idempotent, so it is safe against an already provisioned database.
//
//nolint:gochecknoglobals // Read-only statement list.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS weights (
		timestamp TIMESTAMPTZ      NOT NULL,
		sensor_id TEXT             NOT NULL,
		value     DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS weights_sensor_timestamp_idx ON weights (sensor_id, timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS alarms (
		timestamp TIMESTAMPTZ NOT NULL,
		sensor_id TEXT        NOT NULL,
		value     TEXT        NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS upper_threshold (
		sensor_id TEXT PRIMARY KEY,
		value     DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS threshold_sensitivity (
		sensor_id TEXT PRIMARY KEY,
		value     DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS email_notification (
		sensor_id     TEXT NOT NULL,
		email_address TEXT NOT NULL,
		PRIMARY KEY (sensor_id, email_address)
	)`,
}

// EnsureSchema creates missing tables and indexes in one transaction.
func (s *Store) EnsureSchema(ctx context.Context) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, statement := range schema {
			if _, err := tx.Exec(ctx, statement); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return nil
}
