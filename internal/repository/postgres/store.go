package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/engine"
)

const (
	querySubscribers = `SELECT email_address FROM email_notification WHERE sensor_id = $1 ORDER BY email_address`

	insertUpperThreshold = `INSERT INTO upper_threshold (sensor_id, value) VALUES ($1, $2)
		ON CONFLICT (sensor_id) DO NOTHING`

	insertThresholdSensitivity = `INSERT INTO threshold_sensitivity (sensor_id, value) VALUES ($1, $2)
		ON CONFLICT (sensor_id) DO NOTHING`
)

// Store is the pgx-backed engine.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at url and verifies the connection.
func New(ctx context.Context, url string, maxConns int32) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Begin starts a transaction that serves as the unit of work for one event.
//
//nolint:ireturn // The engine depends on the Tx abstraction.
func (s *Store) Begin(ctx context.Context) (engine.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &unitOfWork{tx: tx}, nil
}

// Subscribers returns the addresses registered for sensorID.
func (s *Store) Subscribers(ctx context.Context, sensorID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, querySubscribers, sensorID)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}

	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect subscribers: %w", err)
	}

	return addresses, nil
}

// InitializeSensor inserts whichever threshold rows are missing, in one
// transaction. Existing rows keep their values. It returns
// mailbox.ErrSensorAlreadyInitialized only when both rows were already there.
func (s *Store) InitializeSensor(ctx context.Context, sensorID string, defaults mailbox.Thresholds) error {
	var upper, sensitivity pgconn.CommandTag

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error

		if upper, err = tx.Exec(ctx, insertUpperThreshold, sensorID, defaults.UpperThreshold); err != nil {
			return fmt.Errorf("insert upper threshold: %w", err)
		}

		if sensitivity, err = tx.Exec(ctx, insertThresholdSensitivity, sensorID, defaults.Sensitivity); err != nil {
			return fmt.Errorf("insert threshold sensitivity: %w", err)
		}

		return nil
	})

	switch {
	case err != nil:
		return err
	case nothingInserted(upper, sensitivity):
		return mailbox.ErrSensorAlreadyInitialized
	default:
		return nil
	}
}

// nothingInserted reports whether every insert hit an existing row.
func nothingInserted(tags ...pgconn.CommandTag) bool {
	for _, tag := range tags {
		if tag.RowsAffected() > 0 {
			return false
		}
	}

	return true
}
