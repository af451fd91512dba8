package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/engine"
)

var (
	_ engine.Store = (*Store)(nil)
	_ engine.Tx    = (*unitOfWork)(nil)

	errTestScan = errors.New("test scan error")
)

// fakeRow is a pgx.Row returning a fixed value or error.
type fakeRow struct {
	value *float64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	switch target := dest[0].(type) {
	case **float64:
		*target = r.value
	case *float64:
		*target = *r.value
	}

	return nil
}

func ptr(v float64) *float64 {
	return &v
}

// TestScanThreshold separates a missing row from a configured zero.
func TestScanThreshold(t *testing.T) {
	t.Parallel()

	value, err := scanThreshold(fakeRow{value: ptr(20)})
	require.NoError(t, err)
	require.InDelta(t, 20.0, value, 1e-9)

	value, err = scanThreshold(fakeRow{value: ptr(0)})
	require.NoError(t, err)
	require.Zero(t, value)

	_, err = scanThreshold(fakeRow{err: pgx.ErrNoRows})
	require.ErrorIs(t, err, mailbox.ErrSensorUnknown)

	_, err = scanThreshold(fakeRow{err: errTestScan})
	require.ErrorIs(t, err, errTestScan)
	require.NotErrorIs(t, err, mailbox.ErrSensorUnknown)
}

// TestScanAverage maps NULL to no recent data.
func TestScanAverage(t *testing.T) {
	t.Parallel()

	average, err := scanAverage(fakeRow{value: ptr(500)})
	require.NoError(t, err)
	require.InDelta(t, 500.0, average, 1e-9)

	_, err = scanAverage(fakeRow{value: nil})
	require.ErrorIs(t, err, mailbox.ErrNoRecentData)

	_, err = scanAverage(fakeRow{err: errTestScan})
	require.ErrorIs(t, err, errTestScan)
}

// TestSchema_CoversQueries checks every table the store queries is created idempotently.
func TestSchema_CoversQueries(t *testing.T) {
	t.Parallel()

	for _, statement := range schema {
		require.Contains(t, statement, "IF NOT EXISTS")
	}

	ddl := strings.Join(schema, "\n")
	for _, table := range []string{"weights", "alarms", "upper_threshold", "threshold_sensitivity", "email_notification"} {
		require.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

// TestNothingInserted decides "already initialized" only when both rows existed.
func TestNothingInserted(t *testing.T) {
	t.Parallel()

	inserted := pgconn.NewCommandTag("INSERT 0 1")
	skipped := pgconn.NewCommandTag("INSERT 0 0")

	require.True(t, nothingInserted(skipped, skipped))
	require.False(t, nothingInserted(inserted, skipped))
	require.False(t, nothingInserted(skipped, inserted))
	require.False(t, nothingInserted(inserted, inserted))
}

// TestInitializeStatements_SkipExistingRows keeps a present row and lets the other insert proceed.
func TestInitializeStatements_SkipExistingRows(t *testing.T) {
	t.Parallel()

	for _, statement := range []string{insertUpperThreshold, insertThresholdSensitivity} {
		require.Contains(t, statement, "ON CONFLICT (sensor_id) DO NOTHING")
	}
}
