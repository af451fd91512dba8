package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

// Hash fields written per sensor.
const (
	FieldLastWeight   = "last_weight"
	FieldLastWeightAt = "last_weight_at"
	FieldLastAlarm    = "last_alarm"
	FieldLastAlarmAt  = "last_alarm_at"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL is how long a sensor's hash lives after its last update.
	TTL time.Duration
}

// StateCache writes the latest sensor readings to Redis hashes.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateCache connects to Redis and verifies the connection.
func NewStateCache(ctx context.Context, opts Options) (*StateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewStateCacheWithClient(client, opts.TTL), nil
}

// NewStateCacheWithClient wraps an existing client.
func NewStateCacheWithClient(client *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{
		client: client,
		ttl:    ttl,
	}
}

// Close closes the underlying client.
func (c *StateCache) Close() error {
	return c.client.Close()
}

// RecordWeight stores the latest weight of a sensor.
func (c *StateCache) RecordWeight(ctx context.Context, sample mailbox.WeightSample) error {
	return c.record(ctx, sample.SensorID, map[string]any{
		FieldLastWeight:   strconv.FormatFloat(sample.Value, 'f', -1, 64),
		FieldLastWeightAt: sample.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// RecordAlarm stores the latest alarm of a sensor.
func (c *StateCache) RecordAlarm(ctx context.Context, sample mailbox.AlarmSample) error {
	return c.record(ctx, sample.SensorID, map[string]any{
		FieldLastAlarm:   sample.Value,
		FieldLastAlarmAt: sample.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// record writes fields and refreshes the expiry in one round trip.
func (c *StateCache) record(ctx context.Context, sensorID string, fields map[string]any) error {
	key := SensorKey(sensorID)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, fields)

	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}

	return nil
}

// SensorKey returns the hash key of a sensor, e.g. "mailbox:sensor:7".
func SensorKey(sensorID string) string {
	return "mailbox:sensor:" + sensorID
}
