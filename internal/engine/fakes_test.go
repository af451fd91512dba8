package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

var (
	errTestStore   = errors.New("test store error")
	errTestSend    = errors.New("test send error")
	errTestPublish = errors.New("test publish error")
)

// memoryStore is an in-memory Store. Writes made in a unit of work become
// visible to other units only on Commit.
type memoryStore struct {
	mu sync.Mutex

	weights     []mailbox.WeightSample
	alarms      []mailbox.AlarmSample
	upper       map[string]float64
	sensitivity map[string]float64
	subscribers map[string][]string

	// initCalls counts InitializeSensor invocations.
	initCalls int
	// initInserts counts InitializeSensor calls that created rows.
	initInserts int
	// averageErr fails AverageWeight.
	averageErr error
	// appendErr fails AppendWeight and AppendAlarm.
	appendErr error
	// thresholdErr fails threshold lookups.
	thresholdErr error
	// subscribersErr fails Subscribers.
	subscribersErr error
	// initDelay widens the race window in InitializeSensor.
	initDelay time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		upper:       make(map[string]float64),
		sensitivity: make(map[string]float64),
		subscribers: make(map[string][]string),
	}
}

// configure stores thresholds for a sensor.
func (s *memoryStore) configure(sensorID string, upper, sensitivity float64, subscribers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upper[sensorID] = upper
	s.sensitivity[sensorID] = sensitivity
	s.subscribers[sensorID] = subscribers
}

// seedWeight stores a committed historical sample.
func (s *memoryStore) seedWeight(sample mailbox.WeightSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weights = append(s.weights, sample)
}

func (s *memoryStore) weightSamples(sensorID string) []mailbox.WeightSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []mailbox.WeightSample

	for _, w := range s.weights {
		if w.SensorID == sensorID {
			result = append(result, w)
		}
	}

	return result
}

func (s *memoryStore) alarmSamples(sensorID string) []mailbox.AlarmSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []mailbox.AlarmSample

	for _, a := range s.alarms {
		if a.SensorID == sensorID {
			result = append(result, a)
		}
	}

	return result
}

func (s *memoryStore) Begin(context.Context) (Tx, error) {
	return &memoryTx{store: s}, nil
}

func (s *memoryStore) Subscribers(_ context.Context, sensorID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribersErr != nil {
		return nil, s.subscribersErr
	}

	return append([]string(nil), s.subscribers[sensorID]...), nil
}

// InitializeSensor mimics a unique key on sensor_id in each threshold table:
// the existence check and the insert are not atomic, and only missing rows are
// written. It reports ErrSensorAlreadyInitialized when both rows existed.
func (s *memoryStore) InitializeSensor(_ context.Context, sensorID string, defaults mailbox.Thresholds) error {
	s.mu.Lock()
	s.initCalls++
	complete := s.hasThresholds(sensorID)
	s.mu.Unlock()

	if complete {
		return mailbox.ErrSensorAlreadyInitialized
	}

	time.Sleep(s.initDelay)

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := false

	if _, exists := s.upper[sensorID]; !exists {
		s.upper[sensorID] = defaults.UpperThreshold
		inserted = true
	}

	if _, exists := s.sensitivity[sensorID]; !exists {
		s.sensitivity[sensorID] = defaults.Sensitivity
		inserted = true
	}

	if !inserted {
		return mailbox.ErrSensorAlreadyInitialized
	}

	s.initInserts++

	return nil
}

// hasThresholds reports whether both rows exist. Callers hold s.mu.
func (s *memoryStore) hasThresholds(sensorID string) bool {
	_, hasUpper := s.upper[sensorID]
	_, hasSensitivity := s.sensitivity[sensorID]

	return hasUpper && hasSensitivity
}

// memoryTx buffers appends until Commit and reads its own writes.
type memoryTx struct {
	store   *memoryStore
	weights []mailbox.WeightSample
	alarms  []mailbox.AlarmSample
	done    bool
}

func (t *memoryTx) AppendWeight(_ context.Context, sample mailbox.WeightSample) error {
	if t.store.appendErr != nil {
		return t.store.appendErr
	}

	t.weights = append(t.weights, sample)

	return nil
}

func (t *memoryTx) AppendAlarm(_ context.Context, sample mailbox.AlarmSample) error {
	if t.store.appendErr != nil {
		return t.store.appendErr
	}

	t.alarms = append(t.alarms, sample)

	return nil
}

func (t *memoryTx) AverageWeight(_ context.Context, sensorID string, from, to time.Time) (float64, error) {
	if t.store.averageErr != nil {
		return 0, t.store.averageErr
	}

	t.store.mu.Lock()
	samples := append(append([]mailbox.WeightSample(nil), t.store.weights...), t.weights...)
	t.store.mu.Unlock()

	var (
		sum   float64
		count int
	)

	for _, w := range samples {
		if w.SensorID != sensorID || w.Timestamp.Before(from) || w.Timestamp.After(to) {
			continue
		}

		sum += w.Value
		count++
	}

	if count == 0 {
		return 0, mailbox.ErrNoRecentData
	}

	return sum / float64(count), nil
}

func (t *memoryTx) UpperThreshold(_ context.Context, sensorID string) (float64, error) {
	return t.threshold(t.store.upper, sensorID)
}

func (t *memoryTx) ThresholdSensitivity(_ context.Context, sensorID string) (float64, error) {
	return t.threshold(t.store.sensitivity, sensorID)
}

func (t *memoryTx) threshold(values map[string]float64, sensorID string) (float64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.thresholdErr != nil {
		return 0, t.store.thresholdErr
	}

	value, ok := values[sensorID]
	if !ok {
		return 0, mailbox.ErrSensorUnknown
	}

	return value, nil
}

func (t *memoryTx) Commit(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.weights = append(t.store.weights, t.weights...)
	t.store.alarms = append(t.store.alarms, t.alarms...)
	t.done = true

	return nil
}

func (t *memoryTx) Rollback(context.Context) error {
	t.weights, t.alarms = nil, nil

	return nil
}

// sentMessage is a notification recorded by recordingNotifier.
type sentMessage struct {
	address string
	subject string
	body    string
}

// recordingNotifier records every attempt and fails for addresses in failFor.
type recordingNotifier struct {
	mu       sync.Mutex
	failFor  map[string]bool
	attempts []sentMessage
}

func (n *recordingNotifier) Send(_ context.Context, address, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.attempts = append(n.attempts, sentMessage{address: address, subject: subject, body: body})

	if n.failFor[address] {
		return errTestSend
	}

	return nil
}

// armCommand is a command recorded by recordingPublisher.
type armCommand struct {
	sensorID  string
	threshold float64
}

// recordingPublisher records arm and disarm commands.
type recordingPublisher struct {
	mu       sync.Mutex
	err      error
	armed    []armCommand
	disarmed []string
}

func (p *recordingPublisher) Arm(_ context.Context, sensorID string, threshold float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.armed = append(p.armed, armCommand{sensorID: sensorID, threshold: threshold})

	return nil
}

func (p *recordingPublisher) Disarm(_ context.Context, sensorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.disarmed = append(p.disarmed, sensorID)

	return nil
}

// recordingCache counts cached samples.
type recordingCache struct {
	mu      sync.Mutex
	weights int
	alarms  int
}

func (c *recordingCache) RecordWeight(context.Context, mailbox.WeightSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.weights++

	return nil
}

func (c *recordingCache) RecordAlarm(context.Context, mailbox.AlarmSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alarms++

	return nil
}
