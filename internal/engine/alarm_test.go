package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

func (f *fixture) alarm(sensorID, payload string) {
	f.engine.Handle(context.Background(), mailbox.Message{
		Topic:   "mailbox/" + sensorID + "/alarm",
		Payload: []byte(payload),
	})
}

// TestAlarm_Escalates stores the alarm and notifies every subscriber.
func TestAlarm_Escalates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.configure("7", 50, 20, "owner@example.com", "neighbour@example.com")

	f.alarm("7", `{"value": 431.5}`)

	samples := f.store.alarmSamples("7")
	require.Len(t, samples, 1)
	require.Equal(t, "431.5", samples[0].Value)
	require.Equal(t, fixedNow, samples[0].Timestamp)

	require.Len(t, f.notifier.attempts, 2)

	for _, msg := range f.notifier.attempts {
		require.Equal(t, SubjectAlarm, msg.subject)
		require.Equal(t, "Alarm detected with value 431.5", msg.body)
	}

	require.Equal(t, 1, f.cache.alarms)
	require.Empty(t, f.publisher.armed)
}

// TestAlarm_UnconfiguredSensor escalates without thresholds and never initializes.
func TestAlarm_UnconfiguredSensor(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.subscribers["13"] = []string{"owner@example.com"}

	f.alarm("13", `{"value": "lid forced"}`)

	require.Len(t, f.store.alarmSamples("13"), 1)
	require.Len(t, f.notifier.attempts, 1)
	require.Equal(t, "Alarm detected with value lid forced", f.notifier.attempts[0].body)
	require.Zero(t, f.store.initCalls)
}

// TestAlarm_NoSubscribers still stores the sample.
func TestAlarm_NoSubscribers(t *testing.T) {
	t.Parallel()

	f := newFixture()

	f.alarm("8", `{"value": 1}`)

	require.Len(t, f.store.alarmSamples("8"), 1)
	require.Empty(t, f.notifier.attempts)
}

// TestAlarm_FailedRecipientDoesNotStopFanOut tries every subscriber.
func TestAlarm_FailedRecipientDoesNotStopFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.subscribers["7"] = []string{"a@example.com", "b@example.com", "c@example.com"}
	f.notifier.failFor["b@example.com"] = true

	f.alarm("7", `{"value": 1}`)

	require.Len(t, f.notifier.attempts, 3)
	require.Equal(t, "c@example.com", f.notifier.attempts[2].address)
}

// TestAlarm_SubscribersErrorKeepsSample stores the alarm even if recipients cannot be read.
func TestAlarm_SubscribersErrorKeepsSample(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.subscribersErr = errTestStore

	f.alarm("7", `{"value": 1}`)

	require.Len(t, f.store.alarmSamples("7"), 1)
	require.Empty(t, f.notifier.attempts)
}

// TestAlarmHandler_Errors returns classified errors.
func TestAlarmHandler_Errors(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	handler := &AlarmHandler{
		store:    store,
		notifier: &recordingNotifier{},
		cache:    noopCache{},
		now:      func() time.Time { return fixedNow },
	}

	err := handler.Handle(context.Background(), "7", []byte(`{"value": false}`))
	require.ErrorIs(t, err, mailbox.ErrMalformedPayload)

	store.appendErr = errTestStore
	err = handler.Handle(context.Background(), "7", []byte(`{"value": 1}`))
	require.ErrorIs(t, err, mailbox.ErrStore)
	require.Empty(t, store.alarmSamples("7"))
}
