package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

// TestEngine_ServeProcessesInOrder drains the queue sequentially until it is closed.
func TestEngine_ServeProcessesInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.configure("7", 50, 20, "owner@example.com")
	f.seed("7", 488, 5)

	queue := make(chan mailbox.Message, 4)
	queue <- mailbox.Message{Topic: "mailbox/7/weight", Payload: []byte(`{"value": 560}`)}
	queue <- mailbox.Message{Topic: "mailbox/7/alarm", Payload: []byte(`{"value": "removed"}`)}
	queue <- mailbox.Message{Topic: "broken", Payload: nil}
	close(queue)

	require.NoError(t, f.engine.Serve(context.Background(), queue))

	require.Len(t, f.notifier.attempts, 2)
	require.Equal(t, SubjectNewPackage, f.notifier.attempts[0].subject)
	require.Equal(t, SubjectAlarm, f.notifier.attempts[1].subject)
	require.Len(t, f.publisher.armed, 1)
}

// TestEngine_ServeStopsOnCancel returns once the context is canceled.
func TestEngine_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- f.engine.Serve(ctx, make(chan mailbox.Message))
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
