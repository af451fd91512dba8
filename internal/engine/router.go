package engine

import (
	"context"
	"errors"
	"maps"

	"github.com/google/uuid"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// Routes maps event types to their handlers.
type Routes map[mailbox.EventType]Handler

// Router dispatches inbound messages to handlers. It owns no state besides
// the routing table, which is fixed at construction.
type Router struct {
	routes Routes
}

// NewRouter copies routes into a new Router.
func NewRouter(routes Routes) *Router {
	table := make(Routes, len(routes))
	maps.Copy(table, routes)

	return &Router{
		routes: table,
	}
}

// Route parses the topic of msg and runs the matching handler.
// Every failure is logged and the message is dropped; nothing is returned
// because no caller waits on the outcome.
func (r *Router) Route(ctx context.Context, msg mailbox.Message) {
	ctx = logger.WithFields(ctx, "event_id", uuid.NewString(), "topic", msg.Topic)

	topic, err := mailbox.ParseTopic(msg.Topic)
	if err != nil {
		logger.WarnKV(ctx, "Dropping message", "error", err)
		return
	}

	ctx = logger.WithFields(ctx, "sensor_id", topic.SensorID, "event_type", topic.EventType)

	handler, ok := r.routes[topic.EventType]
	if !ok {
		logger.WarnKV(ctx, "Dropping message", "error", mailbox.ErrUnknownEventType)
		return
	}

	logger.DebugKV(ctx, "Message received", "payload", string(msg.Payload))

	if err = handler.Handle(ctx, topic.SensorID, msg.Payload); err != nil {
		logFailure(ctx, err)
	}
}

// logFailure writes one line per failed event at a level matching its cause.
func logFailure(ctx context.Context, err error) {
	switch {
	case errors.Is(err, mailbox.ErrStore), errors.Is(err, mailbox.ErrDispatch):
		logger.ErrorKV(ctx, "Event processing failed", "error", err)
	case errors.Is(err, mailbox.ErrSensorUnknown):
		logger.WarnKV(ctx, "Event dropped, sensor was not configured", "error", err)
	case errors.Is(err, mailbox.ErrNoRecentData):
		logger.WarnKV(ctx, "Event dropped, no weight samples in window", "error", err)
	case errors.Is(err, mailbox.ErrMalformedPayload):
		logger.WarnKV(ctx, "Event dropped, malformed payload", "error", err)
	default:
		// Unclassified, still dropped.
		logger.ErrorKV(ctx, "Event processing failed", "error", err)
	}
}
