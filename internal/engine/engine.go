package engine

import (
	"context"
	"time"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// Engine wires the router, both handlers and the initializer together.
type Engine struct {
	router *Router
}

// options collects optional engine settings.
type options struct {
	cache    StateCache
	defaults mailbox.Thresholds
	window   time.Duration
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*options)

// WithStateCache records the latest readings of each sensor in cache.
func WithStateCache(cache StateCache) Option {
	return func(o *options) {
		if cache != nil {
			o.cache = cache
		}
	}
}

// WithSensorDefaults sets the thresholds given to sensors on first sight.
func WithSensorDefaults(defaults mailbox.Thresholds) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// WithAverageWindow sets the trailing window of the rolling average.
func WithAverageWindow(window time.Duration) Option {
	return func(o *options) {
		if window > 0 {
			o.window = window
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New builds an engine with the routing table for weight and alarm events.
func New(store Store, notifier Notifier, publisher Publisher, opts ...Option) *Engine {
	o := &options{
		cache:    noopCache{},
		defaults: mailbox.DefaultThresholds(),
		window:   mailbox.AverageWindow,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	weight := &WeightHandler{
		store:       store,
		notifier:    notifier,
		publisher:   publisher,
		cache:       o.cache,
		initializer: NewInitializer(store, o.defaults),
		window:      o.window,
		now:         o.now,
	}

	alarm := &AlarmHandler{
		store:    store,
		notifier: notifier,
		cache:    o.cache,
		now:      o.now,
	}

	return &Engine{
		router: NewRouter(Routes{
			mailbox.EventWeight: weight,
			mailbox.EventAlarm:  alarm,
		}),
	}
}

// Handle processes one message to completion.
func (e *Engine) Handle(ctx context.Context, msg mailbox.Message) {
	e.router.Route(ctx, msg)
}

// Serve processes messages one at a time until ctx is canceled or messages is closed.
// An event that already started is finished even if ctx is canceled meanwhile.
func (e *Engine) Serve(ctx context.Context, messages <-chan mailbox.Message) error {
	ctx = logger.WithName(ctx, "engine")
	eventCtx := context.WithoutCancel(ctx)

	logger.Info(ctx, "Engine is processing events")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Engine stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				logger.Info(ctx, "Message queue closed, engine stopped")
				return nil
			}

			e.Handle(eventCtx, msg)
		}
	}
}
