package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/mailbox-sentry/internal/api/grpc/health"
	"github.com/oshokin/mailbox-sentry/internal/config"
	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	core "github.com/oshokin/mailbox-sentry/internal/engine"
	"github.com/oshokin/mailbox-sentry/internal/logger"
	"github.com/oshokin/mailbox-sentry/internal/notify"
	"github.com/oshokin/mailbox-sentry/internal/notify/email"
	"github.com/oshokin/mailbox-sentry/internal/repository/cache"
	"github.com/oshokin/mailbox-sentry/internal/repository/postgres"
	"github.com/oshokin/mailbox-sentry/internal/service/instance"
	"github.com/oshokin/mailbox-sentry/internal/transport/mqtt"
)

// Options controls the mailbox-engine process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

// Run starts the engine and blocks until ctx is canceled or a component fails.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Configure replaces the global logger, so name the context afterwards.
	levelKnown, err := logger.Configure(settings.Logging.Level, logger.Format(settings.Logging.Format), settings.Logging.File)
	if err != nil {
		return err
	}

	ctx = logger.WithName(ctx, "mailbox-engine")

	if !levelKnown {
		logger.WarnKV(ctx, "Unknown log level, keeping the current one", "level", settings.Logging.Level)
	}

	mqtt.ConfigureLogging(mqttLogLevel(settings.MQTT.LogLevel))

	if !opts.AllowMultiple {
		if err = instance.Ensure(); err != nil {
			return err
		}
	}

	store, err := postgres.New(ctx, settings.Database.URL, settings.Database.MaxConns)
	if err != nil {
		return err
	}

	defer store.Close()

	if settings.Database.CreateSchema {
		if err = store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	notifier, err := newNotifier(ctx, settings)
	if err != nil {
		return err
	}

	engineOptions := []core.Option{
		core.WithSensorDefaults(settings.Engine.SensorDefaults()),
		core.WithAverageWindow(settings.Engine.AverageWindow),
	}

	if settings.Redis.Addr != "" {
		var stateCache *cache.StateCache

		stateCache, err = cache.NewStateCache(ctx, cache.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
			TTL:      settings.Redis.TTL,
		})
		if err != nil {
			return err
		}

		defer func() {
			_ = stateCache.Close()
		}()

		engineOptions = append(engineOptions, core.WithStateCache(stateCache))
	}

	var healthServer *health.Server
	if settings.Health.ListenAddress != "" {
		healthServer = health.NewServer()
	}

	queue := make(chan mailbox.Message, settings.Engine.QueueSize)

	client, err := mqtt.New(mqttOptions(settings, queue, healthServer))
	if err != nil {
		return err
	}

	if err = client.Connect(ctx); err != nil {
		return err
	}

	defer client.Close()

	logger.InfoKV(ctx, "Mailbox engine started",
		"broker", settings.MQTT.Broker,
		"namespace", settings.MQTT.Namespace,
		"queue_size", settings.Engine.QueueSize,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return core.New(store, notifier, client, engineOptions...).Serve(groupCtx, queue)
	})

	if healthServer != nil {
		group.Go(func() error {
			return healthServer.ListenAndServe(groupCtx, settings.Health.ListenAddress)
		})
	}

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Mailbox engine stopped")

	return nil
}

// newNotifier returns the SMTP sender, or a log-only notifier when SMTP is not configured.
func newNotifier(ctx context.Context, settings *config.Config) (core.Notifier, error) {
	if settings.Email.SMTPServer == "" {
		logger.Warnf(ctx, "SMTP server is not configured, notifications are only logged")

		return notify.LogNotifier{}, nil
	}

	sender, err := email.NewSender(email.Options{
		Server:      settings.Email.SMTPServer,
		Port:        settings.Email.Port,
		Username:    settings.Email.Username,
		Password:    settings.Email.Password,
		FromAddress: settings.Email.FromAddress,
		Timeout:     settings.MQTT.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configure email: %w", err)
	}

	return sender, nil
}

// mqttOptions maps settings onto the transport. The health server, when set,
// follows the broker connection state.
func mqttOptions(settings *config.Config, queue chan<- mailbox.Message, healthServer *health.Server) mqtt.Options {
	opts := mqtt.Options{
		Broker:         settings.MQTT.Broker,
		ClientID:       settings.MQTT.ClientID,
		Username:       settings.MQTT.Username,
		Password:       settings.MQTT.Password,
		QoS:            settings.MQTT.QoS,
		KeepAlive:      settings.MQTT.KeepAlive,
		CleanSession:   settings.MQTT.CleanSession,
		ConnectTimeout: settings.MQTT.ConnectTimeout,
		Namespace:      settings.MQTT.Namespace,
		Queue:          queue,
	}

	if healthServer != nil {
		opts.OnConnectionChange = healthServer.SetServing
	}

	return opts
}

// mqttLogLevel parses the transport log level. Paho is chatty, so the default is warn.
func mqttLogLevel(level string) zapcore.Level {
	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return zapcore.WarnLevel
	}

	return parsed
}
