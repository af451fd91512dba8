package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/oshokin/mailbox-sentry/internal/api/grpc/health"
	"github.com/oshokin/mailbox-sentry/internal/config"
	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	core "github.com/oshokin/mailbox-sentry/internal/engine"
	"github.com/oshokin/mailbox-sentry/internal/logger"
	"github.com/oshokin/mailbox-sentry/internal/transport/mqtt"
)

// Action selects what Run publishes.
type Action int

const (
	// ActionArm publishes an arm command with Options.Threshold.
	ActionArm Action = iota
	// ActionDisarm publishes a disarm command.
	ActionDisarm
)

// Options configures a single command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Action is the command to publish.
	Action Action
	// SensorID addresses the actuator.
	SensorID string
	// Threshold is the tamper tripwire for ActionArm.
	Threshold float64
}

// clientIDSuffix keeps the command client from kicking the engine off the broker.
const clientIDSuffix = "-command"

var (
	// errInvalidThreshold is returned for thresholds that cannot be encoded.
	errInvalidThreshold = errors.New("threshold must be a finite number")
	// errUnknownAction is returned for actions Run does not know.
	errUnknownAction = errors.New("unknown action")
	// errHealthDisabled is returned by Status when no health endpoint is configured.
	errHealthDisabled = errors.New("health endpoint is not configured")
)

// Run connects to the broker, publishes one command and disconnects.
func Run(ctx context.Context, opts *Options) error {
	if err := validate(opts); err != nil {
		return err
	}

	settings, err := config.LoadTransport(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if _, err = logger.Configure(settings.Logging.Level, logger.Format(settings.Logging.Format), settings.Logging.File); err != nil {
		return err
	}

	ctx = logger.WithName(ctx, "mailbox-command")

	client, err := mqtt.New(mqtt.Options{
		Broker:         settings.MQTT.Broker,
		ClientID:       settings.MQTT.ClientID + clientIDSuffix,
		Username:       settings.MQTT.Username,
		Password:       settings.MQTT.Password,
		QoS:            settings.MQTT.QoS,
		KeepAlive:      settings.MQTT.KeepAlive,
		CleanSession:   true,
		ConnectTimeout: settings.MQTT.ConnectTimeout,
		Namespace:      settings.MQTT.Namespace,
	})
	if err != nil {
		return err
	}

	if err = client.Connect(ctx); err != nil {
		return err
	}

	defer client.Close()

	return publish(ctx, client, opts)
}

// validate checks opts before any connection is made.
func validate(opts *Options) error {
	if err := mailbox.ValidateSensorID(opts.SensorID); err != nil {
		return err
	}

	switch opts.Action {
	case ActionArm:
		if math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) {
			return errInvalidThreshold
		}
	case ActionDisarm:
	default:
		return fmt.Errorf("%w: %d", errUnknownAction, opts.Action)
	}

	return nil
}

// publish sends the command selected by opts.
func publish(ctx context.Context, publisher core.Publisher, opts *Options) error {
	switch opts.Action {
	case ActionArm:
		if err := publisher.Arm(ctx, opts.SensorID, opts.Threshold); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Arm command published", "sensor_id", opts.SensorID, "threshold", opts.Threshold)
	case ActionDisarm:
		if err := publisher.Disarm(ctx, opts.SensorID); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Disarm command published", "sensor_id", opts.SensorID)
	default:
		return fmt.Errorf("%w: %d", errUnknownAction, opts.Action)
	}

	return nil
}

// Status asks the engine's health endpoint whether it is serving.
func Status(ctx context.Context, configPath string) (string, error) {
	settings, err := config.LoadTransport(configPath)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	address, err := probeAddress(settings.Health.ListenAddress)
	if err != nil {
		return "", err
	}

	status, err := health.Check(ctx, address, settings.MQTT.ConnectTimeout)
	if err != nil {
		return "", err
	}

	return status.String(), nil
}

// probeAddress turns a listen address into a dialable one; a wildcard host becomes loopback.
func probeAddress(listenAddress string) (string, error) {
	if listenAddress == "" {
		return "", errHealthDisabled
	}

	host, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		return "", fmt.Errorf("invalid health listen address: %w", err)
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port), nil
}
