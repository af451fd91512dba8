package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/mailbox-sentry/internal/api/grpc/health"
	"github.com/oshokin/mailbox-sentry/internal/config"
	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/notify"
	"github.com/oshokin/mailbox-sentry/internal/notify/email"
)

// testSettings returns validated settings without optional components.
func testSettings(t *testing.T) *config.Config {
	t.Helper()

	settings := &config.Config{
		MQTT:     config.MQTT{Broker: "tcp://127.0.0.1:1883", QoS: 1},
		Database: config.Database{URL: "postgres://mailbox@127.0.0.1:5432/mailbox"},
	}

	require.NoError(t, config.Validate(settings))

	return settings
}

// TestMQTTLogLevel defaults unknown levels to warn.
func TestMQTTLogLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zapcore.WarnLevel, mqttLogLevel(""))
	require.Equal(t, zapcore.WarnLevel, mqttLogLevel("loud"))
	require.Equal(t, zapcore.DebugLevel, mqttLogLevel("debug"))
}

// TestNewNotifier picks SMTP only when a server is configured.
func TestNewNotifier(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)

	notifier, err := newNotifier(context.Background(), settings)
	require.NoError(t, err)
	require.IsType(t, notify.LogNotifier{}, notifier)

	settings.Email.SMTPServer = "smtp.example.com"
	settings.Email.FromAddress = "mailbox@example.com"

	notifier, err = newNotifier(context.Background(), settings)
	require.NoError(t, err)
	require.IsType(t, &email.Sender{}, notifier)
}

// TestMQTTOptions maps settings and hooks the health status to the connection.
func TestMQTTOptions(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	queue := make(chan mailbox.Message, 1)

	opts := mqttOptions(settings, queue, nil)
	require.Equal(t, "tcp://127.0.0.1:1883", opts.Broker)
	require.Equal(t, config.DefaultClientID, opts.ClientID)
	require.Equal(t, byte(1), opts.QoS)
	require.Equal(t, mailbox.DefaultNamespace, opts.Namespace)
	require.Equal(t, config.DefaultTimeout, opts.ConnectTimeout)
	require.Equal(t, 60*time.Second, opts.KeepAlive)
	require.Nil(t, opts.OnConnectionChange)

	opts = mqttOptions(settings, queue, health.NewServer())
	require.NotNil(t, opts.OnConnectionChange)
}

// TestRun_MissingConfig fails before touching any external system.
func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: t.TempDir() + "/missing.yaml"})
	require.ErrorContains(t, err, "load settings")
}
