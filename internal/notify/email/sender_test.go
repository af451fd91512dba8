package email

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mailbox-sentry/internal/engine"
)

var _ engine.Notifier = (*Sender)(nil)

// TestNewSender_Validates rejects incomplete options.
func TestNewSender_Validates(t *testing.T) {
	t.Parallel()

	_, err := NewSender(Options{})
	require.ErrorIs(t, err, errServerRequired)

	_, err = NewSender(Options{Server: "smtp.example.com", Port: 587})
	require.ErrorIs(t, err, errFromRequired)

	s, err := NewSender(Options{Server: "smtp.example.com", Port: 587, FromAddress: "mailbox@example.com"})
	require.NoError(t, err)
	require.NotNil(t, s)
}

// TestCompose renders headers and body.
func TestCompose(t *testing.T) {
	t.Parallel()

	s, err := NewSender(Options{Server: "smtp.example.com", Port: 587, FromAddress: "mailbox@example.com"})
	require.NoError(t, err)

	msg, err := s.compose("owner@example.com", "NEW PACKAGE", "New package detected with weight 60")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	rendered := buf.String()
	require.Contains(t, rendered, "Subject: NEW PACKAGE")
	require.Contains(t, rendered, "owner@example.com")
	require.Contains(t, rendered, "New package detected with weight 60")

	_, err = s.compose("not an address", "ALARM", "x")
	require.Error(t, err)
}

// TestSend_Unreachable fails fast when the server is down.
func TestSend_Unreachable(t *testing.T) {
	t.Parallel()

	// Reserve a free port and close it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	s, err := NewSender(Options{
		Server:      "127.0.0.1",
		Port:        port,
		FromAddress: "mailbox@example.com",
		Timeout:     time.Second,
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), "owner@example.com", "ALARM", "Alarm detected with value 1")
	require.Error(t, err)
}
