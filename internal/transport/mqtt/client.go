package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// disconnectQuiesce is how long Close waits for in-flight work, in milliseconds.
const disconnectQuiesce = 250

// Options configures the broker connection.
type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	KeepAlive      time.Duration
	CleanSession   bool
	ConnectTimeout time.Duration
	Namespace      string

	// Queue receives inbound messages. A nil queue makes the client publish-only.
	Queue chan<- mailbox.Message
	// OnConnectionChange is called with true on (re)connect and false on connection loss.
	OnConnectionChange func(connected bool)
}

var (
	// errBrokerRequired is returned when no broker URL is configured.
	errBrokerRequired = errors.New("broker must be provided")
	// errTimeout is returned when the broker does not answer in time.
	errTimeout = errors.New("timed out waiting for broker")
)

// Client is a broker connection used for both directions.
type Client struct {
	client    paho.Client
	namespace string
	qos       byte
	timeout   time.Duration
	queue     chan<- mailbox.Message
	onChange  func(connected bool)
}

// New prepares a client. Call Connect to open the connection.
func New(opts Options) (*Client, error) {
	if opts.Broker == "" {
		return nil, errBrokerRequired
	}

	c := &Client{
		namespace: opts.Namespace,
		qos:       opts.QoS,
		timeout:   opts.ConnectTimeout,
		queue:     opts.Queue,
		onChange:  opts.OnConnectionChange,
	}

	if c.namespace == "" {
		c.namespace = mailbox.DefaultNamespace
	}

	clientOptions := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetCleanSession(opts.CleanSession).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if opts.Username != "" {
		clientOptions.SetUsername(opts.Username).SetPassword(opts.Password)
	}

	if opts.KeepAlive > 0 {
		clientOptions.SetKeepAlive(opts.KeepAlive)
	}

	if opts.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(opts.ConnectTimeout)
	}

	c.client = paho.NewClient(clientOptions)

	return c, nil
}

// Connect opens the connection and, for clients with a queue, establishes the subscriptions.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.wait(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Subscriptions returns the topic filters the client listens on.
func (c *Client) Subscriptions() map[string]byte {
	return map[string]byte{
		mailbox.SubscriptionPattern(c.namespace, mailbox.EventWeight): c.qos,
		mailbox.SubscriptionPattern(c.namespace, mailbox.EventAlarm):  c.qos,
	}
}

// onConnect (re)subscribes on every successful connect.
func (c *Client) onConnect(client paho.Client) {
	ctx := logger.WithName(context.Background(), "mqtt")

	logger.Info(ctx, "Connected to broker")

	if c.queue != nil {
		filters := c.Subscriptions()

		token := client.SubscribeMultiple(filters, c.onMessage)
		if err := c.wait(ctx, token); err != nil {
			logger.ErrorKV(ctx, "Subscribe failed", "error", err)
		} else {
			for filter := range filters {
				logger.InfoKV(ctx, "Subscribed", "topic", filter)
			}
		}
	}

	if c.onChange != nil {
		c.onChange(true)
	}
}

// onConnectionLost is called by paho before it starts reconnecting.
func (c *Client) onConnectionLost(_ paho.Client, err error) {
	logger.WarnKV(logger.WithName(context.Background(), "mqtt"), "Connection to broker lost", "error", err)

	if c.onChange != nil {
		c.onChange(false)
	}
}

// onMessage copies the message onto the queue. It blocks while the queue is
// full, which also stalls paho's processing of acknowledgements.
func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	c.queue <- mailbox.Message{
		Topic:   msg.Topic(),
		Payload: payload,
	}
}

// wait blocks until token completes, ctx is done or the timeout elapses.
func (c *Client) wait(ctx context.Context, token paho.Token) error {
	var timeout <-chan time.Time

	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return errTimeout
	}
}
