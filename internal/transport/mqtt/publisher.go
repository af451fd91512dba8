package mqtt

import (
	"context"
	"fmt"

	"github.com/oshokin/mailbox-sentry/internal/domain/mailbox"
)

// Arm publishes the arm command with the tamper tripwire for sensorID.
func (c *Client) Arm(ctx context.Context, sensorID string, threshold float64) error {
	payload, err := mailbox.EncodeArm(threshold)
	if err != nil {
		return err
	}

	return c.publish(ctx, mailbox.ArmTopic(c.namespace, sensorID), payload)
}

// Disarm publishes the disarm command for sensorID.
func (c *Client) Disarm(ctx context.Context, sensorID string) error {
	return c.publish(ctx, mailbox.DisarmTopic(c.namespace, sensorID), []byte(mailbox.DisarmToken))
}

func (c *Client) publish(ctx context.Context, topic string, payload []byte) error {
	if err := c.wait(ctx, c.client.Publish(topic, c.qos, false, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}
