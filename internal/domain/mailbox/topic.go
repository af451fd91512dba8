package mailbox

import (
	"fmt"
	"strings"
)

// EventType is the last segment of an inbound topic.
type EventType string

const (
	// EventWeight is published by the scale with the current weight.
	EventWeight EventType = "weight"
	// EventAlarm is published by the tamper sensor.
	EventAlarm EventType = "alarm"
)

const (
	// DefaultNamespace is the first topic segment shared by all mailbox devices.
	DefaultNamespace = "mailbox"

	// commandArm and commandDisarm are the outbound topic suffixes for the actuator.
	commandArm    = "arm_alarm"
	commandDisarm = "disarm_alarm"

	topicSeparator = "/"
	// minTopicSegments is namespace + sensor + event.
	minTopicSegments = 3
)

// Topic is the decomposed form of an inbound topic.
type Topic struct {
	Namespace string
	SensorID  string
	EventType EventType
}

// ParseTopic splits a topic of the form <namespace>/<sensor_id>/<event_type>.
// Segments are taken by position; a topic with fewer than three segments or
// with an empty sensor or event segment is rejected with ErrMalformedTopic.
func ParseTopic(topic string) (Topic, error) {
	segments := strings.Split(topic, topicSeparator)
	if len(segments) < minTopicSegments {
		return Topic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	parsed := Topic{
		Namespace: segments[0],
		SensorID:  strings.TrimSpace(segments[1]),
		EventType: EventType(strings.TrimSpace(segments[2])),
	}

	if parsed.SensorID == "" || parsed.EventType == "" {
		return Topic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	return parsed, nil
}

// ValidateSensorID rejects IDs that cannot be used as a single topic level.
func ValidateSensorID(sensorID string) error {
	if strings.TrimSpace(sensorID) == "" || strings.ContainsAny(sensorID, "/+#") {
		return fmt.Errorf("%w: %q", ErrInvalidSensorID, sensorID)
	}

	return nil
}

// SubscriptionPattern returns the single-level wildcard pattern for an event type,
// e.g. "mailbox/+/weight".
func SubscriptionPattern(namespace string, eventType EventType) string {
	return strings.Join([]string{namespace, "+", string(eventType)}, topicSeparator)
}

// ArmTopic returns the topic the actuator listens on for arm commands.
func ArmTopic(namespace, sensorID string) string {
	return strings.Join([]string{namespace, sensorID, commandArm}, topicSeparator)
}

// DisarmTopic returns the topic the actuator listens on for disarm commands.
func DisarmTopic(namespace, sensorID string) string {
	return strings.Join([]string{namespace, sensorID, commandDisarm}, topicSeparator)
}
