package mailbox

import "errors"

var (
	// ErrMalformedTopic is returned when a topic does not decompose into namespace/sensor/event.
	ErrMalformedTopic = errors.New("malformed topic")
	// ErrMalformedPayload is returned when a payload does not parse to the expected shape.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidSensorID is returned for sensor IDs that are not a single topic level.
	ErrInvalidSensorID = errors.New("invalid sensor id")
	// ErrUnknownEventType is returned for event types no handler is registered for.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrSensorUnknown is returned when threshold configuration for a sensor is missing.
	ErrSensorUnknown = errors.New("sensor unknown")
	// ErrNoRecentData is returned when the rolling window holds no weight samples.
	ErrNoRecentData = errors.New("no recent data")
	// ErrStore wraps persistence failures unrelated to missing configuration.
	ErrStore = errors.New("store error")
	// ErrDispatch wraps notification and command delivery failures.
	ErrDispatch = errors.New("dispatch error")
	// ErrSensorAlreadyInitialized is returned when threshold rows for a sensor already exist.
	ErrSensorAlreadyInitialized = errors.New("sensor already initialized")
)
