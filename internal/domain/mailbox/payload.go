package mailbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// DisarmToken is the opaque payload sent on the disarm topic.
const DisarmToken = "disarm"

// valuePayload is the canonical wire format: {"value": <value>}.
type valuePayload struct {
	Value json.RawMessage `json:"value"`
}

// armPayload is the outbound arm command body.
type armPayload struct {
	Value float64 `json:"value"`
}

// DecodeWeight parses a weight payload of the form {"value": <float>}.
func DecodeWeight(payload []byte) (float64, error) {
	raw, err := decodeValue(payload)
	if err != nil {
		return 0, err
	}

	var weight float64
	if err = json.Unmarshal(raw, &weight); err != nil {
		return 0, fmt.Errorf("%w: weight is not a number: %w", ErrMalformedPayload, err)
	}

	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, fmt.Errorf("%w: weight is not finite", ErrMalformedPayload)
	}

	return weight, nil
}

// DecodeAlarm parses an alarm payload of the form {"value": <number|string>}
// and returns the value in its stored text form.
func DecodeAlarm(payload []byte) (string, error) {
	raw, err := decodeValue(payload)
	if err != nil {
		return "", err
	}

	var text string
	if err = json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var number float64
	if err = json.Unmarshal(raw, &number); err == nil {
		return strconv.FormatFloat(number, 'g', -1, 64), nil
	}

	return "", fmt.Errorf("%w: alarm value must be a number or a string", ErrMalformedPayload)
}

// EncodeArm renders the arm command body for the given threshold.
func EncodeArm(threshold float64) ([]byte, error) {
	data, err := json.Marshal(armPayload{Value: threshold})
	if err != nil {
		return nil, fmt.Errorf("encode arm command: %w", err)
	}

	return data, nil
}

// decodeValue extracts the raw "value" field and rejects anything else.
func decodeValue(payload []byte) (json.RawMessage, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	var body valuePayload
	if err := decoder.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after value", ErrMalformedPayload)
	}

	if len(body.Value) == 0 || bytes.Equal(body.Value, []byte("null")) {
		return nil, fmt.Errorf("%w: missing value", ErrMalformedPayload)
	}

	return body.Value, nil
}
