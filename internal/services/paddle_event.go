package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"scanela-billing/internal/models"
)

// ParseEvent decodes a raw webhook body into the Paddle event envelope.
// Any failure wraps ErrInvalidPayload.
func ParseEvent(rawBody []byte) (*models.PaddleEvent, error) {
	trimmed := bytes.TrimSpace(rawBody)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var event models.PaddleEvent
	if err := dec.Decode(&event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: multiple JSON values in body", ErrInvalidPayload)
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrInvalidPayload)
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	return &event, nil
}
