package services

import (
	"context"
	"encoding/json"

	"scanela-billing/internal/database"
	"scanela-billing/internal/models"
	"scanela-billing/pkg/logging"
)

// EventLogger appends every received event to payment_events.
type EventLogger struct{}

// NewEventLogger creates an event logger
func NewEventLogger() *EventLogger {
	return &EventLogger{}
}

// Log writes one audit row. userID may be nil for unmapped events. Failures
// are logged and swallowed.
func (l *EventLogger) Log(ctx context.Context, userID *string, eventType, paddleID string, payload interface{}) {
	var body string
	switch p := payload.(type) {
	case nil:
	case string:
		body = p
	case []byte:
		body = string(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			logging.Errorf("Failed to serialize event payload - event_type: %s, error: %v", eventType, err)
		} else {
			body = string(b)
		}
	}

	row := &models.PaymentEvent{
		UserID:    userID,
		EventType: eventType,
		PaddleID:  paddleID,
		Payload:   body,
	}
	if err := database.CreatePaymentEvent(ctx, row); err != nil {
		logging.Errorf("Failed to log payment event - event_type: %s, paddle_id: %s, error: %v", eventType, paddleID, err)
	}
}
