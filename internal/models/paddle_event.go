package models

import (
	"strings"
	"time"
)

// PaddleEvent is the webhook envelope sent by Paddle Billing.
// data is left untyped because its shape depends on event_type.
type PaddleEvent struct {
	EventID        string                 `json:"event_id"`
	EventType      string                 `json:"event_type"`
	OccurredAt     string                 `json:"occurred_at"`
	NotificationID string                 `json:"notification_id"`
	Data           map[string]interface{} `json:"data"`
}

// PaddleData wraps the data object of an event or API response with typed
// accessors for the fields billing reads.
type PaddleData map[string]interface{}

// Payload returns the event's data with accessors.
func (e *PaddleEvent) Payload() PaddleData {
	if e == nil {
		return nil
	}
	return PaddleData(e.Data)
}

// String walks a path of map keys and slice indexes and returns the string
// found there, or "".
func (d PaddleData) String(path ...interface{}) string {
	v := d.lookup(path...)
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func (d PaddleData) lookup(path ...interface{}) interface{} {
	var cur interface{} = map[string]interface{}(d)
	for _, p := range path {
		switch key := p.(type) {
		case string:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil
			}
			cur = m[key]
		case int:
			arr, ok := cur.([]interface{})
			if !ok || key < 0 || key >= len(arr) {
				return nil
			}
			cur = arr[key]
		default:
			return nil
		}
	}
	return cur
}

// ID is the object id: the subscription id on subscription.* events and the
// transaction id on transaction.* events.
func (d PaddleData) ID() string {
	return d.String("id")
}

func (d PaddleData) CustomerID() string {
	return d.String("customer_id")
}

func (d PaddleData) SubscriptionID() string {
	return d.String("subscription_id")
}

func (d PaddleData) Status() string {
	return d.String("status")
}

// FirstPriceID reads the first line item's price id. Both the flat price_id
// and the nested price.id layouts are accepted.
func (d PaddleData) FirstPriceID() string {
	return firstNonEmpty(
		d.String("items", 0, "price_id"),
		d.String("items", 0, "price", "id"),
	)
}

// BillingInterval returns the raw interval reported by Paddle (month|year).
func (d PaddleData) BillingInterval() string {
	return firstNonEmpty(
		d.String("billing_cycle", "interval"),
		d.String("items", 0, "price", "billing_cycle", "interval"),
	)
}

func (d PaddleData) PeriodStart() *time.Time {
	return parseTimestamp(d.String("current_billing_period", "starts_at"))
}

func (d PaddleData) PeriodEnd() *time.Time {
	return parseTimestamp(d.String("current_billing_period", "ends_at"))
}

// ScheduledChangeAction is "cancel", "pause", "resume" or "".
func (d PaddleData) ScheduledChangeAction() string {
	return d.String("scheduled_change", "action")
}

// ScheduledChangeAt is when a scheduled change takes effect.
func (d PaddleData) ScheduledChangeAt() *time.Time {
	return parseTimestamp(d.String("scheduled_change", "effective_at"))
}

func (d PaddleData) CanceledAt() *time.Time {
	return parseTimestamp(d.String("canceled_at"))
}

func (d PaddleData) BilledAt() *time.Time {
	return parseTimestamp(d.String("billed_at"))
}

// CustomUserID reads custom_data.user_id set at checkout.
func (d PaddleData) CustomUserID() string {
	return d.String("custom_data", "user_id")
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			t := ts.UTC()
			return &t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
