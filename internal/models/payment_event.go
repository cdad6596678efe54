package models

import (
	"time"
)

// PaymentEvent is an append-only audit row, one per received webhook or
// manual trigger. user_id stays NULL when the event could not be mapped.
type PaymentEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *string   `json:"user_id" gorm:"size:64;index"`
	EventType string    `json:"event_type" gorm:"not null;size:64;index"`
	PaddleID  string    `json:"paddle_id" gorm:"size:64;index"`
	Payload   string    `json:"payload" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName pins the table name regardless of the naming strategy
func (PaymentEvent) TableName() string {
	return "payment_events"
}
