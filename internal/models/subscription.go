package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"scanela-billing/internal/plans"
)

// Subscription is the single billing record of a user.
// A missing row means the user has no paid relationship and is on the free tier.
type Subscription struct {
	BaseModel

	UserID string `json:"user_id" gorm:"not null;size:64;uniqueIndex"`

	// plan is the collapsed code (basico|pro); plan_metadata carries the exact tier.
	Plan         string        `json:"plan" gorm:"not null;size:20;default:'basico'"`
	PlanMetadata *PlanMetadata `json:"plan_metadata" gorm:"type:json"`
	PlanSource   string        `json:"plan_source" gorm:"size:20"`

	Status             string     `json:"status" gorm:"size:32;index"`
	BillingPeriod      string     `json:"billing_period" gorm:"size:20"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end" gorm:"default:false"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`

	PaddleSubscriptionID *string `json:"paddle_subscription_id" gorm:"size:64;index"`
	PaddleCustomerID     *string `json:"paddle_customer_id" gorm:"size:64;index"`
	PaddlePriceID        *string `json:"paddle_price_id" gorm:"size:64"`
	PaddleCheckoutID     *string `json:"paddle_checkout_id" gorm:"size:64"`
	PaddleTransactionID  *string `json:"paddle_transaction_id" gorm:"size:64"`

	// Legacy provider columns, kept for old rows and never written.
	StripeCustomerID     *string `json:"-" gorm:"size:64"`
	StripeSubscriptionID *string `json:"-" gorm:"size:64"`

	LastPaymentStatus *string    `json:"last_payment_status" gorm:"size:20"`
	LastPaymentAt     *time.Time `json:"last_payment_at"`
}

// TableName pins the table name regardless of the naming strategy
func (Subscription) TableName() string {
	return "subscriptions"
}

// Tier resolves the user-facing tier of the row.
func (s *Subscription) Tier() plans.Tier {
	if s == nil {
		return plans.Free
	}
	if s.PlanMetadata == nil {
		return plans.Resolve(nil, s.Plan)
	}
	m := plans.Metadata(*s.PlanMetadata)
	return plans.Resolve(&m, s.Plan)
}

// PlanMetadata is the JSON column {"code": <tier>}.
type PlanMetadata plans.Metadata

// NewPlanMetadata builds the column value for a tier.
func NewPlanMetadata(t plans.Tier) *PlanMetadata {
	m := PlanMetadata(plans.NewMetadata(t))
	return &m
}

// Value implements driver.Valuer
func (m PlanMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *PlanMetadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = PlanMetadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported plan_metadata type %T", value)
	}
	if len(raw) == 0 {
		*m = PlanMetadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}
