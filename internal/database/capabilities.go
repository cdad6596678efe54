package database

import (
	"scanela-billing/internal/models"
	"scanela-billing/pkg/logging"

	"gorm.io/gorm"
)

// Capabilities records which optional correlation columns exist in the
// deployed subscriptions table. Older schemas predate some of them.
type Capabilities struct {
	PaddleSubscriptionID bool
	PaddleCustomerID     bool
	PaddlePriceID        bool
}

// AllCapabilities assumes the current schema.
func AllCapabilities() Capabilities {
	return Capabilities{PaddleSubscriptionID: true, PaddleCustomerID: true, PaddlePriceID: true}
}

// Has reports whether column is known to exist.
func (c Capabilities) Has(column string) bool {
	switch column {
	case "paddle_subscription_id":
		return c.PaddleSubscriptionID
	case "paddle_customer_id":
		return c.PaddleCustomerID
	case "paddle_price_id":
		return c.PaddlePriceID
	}
	return true
}

// DetectCapabilities checks the optional columns once at startup and warns
// about each missing one, instead of failing silently on every request.
func DetectCapabilities(db *gorm.DB) Capabilities {
	m := db.Migrator()
	caps := Capabilities{
		PaddleSubscriptionID: m.HasColumn(&models.Subscription{}, "paddle_subscription_id"),
		PaddleCustomerID:     m.HasColumn(&models.Subscription{}, "paddle_customer_id"),
		PaddlePriceID:        m.HasColumn(&models.Subscription{}, "paddle_price_id"),
	}

	for _, col := range []string{"paddle_subscription_id", "paddle_customer_id", "paddle_price_id"} {
		if !caps.Has(col) {
			logging.Warnf("subscriptions.%s is missing; correlation updates for it are disabled", col)
		}
	}
	return caps
}
