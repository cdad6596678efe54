package services

import (
	"context"
	"strings"

	"scanela-billing/internal/database"
	"scanela-billing/internal/models"
	"scanela-billing/pkg/logging"
)

// UserLookup finds the owner of a subscription row by a Paddle id.
// An empty user id with a nil error means no row matched.
type UserLookup interface {
	UserIDByCustomerID(ctx context.Context, customerID string) (string, error)
	UserIDBySubscriptionID(ctx context.Context, subscriptionID string) (string, error)
}

type dbUserLookup struct{}

func (dbUserLookup) UserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	return database.FindUserIDByCustomerID(ctx, customerID)
}

func (dbUserLookup) UserIDBySubscriptionID(ctx context.Context, subscriptionID string) (string, error) {
	return database.FindUserIDBySubscriptionID(ctx, subscriptionID)
}

// UserResolver maps a webhook event to an internal user id.
type UserResolver struct {
	lookup UserLookup
}

// NewUserResolver creates a resolver backed by the subscriptions table
func NewUserResolver() *UserResolver {
	return &UserResolver{lookup: dbUserLookup{}}
}

// NewUserResolverWithLookup creates a resolver over a custom lookup
func NewUserResolverWithLookup(lookup UserLookup) *UserResolver {
	return &UserResolver{lookup: lookup}
}

// Resolve returns the user id for event, or nil. It never fails: lookup
// errors are logged and treated as no match.
//
// customer_id is tried first and wins even when a subscription id would map
// to a different user.
func (r *UserResolver) Resolve(ctx context.Context, event *models.PaddleEvent) *string {
	if event == nil {
		return nil
	}
	data := event.Payload()

	if customerID := data.CustomerID(); customerID != "" {
		userID, err := r.lookup.UserIDByCustomerID(ctx, customerID)
		if err != nil {
			logging.Errorf("User lookup by customer failed - customer_id: %s, error: %v", customerID, err)
		} else if userID != "" {
			return &userID
		}
	}

	if !strings.Contains(event.EventType, "subscription") {
		return nil
	}

	subscriptionID := data.SubscriptionID()
	if subscriptionID == "" {
		subscriptionID = data.ID()
	}
	if subscriptionID == "" {
		return nil
	}

	userID, err := r.lookup.UserIDBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		logging.Errorf("User lookup by subscription failed - subscription_id: %s, error: %v", subscriptionID, err)
		return nil
	}
	if userID == "" {
		return nil
	}
	return &userID
}
