package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"scanela-billing/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns that may be used to address a subscription row.
const (
	ColumnUserID               = "user_id"
	ColumnPaddleSubscriptionID = "paddle_subscription_id"
	ColumnPaddleCustomerID     = "paddle_customer_id"
)

// FindSubscriptionByUserID returns the user's row, or nil when the user has none.
func FindSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.WithContext(ctx).Where("user_id = ?", userID).First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// FindUserIDByCustomerID returns the owner of the row carrying customerID, or "".
func FindUserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	return findUserIDBy(ctx, ColumnPaddleCustomerID, customerID)
}

// FindUserIDBySubscriptionID returns the owner of the row carrying subscriptionID, or "".
func FindUserIDBySubscriptionID(ctx context.Context, subscriptionID string) (string, error) {
	return findUserIDBy(ctx, ColumnPaddleSubscriptionID, subscriptionID)
}

func findUserIDBy(ctx context.Context, column, value string) (string, error) {
	var subscription models.Subscription
	err := DB.WithContext(ctx).
		Select("user_id").
		Where(column+" = ?", value).
		Order("updated_at DESC").
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return subscription.UserID, nil
}

// UpsertSubscription inserts or updates the row owned by userID. values are
// written on both paths; insertDefaults only when the row is created.
func UpsertSubscription(ctx context.Context, userID string, values, insertDefaults map[string]interface{}) error {
	if userID == "" {
		return fmt.Errorf("upsert subscription: empty user id")
	}

	now := time.Now().UTC()
	row := map[string]interface{}{
		"user_id":    userID,
		"created_at": now,
		"updated_at": now,
	}
	for k, v := range insertDefaults {
		row[k] = v
	}
	for k, v := range values {
		row[k] = v
	}

	updateCols := make([]string, 0, len(values)+1)
	for k := range values {
		updateCols = append(updateCols, k)
	}
	if _, ok := values["updated_at"]; !ok {
		updateCols = append(updateCols, "updated_at")
	}
	sort.Strings(updateCols)

	return DB.WithContext(ctx).
		Model(&models.Subscription{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: ColumnUserID}},
			DoUpdates: clause.AssignmentColumns(updateCols),
		}).
		Create(row).Error
}

// UpdateSubscriptionsBy updates rows matching column = value and returns how
// many were touched. It never inserts.
func UpdateSubscriptionsBy(ctx context.Context, column, value string, values map[string]interface{}) (int64, error) {
	switch column {
	case ColumnUserID, ColumnPaddleSubscriptionID, ColumnPaddleCustomerID:
	default:
		return 0, fmt.Errorf("update subscription: unsupported key column %q", column)
	}
	if value == "" {
		return 0, fmt.Errorf("update subscription: empty %s", column)
	}
	if len(values) == 0 {
		return 0, nil
	}

	result := DB.WithContext(ctx).
		Model(&models.Subscription{}).
		Where(column+" = ?", value).
		Updates(values)
	return result.RowsAffected, result.Error
}

// SetSubscriptionColumn writes one column on the user's row.
func SetSubscriptionColumn(ctx context.Context, userID, column string, value interface{}) error {
	return DB.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Update(column, value).Error
}
