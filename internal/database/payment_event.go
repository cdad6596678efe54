package database

import (
	"context"

	"scanela-billing/internal/models"
)

// CreatePaymentEvent appends an audit row
func CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	return DB.WithContext(ctx).Create(event).Error
}

// ListPaymentEventsByUser returns the user's most recent events first
func ListPaymentEventsByUser(ctx context.Context, userID string, limit, offset int) ([]models.PaymentEvent, int64, error) {
	var total int64
	if err := DB.WithContext(ctx).Model(&models.PaymentEvent{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.PaymentEvent
	err := DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, total, err
}
