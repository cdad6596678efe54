package services

import (
	"context"
	"time"

	"scanela-billing/internal/database"
	"scanela-billing/internal/metrics"
	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/pkg/logging"
)

// SubscriptionFields is the set of columns a reconciliation may write. A nil
// field is left untouched.
type SubscriptionFields struct {
	Tier               *plans.Tier
	Source             *plans.Source
	Status             *string
	BillingPeriod      *plans.Interval
	CancelAtPeriodEnd  *bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	LastPaymentStatus  *string
	LastPaymentAt      *time.Time
}

// values builds the safe payload. The tier fans out to both plan and
// plan_metadata so the two never disagree.
func (f SubscriptionFields) values(now time.Time) map[string]interface{} {
	values := map[string]interface{}{"updated_at": now}
	if f.Tier != nil {
		values["plan"] = string(plans.ToDB(*f.Tier))
		values["plan_metadata"] = models.NewPlanMetadata(*f.Tier)
	}
	if f.Source != nil {
		values["plan_source"] = string(*f.Source)
	}
	if f.Status != nil {
		values["status"] = *f.Status
	}
	if f.BillingPeriod != nil {
		values["billing_period"] = string(*f.BillingPeriod)
	}
	if f.CancelAtPeriodEnd != nil {
		values["cancel_at_period_end"] = *f.CancelAtPeriodEnd
	}
	if f.CurrentPeriodStart != nil {
		values["current_period_start"] = f.CurrentPeriodStart.UTC()
	}
	if f.CurrentPeriodEnd != nil {
		values["current_period_end"] = f.CurrentPeriodEnd.UTC()
	}
	if f.LastPaymentStatus != nil {
		values["last_payment_status"] = *f.LastPaymentStatus
	}
	if f.LastPaymentAt != nil {
		values["last_payment_at"] = f.LastPaymentAt.UTC()
	}
	return values
}

// PersistInput addresses the row to reconcile and carries the new state.
type PersistInput struct {
	UserID         *string
	SubscriptionID string
	CustomerID     string
	PriceID        string
	Fields         SubscriptionFields
}

// Reconciler writes provider state onto the subscriptions table.
type Reconciler struct {
	cache PlanCache
	now   func() time.Time
}

// NewReconciler creates a reconciler. cache may be nil.
func NewReconciler(cache PlanCache) *Reconciler {
	return &Reconciler{cache: cache, now: time.Now}
}

// Persist is best-effort: every failure is logged and counted, none is returned.
//
// With a user id the row is upserted and the correlation ids are written one
// column at a time. Without one, only an existing row matched by subscription
// id, then by customer id, is updated.
func (r *Reconciler) Persist(ctx context.Context, in PersistInput) {
	values := in.Fields.values(r.now().UTC())

	switch {
	case in.UserID != nil && *in.UserID != "":
		userID := *in.UserID
		if err := database.UpsertSubscription(ctx, userID, values, nil); err != nil {
			logging.Errorf("Subscription upsert failed - user_id: %s, error: %v", userID, err)
			metrics.IncReconcileError("upsert")
		}
		r.setCorrelation(ctx, userID, database.ColumnPaddleSubscriptionID, in.SubscriptionID)
		r.setCorrelation(ctx, userID, database.ColumnPaddleCustomerID, in.CustomerID)
		r.setCorrelation(ctx, userID, "paddle_price_id", in.PriceID)
		r.invalidate(ctx, userID)

	case in.SubscriptionID != "":
		r.updateBy(ctx, database.ColumnPaddleSubscriptionID, in.SubscriptionID, values)

	case in.CustomerID != "":
		r.updateBy(ctx, database.ColumnPaddleCustomerID, in.CustomerID, values)

	default:
		logging.Debugf("Reconcile skipped: no user, subscription or customer id")
	}
}

// Update writes fields onto an existing row matched by user id, else by
// customer id. It never inserts and is a no-op when neither id is known.
func (r *Reconciler) Update(ctx context.Context, in PersistInput) {
	values := in.Fields.values(r.now().UTC())

	switch {
	case in.UserID != nil && *in.UserID != "":
		r.updateBy(ctx, database.ColumnUserID, *in.UserID, values)
	case in.CustomerID != "":
		r.updateBy(ctx, database.ColumnPaddleCustomerID, in.CustomerID, values)
	default:
		logging.Debugf("Update skipped: no user or customer id")
	}
}

func (r *Reconciler) setCorrelation(ctx context.Context, userID, column, value string) {
	if value == "" {
		return
	}
	if !database.Caps.Has(column) {
		return
	}
	if err := database.SetSubscriptionColumn(ctx, userID, column, value); err != nil {
		logging.Errorf("Failed to set %s - user_id: %s, error: %v", column, userID, err)
		metrics.IncReconcileError(column)
	}
}

func (r *Reconciler) updateBy(ctx context.Context, column, value string, values map[string]interface{}) {
	if !database.Caps.Has(column) {
		logging.Warnf("Reconcile by %s skipped: column missing", column)
		return
	}
	affected, err := database.UpdateSubscriptionsBy(ctx, column, value, values)
	if err != nil {
		logging.Errorf("Subscription update by %s failed - value: %s, error: %v", column, value, err)
		metrics.IncReconcileError("update_by_" + column)
		return
	}
	if affected == 0 {
		logging.Infof("No subscription row matched %s=%s", column, value)
		return
	}
	if r.cache == nil {
		return
	}
	// the cache is keyed by user, so find who owned the rows we just touched
	var userID string
	switch column {
	case database.ColumnUserID:
		userID = value
	case database.ColumnPaddleSubscriptionID:
		userID, err = database.FindUserIDBySubscriptionID(ctx, value)
	default:
		userID, err = database.FindUserIDByCustomerID(ctx, value)
	}
	if err == nil && userID != "" {
		r.invalidate(ctx, userID)
	}
}

func (r *Reconciler) invalidate(ctx context.Context, userID string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, userID)
	}
}
