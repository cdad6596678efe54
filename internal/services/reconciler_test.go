package services

import (
	"context"
	"testing"
	"time"

	"scanela-billing/internal/database"
	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tierPtr(t plans.Tier) *plans.Tier { return &t }

func loadSubscription(t *testing.T, userID string) *models.Subscription {
	t.Helper()
	sub, err := database.FindSubscriptionByUserID(context.Background(), userID)
	require.NoError(t, err)
	return sub
}

func countSubscriptions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, database.DB.Model(&models.Subscription{}).Count(&n).Error)
	return n
}

func TestReconciler_PersistWithUserUpserts(t *testing.T) {
	testutil.SetupTestDB(t)
	ctx := context.Background()
	r := NewReconciler(nil)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	interval := plans.Annual
	status := "active"

	r.Persist(ctx, PersistInput{
		UserID:         testutil.StrPtr("user-1"),
		SubscriptionID: "sub_1",
		CustomerID:     "ctm_1",
		PriceID:        "pri_ventas_y",
		Fields: SubscriptionFields{
			Tier:               tierPtr(plans.Ventas),
			Status:             &status,
			BillingPeriod:      &interval,
			CurrentPeriodStart: &start,
			CurrentPeriodEnd:   &end,
		},
	})

	sub := loadSubscription(t, "user-1")
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.Plan)
	assert.Equal(t, plans.Ventas, sub.Tier())
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "annual", sub.BillingPeriod)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, end.Equal(*sub.CurrentPeriodEnd))
	require.NotNil(t, sub.PaddleSubscriptionID)
	assert.Equal(t, "sub_1", *sub.PaddleSubscriptionID)
	require.NotNil(t, sub.PaddleCustomerID)
	assert.Equal(t, "ctm_1", *sub.PaddleCustomerID)
	require.NotNil(t, sub.PaddlePriceID)
	assert.Equal(t, "pri_ventas_y", *sub.PaddlePriceID)
}

func TestReconciler_AbsentFieldsAreNotOverwritten(t *testing.T) {
	testutil.SetupTestDB(t)
	ctx := context.Background()
	r := NewReconciler(nil)
	user := testutil.StrPtr("user-1")

	status := "active"
	r.Persist(ctx, PersistInput{UserID: user, Fields: SubscriptionFields{Tier: tierPtr(plans.Menu), Status: &status}})

	cancel := true
	r.Persist(ctx, PersistInput{UserID: user, Fields: SubscriptionFields{CancelAtPeriodEnd: &cancel}})

	sub := loadSubscription(t, "user-1")
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, plans.Menu, sub.Tier())
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.EqualValues(t, 1, countSubscriptions(t))
}

func TestReconciler_ProviderIDPathsNeverInsert(t *testing.T) {
	testutil.SetupTestDB(t)
	ctx := context.Background()
	r := NewReconciler(nil)
	status := "past_due"

	r.Persist(ctx, PersistInput{SubscriptionID: "sub_unknown", Fields: SubscriptionFields{Status: &status}})
	r.Persist(ctx, PersistInput{CustomerID: "ctm_unknown", Fields: SubscriptionFields{Status: &status}})
	r.Persist(ctx, PersistInput{Fields: SubscriptionFields{Status: &status}})

	assert.EqualValues(t, 0, countSubscriptions(t))
}

func TestReconciler_UpdateBySubscriptionThenCustomer(t *testing.T) {
	testutil.SetupTestDB(t)
	ctx := context.Background()
	r := NewReconciler(nil)
	seedCorrelation(t, "user-1", "ctm_1", "sub_1")

	status := "past_due"
	r.Persist(ctx, PersistInput{SubscriptionID: "sub_1", CustomerID: "ctm_other", Fields: SubscriptionFields{Status: &status}})
	assert.Equal(t, "past_due", loadSubscription(t, "user-1").Status)

	status = "active"
	r.Persist(ctx, PersistInput{CustomerID: "ctm_1", Fields: SubscriptionFields{Status: &status}})
	assert.Equal(t, "active", loadSubscription(t, "user-1").Status)
}

func TestReconciler_MissingOptionalColumnDoesNotAbortOthers(t *testing.T) {
	testutil.SetupTestDB(t)
	database.Caps.PaddlePriceID = false

	r := NewReconciler(nil)
	status := "active"
	r.Persist(context.Background(), PersistInput{
		UserID:         testutil.StrPtr("user-1"),
		SubscriptionID: "sub_1",
		CustomerID:     "ctm_1",
		PriceID:        "pri_menu_m",
		Fields:         SubscriptionFields{Status: &status},
	})

	sub := loadSubscription(t, "user-1")
	require.NotNil(t, sub)
	assert.Equal(t, "active", sub.Status)
	assert.Nil(t, sub.PaddlePriceID)
	require.NotNil(t, sub.PaddleSubscriptionID)
	assert.Equal(t, "sub_1", *sub.PaddleSubscriptionID)
	require.NotNil(t, sub.PaddleCustomerID)
	assert.Equal(t, "ctm_1", *sub.PaddleCustomerID)
}

func TestReconciler_UpdateNeverInserts(t *testing.T) {
	testutil.SetupTestDB(t)
	ctx := context.Background()
	r := NewReconciler(nil)
	paid := "paid"
	now := time.Now().UTC()

	r.Update(ctx, PersistInput{UserID: testutil.StrPtr("user-x"), Fields: SubscriptionFields{LastPaymentStatus: &paid, LastPaymentAt: &now}})
	assert.EqualValues(t, 0, countSubscriptions(t))

	seedCorrelation(t, "user-1", "ctm_1", "")
	r.Update(ctx, PersistInput{CustomerID: "ctm_1", Fields: SubscriptionFields{LastPaymentStatus: &paid, LastPaymentAt: &now}})

	sub := loadSubscription(t, "user-1")
	require.NotNil(t, sub.LastPaymentStatus)
	assert.Equal(t, "paid", *sub.LastPaymentStatus)
}

func TestReconciler_InvalidatesPlanCache(t *testing.T) {
	testutil.SetupTestDB(t)
	ctx := context.Background()
	cache := NewMemoryPlanCache(time.Minute, 10)
	r := NewReconciler(cache)

	cache.Set(ctx, "user-1", plans.Free, cache.Generation(ctx, "user-1"))
	r.Persist(ctx, PersistInput{UserID: testutil.StrPtr("user-1"), CustomerID: "ctm_1", Fields: SubscriptionFields{Tier: tierPtr(plans.Menu)}})
	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok)

	cache.Set(ctx, "user-1", plans.Menu, cache.Generation(ctx, "user-1"))
	r.Persist(ctx, PersistInput{CustomerID: "ctm_1", Fields: SubscriptionFields{Tier: tierPtr(plans.Ventas)}})
	_, ok = cache.Get(ctx, "user-1")
	assert.False(t, ok)
}
