package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scanela-billing/internal/database"
	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaddle struct {
	mu           sync.Mutex
	tx           *CheckoutTransaction
	subscription models.PaddleData
	cancelData   models.PaddleData
	err          error

	createdPrice string
	customData   map[string]string
	cancelled    []bool
}

func (f *fakePaddle) CreateTransaction(_ context.Context, priceID string, customData map[string]string, _ string) (*CheckoutTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdPrice = priceID
	f.customData = customData
	return f.tx, f.err
}

func (f *fakePaddle) GetSubscription(context.Context, string) (models.PaddleData, error) {
	return f.subscription, f.err
}

func (f *fakePaddle) CancelSubscription(_ context.Context, _ string, immediate bool) (models.PaddleData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, immediate)
	return f.cancelData, f.err
}

type recordingMailer struct {
	sent []string
}

func (m *recordingMailer) SendCancellationEmail(_ context.Context, to string, _ bool, _ *time.Time) error {
	m.sent = append(m.sent, to)
	return nil
}

func newTestBilling(paddle PaddleGateway, mirror MetadataMirror, mailer Mailer) *BillingService {
	processor := newTestProcessor(mirror)
	return NewBillingService(paddle, processor, mirror, NewEventLogger(), mailer, nil, "")
}

func TestCreateCheckout_SeedsIncompleteRow(t *testing.T) {
	testutil.SetupTestDB(t)
	t.Setenv("PADDLE_PRICE_MENU_ANNUAL", "pri_menu_y")

	paddle := &fakePaddle{tx: &CheckoutTransaction{ID: "txn_1", URL: "https://pay.example.com/txn_1"}}
	svc := newTestBilling(paddle, &recordingMirror{}, nil)

	result, err := svc.CreateCheckout(context.Background(), &Principal{ID: "user-1"}, "menu", "annual")
	require.NoError(t, err)
	assert.Equal(t, &CheckoutResult{URL: "https://pay.example.com/txn_1", CheckoutID: "txn_1"}, result)
	assert.Equal(t, "pri_menu_y", paddle.createdPrice)
	assert.Equal(t, "user-1", paddle.customData["user_id"])

	sub := loadSubscription(t, "user-1")
	require.NotNil(t, sub)
	assert.Equal(t, "incomplete", sub.Status)
	assert.Equal(t, plans.Free, sub.Tier())
	assert.Equal(t, "annual", sub.BillingPeriod)
	require.NotNil(t, sub.PaddleCheckoutID)
	assert.Equal(t, "txn_1", *sub.PaddleCheckoutID)

	events, total, err := database.ListPaymentEventsByUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "checkout.created", events[0].EventType)
	assert.Equal(t, "txn_1", events[0].PaddleID)
}

func TestCreateCheckout_DefaultsToMonthly(t *testing.T) {
	testutil.SetupTestDB(t)
	t.Setenv("PADDLE_PRICE_VENTAS_MONTHLY", "pri_ventas_m")

	paddle := &fakePaddle{tx: &CheckoutTransaction{ID: "txn_2", URL: "https://pay.example.com/txn_2"}}
	_, err := newTestBilling(paddle, nil, nil).CreateCheckout(context.Background(), &Principal{ID: "user-1"}, "ventas", "")
	require.NoError(t, err)
	assert.Equal(t, "pri_ventas_m", paddle.createdPrice)
}

func TestCreateCheckout_KeepsExistingTier(t *testing.T) {
	testutil.SetupTestDB(t)
	t.Setenv("PADDLE_PRICE_VENTAS_MONTHLY", "pri_ventas_m")
	NewReconciler(nil).Persist(context.Background(), PersistInput{
		UserID: testutil.StrPtr("user-1"),
		Fields: SubscriptionFields{Tier: tierPtr(plans.Menu)},
	})

	paddle := &fakePaddle{tx: &CheckoutTransaction{ID: "txn_3", URL: "https://pay.example.com/txn_3"}}
	_, err := newTestBilling(paddle, nil, nil).CreateCheckout(context.Background(), &Principal{ID: "user-1"}, "ventas", "monthly")
	require.NoError(t, err)

	assert.Equal(t, plans.Menu, loadSubscription(t, "user-1").Tier())
}

func TestCreateCheckout_Validation(t *testing.T) {
	testutil.SetupTestDB(t)
	svc := newTestBilling(&fakePaddle{}, nil, nil)
	ctx := context.Background()
	principal := &Principal{ID: "user-1"}

	_, err := svc.CreateCheckout(ctx, principal, "free", "monthly")
	assert.ErrorIs(t, err, ErrInvalidPlan)
	_, err = svc.CreateCheckout(ctx, principal, "gold", "monthly")
	assert.ErrorIs(t, err, ErrInvalidPlan)
	_, err = svc.CreateCheckout(ctx, principal, "menu", "weekly")
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = svc.CreateCheckout(ctx, principal, "menu", "year")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCreateCheckout_PriceNotConfigured(t *testing.T) {
	testutil.SetupTestDB(t)
	t.Setenv("PADDLE_PRICE_MENU_MONTHLY", "")

	paddle := &fakePaddle{}
	_, err := newTestBilling(paddle, nil, nil).CreateCheckout(context.Background(), &Principal{ID: "user-1"}, "menu", "monthly")
	assert.ErrorIs(t, err, ErrPriceNotConfigured)
	assert.Empty(t, paddle.createdPrice)
	assert.EqualValues(t, 0, countSubscriptions(t))
}

func TestCreateCheckout_ProviderFailureLeavesNoRow(t *testing.T) {
	testutil.SetupTestDB(t)
	t.Setenv("PADDLE_PRICE_MENU_MONTHLY", "pri_menu_m")

	paddle := &fakePaddle{err: ErrProviderTimeout}
	_, err := newTestBilling(paddle, nil, nil).CreateCheckout(context.Background(), &Principal{ID: "user-1"}, "menu", "monthly")
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.EqualValues(t, 0, countSubscriptions(t))
}

func seedActive(t *testing.T, userID string, tier plans.Tier) {
	t.Helper()
	status := "active"
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	NewReconciler(nil).Persist(context.Background(), PersistInput{
		UserID:         &userID,
		SubscriptionID: "sub_" + userID,
		Fields:         SubscriptionFields{Tier: &tier, Status: &status, CurrentPeriodEnd: &end},
	})
}

func TestCancel_Immediate(t *testing.T) {
	testutil.SetupTestDB(t)
	seedActive(t, "user-1", plans.Ventas)

	paddle := &fakePaddle{cancelData: models.PaddleData{"status": "canceled", "canceled_at": "2026-05-01T10:00:00Z"}}
	mirror := &recordingMirror{}
	mailer := &recordingMailer{}

	result, err := newTestBilling(paddle, mirror, mailer).Cancel(context.Background(), &Principal{ID: "user-1", Email: "a@example.com"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Subscription cancelled", result.Message)
	require.NotNil(t, result.EffectiveAt)
	assert.True(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC).Equal(*result.EffectiveAt))

	sub := loadSubscription(t, "user-1")
	assert.Equal(t, plans.Free, sub.Tier())
	assert.Equal(t, "canceled", sub.Status)
	assert.False(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, []bool{true}, paddle.cancelled)
	assert.Equal(t, []mirrorCall{{"user-1", plans.Free}}, mirror.Calls())
	assert.Equal(t, []string{"a@example.com"}, mailer.sent)

	events, _, err := database.ListPaymentEventsByUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "subscription.cancelled.immediate", events[0].EventType)
}

func TestCancel_Scheduled(t *testing.T) {
	testutil.SetupTestDB(t)
	seedActive(t, "user-1", plans.Menu)

	paddle := &fakePaddle{cancelData: models.PaddleData{
		"status":           "active",
		"scheduled_change": map[string]interface{}{"action": "cancel", "effective_at": "2026-07-01T00:00:00Z"},
	}}
	mirror := &recordingMirror{}

	result, err := newTestBilling(paddle, mirror, nil).Cancel(context.Background(), &Principal{ID: "user-1"}, false)
	require.NoError(t, err)
	require.NotNil(t, result.EffectiveAt)
	assert.Equal(t, 2026, result.EffectiveAt.Year())

	sub := loadSubscription(t, "user-1")
	assert.Equal(t, plans.Menu, sub.Tier())
	assert.Equal(t, "active", sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, []bool{false}, paddle.cancelled)
	assert.Equal(t, []mirrorCall{{"user-1", plans.Menu}}, mirror.Calls())
}

func TestCancel_NoSubscription(t *testing.T) {
	testutil.SetupTestDB(t)
	require.NoError(t, database.UpsertSubscription(context.Background(), "user-2", map[string]interface{}{"status": "incomplete"}, nil))

	svc := newTestBilling(&fakePaddle{}, nil, nil)
	_, err := svc.Cancel(context.Background(), &Principal{ID: "user-1"}, true)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
	_, err = svc.Cancel(context.Background(), &Principal{ID: "user-2"}, true)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestCancel_ProviderErrorLeavesRow(t *testing.T) {
	testutil.SetupTestDB(t)
	seedActive(t, "user-1", plans.Ventas)

	paddle := &fakePaddle{err: &PaddleAPIError{StatusCode: 409, Message: "subscription is locked"}}
	_, err := newTestBilling(paddle, nil, nil).Cancel(context.Background(), &Principal{ID: "user-1"}, true)

	var apiErr *PaddleAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "active", loadSubscription(t, "user-1").Status)
}

func TestSync_ReconcilesFromPaddle(t *testing.T) {
	testutil.SetupTestDB(t)
	seedActive(t, "user-1", plans.Menu)

	paddle := &fakePaddle{subscription: models.PaddleData{
		"id":     "sub_user-1",
		"status": "active",
		"items":  []interface{}{map[string]interface{}{"price_id": "pri_ventas_y"}},
	}}
	mirror := &recordingMirror{}

	sub, err := newTestBilling(paddle, mirror, nil).Sync(context.Background(), &Principal{ID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, plans.Ventas, sub.Tier())
	assert.Equal(t, "annual", sub.BillingPeriod)
	assert.Equal(t, []mirrorCall{{"user-1", plans.Ventas}}, mirror.Calls())
}

func TestSync_CanceledUpstream(t *testing.T) {
	testutil.SetupTestDB(t)
	seedActive(t, "user-1", plans.Ventas)

	paddle := &fakePaddle{subscription: models.PaddleData{"id": "sub_user-1", "status": "canceled"}}
	sub, err := newTestBilling(paddle, nil, nil).Sync(context.Background(), &Principal{ID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, plans.Free, sub.Tier())
	assert.Equal(t, "canceled", sub.Status)
}
