package services

import (
	"context"
	"fmt"
	"time"

	"scanela-billing/internal/config"
	"scanela-billing/internal/database"
	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/pkg/logging"
)

// PaddleGateway is the subset of the Paddle API billing uses.
type PaddleGateway interface {
	CreateTransaction(ctx context.Context, priceID string, customData map[string]string, successURL string) (*CheckoutTransaction, error)
	GetSubscription(ctx context.Context, subscriptionID string) (models.PaddleData, error)
	CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (models.PaddleData, error)
}

// CheckoutResult is returned to the client to redirect into Paddle checkout.
type CheckoutResult struct {
	URL        string `json:"url"`
	CheckoutID string `json:"checkoutId"`
}

// CancelResult confirms a cancellation request.
type CancelResult struct {
	Message     string     `json:"message"`
	EffectiveAt *time.Time `json:"effectiveAt"`
}

// BillingService implements the user-initiated billing flows. Unlike the
// webhook path, every failure here is returned to the caller.
type BillingService struct {
	paddle     PaddleGateway
	processor  *WebhookProcessor
	mirror     MetadataMirror
	logger     *EventLogger
	mailer     Mailer
	cache      PlanCache
	successURL string
}

// NewBillingService creates a billing service. mailer and cache may be nil.
func NewBillingService(paddle PaddleGateway, processor *WebhookProcessor, mirror MetadataMirror, logger *EventLogger, mailer Mailer, cache PlanCache, successURL string) *BillingService {
	if mirror == nil {
		mirror = NoopMetadataMirror{}
	}
	return &BillingService{
		paddle:     paddle,
		processor:  processor,
		mirror:     mirror,
		logger:     logger,
		mailer:     mailer,
		cache:      cache,
		successURL: successURL,
	}
}

// CreateCheckout opens a Paddle checkout for a paid tier and seeds the
// caller's row as incomplete.
func (s *BillingService) CreateCheckout(ctx context.Context, principal *Principal, planID, rawInterval string) (*CheckoutResult, error) {
	tier, ok := plans.ParseTier(planID)
	if !ok || !plans.IsPaid(tier) {
		return nil, ErrInvalidPlan
	}
	interval := plans.Monthly
	if rawInterval != "" {
		if interval, ok = plans.ParseInterval(rawInterval); !ok {
			return nil, ErrInvalidInterval
		}
	}

	priceID, key := config.PriceID(string(tier), string(interval))
	if priceID == "" {
		logging.Errorf("Checkout price missing - env key %s is not set", key)
		return nil, ErrPriceNotConfigured
	}

	tx, err := s.paddle.CreateTransaction(ctx, priceID, map[string]string{
		"user_id":  principal.ID,
		"plan":     string(tier),
		"interval": string(interval),
	}, s.successURL)
	if err != nil {
		logging.Errorf("Checkout creation failed - user_id: %s, plan: %s, error: %v", principal.ID, tier, err)
		return nil, err
	}

	values := map[string]interface{}{
		"status":             "incomplete",
		"plan_source":        string(plans.SourcePaddle),
		"billing_period":     string(interval),
		"paddle_checkout_id": tx.ID,
		"updated_at":         nowUTC(),
	}
	if database.Caps.PaddlePriceID {
		values["paddle_price_id"] = priceID
	}
	defaults := map[string]interface{}{
		"plan":          string(plans.ToDB(plans.Free)),
		"plan_metadata": models.NewPlanMetadata(plans.Free),
	}
	if err := database.UpsertSubscription(ctx, principal.ID, values, defaults); err != nil {
		logging.Errorf("Failed to seed subscription - user_id: %s, error: %v", principal.ID, err)
		return nil, fmt.Errorf("seed subscription: %w", err)
	}

	s.logger.Log(ctx, &principal.ID, "checkout.created", tx.ID, map[string]string{
		"plan":     string(tier),
		"interval": string(interval),
		"price_id": priceID,
	})
	logging.Infof("Checkout created - user_id: %s, plan: %s, interval: %s, checkout_id: %s", principal.ID, tier, interval, tx.ID)

	return &CheckoutResult{URL: tx.URL, CheckoutID: tx.ID}, nil
}

// Cancel cancels the caller's Paddle subscription now or at period end.
func (s *BillingService) Cancel(ctx context.Context, principal *Principal, immediate bool) (*CancelResult, error) {
	sub, err := database.FindSubscriptionByUserID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil || sub.PaddleSubscriptionID == nil || *sub.PaddleSubscriptionID == "" {
		return nil, ErrNoActiveSubscription
	}

	data, err := s.paddle.CancelSubscription(ctx, *sub.PaddleSubscriptionID, immediate)
	if err != nil {
		logging.Errorf("Paddle cancel failed - user_id: %s, subscription_id: %s, error: %v", principal.ID, *sub.PaddleSubscriptionID, err)
		return nil, err
	}

	var (
		fields      SubscriptionFields
		effectiveAt *time.Time
		tier        = sub.Tier()
		eventType   = "subscription.cancelled.scheduled"
		message     = "Subscription will be cancelled at the end of the billing period"
	)
	if immediate {
		tier = plans.Free
		status := "canceled"
		cancelAtPeriodEnd := false
		fields = SubscriptionFields{Tier: &tier, Status: &status, CancelAtPeriodEnd: &cancelAtPeriodEnd}
		effectiveAt = data.CanceledAt()
		if effectiveAt == nil {
			now := nowUTC()
			effectiveAt = &now
		}
		eventType = "subscription.cancelled.immediate"
		message = "Subscription cancelled"
	} else {
		cancelAtPeriodEnd := true
		fields = SubscriptionFields{CancelAtPeriodEnd: &cancelAtPeriodEnd}
		if status := data.Status(); status != "" {
			fields.Status = &status
		}
		effectiveAt = data.ScheduledChangeAt()
		if effectiveAt == nil {
			effectiveAt = sub.CurrentPeriodEnd
		}
	}

	if err := database.UpsertSubscription(ctx, principal.ID, fields.values(nowUTC()), nil); err != nil {
		logging.Errorf("Failed to record cancellation - user_id: %s, error: %v", principal.ID, err)
		return nil, fmt.Errorf("record cancellation: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, principal.ID)
	}

	mirrorPlan(ctx, s.mirror, principal.ID, tier)
	s.logger.Log(ctx, &principal.ID, eventType, *sub.PaddleSubscriptionID, map[string]interface{}{
		"immediate":    immediate,
		"effective_at": effectiveAt,
	})

	if s.mailer != nil && principal.Email != "" {
		if err := s.mailer.SendCancellationEmail(ctx, principal.Email, immediate, effectiveAt); err != nil {
			logging.Errorf("Cancellation email failed - user_id: %s, error: %v", principal.ID, err)
		}
	}

	return &CancelResult{Message: message, EffectiveAt: effectiveAt}, nil
}

// Sync pulls the caller's subscription from Paddle and reconciles it the same
// way a subscription.updated delivery would.
func (s *BillingService) Sync(ctx context.Context, principal *Principal) (*models.Subscription, error) {
	sub, err := database.FindSubscriptionByUserID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil || sub.PaddleSubscriptionID == nil || *sub.PaddleSubscriptionID == "" {
		return nil, ErrNoActiveSubscription
	}

	data, err := s.paddle.GetSubscription(ctx, *sub.PaddleSubscriptionID)
	if err != nil {
		logging.Errorf("Paddle subscription fetch failed - user_id: %s, error: %v", principal.ID, err)
		return nil, err
	}

	event := &models.PaddleEvent{EventType: EventSubscriptionUpdated, Data: data}
	userID := principal.ID
	if data.Status() == "canceled" {
		s.processor.handleSubscriptionCanceled(ctx, event, &userID)
	} else {
		s.processor.handleSubscriptionChange(ctx, event, &userID, true)
	}
	s.logger.Log(ctx, &userID, "subscription.synced", *sub.PaddleSubscriptionID, data)

	return database.FindSubscriptionByUserID(ctx, principal.ID)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
