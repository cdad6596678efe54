package services

import (
	"context"
	"fmt"
	"time"

	"scanela-billing/internal/config"
	"scanela-billing/internal/metrics"
	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/pkg/logging"
)

// Paddle event types the processor acts on.
const (
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
	EventTransactionCompleted = "transaction.completed"
)

// Outcomes reported to metrics.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// EnvPriceCatalog reads the four PADDLE_PRICE_* keys.
func EnvPriceCatalog() plans.PriceCatalog {
	menuMonthly, _ := config.PriceID(string(plans.Menu), string(plans.Monthly))
	menuAnnual, _ := config.PriceID(string(plans.Menu), string(plans.Annual))
	ventasMonthly, _ := config.PriceID(string(plans.Ventas), string(plans.Monthly))
	ventasAnnual, _ := config.PriceID(string(plans.Ventas), string(plans.Annual))
	return plans.PriceCatalog{
		MenuMonthly:   menuMonthly,
		MenuAnnual:    menuAnnual,
		VentasMonthly: ventasMonthly,
		VentasAnnual:  ventasAnnual,
	}
}

// WebhookProcessor turns a verified, parsed Paddle event into subscription
// state. Each delivery is handled independently and sequentially.
type WebhookProcessor struct {
	resolver   *UserResolver
	logger     *EventLogger
	reconciler *Reconciler
	mirror     MetadataMirror
	ledger     EventLedger
	catalog    func() plans.PriceCatalog
	now        func() time.Time
}

// WebhookProcessorOption customizes a WebhookProcessor.
type WebhookProcessorOption func(*WebhookProcessor)

// WithEventLedger skips reconciliation of event ids already seen.
func WithEventLedger(ledger EventLedger) WebhookProcessorOption {
	return func(p *WebhookProcessor) { p.ledger = ledger }
}

// WithPriceCatalog replaces the environment-backed price catalog.
func WithPriceCatalog(catalog func() plans.PriceCatalog) WebhookProcessorOption {
	return func(p *WebhookProcessor) { p.catalog = catalog }
}

// NewWebhookProcessor creates a processor
func NewWebhookProcessor(resolver *UserResolver, logger *EventLogger, reconciler *Reconciler, mirror MetadataMirror, opts ...WebhookProcessorOption) *WebhookProcessor {
	if mirror == nil {
		mirror = NoopMetadataMirror{}
	}
	p := &WebhookProcessor{
		resolver:   resolver,
		logger:     logger,
		reconciler: reconciler,
		mirror:     mirror,
		catalog:    EnvPriceCatalog,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process resolves the user, logs the event and dispatches it. rawBody is
// stored verbatim in the event log. The returned error is for logging only;
// callers must still acknowledge the delivery.
func (p *WebhookProcessor) Process(ctx context.Context, event *models.PaddleEvent, rawBody []byte) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("handler panic for %s: %v", event.EventType, r)
		}
	}()

	userID := p.resolver.Resolve(ctx, event)
	if userID == nil {
		// checkouts created here carry custom_data.user_id, which is the only
		// link for a customer Paddle has not told us about yet
		if custom := event.Payload().CustomUserID(); custom != "" {
			userID = &custom
		}
	}

	p.logger.Log(ctx, userID, event.EventType, event.EventID, rawBody)

	if p.ledger != nil && p.ledger.Seen(ctx, event.EventID) {
		logging.Infof("Skipping duplicate Paddle event - event_id: %s, type: %s", event.EventID, event.EventType)
		return OutcomeDuplicate, nil
	}

	logging.Infof("Processing Paddle event - event_id: %s, type: %s, user_id: %s", event.EventID, event.EventType, deref(userID))

	switch event.EventType {
	case EventSubscriptionCreated:
		p.handleSubscriptionChange(ctx, event, userID, false)
	case EventSubscriptionUpdated:
		p.handleSubscriptionChange(ctx, event, userID, true)
	case EventSubscriptionCanceled:
		p.handleSubscriptionCanceled(ctx, event, userID)
	case EventTransactionCompleted:
		p.handleTransactionCompleted(ctx, event, userID)
	default:
		logging.Infof("Unhandled Paddle event type: %s", event.EventType)
		return OutcomeIgnored, nil
	}
	return OutcomeProcessed, nil
}

// planForPrice returns the tier and interval sold by priceID. An unknown
// price falls back to menu and is logged and counted.
func (p *WebhookProcessor) planForPrice(priceID, rawInterval string) (plans.Tier, plans.Interval) {
	catalog := p.catalog()

	tier, ok := catalog.PlanForPrice(priceID)
	if !ok {
		logging.Warnf("Unmapped Paddle price id %q, defaulting to %s", priceID, plans.Menu)
		metrics.IncUnmappedPrice()
		tier = plans.Menu
	}

	interval, ok := catalog.IntervalForPrice(priceID)
	if !ok {
		interval = plans.NormalizeInterval(rawInterval)
	}
	return tier, interval
}

func (p *WebhookProcessor) handleSubscriptionChange(ctx context.Context, event *models.PaddleEvent, userID *string, updated bool) {
	data := event.Payload()
	priceID := data.FirstPriceID()
	tier, interval := p.planForPrice(priceID, data.BillingInterval())

	source := plans.SourcePaddle
	fields := SubscriptionFields{
		Tier:               &tier,
		Source:             &source,
		BillingPeriod:      &interval,
		CurrentPeriodStart: data.PeriodStart(),
		CurrentPeriodEnd:   data.PeriodEnd(),
	}
	status := data.Status()
	if status != "" {
		fields.Status = &status
	}
	if updated {
		cancelAtPeriodEnd := data.ScheduledChangeAction() == "cancel"
		fields.CancelAtPeriodEnd = &cancelAtPeriodEnd
	}

	p.reconciler.Persist(ctx, PersistInput{
		UserID:         userID,
		SubscriptionID: firstNonEmptyString(data.SubscriptionID(), data.ID()),
		CustomerID:     data.CustomerID(),
		PriceID:        priceID,
		Fields:         fields,
	})

	if userID == nil {
		return
	}
	if updated || status == "active" {
		mirrorPlan(ctx, p.mirror, *userID, tier)
	}
}

func (p *WebhookProcessor) handleSubscriptionCanceled(ctx context.Context, event *models.PaddleEvent, userID *string) {
	data := event.Payload()

	tier := plans.Free
	source := plans.SourcePaddle
	status := "canceled"
	cancelAtPeriodEnd := false

	p.reconciler.Persist(ctx, PersistInput{
		UserID:         userID,
		SubscriptionID: firstNonEmptyString(data.SubscriptionID(), data.ID()),
		CustomerID:     data.CustomerID(),
		Fields: SubscriptionFields{
			Tier:              &tier,
			Source:            &source,
			Status:            &status,
			CancelAtPeriodEnd: &cancelAtPeriodEnd,
		},
	})

	if userID != nil {
		mirrorPlan(ctx, p.mirror, *userID, tier)
	}
}

func (p *WebhookProcessor) handleTransactionCompleted(ctx context.Context, event *models.PaddleEvent, userID *string) {
	data := event.Payload()

	paidAt := data.BilledAt()
	if paidAt == nil {
		now := p.now().UTC()
		paidAt = &now
	}
	paid := "paid"

	p.reconciler.Update(ctx, PersistInput{
		UserID:     userID,
		CustomerID: data.CustomerID(),
		Fields: SubscriptionFields{
			LastPaymentStatus: &paid,
			LastPaymentAt:     paidAt,
		},
	})
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
