package services

import (
	"context"
	"fmt"

	"scanela-billing/internal/database"
	"scanela-billing/internal/metrics"
	"scanela-billing/internal/plans"
	"scanela-billing/pkg/logging"

	"golang.org/x/sync/singleflight"
)

// PlanService answers "which tier is this user on" and applies manual changes.
type PlanService struct {
	cache  PlanCache
	mirror MetadataMirror
	logger *EventLogger
	group  singleflight.Group
}

// NewPlanService creates a plan service. cache may be nil.
func NewPlanService(cache PlanCache, mirror MetadataMirror, logger *EventLogger) *PlanService {
	if mirror == nil {
		mirror = NoopMetadataMirror{}
	}
	return &PlanService{cache: cache, mirror: mirror, logger: logger}
}

// CurrentPlan returns the user's tier. A user without a row is free.
// Concurrent misses for the same user share one database read, and a read
// that overlapped an invalidation is returned but not cached.
func (s *PlanService) CurrentPlan(ctx context.Context, userID string) (plans.Tier, error) {
	if s.cache != nil {
		if tier, ok := s.cache.Get(ctx, userID); ok {
			metrics.IncPlanCache(true)
			return tier, nil
		}
		metrics.IncPlanCache(false)
	}

	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		var generation uint64
		if s.cache != nil {
			generation = s.cache.Generation(ctx, userID)
		}
		sub, err := database.FindSubscriptionByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		tier := plans.Free
		if sub != nil {
			tier = sub.Tier()
		}
		if s.cache != nil && !s.cache.Set(ctx, userID, tier, generation) {
			logging.Debugf("Plan cache fill skipped, user %s changed during read", userID)
		}
		return tier, nil
	})
	if err != nil {
		return "", fmt.Errorf("load plan: %w", err)
	}
	return v.(plans.Tier), nil
}

// SetManualPlan overrides the user's tier outside Paddle.
func (s *PlanService) SetManualPlan(ctx context.Context, userID string, tier plans.Tier) error {
	source := plans.SourceManual
	fields := SubscriptionFields{Tier: &tier, Source: &source}
	if err := database.UpsertSubscription(ctx, userID, fields.values(nowUTC()), nil); err != nil {
		return fmt.Errorf("set manual plan: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	s.group.Forget(userID)

	mirrorPlan(ctx, s.mirror, userID, tier)
	if s.logger != nil {
		s.logger.Log(ctx, &userID, "plan.manual_update", "", map[string]string{"plan": string(tier)})
	}
	logging.Infof("Manual plan change - user_id: %s, plan: %s", userID, tier)
	return nil
}
