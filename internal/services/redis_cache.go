package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scanela-billing/internal/plans"
	"scanela-billing/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// RedisPlanCache stores resolved tiers under plan_cache:<user_id> and a
// per-user invalidation counter under plan_cache_gen:<user_id>.
type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// generation keys outlive any read that could still be in flight
const planCacheGenerationTTL = 24 * time.Hour

var errStaleGeneration = errors.New("plan cache generation changed")

// NewRedisPlanCache creates a Redis-backed plan cache
func NewRedisPlanCache(client *redis.Client, ttl time.Duration) *RedisPlanCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisPlanCache{client: client, ttl: ttl}
}

func planCacheKey(userID string) string {
	return fmt.Sprintf("plan_cache:%s", userID)
}

func planCacheGenerationKey(userID string) string {
	return fmt.Sprintf("plan_cache_gen:%s", userID)
}

func (c *RedisPlanCache) Get(ctx context.Context, userID string) (plans.Tier, bool) {
	value, err := c.client.Get(ctx, planCacheKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Errorf("Plan cache read failed - user_id: %s, error: %v", userID, err)
		}
		return "", false
	}
	tier, ok := plans.ParseTier(value)
	return tier, ok
}

func (c *RedisPlanCache) Generation(ctx context.Context, userID string) uint64 {
	gen, err := c.client.Get(ctx, planCacheGenerationKey(userID)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logging.Errorf("Plan cache generation read failed - user_id: %s, error: %v", userID, err)
	}
	return gen
}

// Set writes the tier only while the generation key still holds generation.
func (c *RedisPlanCache) Set(ctx context.Context, userID string, tier plans.Tier, generation uint64) bool {
	genKey := planCacheGenerationKey(userID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, planCacheKey(userID), string(tier), c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false
	default:
		logging.Errorf("Plan cache write failed - user_id: %s, error: %v", userID, err)
		return false
	}
}

func (c *RedisPlanCache) Invalidate(ctx context.Context, userID string) {
	genKey := planCacheGenerationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, planCacheKey(userID))
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, planCacheGenerationTTL)
		return nil
	})
	if err != nil {
		logging.Errorf("Plan cache invalidate failed - user_id: %s, error: %v", userID, err)
	}
}

// RedisEventLedger records event ids with SETNX so every instance shares them.
type RedisEventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventLedger creates a Redis-backed event ledger
func NewRedisEventLedger(client *redis.Client, ttl time.Duration) *RedisEventLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisEventLedger{client: client, ttl: ttl}
}

// Seen fails open: a Redis error lets the event through.
func (l *RedisEventLedger) Seen(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}
	created, err := l.client.SetNX(ctx, "paddle_event:"+eventID, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		logging.Errorf("Event ledger write failed - event_id: %s, error: %v", eventID, err)
		return false
	}
	return !created
}
