package services

import (
	"context"
	"sync"
	"time"

	"scanela-billing/pkg/logging"
)

// EventLedger remembers processed Paddle event ids.
type EventLedger interface {
	// Seen records eventID and reports whether it had been recorded before.
	Seen(ctx context.Context, eventID string) bool
}

// MemoryEventLedger keeps event ids in memory and forgets them after ttl.
type MemoryEventLedger struct {
	processed       map[string]time.Time
	mutex           sync.Mutex
	cleanupInterval time.Duration
	ttl             time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryEventLedger creates a ledger and starts its cleanup goroutine
func NewMemoryEventLedger(ttl time.Duration) *MemoryEventLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	l := &MemoryEventLedger{
		processed:       make(map[string]time.Time),
		cleanupInterval: time.Hour,
		ttl:             ttl,
		stopCleanup:     make(chan struct{}),
	}

	go l.startCleanupRoutine()

	return l
}

func (l *MemoryEventLedger) Seen(_ context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if processedAt, exists := l.processed[eventID]; exists && time.Since(processedAt) <= l.ttl {
		logging.Infof("Duplicate Paddle event - event_id: %s, first seen at: %v", eventID, processedAt)
		return true
	}
	l.processed[eventID] = time.Now()
	return false
}

func (l *MemoryEventLedger) startCleanupRoutine() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *MemoryEventLedger) cleanup() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	initialCount := len(l.processed)
	for eventID, processedAt := range l.processed {
		if now.Sub(processedAt) > l.ttl {
			delete(l.processed, eventID)
		}
	}

	if cleaned := initialCount - len(l.processed); cleaned > 0 {
		logging.Debugf("Event ledger cleanup: removed %d expired ids, remaining: %d", cleaned, len(l.processed))
	}
}

// Stop stops the cleanup goroutine
func (l *MemoryEventLedger) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}
