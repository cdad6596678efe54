package services

import (
	"context"
	"sync"

	"scanela-billing/internal/plans"
)

type recordingMirror struct {
	mu    sync.Mutex
	calls []mirrorCall
	err   error
}

type mirrorCall struct {
	UserID string
	Tier   plans.Tier
}

func (m *recordingMirror) SetPlan(_ context.Context, userID string, tier plans.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mirrorCall{UserID: userID, Tier: tier})
	return m.err
}

func (m *recordingMirror) Calls() []mirrorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mirrorCall(nil), m.calls...)
}

func testCatalog() plans.PriceCatalog {
	return plans.PriceCatalog{
		MenuMonthly:   "pri_menu_m",
		MenuAnnual:    "pri_menu_y",
		VentasMonthly: "pri_ventas_m",
		VentasAnnual:  "pri_ventas_y",
	}
}
