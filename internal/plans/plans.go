// Package plans maps between the user-facing subscription tiers and the
// two-valued plan code persisted in the subscriptions table.
//
// The mapping is lossy: both free and menu are stored as basico. The precise
// tier travels in the plan_metadata column and must be read first.
package plans

import "strings"

// Tier is the user-facing subscription level.
type Tier string

const (
	Free   Tier = "free"
	Menu   Tier = "menu"
	Ventas Tier = "ventas"
)

// DBPlan is the plan code stored in subscriptions.plan.
type DBPlan string

const (
	Basico DBPlan = "basico"
	Pro    DBPlan = "pro"
)

// Interval is a billing period.
type Interval string

const (
	Monthly Interval = "monthly"
	Annual  Interval = "annual"
)

// Source records who set the plan.
type Source string

const (
	SourcePaddle Source = "paddle"
	SourceManual Source = "manual"
)

// Metadata is the side-channel stored in subscriptions.plan_metadata.
type Metadata struct {
	Code Tier `json:"code"`
}

// ParseTier returns the tier for one of the three literals.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case Free, Menu, Ventas:
		return Tier(s), true
	}
	return "", false
}

// ParseInterval accepts only the two canonical interval literals.
func ParseInterval(s string) (Interval, bool) {
	switch Interval(s) {
	case Monthly, Annual:
		return Interval(s), true
	}
	return "", false
}

// ToDB collapses a tier into its persisted code. Unknown tiers map like free.
func ToDB(t Tier) DBPlan {
	if t == Ventas {
		return Pro
	}
	return Basico
}

// FromDB decodes a persisted code. basico cannot be told apart from menu here
// and decodes to free; menu and ventas pass through if stored literally.
func FromDB(code string) Tier {
	switch code {
	case string(Pro):
		return Ventas
	case string(Menu):
		return Menu
	case string(Ventas):
		return Ventas
	default:
		return Free
	}
}

// FromMetadata returns the tier stored in the side-channel, or false when the
// metadata is absent or holds something other than a known tier.
func FromMetadata(m *Metadata) (Tier, bool) {
	if m == nil {
		return "", false
	}
	return ParseTier(string(m.Code))
}

// NewMetadata builds the side-channel value for t.
func NewMetadata(t Tier) Metadata {
	return Metadata{Code: t}
}

// Resolve reads the tier the way every caller must: metadata first, then the
// persisted code.
func Resolve(m *Metadata, code string) Tier {
	if t, ok := FromMetadata(m); ok {
		return t
	}
	return FromDB(code)
}

// NormalizeInterval treats year/annual/yearly (any case) as annual and
// everything else, including the empty string, as monthly.
func NormalizeInterval(raw string) Interval {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "year", "annual", "yearly":
		return Annual
	default:
		return Monthly
	}
}

// IsPaid reports whether checkout is possible for t.
func IsPaid(t Tier) bool {
	return t == Menu || t == Ventas
}
