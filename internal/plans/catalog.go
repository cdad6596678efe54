package plans

// PriceCatalog holds the four configured Paddle price ids.
type PriceCatalog struct {
	MenuMonthly   string
	MenuAnnual    string
	VentasMonthly string
	VentasAnnual  string
}

// PlanForPrice maps a price id to the paid tier it sells. Unrecognized ids
// return false.
func (c PriceCatalog) PlanForPrice(priceID string) (Tier, bool) {
	if priceID == "" {
		return "", false
	}
	switch priceID {
	case c.MenuMonthly, c.MenuAnnual:
		return Menu, true
	case c.VentasMonthly, c.VentasAnnual:
		return Ventas, true
	}
	return "", false
}

// IntervalForPrice maps a price id to its billing interval.
func (c PriceCatalog) IntervalForPrice(priceID string) (Interval, bool) {
	if priceID == "" {
		return "", false
	}
	switch priceID {
	case c.MenuMonthly, c.VentasMonthly:
		return Monthly, true
	case c.MenuAnnual, c.VentasAnnual:
		return Annual, true
	}
	return "", false
}

// PriceFor returns the configured price id for a paid tier and interval.
func (c PriceCatalog) PriceFor(t Tier, i Interval) string {
	switch {
	case t == Menu && i == Monthly:
		return c.MenuMonthly
	case t == Menu && i == Annual:
		return c.MenuAnnual
	case t == Ventas && i == Monthly:
		return c.VentasMonthly
	case t == Ventas && i == Annual:
		return c.VentasAnnual
	}
	return ""
}
