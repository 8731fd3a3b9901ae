// Package commission computes the platform's cut of completed orders.
// Pure functions, no I/O.
package commission

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Calculate returns round(total * ratePercent / 100, 2) with half-up rounding.
func Calculate(total, ratePercent decimal.Decimal) decimal.Decimal {
	return total.Mul(ratePercent).Div(hundred).Round(2)
}

// ResolveRate returns the restaurant-specific rate when present, otherwise
// the configured default.
func ResolveRate(restaurantRate *decimal.Decimal, defaultRate decimal.Decimal) decimal.Decimal {
	if restaurantRate != nil {
		return *restaurantRate
	}
	return defaultRate
}
