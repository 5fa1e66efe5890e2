// Package risk implements position limits protecting users and the book
// from oversized exposure.
//
// Two caps apply to every buy: a per-market cap on the user's total share
// holding across that market's outcomes, and an aggregate cap on the user's
// holdings across the whole book. Sells and redemptions only reduce
// exposure and are never limited.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrPerMarketLimitExceeded is returned when a buy would push a single
	// market's position beyond the per-market maximum.
	ErrPerMarketLimitExceeded = errors.New("risk: per-market position limit exceeded")

	// ErrTotalExposureExceeded is returned when a buy would push the user's
	// aggregate holdings across all markets beyond the book maximum.
	ErrTotalExposureExceeded = errors.New("risk: total exposure limit exceeded")
)

// PositionLimiter enforces per-market and whole-book share limits.
type PositionLimiter struct {
	// MaxPerMarket is the maximum total shares a user may hold across the
	// outcomes of any single market.
	MaxPerMarket decimal.Decimal

	// MaxTotal is the maximum total shares a user may hold across all
	// markets combined.
	MaxTotal decimal.Decimal
}

// NewPositionLimiter creates a limiter with the given per-market and
// aggregate share limits.
func NewPositionLimiter(maxPerMarket, maxTotal decimal.Decimal) *PositionLimiter {
	return &PositionLimiter{
		MaxPerMarket: maxPerMarket,
		MaxTotal:     maxTotal,
	}
}

// CheckLimit validates whether adding sharesDelta in targetMarket respects
// the limits, given the user's current holdings per market.
//
// Returns nil if the trade is within limits, or an error describing the
// violation.
func (l *PositionLimiter) CheckLimit(
	targetMarket string,
	sharesDelta decimal.Decimal,
	holdings map[string]decimal.Decimal,
) error {
	if !sharesDelta.IsPositive() {
		return nil
	}

	inMarket := holdings[targetMarket].Add(sharesDelta)
	if inMarket.GreaterThan(l.MaxPerMarket) {
		return ErrPerMarketLimitExceeded
	}

	total := sharesDelta
	for _, held := range holdings {
		total = total.Add(held)
	}
	if total.GreaterThan(l.MaxTotal) {
		return ErrTotalExposureExceeded
	}

	return nil
}
