// Package payout handles terminal payout vectors: the resolver's final truth
// assignment for a market, one non-negative weight per outcome summing to 1.
//
// Binary and multi-outcome markets share this one representation, so a
// resolver reporting a plain binary winner goes through Binary rather than a
// separate code path.
package payout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrLengthMismatch is returned when the vector length does not match
	// the market's outcome count.
	ErrLengthMismatch = errors.New("payout: vector length does not match outcome count")

	// ErrNegativeWeight is returned when any weight is negative.
	ErrNegativeWeight = errors.New("payout: weights must be non-negative")

	// ErrBadSum is returned when the weights do not sum to 1 within Epsilon.
	ErrBadSum = errors.New("payout: weights must sum to 1")
)

// Epsilon is the tolerance for the sum-to-one check, sized for fixed-point
// vectors produced by external resolvers.
var Epsilon = decimal.NewFromFloat(0.000001)

// Validate checks a payout vector against a market's outcome count.
func Validate(vector []decimal.Decimal, outcomes int) error {
	if len(vector) != outcomes {
		return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(vector), outcomes)
	}

	sum := decimal.Zero
	for _, w := range vector {
		if w.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeWeight, w)
		}
		sum = sum.Add(w)
	}

	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(Epsilon) {
		return fmt.Errorf("%w: sum is %s", ErrBadSum, sum)
	}
	return nil
}

// Binary builds the vector for a market where one outcome pays in full:
// weight 1 at winner, 0 elsewhere.
func Binary(winner, outcomes int) ([]decimal.Decimal, error) {
	if winner < 0 || winner >= outcomes {
		return nil, fmt.Errorf("%w: winner %d of %d outcomes", ErrLengthMismatch, winner, outcomes)
	}
	vector := make([]decimal.Decimal, outcomes)
	for i := range vector {
		vector[i] = decimal.Zero
	}
	vector[winner] = decimal.NewFromInt(1)
	return vector, nil
}

// Value returns the redemption value of a holding of shares under vector:
// Σ shares[i] · vector[i]. Inputs are assumed validated.
func Value(shares, vector []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i, s := range shares {
		if i < len(vector) {
			total = total.Add(s.Mul(vector[i]))
		}
	}
	return total
}
