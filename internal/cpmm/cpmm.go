// Package cpmm implements the constant-product market maker (CPMM) used to
// price outcome shares from per-outcome liquidity reserves.
//
// A market holds one reserve of virtual shares per outcome; the product of
// all reserves (the invariant k) is held constant by ordinary trades. A buy
// conceptually mints one share of every outcome from the net collateral and
// then swaps the unwanted outcomes back into the pool; a sell is the
// algebraic inverse. The pool's imbalance toward the buyer's side is what
// produces shares_out > net.
//
// All monetary values use shopspring/decimal — never float64 for money.
// The sell inverse has no closed form beyond two outcomes, so it is solved
// by monotone bisection carried out entirely in decimal arithmetic; results
// are deterministic given the inputs, which lets journal replay verify
// reserve state.
package cpmm

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidFeeRate is returned when the fee rate is outside [0, 1).
	ErrInvalidFeeRate = errors.New("cpmm: fee rate must be in [0, 1)")

	// ErrInvalidFloor is returned when the liquidity floor is not positive.
	ErrInvalidFloor = errors.New("cpmm: liquidity floor must be positive")

	// ErrInvalidReserves is returned when a reserve vector is too short or
	// contains a non-positive reserve.
	ErrInvalidReserves = errors.New("cpmm: reserves must be 2 or more strictly positive values")

	// ErrInvalidOutcome is returned when the outcome index is out of range.
	ErrInvalidOutcome = errors.New("cpmm: outcome index out of range")

	// ErrInvalidAmount is returned when cash or share input is not positive.
	ErrInvalidAmount = errors.New("cpmm: amount must be positive")

	// ErrReserveDrained is returned when a trade would leave a reserve at or
	// below zero. This indicates a caller bug, not a normal user error.
	ErrReserveDrained = errors.New("cpmm: trade would drain a reserve to zero or below")
)

// QuoteScale is the number of decimal places for share/cash/price rounding.
var QuoteScale int32 = 8

// sellIterations bounds the bisection when inverting the product invariant.
// 64 halvings shrink the bracket far below QuoteScale resolution for any
// realistic reserve size.
const sellIterations = 64

// Engine quotes trades against reserve vectors. It is stateless — reserves
// are passed as arguments, not stored — and performs no I/O.
type Engine struct {
	feeRate decimal.Decimal
	floor   decimal.Decimal
}

// NewEngine creates a quoting engine with the given fee rate (taken on the
// cash side of every trade, never added to reserves) and liquidity floor
// (minimum seed reserve per outcome).
func NewEngine(feeRate, floor decimal.Decimal) (*Engine, error) {
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidFeeRate
	}
	if floor.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidFloor
	}
	return &Engine{feeRate: feeRate, floor: floor}, nil
}

// FeeRate returns the configured fee rate.
func (e *Engine) FeeRate() decimal.Decimal { return e.feeRate }

// Floor returns the configured liquidity floor.
func (e *Engine) Floor() decimal.Decimal { return e.floor }

// SeedReserves returns the initial reserve vector for a market with n
// outcomes: every reserve starts at the liquidity floor so no outcome is
// ever priced degenerately at creation.
func (e *Engine) SeedReserves(n int) []decimal.Decimal {
	reserves := make([]decimal.Decimal, n)
	for i := range reserves {
		reserves[i] = e.floor
	}
	return reserves
}

// Quote is the outcome of pricing a prospective trade. For buys, SharesOut
// and Fee are set; for sells, CashOut (net of fee) and Fee. NewReserves is
// the reserve vector after the trade.
type Quote struct {
	SharesOut   decimal.Decimal
	CashOut     decimal.Decimal
	Fee         decimal.Decimal
	NewReserves []decimal.Decimal
}

// Price returns the instantaneous price of outcome i.
//
// For two outcomes this is other / (this + other). For N outcomes:
//
//	p_i = (Σ reserves − reserves[i]) / ((N−1) · Σ reserves)
//
// Prices are positive, sum to 1 across outcomes, and strictly increase as
// reserves[i] falls.
func Price(reserves []decimal.Decimal, i int) (decimal.Decimal, error) {
	if err := validateReserves(reserves); err != nil {
		return decimal.Zero, err
	}
	if i < 0 || i >= len(reserves) {
		return decimal.Zero, ErrInvalidOutcome
	}

	total := decimal.Zero
	for _, r := range reserves {
		total = total.Add(r)
	}
	n := decimal.NewFromInt(int64(len(reserves) - 1))
	return total.Sub(reserves[i]).Div(n.Mul(total)).Round(QuoteScale), nil
}

// Prices returns the full price vector for a reserve state.
func Prices(reserves []decimal.Decimal) ([]decimal.Decimal, error) {
	if err := validateReserves(reserves); err != nil {
		return nil, err
	}
	prices := make([]decimal.Decimal, len(reserves))
	for i := range reserves {
		p, err := Price(reserves, i)
		if err != nil {
			return nil, err
		}
		prices[i] = p
	}
	return prices, nil
}

// Product returns the constant-product invariant k over a reserve vector.
func Product(reserves []decimal.Decimal) decimal.Decimal {
	k := decimal.NewFromInt(1)
	for _, r := range reserves {
		k = k.Mul(r)
	}
	return k
}

// QuoteBuy prices a purchase of outcome i for cashIn units of cash.
//
// net = cashIn·(1−feeRate) is added to every non-target reserve (the mint
// step), then the target reserve is solved from the invariant:
//
//	newR_i = k / Π_{j≠i} (r_j + net)
//	sharesOut = r_i + net − newR_i
//
// newR_i is rounded up and sharesOut down, so the reserve product never
// decreases through rounding.
func (e *Engine) QuoteBuy(reserves []decimal.Decimal, i int, cashIn decimal.Decimal) (*Quote, error) {
	if err := validateReserves(reserves); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(reserves) {
		return nil, ErrInvalidOutcome
	}
	if cashIn.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	fee := cashIn.Mul(e.feeRate).Round(QuoteScale)
	net := cashIn.Sub(fee)

	k := Product(reserves)
	denom := decimal.NewFromInt(1)
	for j, r := range reserves {
		if j != i {
			denom = denom.Mul(r.Add(net))
		}
	}

	newTarget := k.Div(denom).RoundUp(QuoteScale)
	if newTarget.LessThanOrEqual(decimal.Zero) {
		return nil, ErrReserveDrained
	}

	sharesOut := reserves[i].Add(net).Sub(newTarget).RoundDown(QuoteScale)
	if sharesOut.LessThanOrEqual(decimal.Zero) {
		return nil, ErrReserveDrained
	}

	newReserves := make([]decimal.Decimal, len(reserves))
	for j, r := range reserves {
		if j == i {
			newReserves[j] = newTarget
		} else {
			newReserves[j] = r.Add(net)
		}
	}

	return &Quote{SharesOut: sharesOut, Fee: fee, NewReserves: newReserves}, nil
}

// QuoteSell prices the sale of sharesIn shares of outcome i back to the pool.
//
// The gross proceeds c satisfy the inverted invariant
//
//	Π_{j≠i} (r_j − c) · (r_i + sharesIn − c) = k
//
// c is found by bisection (the left side is strictly decreasing in c) and
// rounded down, so the pool keeps any rounding remainder. The fee is charged
// on the gross proceeds; CashOut is net of fee.
func (e *Engine) QuoteSell(reserves []decimal.Decimal, i int, sharesIn decimal.Decimal) (*Quote, error) {
	if err := validateReserves(reserves); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(reserves) {
		return nil, ErrInvalidOutcome
	}
	if sharesIn.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	k := Product(reserves)

	// Upper bracket: c may not consume any non-target reserve, nor exceed
	// the grown target reserve.
	hi := reserves[i].Add(sharesIn)
	for j, r := range reserves {
		if j != i && r.LessThan(hi) {
			hi = r
		}
	}
	lo := decimal.Zero
	half := decimal.NewFromFloat(0.5)

	for iter := 0; iter < sellIterations; iter++ {
		mid := lo.Add(hi).Mul(half)
		if productAfterSell(reserves, i, sharesIn, mid).GreaterThanOrEqual(k) {
			lo = mid
		} else {
			hi = mid
		}
	}

	gross := lo.RoundDown(QuoteScale)
	if gross.LessThanOrEqual(decimal.Zero) {
		return nil, ErrReserveDrained
	}

	newReserves := make([]decimal.Decimal, len(reserves))
	for j, r := range reserves {
		if j == i {
			newReserves[j] = r.Add(sharesIn).Sub(gross)
		} else {
			newReserves[j] = r.Sub(gross)
		}
		if newReserves[j].LessThanOrEqual(decimal.Zero) {
			return nil, ErrReserveDrained
		}
	}

	fee := gross.Mul(e.feeRate).Round(QuoteScale)
	return &Quote{CashOut: gross.Sub(fee), Fee: fee, NewReserves: newReserves}, nil
}

// productAfterSell evaluates the reserve product after removing c cash from
// every reserve and adding s shares to the target.
func productAfterSell(reserves []decimal.Decimal, i int, s, c decimal.Decimal) decimal.Decimal {
	p := decimal.NewFromInt(1)
	for j, r := range reserves {
		if j == i {
			p = p.Mul(r.Add(s).Sub(c))
		} else {
			p = p.Mul(r.Sub(c))
		}
	}
	return p
}

func validateReserves(reserves []decimal.Decimal) error {
	if len(reserves) < 2 {
		return ErrInvalidReserves
	}
	for _, r := range reserves {
		if r.LessThanOrEqual(decimal.Zero) {
			return ErrInvalidReserves
		}
	}
	return nil
}
