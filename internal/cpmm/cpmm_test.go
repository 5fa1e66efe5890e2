package cpmm

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newEngine(t *testing.T, fee, floor float64) *Engine {
	t.Helper()
	e, err := NewEngine(d(fee), d(floor))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

// --- Constructor tests ---

func TestNewEngine_Valid(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	if !e.FeeRate().Equal(d(0.02)) {
		t.Errorf("expected fee rate 0.02, got %s", e.FeeRate())
	}
	if !e.Floor().Equal(d(500)) {
		t.Errorf("expected floor 500, got %s", e.Floor())
	}
}

func TestNewEngine_FeeRateOutOfRange(t *testing.T) {
	if _, err := NewEngine(d(-0.01), d(500)); err != ErrInvalidFeeRate {
		t.Errorf("expected ErrInvalidFeeRate for negative fee, got %v", err)
	}
	if _, err := NewEngine(d(1), d(500)); err != ErrInvalidFeeRate {
		t.Errorf("expected ErrInvalidFeeRate for fee=1, got %v", err)
	}
}

func TestNewEngine_InvalidFloor(t *testing.T) {
	if _, err := NewEngine(d(0.02), d(0)); err != ErrInvalidFloor {
		t.Errorf("expected ErrInvalidFloor for floor=0, got %v", err)
	}
}

func TestSeedReserves_AllAtFloor(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := e.SeedReserves(3)
	if len(reserves) != 3 {
		t.Fatalf("expected 3 reserves, got %d", len(reserves))
	}
	for i, r := range reserves {
		if !r.Equal(d(500)) {
			t.Errorf("reserve %d: expected 500, got %s", i, r)
		}
	}
}

// --- Price tests ---

func TestPrice_BalancedBinaryIsFiftyFifty(t *testing.T) {
	reserves := []decimal.Decimal{d(500), d(500)}
	p, err := Price(reserves, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Equal(d(0.5)) {
		t.Errorf("expected price 0.5, got %s", p)
	}
}

func TestPrice_ScarcerOutcomeIsDearer(t *testing.T) {
	// A smaller reserve means the outcome has been bought up.
	reserves := []decimal.Decimal{d(300), d(700)}
	p0, _ := Price(reserves, 0)
	p1, _ := Price(reserves, 1)
	if p0.LessThanOrEqual(p1) {
		t.Errorf("scarcer outcome should cost more: p0=%s p1=%s", p0, p1)
	}
}

func TestPrices_SumToOne(t *testing.T) {
	one := decimal.NewFromInt(1)
	tolerance := d(0.0000001)

	tests := []struct {
		name     string
		reserves []decimal.Decimal
	}{
		{"balanced binary", []decimal.Decimal{d(500), d(500)}},
		{"skewed binary", []decimal.Decimal{d(120), d(880)}},
		{"three way", []decimal.Decimal{d(300), d(400), d(500)}},
		{"five way", []decimal.Decimal{d(100), d(200), d(300), d(400), d(500)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices, err := Prices(tt.reserves)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sum := decimal.Zero
			for _, p := range prices {
				if !p.IsPositive() {
					t.Errorf("price should be positive, got %s", p)
				}
				sum = sum.Add(p)
			}
			if sum.Sub(one).Abs().GreaterThan(tolerance) {
				t.Errorf("prices should sum to 1, got %s", sum)
			}
		})
	}
}

func TestPrice_InvalidInputs(t *testing.T) {
	if _, err := Price([]decimal.Decimal{d(500)}, 0); err != ErrInvalidReserves {
		t.Errorf("expected ErrInvalidReserves for single reserve, got %v", err)
	}
	if _, err := Price([]decimal.Decimal{d(500), d(0)}, 0); err != ErrInvalidReserves {
		t.Errorf("expected ErrInvalidReserves for zero reserve, got %v", err)
	}
	if _, err := Price([]decimal.Decimal{d(500), d(500)}, 2); err != ErrInvalidOutcome {
		t.Errorf("expected ErrInvalidOutcome for index 2, got %v", err)
	}
}

// --- Buy quote tests ---

func TestQuoteBuy_BalancedBinary(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	q, err := e.QuoteBuy(reserves, 0, d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// fee = 2, net = 98: newR_0 = 250000/598, sharesOut = 598 - newR_0.
	if !q.Fee.Equal(d(2)) {
		t.Errorf("expected fee 2, got %s", q.Fee)
	}
	expected := d(179.93979933)
	if q.SharesOut.Sub(expected).Abs().GreaterThan(d(0.000001)) {
		t.Errorf("expected shares_out ≈ %s, got %s", expected, q.SharesOut)
	}
	// shares_out exceeds net cash when buying into a balanced pool.
	if q.SharesOut.LessThanOrEqual(d(98)) {
		t.Errorf("shares_out should exceed net cash 98, got %s", q.SharesOut)
	}
}

func TestQuoteBuy_InvariantNeverDecreases(t *testing.T) {
	e := newEngine(t, 0.02, 500)

	tests := []struct {
		name     string
		reserves []decimal.Decimal
		outcome  int
		cash     float64
	}{
		{"small buy", []decimal.Decimal{d(500), d(500)}, 0, 1},
		{"large buy", []decimal.Decimal{d(500), d(500)}, 1, 10000},
		{"skewed pool", []decimal.Decimal{d(37.5), d(1200)}, 0, 250},
		{"three way", []decimal.Decimal{d(300), d(400), d(500)}, 2, 77.77},
		{"odd amount", []decimal.Decimal{d(500), d(500)}, 0, 0.03},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Product(tt.reserves)
			q, err := e.QuoteBuy(tt.reserves, tt.outcome, d(tt.cash))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if Product(q.NewReserves).LessThan(k) {
				t.Errorf("invariant decreased: before=%s after=%s", k, Product(q.NewReserves))
			}
		})
	}
}

func TestQuoteBuy_MovesPriceUp(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	before, _ := Price(reserves, 0)
	q, err := e.QuoteBuy(reserves, 0, d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := Price(q.NewReserves, 0)
	if after.LessThanOrEqual(before) {
		t.Errorf("buying should raise the price: before=%s after=%s", before, after)
	}
}

func TestQuoteBuy_PriceImpactIsConvex(t *testing.T) {
	e := newEngine(t, 0, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	small, _ := e.QuoteBuy(reserves, 0, d(100))
	large, _ := e.QuoteBuy(reserves, 0, d(200))

	// Doubling the cash must yield less than double the shares.
	two := decimal.NewFromInt(2)
	if large.SharesOut.GreaterThanOrEqual(small.SharesOut.Mul(two)) {
		t.Errorf("price impact missing: 100 -> %s, 200 -> %s", small.SharesOut, large.SharesOut)
	}
}

func TestQuoteBuy_NeverDrainsReserve(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	// Even an absurd buy leaves the target reserve strictly positive.
	q, err := e.QuoteBuy(reserves, 0, d(1e9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range q.NewReserves {
		if !r.IsPositive() {
			t.Errorf("reserve %d not positive after huge buy: %s", i, r)
		}
	}
}

func TestQuoteBuy_InvalidInputs(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	if _, err := e.QuoteBuy(reserves, 0, d(0)); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount for zero cash, got %v", err)
	}
	if _, err := e.QuoteBuy(reserves, 0, d(-5)); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount for negative cash, got %v", err)
	}
	if _, err := e.QuoteBuy(reserves, 3, d(100)); err != ErrInvalidOutcome {
		t.Errorf("expected ErrInvalidOutcome, got %v", err)
	}
}

// --- Sell quote tests ---

func TestQuoteSell_RoundTripsBuyWithoutFee(t *testing.T) {
	e := newEngine(t, 0, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	buy, err := e.QuoteBuy(reserves, 0, d(100))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	sell, err := e.QuoteSell(buy.NewReserves, 0, buy.SharesOut)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	// Selling everything back recovers the cash, minus rounding dust that
	// always stays with the pool.
	if sell.CashOut.GreaterThan(d(100)) {
		t.Errorf("round trip must not profit: got %s back for 100 in", sell.CashOut)
	}
	if sell.CashOut.LessThan(d(99.999)) {
		t.Errorf("round trip lost too much to rounding: got %s", sell.CashOut)
	}
}

func TestQuoteSell_InvariantNeverDecreases(t *testing.T) {
	e := newEngine(t, 0.02, 500)

	tests := []struct {
		name     string
		reserves []decimal.Decimal
		outcome  int
		shares   float64
	}{
		{"small sell", []decimal.Decimal{d(418.07), d(598)}, 0, 10},
		{"full position", []decimal.Decimal{d(418.07), d(598)}, 0, 179},
		{"three way", []decimal.Decimal{d(250), d(400), d(500)}, 0, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Product(tt.reserves)
			q, err := e.QuoteSell(tt.reserves, tt.outcome, d(tt.shares))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if Product(q.NewReserves).LessThan(k) {
				t.Errorf("invariant decreased: before=%s after=%s", k, Product(q.NewReserves))
			}
		})
	}
}

func TestQuoteSell_FeeChargedOnGross(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(418.07), d(598)}

	q, err := e.QuoteSell(reserves, 0, d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gross := q.CashOut.Add(q.Fee)
	expectedFee := gross.Mul(d(0.02)).Round(QuoteScale)
	if !q.Fee.Equal(expectedFee) {
		t.Errorf("fee should be 2%% of gross %s: expected %s, got %s", gross, expectedFee, q.Fee)
	}
}

func TestQuoteSell_MovesPriceDown(t *testing.T) {
	e := newEngine(t, 0, 500)
	reserves := []decimal.Decimal{d(418.07), d(598)}

	before, _ := Price(reserves, 0)
	q, err := e.QuoteSell(reserves, 0, d(50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := Price(q.NewReserves, 0)
	if after.GreaterThanOrEqual(before) {
		t.Errorf("selling should lower the price: before=%s after=%s", before, after)
	}
}

func TestQuoteSell_InvalidInputs(t *testing.T) {
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(500), d(500)}

	if _, err := e.QuoteSell(reserves, 0, d(0)); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount for zero shares, got %v", err)
	}
	if _, err := e.QuoteSell(reserves, -1, d(10)); err != ErrInvalidOutcome {
		t.Errorf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestQuoteSell_Deterministic(t *testing.T) {
	// Journal replay depends on sells re-quoting to the same value.
	e := newEngine(t, 0.02, 500)
	reserves := []decimal.Decimal{d(418.07), d(598), d(612.5)}

	first, err := e.QuoteSell(reserves, 1, d(73.25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.QuoteSell(reserves, 1, d(73.25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.CashOut.Equal(second.CashOut) {
		t.Errorf("sell quotes should be deterministic: %s vs %s", first.CashOut, second.CashOut)
	}
}
