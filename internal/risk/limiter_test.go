package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestCheckLimit_WithinLimits(t *testing.T) {
	l := NewPositionLimiter(d(1000), d(5000))
	holdings := map[string]decimal.Decimal{"m1": d(500)}

	if err := l.CheckLimit("m1", d(400), holdings); err != nil {
		t.Errorf("trade within limits should pass, got %v", err)
	}
}

func TestCheckLimit_ExactlyAtLimitAllowed(t *testing.T) {
	l := NewPositionLimiter(d(1000), d(5000))
	holdings := map[string]decimal.Decimal{"m1": d(900)}

	if err := l.CheckLimit("m1", d(100), holdings); err != nil {
		t.Errorf("trade landing exactly on the limit should pass, got %v", err)
	}
}

func TestCheckLimit_PerMarketExceeded(t *testing.T) {
	l := NewPositionLimiter(d(1000), d(5000))
	holdings := map[string]decimal.Decimal{"m1": d(950)}

	if err := l.CheckLimit("m1", d(100), holdings); err != ErrPerMarketLimitExceeded {
		t.Errorf("expected ErrPerMarketLimitExceeded, got %v", err)
	}
}

func TestCheckLimit_TotalExposureExceeded(t *testing.T) {
	l := NewPositionLimiter(d(1000), d(2000))
	holdings := map[string]decimal.Decimal{
		"m1": d(900),
		"m2": d(900),
		"m3": d(150),
	}

	// 300 more in m4 is fine per market but breaches the book cap.
	if err := l.CheckLimit("m4", d(300), holdings); err != ErrTotalExposureExceeded {
		t.Errorf("expected ErrTotalExposureExceeded, got %v", err)
	}
}

func TestCheckLimit_SellsNeverLimited(t *testing.T) {
	l := NewPositionLimiter(d(10), d(10))
	holdings := map[string]decimal.Decimal{"m1": d(10000)}

	if err := l.CheckLimit("m1", d(-500), holdings); err != nil {
		t.Errorf("negative deltas reduce exposure and must pass, got %v", err)
	}
	if err := l.CheckLimit("m1", decimal.Zero, holdings); err != nil {
		t.Errorf("zero delta must pass, got %v", err)
	}
}

func TestCheckLimit_EmptyHoldings(t *testing.T) {
	l := NewPositionLimiter(d(1000), d(5000))

	if err := l.CheckLimit("m1", d(100), nil); err != nil {
		t.Errorf("first trade with no holdings should pass, got %v", err)
	}
}
