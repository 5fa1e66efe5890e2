package settle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/ledger"
	"github.com/openodds/market-core/internal/model"
	"github.com/openodds/market-core/internal/settle"
	"github.com/openodds/market-core/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newTestEnv(t *testing.T) (*settle.Service, *ledger.Ledger, *store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	led := ledger.New(ms)
	svc := settle.NewService(ms, led, nil)

	r := chi.NewRouter()
	r.Post("/api/v1/markets/{marketID}/resolve", svc.HandleResolve)
	r.Post("/api/v1/redeem", svc.HandleRedeem)

	return svc, led, ms, r
}

func seedMarket(t *testing.T, ms *store.MemoryStore, id string) *model.Market {
	t.Helper()
	m := &model.Market{
		ID:        id,
		Question:  "Will it rain tomorrow?",
		Outcomes:  []string{"YES", "NO"},
		Reserves:  []decimal.Decimal{d(500), d(500)},
		Volume:    decimal.Zero,
		Status:    model.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.CreateMarket(context.Background(), m); err != nil {
		t.Fatalf("failed to seed market: %v", err)
	}
	return m
}

// grantShares books a position for the user through the ledger at zero cost.
func grantShares(t *testing.T, led *ledger.Ledger, userID, marketID string, outcome int, shares float64) {
	t.Helper()
	_, err := led.Apply(context.Background(), userID, marketID, func(v *ledger.View) (*model.Transition, error) {
		return &model.Transition{
			Kind:       model.KindTradeBuy,
			UserID:     userID,
			MarketID:   marketID,
			Outcome:    outcome,
			CashDelta:  decimal.Zero,
			ShareDelta: d(shares),
			Price:      decimal.Zero,
		}, nil
	})
	if err != nil {
		t.Fatalf("failed to grant shares: %v", err)
	}
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func winner(i int) *int { return &i }

// --- Resolution tests ---

func TestHandleResolve_BinaryWinner(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")

	w := doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(0)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var m model.Market
	json.Unmarshal(w.Body.Bytes(), &m)
	if m.Status != model.StatusResolved {
		t.Errorf("expected status resolved, got %s", m.Status)
	}
	if len(m.PayoutVector) != 2 || !m.PayoutVector[0].Equal(d(1)) || !m.PayoutVector[1].IsZero() {
		t.Errorf("expected payout vector [1,0], got %v", m.PayoutVector)
	}
}

func TestHandleResolve_ExplicitVector(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")

	w := doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{
		PayoutVector: []decimal.Decimal{d(0.6), d(0.4)},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleResolve_BadVector(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")

	tests := []struct {
		name   string
		vector []decimal.Decimal
	}{
		{"wrong length", []decimal.Decimal{d(1), d(0), d(0)}},
		{"negative weight", []decimal.Decimal{d(1.5), d(-0.5)}},
		{"bad sum", []decimal.Decimal{d(0.5), d(0.4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{PayoutVector: tt.vector})
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	// Market must still be open after the rejected attempts.
	m, _ := ms.GetMarket(context.Background(), "m1")
	if m.Status != model.StatusOpen {
		t.Errorf("rejected resolution must not change status, got %s", m.Status)
	}
}

func TestHandleResolve_AlreadyResolved(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")

	doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(0)})

	// Conflicting second resolution, even with a different winner.
	w := doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(1)})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for double resolution, got %d: %s", w.Code, w.Body.String())
	}

	m, _ := ms.GetMarket(context.Background(), "m1")
	if !m.PayoutVector[0].Equal(d(1)) {
		t.Errorf("first resolution must stand, got vector %v", m.PayoutVector)
	}
}

func TestHandleResolve_NotFound(t *testing.T) {
	_, _, _, router := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/markets/ghost/resolve", settle.ResolveRequest{Winner: winner(0)})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// --- Redemption tests ---

func TestRedeem_WinnerPaidExactly(t *testing.T) {
	svc, led, ms, router := newTestEnv(t)
	ctx := context.Background()
	seedMarket(t, ms, "m1")
	grantShares(t, led, "user1", "m1", 0, 40)
	grantShares(t, led, "user1", "m1", 1, 10)

	doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(0)})

	p, err := svc.Redeem(ctx, "user1", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 40 winning shares at weight 1, 10 losing shares at weight 0.
	if !p.Amount.Equal(d(40)) {
		t.Errorf("expected payout exactly 40, got %s", p.Amount)
	}

	balance, _ := ms.GetBalance(ctx, "user1")
	if !balance.Equal(d(40)) {
		t.Errorf("expected balance 40, got %s", balance)
	}

	// All positions in the market were cleared, winners and losers alike.
	positions, _ := ms.GetMarketPositions(ctx, "user1", "m1")
	if len(positions) != 0 {
		t.Errorf("expected positions cleared, got %d", len(positions))
	}
}

func TestRedeem_SecondCallFindsNothing(t *testing.T) {
	svc, led, ms, router := newTestEnv(t)
	ctx := context.Background()
	seedMarket(t, ms, "m1")
	grantShares(t, led, "user1", "m1", 0, 40)
	doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(0)})

	if _, err := svc.Redeem(ctx, "user1", "m1"); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	_, err := svc.Redeem(ctx, "user1", "m1")
	if !errors.Is(err, settle.ErrNoWinningPosition) {
		t.Errorf("expected ErrNoWinningPosition on double redeem, got %v", err)
	}

	// No double payout.
	balance, _ := ms.GetBalance(ctx, "user1")
	if !balance.Equal(d(40)) {
		t.Errorf("expected balance still 40, got %s", balance)
	}
}

func TestRedeem_LoserGetsNothing(t *testing.T) {
	svc, led, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")
	grantShares(t, led, "user1", "m1", 1, 25)
	doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(0)})

	_, err := svc.Redeem(context.Background(), "user1", "m1")
	if !errors.Is(err, settle.ErrNoWinningPosition) {
		t.Errorf("expected ErrNoWinningPosition for losing position, got %v", err)
	}
}

func TestRedeem_PartialWeights(t *testing.T) {
	svc, led, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")
	grantShares(t, led, "user1", "m1", 0, 100)
	grantShares(t, led, "user1", "m1", 1, 50)
	doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{
		PayoutVector: []decimal.Decimal{d(0.6), d(0.4)},
	})

	p, err := svc.Redeem(context.Background(), "user1", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Amount.Equal(d(80)) {
		t.Errorf("expected 100*0.6 + 50*0.4 = 80, got %s", p.Amount)
	}
}

func TestRedeem_UnresolvedMarket(t *testing.T) {
	_, led, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")
	grantShares(t, led, "user1", "m1", 0, 40)

	w := doJSON(t, router, "POST", "/api/v1/redeem", settle.RedeemRequest{UserID: "user1", MarketID: "m1"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for unresolved market, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleRedeem_HTTP(t *testing.T) {
	_, led, ms, router := newTestEnv(t)
	seedMarket(t, ms, "m1")
	grantShares(t, led, "user1", "m1", 0, 40)
	doJSON(t, router, "POST", "/api/v1/markets/m1/resolve", settle.ResolveRequest{Winner: winner(0)})

	w := doJSON(t, router, "POST", "/api/v1/redeem", settle.RedeemRequest{UserID: "user1", MarketID: "m1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var p model.Payout
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.EntryID == "" {
		t.Error("expected non-empty entry_id")
	}
	if !p.Amount.Equal(d(40)) {
		t.Errorf("expected amount 40, got %s", p.Amount)
	}
}
