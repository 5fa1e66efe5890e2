// Package settle closes the loop on a market's lifecycle: resolution pins a
// terminal payout vector, redemption converts resolved positions into cash.
//
// Resolution is one-way and writes no journal entry; cash only moves when a
// user redeems. Redemption sweeps every position the user holds in the
// market in one atomic transition, so it is idempotent: a second call finds
// no shares and fails cleanly.
package settle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/ledger"
	"github.com/openodds/market-core/internal/metrics"
	"github.com/openodds/market-core/internal/model"
	"github.com/openodds/market-core/internal/payout"
	"github.com/openodds/market-core/internal/store"
	"github.com/openodds/market-core/internal/trade"
)

var (
	// ErrNotResolved is returned when redeeming against a market that has
	// not been resolved yet.
	ErrNotResolved = errors.New("settle: market is not resolved")

	// ErrNoWinningPosition is returned when the user's positions in a
	// resolved market are worth exactly zero under the payout vector.
	ErrNoWinningPosition = errors.New("settle: no position with positive payout value")
)

// Service handles market resolution and position redemption.
type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	wsHub  *trade.WSHub // optional
}

// NewService creates a settlement service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, led *ledger.Ledger, hub *trade.WSHub) *Service {
	return &Service{store: st, ledger: led, wsHub: hub}
}

// --- Request types ---

// ResolveRequest is the JSON body for POST /markets/{marketID}/resolve.
// Either winner (outcome index) or an explicit payout vector must be given;
// the vector wins if both are present.
type ResolveRequest struct {
	Winner       *int              `json:"winner,omitempty"`
	PayoutVector []decimal.Decimal `json:"payout_vector,omitempty"`
}

// RedeemRequest is the JSON body for POST /redeem.
type RedeemRequest struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
}

// --- Core operations ---

// Resolve pins the payout vector on an open market and flips it to
// resolved. The vector is validated against the market's outcome count
// before the state flips; resolution cannot be repeated.
func (s *Service) Resolve(ctx context.Context, marketID string, vector []decimal.Decimal) (*model.Market, error) {
	m, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if err := payout.Validate(vector, len(m.Outcomes)); err != nil {
		return nil, err
	}

	resolved, err := s.ledger.Resolve(ctx, marketID, vector)
	if err != nil {
		return nil, err
	}
	metrics.ActiveMarkets.Dec()

	if s.wsHub != nil {
		msg := trade.WSMessage{Type: "market_resolved", MarketID: marketID}
		for _, w := range vector {
			msg.Payout = append(msg.Payout, w.String())
		}
		s.wsHub.Broadcast(msg)
	}

	slog.Info("market resolved", "market", marketID, "resolved_at", resolved.ResolvedAt.Format(time.RFC3339))
	return resolved, nil
}

// Redeem converts all of the user's positions in a resolved market into
// cash at the payout vector and clears them in the same atomic transition.
func (s *Service) Redeem(ctx context.Context, userID, marketID string) (*model.Payout, error) {
	var result *model.Payout

	entry, err := s.ledger.Apply(ctx, userID, marketID, func(v *ledger.View) (*model.Transition, error) {
		m := v.Market
		if m.Status != model.StatusResolved {
			return nil, ErrNotResolved
		}

		byOutcome := make([]decimal.Decimal, len(m.Outcomes))
		for i := range byOutcome {
			byOutcome[i] = decimal.Zero
		}
		for _, p := range v.Positions {
			if p.Outcome >= 0 && p.Outcome < len(byOutcome) {
				byOutcome[p.Outcome] = byOutcome[p.Outcome].Add(p.SharesOwned)
			}
		}

		amount := payout.Value(byOutcome, m.PayoutVector)
		if !amount.IsPositive() {
			return nil, ErrNoWinningPosition
		}

		result = &model.Payout{
			UserID:    userID,
			MarketID:  marketID,
			Amount:    amount,
			ByOutcome: byOutcome,
		}

		return &model.Transition{
			Kind:           model.KindRedemption,
			UserID:         userID,
			MarketID:       marketID,
			Outcome:        -1,
			CashDelta:      amount,
			ClearPositions: true,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	result.EntryID = entry.ID
	metrics.RedemptionsTotal.Inc()
	return result, nil
}

// --- HTTP Handlers ---

// HandleResolve handles POST /api/v1/markets/{marketID}/resolve
func (s *Service) HandleResolve(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	market, err := s.store.GetMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}

	vector := req.PayoutVector
	if vector == nil {
		if req.Winner == nil {
			writeError(w, "winner or payout_vector is required", http.StatusBadRequest)
			return
		}
		vector, err = payout.Binary(*req.Winner, len(market.Outcomes))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	resolved, err := s.Resolve(r.Context(), marketID, vector)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resolved)
}

// HandleRedeem handles POST /api/v1/redeem
func (s *Service) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.MarketID == "" {
		writeError(w, "user_id and market_id are required", http.StatusBadRequest)
		return
	}

	p, err := s.Redeem(r.Context(), req.UserID, req.MarketID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info("positions redeemed",
		"entry_id", p.EntryID,
		"user", req.UserID,
		"market", req.MarketID,
		"amount", p.Amount.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payout.ErrLengthMismatch),
		errors.Is(err, payout.ErrNegativeWeight),
		errors.Is(err, payout.ErrBadSum):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAlreadyResolved),
		errors.Is(err, ledger.ErrMarketNotOpen),
		errors.Is(err, ErrNotResolved),
		errors.Is(err, ErrNoWinningPosition):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
