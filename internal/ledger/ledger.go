// Package ledger is the single mutation path for cash balances, positions,
// and the transaction journal. Every change goes through Apply: the caller
// describes all simultaneous effects as one model.Transition, and either
// every effect lands together with exactly one journal entry appended, or
// nothing changes and a typed error is returned.
//
// Apply serializes on a per-market and per-user basis: two trades on
// different markets run concurrently, while the reserve read, quote, and
// reserve write for one market share a single critical section. There is no
// check-then-act window.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/model"
	"github.com/openodds/market-core/internal/store"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientShares is returned when a sell or redemption exceeds
	// the held position.
	ErrInsufficientShares = errors.New("ledger: insufficient shares")

	// ErrMarketNotOpen is returned for trades on non-open markets.
	ErrMarketNotOpen = errors.New("ledger: market is not open for trading")

	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrAlreadyResolved is returned when resolving an already-resolved
	// market. Resolution is one-way and not repeatable with a new vector.
	ErrAlreadyResolved = errors.New("ledger: market already resolved")

	// ErrBusy is returned when a market or user lock cannot be acquired
	// before the context expires. Safe to retry; nothing was applied.
	ErrBusy = errors.New("ledger: serialization point busy, retry")
)

// View is the consistent state snapshot handed to a transition builder.
// It is read under the same locks the transition will commit under.
type View struct {
	Market    *model.Market    // nil for cash-only transitions
	Balance   decimal.Decimal  // user's current cash balance
	Positions []model.Position // user's positions in the market, if any
}

// Position returns the user's holding in one outcome from the view,
// zero-valued if none.
func (v *View) Position(outcome int) model.Position {
	for _, p := range v.Positions {
		if p.Outcome == outcome {
			return p
		}
	}
	return model.Position{Outcome: outcome, SharesOwned: decimal.Zero, AvgPrice: decimal.Zero}
}

// BuildFunc constructs a transition from a locked view of current state.
type BuildFunc func(v *View) (*model.Transition, error)

// Ledger owns the serialization points and the atomic apply contract.
type Ledger struct {
	store   store.Store
	markets *keyedLocks
	users   *keyedLocks
}

// New creates a ledger over the given store.
func New(st store.Store) *Ledger {
	return &Ledger{
		store:   st,
		markets: newKeyedLocks(),
		users:   newKeyedLocks(),
	}
}

// Apply runs build against a locked view of current state, validates the
// resulting transition inside the same critical section, and persists every
// effect through the store as one atomic unit. Lock order is always market
// then user; cash-only transitions pass an empty marketID and take only the
// user lock.
func (l *Ledger) Apply(ctx context.Context, userID, marketID string, build BuildFunc) (*model.JournalEntry, error) {
	if marketID != "" {
		release, err := l.markets.acquire(ctx, marketID)
		if err != nil {
			return nil, fmt.Errorf("%w: market %s", ErrBusy, marketID)
		}
		defer release()
	}
	release, err := l.users.acquire(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrBusy, userID)
	}
	defer release()

	view := &View{}
	if marketID != "" {
		view.Market, err = l.store.GetMarket(ctx, marketID)
		if err != nil {
			return nil, err
		}
		view.Positions, err = l.store.GetMarketPositions(ctx, userID, marketID)
		if err != nil {
			return nil, err
		}
	}
	view.Balance, err = l.store.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	t, err := build(view)
	if err != nil {
		return nil, err
	}

	pos, err := l.validate(view, t)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &model.JournalEntry{
		ID:        uuid.New().String(),
		UserID:    t.UserID,
		Kind:      t.Kind,
		Amount:    t.CashDelta,
		Fee:       t.Fee,
		MarketID:  t.MarketID,
		Outcome:   t.Outcome,
		Shares:    t.ShareDelta,
		Price:     t.Price,
		Status:    "completed",
		CreatedAt: now,
	}

	var rev *model.RevenueRecord
	if t.Fee.IsPositive() {
		category := t.FeeCategory
		if category == "" {
			category = "trading_fee"
		}
		rev = &model.RevenueRecord{
			ID:        uuid.New().String(),
			Amount:    t.Fee,
			EntryID:   entry.ID,
			Category:  category,
			CreatedAt: now,
		}
	}

	if err := l.store.ApplyTransition(ctx, t, pos, entry, rev); err != nil {
		return nil, fmt.Errorf("apply %s for %s: %w", t.Kind, t.UserID, err)
	}
	return entry, nil
}

// Deposit credits external funds to a user's balance.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*model.JournalEntry, error) {
	return l.Apply(ctx, userID, "", func(_ *View) (*model.Transition, error) {
		return &model.Transition{
			Kind:      model.KindDeposit,
			UserID:    userID,
			Outcome:   -1,
			CashDelta: amount,
		}, nil
	})
}

// Withdraw debits funds from a user's balance back to the external world.
func (l *Ledger) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*model.JournalEntry, error) {
	return l.Apply(ctx, userID, "", func(_ *View) (*model.Transition, error) {
		return &model.Transition{
			Kind:      model.KindWithdrawal,
			UserID:    userID,
			Outcome:   -1,
			CashDelta: amount.Neg(),
		}, nil
	})
}

// Resolve flips a market from open to resolved and records its payout
// vector, under the market's serialization point. It writes no journal
// entry — cash only moves when positions are redeemed. The vector itself
// must already be validated by the caller.
func (l *Ledger) Resolve(ctx context.Context, marketID string, vector []decimal.Decimal) (*model.Market, error) {
	release, err := l.markets.acquire(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("%w: market %s", ErrBusy, marketID)
	}
	defer release()

	m, err := l.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m.Status == model.StatusResolved {
		return nil, ErrAlreadyResolved
	}
	if m.Status != model.StatusOpen {
		return nil, ErrMarketNotOpen
	}

	now := time.Now().UTC()
	if err := l.store.ResolveMarket(ctx, marketID, vector, now); err != nil {
		return nil, fmt.Errorf("resolve market %s: %w", marketID, err)
	}

	m.Status = model.StatusResolved
	m.PayoutVector = vector
	m.ResolvedAt = &now
	return m, nil
}

// validate enforces the transition contract against the locked view and
// materializes the resulting position row (nil when no position effect).
func (l *Ledger) validate(v *View, t *model.Transition) (*model.Position, error) {
	switch t.Kind {
	case model.KindDeposit:
		if t.CashDelta.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidAmount
		}
	case model.KindWithdrawal:
		if t.CashDelta.GreaterThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidAmount
		}
	case model.KindTradeBuy, model.KindTradeSell:
		if v.Market == nil {
			return nil, fmt.Errorf("trade without market: %w", ErrInvalidAmount)
		}
		if v.Market.Status != model.StatusOpen {
			return nil, ErrMarketNotOpen
		}
	case model.KindRedemption:
		// Status checked by the redeemer; redemption requires resolved.
	default:
		return nil, fmt.Errorf("unknown transition kind %q", t.Kind)
	}

	if v.Balance.Add(t.CashDelta).IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if t.ShareDelta.IsZero() {
		return nil, nil
	}

	held := v.Position(t.Outcome)
	newShares := held.SharesOwned.Add(t.ShareDelta)
	if newShares.IsNegative() {
		return nil, ErrInsufficientShares
	}

	pos := &model.Position{
		UserID:      t.UserID,
		MarketID:    t.MarketID,
		Outcome:     t.Outcome,
		SharesOwned: newShares,
		AvgPrice:    held.AvgPrice,
	}
	if t.ShareDelta.IsPositive() {
		// Volume-weighted average entry price across buys.
		spent := held.SharesOwned.Mul(held.AvgPrice).Add(t.ShareDelta.Mul(t.Price))
		pos.AvgPrice = spent.Div(newShares).Round(8)
	} else if newShares.IsZero() {
		pos.AvgPrice = decimal.Zero
	}
	return pos, nil
}
