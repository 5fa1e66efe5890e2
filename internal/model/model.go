// Package model defines the core domain types shared across the exchange core.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market lifecycle statuses.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
	StatusPaused   = "paused"
)

// Journal entry kinds.
const (
	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"
	KindTradeBuy   = "trade_buy"
	KindTradeSell  = "trade_sell"
	KindRedemption = "redemption"
)

// Market represents one event contract with an ordered set of mutually
// exclusive outcomes. Outcome index is the outcome's identity; Reserves
// carries one constant-product reserve per outcome, all strictly positive
// while the market is open.
type Market struct {
	ID           string            `json:"id" db:"id"`
	Question     string            `json:"question" db:"question"`
	Outcomes     []string          `json:"outcomes" db:"outcomes"`
	Reserves     []decimal.Decimal `json:"reserves" db:"reserves"`
	Volume       decimal.Decimal   `json:"volume" db:"volume"`
	Status       string            `json:"status" db:"status"`
	PayoutVector []decimal.Decimal `json:"payout_vector,omitempty" db:"payout_vector"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Position is a user's holding in one outcome of one market. Shares in one
// outcome are not fungible with another outcome or another market.
type Position struct {
	UserID      string          `json:"user_id" db:"user_id"`
	MarketID    string          `json:"market_id" db:"market_id"`
	Outcome     int             `json:"outcome" db:"outcome"`
	SharesOwned decimal.Decimal `json:"shares_owned" db:"shares_owned"`
	AvgPrice    decimal.Decimal `json:"avg_price" db:"avg_price"` // volume-weighted entry price
}

// JournalEntry is an immutable record of one committed cash mutation.
// Once written, entries are never modified or deleted; the sum of a user's
// signed amounts always equals that user's cash balance.
type JournalEntry struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Kind      string          `json:"kind" db:"kind"`
	Amount    decimal.Decimal `json:"amount" db:"amount"` // signed cash delta
	Fee       decimal.Decimal `json:"fee" db:"fee"`
	MarketID  string          `json:"market_id,omitempty" db:"market_id"`
	Outcome   int             `json:"outcome" db:"outcome"` // -1 when not outcome-specific
	Shares    decimal.Decimal `json:"shares" db:"shares"`   // signed share delta
	Price     decimal.Decimal `json:"price" db:"price"`     // effective fill price
	Status    string          `json:"status" db:"status"`   // always "completed"
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// RevenueRecord is an append-only record of realized platform fee income.
type RevenueRecord struct {
	ID        string          `json:"id" db:"id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	EntryID   string          `json:"entry_id" db:"entry_id"` // source journal entry
	Category  string          `json:"category" db:"category"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Transition is a closed description of all simultaneous effects of one
// ledger apply. Either every effect lands together with exactly one journal
// entry appended, or nothing changes.
type Transition struct {
	Kind        string
	UserID      string
	MarketID    string
	Outcome     int // -1 when not outcome-specific
	CashDelta   decimal.Decimal
	Fee         decimal.Decimal
	FeeCategory string
	ShareDelta  decimal.Decimal
	Price       decimal.Decimal

	// Optional market-state effects, applied in the same atomic unit.
	NewReserves    []decimal.Decimal
	VolumeDelta    decimal.Decimal
	NewStatus      string
	PayoutVector   []decimal.Decimal
	ClearPositions bool // zero every position of (user, market); used by redemption
}

// Fill is the result of an executed trade.
type Fill struct {
	EntryID        string          `json:"entry_id"`
	UserID         string          `json:"user_id"`
	MarketID       string          `json:"market_id"`
	Outcome        int             `json:"outcome"`
	SharesOut      decimal.Decimal `json:"shares_out"`
	CashIn         decimal.Decimal `json:"cash_in"`
	CashOut        decimal.Decimal `json:"cash_out"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Fee            decimal.Decimal `json:"fee"`
	LossWarning    bool            `json:"loss_warning,omitempty"`
}

// Payout is the result of redeeming a resolved market.
type Payout struct {
	EntryID   string            `json:"entry_id"`
	UserID    string            `json:"user_id"`
	MarketID  string            `json:"market_id"`
	Amount    decimal.Decimal   `json:"amount"`
	ByOutcome []decimal.Decimal `json:"by_outcome"`
}

// AuditSnapshot carries the exact journal/balance aggregates the auditor
// derives solvency from.
type AuditSnapshot struct {
	NetDeposits     decimal.Decimal
	NetWithdrawals  decimal.Decimal // sum of absolute withdrawal amounts
	UserCash        decimal.Decimal
	PlatformRevenue decimal.Decimal
}

// AuditReport is the reconciliation result exposed to operators.
type AuditReport struct {
	NetExternal     decimal.Decimal `json:"net_external"`
	UserCash        decimal.Decimal `json:"user_cash"`
	PlatformRevenue decimal.Decimal `json:"platform_revenue"`
	ImpliedEscrow   decimal.Decimal `json:"implied_escrow"`
	Health          string          `json:"health"` // "SOLVENT" or "INSOLVENT"
}
