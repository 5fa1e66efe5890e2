// Package store defines the persistence interface for the exchange core.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/model"
)

// ErrNotFound is returned when a market does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// ApplyTransition is the only write path for balances, positions, journal
// entries, revenue records, and market state — and it commits as a single
// atomic unit. Everything else is read-only (market creation aside).
type Store interface {
	// --- Market operations ---

	// CreateMarket persists a new market.
	CreateMarket(ctx context.Context, market *model.Market) error

	// GetMarket retrieves a market by its ID.
	GetMarket(ctx context.Context, id string) (*model.Market, error)

	// ListMarkets returns all markets.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// --- Balances and positions ---

	// GetBalance returns a user's cash balance; zero for unknown users.
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)

	// GetPosition returns one (user, market, outcome) position, zero-valued
	// if the user holds nothing there.
	GetPosition(ctx context.Context, userID, marketID string, outcome int) (*model.Position, error)

	// GetMarketPositions returns a user's positions in one market.
	GetMarketPositions(ctx context.Context, userID, marketID string) ([]model.Position, error)

	// GetUserPositions returns all of a user's positions.
	GetUserPositions(ctx context.Context, userID string) ([]model.Position, error)

	// --- Atomic apply ---

	// ApplyTransition persists every effect of a validated transition as one
	// atomic unit: the balance delta, the new position row (nil when no
	// position effect; a zero-share row is pruned), market reserve/volume/
	// status changes, exactly one journal entry, and an optional revenue
	// record. Either all of it commits or none of it does.
	ApplyTransition(ctx context.Context, t *model.Transition, pos *model.Position, entry *model.JournalEntry, rev *model.RevenueRecord) error

	// ResolveMarket atomically sets a market's status to resolved and
	// records its payout vector. Status checks happen in the ledger under
	// the market's serialization point.
	ResolveMarket(ctx context.Context, marketID string, vector []decimal.Decimal, resolvedAt time.Time) error

	// --- Immutable journal ---

	// GetJournalByUser returns a user's journal entries in commit order.
	GetJournalByUser(ctx context.Context, userID string) ([]model.JournalEntry, error)

	// GetJournalByMarket returns all journal entries for a market.
	GetJournalByMarket(ctx context.Context, marketID string) ([]model.JournalEntry, error)

	// --- Reconciliation ---

	// AuditSnapshot returns the exact aggregates the auditor derives
	// solvency from. Reads may observe a prefix of in-flight commits but
	// must never observe a partial transition.
	AuditSnapshot(ctx context.Context) (*model.AuditSnapshot, error)
}
