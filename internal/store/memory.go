package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	markets   map[string]*model.Market
	balances  map[string]decimal.Decimal
	positions map[string]*model.Position
	journal   []model.JournalEntry
	revenue   []model.RevenueRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets:   make(map[string]*model.Market),
		balances:  make(map[string]decimal.Decimal),
		positions: make(map[string]*model.Position),
	}
}

func posKey(userID, marketID string, outcome int) string {
	return fmt.Sprintf("%s|%s|%d", userID, marketID, outcome)
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[m.ID]; ok {
		return fmt.Errorf("market %s already exists", m.ID)
	}

	// Store a copy to avoid external mutation.
	s.markets[m.ID] = copyMarket(m)
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	return copyMarket(m), nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *copyMarket(m))
	}
	return markets, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[userID], nil
}

func (s *MemoryStore) GetPosition(_ context.Context, userID, marketID string, outcome int) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[posKey(userID, marketID, outcome)]; ok {
		copy := *p
		return &copy, nil
	}
	return &model.Position{UserID: userID, MarketID: marketID, Outcome: outcome}, nil
}

func (s *MemoryStore) GetMarketPositions(_ context.Context, userID, marketID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Position
	for _, p := range s.positions {
		if p.UserID == userID && p.MarketID == marketID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetUserPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			result = append(result, *p)
		}
	}
	return result, nil
}

// ApplyTransition applies every effect under one lock hold, so no reader
// ever observes a partially applied transition.
func (s *MemoryStore) ApplyTransition(_ context.Context, t *model.Transition, pos *model.Position, entry *model.JournalEntry, rev *model.RevenueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newBalance := s.balances[t.UserID].Add(t.CashDelta)
	if newBalance.IsNegative() {
		return fmt.Errorf("balance for %s would go negative", t.UserID)
	}

	if t.MarketID != "" && (t.NewReserves != nil || t.NewStatus != "" || !t.VolumeDelta.IsZero()) {
		m, ok := s.markets[t.MarketID]
		if !ok {
			return fmt.Errorf("market %s: %w", t.MarketID, ErrNotFound)
		}
		if t.NewReserves != nil {
			m.Reserves = copyDecimals(t.NewReserves)
		}
		if !t.VolumeDelta.IsZero() {
			m.Volume = m.Volume.Add(t.VolumeDelta)
		}
		if t.NewStatus != "" {
			m.Status = t.NewStatus
			m.PayoutVector = copyDecimals(t.PayoutVector)
			now := entry.CreatedAt
			m.ResolvedAt = &now
		}
	}

	s.balances[t.UserID] = newBalance

	if t.ClearPositions {
		for key, p := range s.positions {
			if p.UserID == t.UserID && p.MarketID == t.MarketID {
				delete(s.positions, key)
			}
		}
	}
	if pos != nil {
		key := posKey(pos.UserID, pos.MarketID, pos.Outcome)
		if pos.SharesOwned.IsZero() {
			delete(s.positions, key)
		} else {
			copy := *pos
			s.positions[key] = &copy
		}
	}

	s.journal = append(s.journal, *entry)
	if rev != nil {
		s.revenue = append(s.revenue, *rev)
	}
	return nil
}

func (s *MemoryStore) ResolveMarket(_ context.Context, marketID string, vector []decimal.Decimal, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[marketID]
	if !ok {
		return fmt.Errorf("market %s: %w", marketID, ErrNotFound)
	}
	m.Status = model.StatusResolved
	m.PayoutVector = copyDecimals(vector)
	m.ResolvedAt = &resolvedAt
	return nil
}

func (s *MemoryStore) GetJournalByUser(_ context.Context, userID string) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.JournalEntry
	for _, e := range s.journal {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetJournalByMarket(_ context.Context, marketID string) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.JournalEntry
	for _, e := range s.journal {
		if e.MarketID == marketID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) AuditSnapshot(_ context.Context) (*model.AuditSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &model.AuditSnapshot{
		NetDeposits:     decimal.Zero,
		NetWithdrawals:  decimal.Zero,
		UserCash:        decimal.Zero,
		PlatformRevenue: decimal.Zero,
	}
	for _, e := range s.journal {
		switch e.Kind {
		case model.KindDeposit:
			snap.NetDeposits = snap.NetDeposits.Add(e.Amount)
		case model.KindWithdrawal:
			snap.NetWithdrawals = snap.NetWithdrawals.Add(e.Amount.Abs())
		}
	}
	for _, b := range s.balances {
		snap.UserCash = snap.UserCash.Add(b)
	}
	for _, r := range s.revenue {
		snap.PlatformRevenue = snap.PlatformRevenue.Add(r.Amount)
	}
	return snap, nil
}

func copyMarket(m *model.Market) *model.Market {
	copy := *m
	copy.Outcomes = append([]string(nil), m.Outcomes...)
	copy.Reserves = copyDecimals(m.Reserves)
	copy.PayoutVector = copyDecimals(m.PayoutVector)
	return &copy
}

func copyDecimals(ds []decimal.Decimal) []decimal.Decimal {
	if ds == nil {
		return nil
	}
	return append([]decimal.Decimal(nil), ds...)
}
