package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary. The journal and audit
// paths are never cached — the auditor must be exact.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write paths (write to primary, invalidate cache) ---

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.CreateMarket(ctx, m); err != nil {
		return err
	}
	s.cacheMarket(ctx, m)
	return nil
}

// ApplyTransition delegates to the primary store's atomic unit and then
// invalidates every cache entry the transition may have made stale.
func (s *CachedStore) ApplyTransition(ctx context.Context, t *model.Transition, pos *model.Position, entry *model.JournalEntry, rev *model.RevenueRecord) error {
	if err := s.primary.ApplyTransition(ctx, t, pos, entry, rev); err != nil {
		return err
	}
	keys := []string{balanceKey(t.UserID), positionsKey(t.UserID)}
	if t.MarketID != "" {
		keys = append(keys, marketKey(t.MarketID))
	}
	s.rdb.Del(ctx, keys...)
	return nil
}

// ResolveMarket writes through and drops the stale market entry.
func (s *CachedStore) ResolveMarket(ctx context.Context, marketID string, vector []decimal.Decimal, resolvedAt time.Time) error {
	if err := s.primary.ResolveMarket(ctx, marketID, vector, resolvedAt); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(marketID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheMarket(ctx, m)
	return m, nil
}

func (s *CachedStore) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if val, err := s.rdb.Get(ctx, balanceKey(userID)).Result(); err == nil {
		if bal, err := decimal.NewFromString(val); err == nil {
			return bal, nil
		}
	}

	bal, err := s.primary.GetBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	s.rdb.Set(ctx, balanceKey(userID), bal.String(), s.ttl)
	return bal, nil
}

func (s *CachedStore) GetUserPositions(ctx context.Context, userID string) ([]model.Position, error) {
	data, err := s.rdb.Get(ctx, positionsKey(userID)).Bytes()
	if err == nil {
		var positions []model.Position
		if json.Unmarshal(data, &positions) == nil {
			return positions, nil
		}
	}

	positions, err := s.primary.GetUserPositions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(positions); err == nil {
		s.rdb.Set(ctx, positionsKey(userID), data, s.ttl)
	}
	return positions, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return s.primary.ListMarkets(ctx)
}

func (s *CachedStore) GetPosition(ctx context.Context, userID, marketID string, outcome int) (*model.Position, error) {
	return s.primary.GetPosition(ctx, userID, marketID, outcome)
}

func (s *CachedStore) GetMarketPositions(ctx context.Context, userID, marketID string) ([]model.Position, error) {
	return s.primary.GetMarketPositions(ctx, userID, marketID)
}

func (s *CachedStore) GetJournalByUser(ctx context.Context, userID string) ([]model.JournalEntry, error) {
	return s.primary.GetJournalByUser(ctx, userID)
}

func (s *CachedStore) GetJournalByMarket(ctx context.Context, marketID string) ([]model.JournalEntry, error) {
	return s.primary.GetJournalByMarket(ctx, marketID)
}

func (s *CachedStore) AuditSnapshot(ctx context.Context) (*model.AuditSnapshot, error) {
	return s.primary.AuditSnapshot(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheMarket(ctx context.Context, m *model.Market) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketKey(m.ID), data, s.ttl)
	}
}

func marketKey(id string) string     { return fmt.Sprintf("market:%s", id) }
func balanceKey(uid string) string   { return fmt.Sprintf("balance:%s", uid) }
func positionsKey(uid string) string { return fmt.Sprintf("positions:%s", uid) }
