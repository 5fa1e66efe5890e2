package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision;
// ApplyTransition commits inside one transaction with row-level locks.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO markets (id, question, outcomes, reserves, volume, status, payout_vector, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4::NUMERIC[], $5::NUMERIC, $6, $7::NUMERIC[], $8, $9)`,
		m.ID, m.Question, m.Outcomes, decimalsToStrings(m.Reserves),
		m.Volume.String(), m.Status, decimalsToStrings(m.PayoutVector),
		m.CreatedAt, m.ResolvedAt,
	)
	return err
}

func (s *PostgresStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	m, err := scanMarket(s.pool.QueryRow(ctx, marketSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("market %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get market %s: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx, marketSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balS string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM balances WHERE user_id = $1`, userID).Scan(&balS)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance %s: %w", userID, err)
	}
	bal, _ := decimal.NewFromString(balS)
	return bal, nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, userID, marketID string, outcome int) (*model.Position, error) {
	p := &model.Position{UserID: userID, MarketID: marketID, Outcome: outcome}
	var sharesS, avgS string

	err := s.pool.QueryRow(ctx,
		`SELECT shares_owned::TEXT, avg_price::TEXT
		 FROM positions WHERE user_id = $1 AND market_id = $2 AND outcome = $3`,
		userID, marketID, outcome).Scan(&sharesS, &avgS)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}

	p.SharesOwned, _ = decimal.NewFromString(sharesS)
	p.AvgPrice, _ = decimal.NewFromString(avgS)
	return p, nil
}

func (s *PostgresStore) GetMarketPositions(ctx context.Context, userID, marketID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, market_id, outcome, shares_owned::TEXT, avg_price::TEXT
		 FROM positions WHERE user_id = $1 AND market_id = $2 ORDER BY outcome`,
		userID, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

func (s *PostgresStore) GetUserPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, market_id, outcome, shares_owned::TEXT, avg_price::TEXT
		 FROM positions WHERE user_id = $1 ORDER BY market_id, outcome`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ApplyTransition commits every effect of one transition in a single
// transaction. The balance upsert and market update take row locks, so a
// crash mid-apply rolls the whole unit back and concurrent instances cannot
// interleave partial state.
func (s *PostgresStore) ApplyTransition(ctx context.Context, t *model.Transition, pos *model.Position, entry *model.JournalEntry, rev *model.RevenueRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalS string
	err = tx.QueryRow(ctx,
		`INSERT INTO balances (user_id, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (user_id) DO UPDATE SET balance = balances.balance + EXCLUDED.balance
		 RETURNING balance::TEXT`,
		t.UserID, t.CashDelta.String()).Scan(&newBalS)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if newBal, _ := decimal.NewFromString(newBalS); newBal.IsNegative() {
		return fmt.Errorf("balance for %s would go negative", t.UserID)
	}

	if t.MarketID != "" && (t.NewReserves != nil || t.NewStatus != "" || !t.VolumeDelta.IsZero()) {
		tag, err := tx.Exec(ctx,
			`UPDATE markets
			 SET reserves = COALESCE($2::NUMERIC[], reserves),
			     volume = volume + $3::NUMERIC,
			     status = COALESCE(NULLIF($4, ''), status),
			     payout_vector = COALESCE($5::NUMERIC[], payout_vector),
			     resolved_at = CASE WHEN NULLIF($4, '') = 'resolved' THEN $6 ELSE resolved_at END
			 WHERE id = $1`,
			t.MarketID, decimalsToStrings(t.NewReserves), t.VolumeDelta.String(),
			t.NewStatus, decimalsToStrings(t.PayoutVector), entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("update market state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("market %s: %w", t.MarketID, ErrNotFound)
		}
	}

	if t.ClearPositions {
		if _, err := tx.Exec(ctx,
			`DELETE FROM positions WHERE user_id = $1 AND market_id = $2`,
			t.UserID, t.MarketID); err != nil {
			return fmt.Errorf("clear positions: %w", err)
		}
	}
	if pos != nil {
		if pos.SharesOwned.IsZero() {
			if _, err := tx.Exec(ctx,
				`DELETE FROM positions WHERE user_id = $1 AND market_id = $2 AND outcome = $3`,
				pos.UserID, pos.MarketID, pos.Outcome); err != nil {
				return fmt.Errorf("prune position: %w", err)
			}
		} else {
			if _, err := tx.Exec(ctx,
				`INSERT INTO positions (user_id, market_id, outcome, shares_owned, avg_price)
				 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC)
				 ON CONFLICT (user_id, market_id, outcome)
				 DO UPDATE SET shares_owned = EXCLUDED.shares_owned, avg_price = EXCLUDED.avg_price`,
				pos.UserID, pos.MarketID, pos.Outcome,
				pos.SharesOwned.String(), pos.AvgPrice.String()); err != nil {
				return fmt.Errorf("upsert position: %w", err)
			}
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO journal_entries (id, user_id, kind, amount, fee, market_id, outcome, shares, price, status, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, NULLIF($6, ''), $7, $8::NUMERIC, $9::NUMERIC, $10, $11)`,
		entry.ID, entry.UserID, entry.Kind, entry.Amount.String(), entry.Fee.String(),
		entry.MarketID, entry.Outcome, entry.Shares.String(), entry.Price.String(),
		entry.Status, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	if rev != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO revenue_records (id, amount, entry_id, category, created_at)
			 VALUES ($1, $2::NUMERIC, $3, $4, $5)`,
			rev.ID, rev.Amount.String(), rev.EntryID, rev.Category, rev.CreatedAt); err != nil {
			return fmt.Errorf("insert revenue record: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ResolveMarket(ctx context.Context, marketID string, vector []decimal.Decimal, resolvedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET status = $2, payout_vector = $3::NUMERIC[], resolved_at = $4
		 WHERE id = $1`,
		marketID, model.StatusResolved, decimalsToStrings(vector), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve market %s: %w", marketID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("market %s: %w", marketID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetJournalByUser(ctx context.Context, userID string) ([]model.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, journalSelect+` WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

func (s *PostgresStore) GetJournalByMarket(ctx context.Context, marketID string) ([]model.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, journalSelect+` WHERE market_id = $1 ORDER BY created_at, id`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

func (s *PostgresStore) AuditSnapshot(ctx context.Context) (*model.AuditSnapshot, error) {
	snap := &model.AuditSnapshot{}
	var depS, wdS, cashS, revS string

	err := s.pool.QueryRow(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN kind = 'deposit' THEN amount ELSE 0 END), 0)::TEXT,
			COALESCE(SUM(CASE WHEN kind = 'withdrawal' THEN ABS(amount) ELSE 0 END), 0)::TEXT
		 FROM journal_entries`).Scan(&depS, &wdS)
	if err != nil {
		return nil, fmt.Errorf("audit journal sums: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0)::TEXT FROM balances`).Scan(&cashS)
	if err != nil {
		return nil, fmt.Errorf("audit balance sum: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::TEXT FROM revenue_records`).Scan(&revS)
	if err != nil {
		return nil, fmt.Errorf("audit revenue sum: %w", err)
	}

	snap.NetDeposits, _ = decimal.NewFromString(depS)
	snap.NetWithdrawals, _ = decimal.NewFromString(wdS)
	snap.UserCash, _ = decimal.NewFromString(cashS)
	snap.PlatformRevenue, _ = decimal.NewFromString(revS)
	return snap, nil
}

// --- Scan helpers ---

const marketSelect = `SELECT id, question, outcomes,
	reserves::TEXT[], volume::TEXT, status, payout_vector::TEXT[],
	created_at, resolved_at
 FROM markets`

const journalSelect = `SELECT id, user_id, kind,
	amount::TEXT, fee::TEXT, COALESCE(market_id, ''), outcome,
	shares::TEXT, price::TEXT, status, created_at
 FROM journal_entries`

type pgxRow interface {
	Scan(dest ...interface{}) error
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanMarket(row pgxRow) (*model.Market, error) {
	var m model.Market
	var reserves, vector []string
	var volume string

	if err := row.Scan(&m.ID, &m.Question, &m.Outcomes,
		&reserves, &volume, &m.Status, &vector,
		&m.CreatedAt, &m.ResolvedAt); err != nil {
		return nil, err
	}

	m.Reserves = stringsToDecimals(reserves)
	m.PayoutVector = stringsToDecimals(vector)
	m.Volume, _ = decimal.NewFromString(volume)
	return &m, nil
}

func scanPositions(rows pgxRows) ([]model.Position, error) {
	var positions []model.Position
	for rows.Next() {
		var p model.Position
		var sharesS, avgS string

		if err := rows.Scan(&p.UserID, &p.MarketID, &p.Outcome, &sharesS, &avgS); err != nil {
			return nil, err
		}

		p.SharesOwned, _ = decimal.NewFromString(sharesS)
		p.AvgPrice, _ = decimal.NewFromString(avgS)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func scanJournalEntries(rows pgxRows) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		var amountS, feeS, sharesS, priceS string

		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind,
			&amountS, &feeS, &e.MarketID, &e.Outcome,
			&sharesS, &priceS, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.Amount, _ = decimal.NewFromString(amountS)
		e.Fee, _ = decimal.NewFromString(feeS)
		e.Shares, _ = decimal.NewFromString(sharesS)
		e.Price, _ = decimal.NewFromString(priceS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func decimalsToStrings(ds []decimal.Decimal) []string {
	if ds == nil {
		return nil
	}
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

func stringsToDecimals(ss []string) []decimal.Decimal {
	if ss == nil {
		return nil
	}
	out := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		out[i], _ = decimal.NewFromString(s)
	}
	return out
}
