// Package trade provides the HTTP handlers and business logic for creating
// markets, quoting, executing buys and sells, and querying balances and
// portfolios.
//
// A trade composes a CPMM quote with a ledger transition inside one
// critical section: the reserve read, the quote, and the reserve write are
// indivisible per market, so concurrent trades on one market always observe
// each other's reserve updates.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openodds/market-core/internal/cpmm"
	"github.com/openodds/market-core/internal/ledger"
	"github.com/openodds/market-core/internal/metrics"
	"github.com/openodds/market-core/internal/model"
	"github.com/openodds/market-core/internal/risk"
	"github.com/openodds/market-core/internal/store"
)

// ErrSlippage is returned when a fill would come in under the caller's
// slippage floor. Nothing is applied; the caller may retry with adjusted
// parameters.
var ErrSlippage = errors.New("trade: fill below slippage floor")

// Service handles market and trade operations.
type Service struct {
	store   store.Store
	ledger  *ledger.Ledger
	engine  *cpmm.Engine
	limiter *risk.PositionLimiter
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, led *ledger.Ledger, engine *cpmm.Engine, limiter *risk.PositionLimiter, hub *WSHub) *Service {
	return &Service{
		store:   st,
		ledger:  led,
		engine:  engine,
		limiter: limiter,
		wsHub:   hub,
	}
}

// --- Request/Response types ---

// CreateMarketRequest is the JSON body for market creation.
type CreateMarketRequest struct {
	Question string   `json:"question"`
	Outcomes []string `json:"outcomes"`
}

// BuyRequest is the JSON body for POST /buy.
type BuyRequest struct {
	UserID       string          `json:"user_id"`
	MarketID     string          `json:"market_id"`
	Outcome      int             `json:"outcome"`
	CashIn       decimal.Decimal `json:"cash_in"`
	MinSharesOut decimal.Decimal `json:"min_shares_out"`
}

// SellRequest is the JSON body for POST /sell.
type SellRequest struct {
	UserID     string          `json:"user_id"`
	MarketID   string          `json:"market_id"`
	Outcome    int             `json:"outcome"`
	SharesIn   decimal.Decimal `json:"shares_in"`
	MinCashOut decimal.Decimal `json:"min_cash_out"`
}

// CashRequest is the JSON body for POST /deposit and POST /withdraw.
type CashRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// QuoteResponse is returned from GET /markets/{marketID}/quote.
type QuoteResponse struct {
	MarketID  string          `json:"market_id"`
	Outcome   int             `json:"outcome"`
	Price     decimal.Decimal `json:"price"`
	SharesOut decimal.Decimal `json:"shares_out"`
	Fee       decimal.Decimal `json:"fee"`
}

// PortfolioPosition is one mark-to-market position in a portfolio response.
type PortfolioPosition struct {
	MarketID      string          `json:"market_id"`
	Outcome       int             `json:"outcome"`
	SharesOwned   decimal.Decimal `json:"shares_owned"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// PortfolioResponse aggregates a user's cash and positions.
type PortfolioResponse struct {
	UserID      string              `json:"user_id"`
	CashBalance decimal.Decimal     `json:"cash_balance"`
	Positions   []PortfolioPosition `json:"positions"`
	TotalValue  decimal.Decimal     `json:"total_value"`
}

// --- Core operations ---

// Buy executes a purchase of outcome shares for cashIn units of cash.
// minSharesOut is the caller's protection against price movement between
// quote display and submission: a fill below it fails with ErrSlippage and
// applies nothing.
func (s *Service) Buy(ctx context.Context, userID, marketID string, outcome int, cashIn, minSharesOut decimal.Decimal) (*model.Fill, error) {
	if cashIn.LessThanOrEqual(decimal.Zero) {
		return nil, cpmm.ErrInvalidAmount
	}

	start := time.Now()
	var fill *model.Fill
	var newReserves []decimal.Decimal

	entry, err := s.ledger.Apply(ctx, userID, marketID, func(v *ledger.View) (*model.Transition, error) {
		m := v.Market
		if m.Status != model.StatusOpen {
			return nil, ledger.ErrMarketNotOpen
		}
		if outcome < 0 || outcome >= len(m.Outcomes) {
			return nil, cpmm.ErrInvalidOutcome
		}

		quote, err := s.engine.QuoteBuy(m.Reserves, outcome, cashIn)
		if err != nil {
			return nil, err
		}
		if quote.SharesOut.LessThan(minSharesOut) {
			return nil, ErrSlippage
		}

		holdings, err := s.userHoldings(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.limiter.CheckLimit(marketID, quote.SharesOut, holdings); err != nil {
			return nil, err
		}

		effPrice := cashIn.Div(quote.SharesOut).Round(cpmm.QuoteScale)
		net := cashIn.Sub(quote.Fee)
		fill = &model.Fill{
			UserID:         userID,
			MarketID:       marketID,
			Outcome:        outcome,
			SharesOut:      quote.SharesOut,
			CashIn:         cashIn,
			EffectivePrice: effPrice,
			Fee:            quote.Fee,
			LossWarning:    quote.SharesOut.LessThan(net),
		}
		newReserves = quote.NewReserves

		return &model.Transition{
			Kind:        model.KindTradeBuy,
			UserID:      userID,
			MarketID:    marketID,
			Outcome:     outcome,
			CashDelta:   cashIn.Neg(),
			Fee:         quote.Fee,
			ShareDelta:  quote.SharesOut,
			Price:       effPrice,
			NewReserves: quote.NewReserves,
			VolumeDelta: cashIn,
		}, nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	fill.EntryID = entry.ID

	metrics.TradesTotal.WithLabelValues("buy").Inc()
	metrics.TradeLatency.WithLabelValues("buy").Observe(time.Since(start).Seconds())
	metrics.MarketVolume.WithLabelValues(marketID, "buy").Add(cashIn.InexactFloat64())
	s.broadcastTrade(marketID, outcome, "buy", cashIn, fill.SharesOut, newReserves)
	return fill, nil
}

// Sell burns sharesIn shares of an outcome back into the pool and credits
// the net proceeds. minCashOut mirrors the buy-side slippage floor.
func (s *Service) Sell(ctx context.Context, userID, marketID string, outcome int, sharesIn, minCashOut decimal.Decimal) (*model.Fill, error) {
	if sharesIn.LessThanOrEqual(decimal.Zero) {
		return nil, cpmm.ErrInvalidAmount
	}

	start := time.Now()
	var fill *model.Fill
	var newReserves []decimal.Decimal

	entry, err := s.ledger.Apply(ctx, userID, marketID, func(v *ledger.View) (*model.Transition, error) {
		m := v.Market
		if m.Status != model.StatusOpen {
			return nil, ledger.ErrMarketNotOpen
		}
		if outcome < 0 || outcome >= len(m.Outcomes) {
			return nil, cpmm.ErrInvalidOutcome
		}
		if v.Position(outcome).SharesOwned.LessThan(sharesIn) {
			return nil, ledger.ErrInsufficientShares
		}

		quote, err := s.engine.QuoteSell(m.Reserves, outcome, sharesIn)
		if err != nil {
			return nil, err
		}
		if quote.CashOut.LessThan(minCashOut) {
			return nil, ErrSlippage
		}

		effPrice := quote.CashOut.Div(sharesIn).Round(cpmm.QuoteScale)
		fill = &model.Fill{
			UserID:         userID,
			MarketID:       marketID,
			Outcome:        outcome,
			SharesOut:      sharesIn.Neg(),
			CashOut:        quote.CashOut,
			EffectivePrice: effPrice,
			Fee:            quote.Fee,
		}
		newReserves = quote.NewReserves

		return &model.Transition{
			Kind:        model.KindTradeSell,
			UserID:      userID,
			MarketID:    marketID,
			Outcome:     outcome,
			CashDelta:   quote.CashOut,
			Fee:         quote.Fee,
			ShareDelta:  sharesIn.Neg(),
			Price:       effPrice,
			NewReserves: quote.NewReserves,
			VolumeDelta: quote.CashOut.Add(quote.Fee),
		}, nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	fill.EntryID = entry.ID

	metrics.TradesTotal.WithLabelValues("sell").Inc()
	metrics.TradeLatency.WithLabelValues("sell").Observe(time.Since(start).Seconds())
	metrics.MarketVolume.WithLabelValues(marketID, "sell").Add(fill.CashOut.InexactFloat64())
	s.broadcastTrade(marketID, outcome, "sell", fill.CashOut, sharesIn, newReserves)
	return fill, nil
}

// userHoldings sums a user's shares per market for the risk limiter.
func (s *Service) userHoldings(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	positions, err := s.store.GetUserPositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings := make(map[string]decimal.Decimal)
	for _, p := range positions {
		holdings[p.MarketID] = holdings[p.MarketID].Add(p.SharesOwned)
	}
	return holdings, nil
}

func (s *Service) broadcastTrade(marketID string, outcome int, side string, cash, shares decimal.Decimal, reserves []decimal.Decimal) {
	if s.wsHub == nil {
		return
	}
	prices, err := cpmm.Prices(reserves)
	if err != nil {
		return
	}
	msg := WSMessage{
		Type:     "trade_executed",
		MarketID: marketID,
		Outcome:  outcome,
		Side:     side,
		Cash:     cash.String(),
		Shares:   shares.String(),
	}
	for _, p := range prices {
		msg.Prices = append(msg.Prices, p.String())
	}
	s.wsHub.Broadcast(msg)
}

func (s *Service) countRejection(err error) {
	switch {
	case errors.Is(err, ErrSlippage):
		metrics.GuardRejections.WithLabelValues("slippage").Inc()
	case errors.Is(err, ledger.ErrInsufficientFunds):
		metrics.GuardRejections.WithLabelValues("insufficient_funds").Inc()
	case errors.Is(err, ledger.ErrInsufficientShares):
		metrics.GuardRejections.WithLabelValues("insufficient_shares").Inc()
	case errors.Is(err, ledger.ErrMarketNotOpen):
		metrics.GuardRejections.WithLabelValues("market_not_open").Inc()
	case errors.Is(err, risk.ErrPerMarketLimitExceeded), errors.Is(err, risk.ErrTotalExposureExceeded):
		metrics.GuardRejections.WithLabelValues("position_limit").Inc()
	}
}

// --- HTTP Handlers ---

// CreateMarket handles POST /api/v1/markets
func (s *Service) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		writeError(w, "question is required", http.StatusBadRequest)
		return
	}
	if len(req.Outcomes) < 2 {
		writeError(w, "at least 2 outcomes are required", http.StatusBadRequest)
		return
	}
	for _, o := range req.Outcomes {
		if o == "" {
			writeError(w, "outcome labels must be non-empty", http.StatusBadRequest)
			return
		}
	}

	market := &model.Market{
		ID:        uuid.New().String(),
		Question:  req.Question,
		Outcomes:  req.Outcomes,
		Reserves:  s.engine.SeedReserves(len(req.Outcomes)),
		Volume:    decimal.Zero,
		Status:    model.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateMarket(r.Context(), market); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	metrics.ActiveMarkets.Inc()

	slog.Info("market created",
		"id", market.ID,
		"question", req.Question,
		"outcomes", len(req.Outcomes),
		"seed_reserve", s.engine.Floor().String(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(market)
}

// GetMarket handles GET /api/v1/markets/{marketID}
func (s *Service) GetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	market, err := s.store.GetMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(market)
}

// ListMarkets handles GET /api/v1/markets
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.ListMarkets(r.Context())
	if err != nil {
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markets)
}

// GetPrices handles GET /api/v1/markets/{marketID}/prices
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	market, err := s.store.GetMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}

	prices, err := cpmm.Prices(market.Reserves)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make(map[string]decimal.Decimal, len(prices))
	for i, p := range prices {
		resp[market.Outcomes[i]] = p
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetQuote handles GET /api/v1/markets/{marketID}/quote?outcome=0&cash=100
// Read-only: the quoted fill is only guaranteed at execution time via the
// min_shares_out floor on POST /buy.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	market, err := s.store.GetMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}

	outcome, err := parseOutcome(r.URL.Query().Get("outcome"), len(market.Outcomes))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cash, err := decimal.NewFromString(r.URL.Query().Get("cash"))
	if err != nil || cash.LessThanOrEqual(decimal.Zero) {
		writeError(w, "cash must be a positive amount", http.StatusBadRequest)
		return
	}

	price, err := cpmm.Price(market.Reserves, outcome)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	quote, err := s.engine.QuoteBuy(market.Reserves, outcome, cash)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QuoteResponse{
		MarketID:  marketID,
		Outcome:   outcome,
		Price:     price,
		SharesOut: quote.SharesOut,
		Fee:       quote.Fee,
	})
}

// GetMarketHistory handles GET /api/v1/markets/{marketID}/history
// Returns journal entries to reconstruct price history.
func (s *Service) GetMarketHistory(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	entries, err := s.store.GetJournalByMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "failed to get market history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// ExecuteBuy handles POST /api/v1/buy
func (s *Service) ExecuteBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.MarketID == "" {
		writeError(w, "user_id and market_id are required", http.StatusBadRequest)
		return
	}

	fill, err := s.Buy(r.Context(), req.UserID, req.MarketID, req.Outcome, req.CashIn, req.MinSharesOut)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info("buy executed",
		"entry_id", fill.EntryID,
		"user", req.UserID,
		"market", req.MarketID,
		"outcome", req.Outcome,
		"cash_in", req.CashIn.String(),
		"shares_out", fill.SharesOut.String(),
		"fee", fill.Fee.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fill)
}

// ExecuteSell handles POST /api/v1/sell
func (s *Service) ExecuteSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.MarketID == "" {
		writeError(w, "user_id and market_id are required", http.StatusBadRequest)
		return
	}

	fill, err := s.Sell(r.Context(), req.UserID, req.MarketID, req.Outcome, req.SharesIn, req.MinCashOut)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info("sell executed",
		"entry_id", fill.EntryID,
		"user", req.UserID,
		"market", req.MarketID,
		"outcome", req.Outcome,
		"shares_in", req.SharesIn.String(),
		"cash_out", fill.CashOut.String(),
		"fee", fill.Fee.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fill)
}

// Deposit handles POST /api/v1/deposit
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	s.handleCash(w, r, s.ledger.Deposit, "deposit")
}

// Withdraw handles POST /api/v1/withdraw
func (s *Service) Withdraw(w http.ResponseWriter, r *http.Request) {
	s.handleCash(w, r, s.ledger.Withdraw, "withdrawal")
}

func (s *Service) handleCash(w http.ResponseWriter, r *http.Request, op func(context.Context, string, decimal.Decimal) (*model.JournalEntry, error), kind string) {
	var req CashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	entry, err := op(r.Context(), req.UserID, req.Amount)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info(kind+" applied", "entry_id", entry.ID, "user", req.UserID, "amount", req.Amount.String())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// GetBalance handles GET /api/v1/balance/{userID}
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	balance, err := s.store.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"balance": balance})
}

// GetPortfolio handles GET /api/v1/portfolio/{userID}
// Marks every position to the current CPMM price.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	positions, err := s.store.GetUserPositions(ctx, userID)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	resp := PortfolioResponse{
		UserID:      userID,
		CashBalance: balance,
		Positions:   []PortfolioPosition{},
		TotalValue:  balance,
	}

	priceCache := make(map[string][]decimal.Decimal)
	for _, p := range positions {
		prices, ok := priceCache[p.MarketID]
		if !ok {
			market, err := s.store.GetMarket(ctx, p.MarketID)
			if err != nil {
				continue
			}
			if market.Status == model.StatusResolved {
				prices = market.PayoutVector
			} else {
				prices, err = cpmm.Prices(market.Reserves)
				if err != nil {
					continue
				}
			}
			priceCache[p.MarketID] = prices
		}
		if p.Outcome >= len(prices) {
			continue
		}

		current := prices[p.Outcome]
		value := p.SharesOwned.Mul(current)
		resp.Positions = append(resp.Positions, PortfolioPosition{
			MarketID:      p.MarketID,
			Outcome:       p.Outcome,
			SharesOwned:   p.SharesOwned,
			AvgPrice:      p.AvgPrice,
			CurrentPrice:  current,
			CurrentValue:  value,
			UnrealizedPnL: value.Sub(p.SharesOwned.Mul(p.AvgPrice)),
		})
		resp.TotalValue = resp.TotalValue.Add(value)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetJournal handles GET /api/v1/journal/{userID}
func (s *Service) GetJournal(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	entries, err := s.store.GetJournalByUser(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load journal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// --- Helpers ---

func parseOutcome(raw string, n int) (int, error) {
	if raw == "" {
		return 0, errors.New("outcome is required")
	}
	outcome, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("outcome must be an integer")
	}
	if outcome < 0 || outcome >= n {
		return 0, cpmm.ErrInvalidOutcome
	}
	return outcome, nil
}

// statusFor maps typed core errors onto HTTP statuses so the UI can react
// to each guard failure differently.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, cpmm.ErrInvalidAmount),
		errors.Is(err, cpmm.ErrInvalidOutcome),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlippage),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrMarketNotOpen),
		errors.Is(err, ledger.ErrAlreadyResolved),
		errors.Is(err, risk.ErrPerMarketLimitExceeded),
		errors.Is(err, risk.ErrTotalExposureExceeded):
		return http.StatusConflict
	case errors.Is(err, cpmm.ErrReserveDrained):
		slog.Error("reserve positivity violated by quote", "err", err)
		return http.StatusConflict
	case errors.Is(err, ledger.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
