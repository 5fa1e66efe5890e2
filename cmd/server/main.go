package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/openodds/market-core/internal/audit"
	"github.com/openodds/market-core/internal/config"
	"github.com/openodds/market-core/internal/cpmm"
	"github.com/openodds/market-core/internal/ledger"
	"github.com/openodds/market-core/internal/metrics"
	"github.com/openodds/market-core/internal/risk"
	"github.com/openodds/market-core/internal/settle"
	"github.com/openodds/market-core/internal/store"
	"github.com/openodds/market-core/internal/trade"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := cfg.Storage.DatabaseURL; dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := cfg.Storage.RedisURL; redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid redis_url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, time.Duration(cfg.Storage.CacheTTLSeconds)*time.Second)
			slog.Info("Redis cache enabled", "ttl_seconds", cfg.Storage.CacheTTLSeconds)
		}
	} else {
		slog.Warn("database_url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Pricing engine ---
	engine, err := cpmm.NewEngine(cfg.FeeRate(), cfg.LiquidityFloor())
	if err != nil {
		slog.Error("invalid market config", "err", err)
		os.Exit(1)
	}

	// --- Position limits ---
	limiter := risk.NewPositionLimiter(cfg.MaxPerMarket(), cfg.MaxTotal())

	// --- Ledger ---
	led := ledger.New(st)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run()

	// --- Services ---
	tradeSvc := trade.NewService(st, led, engine, limiter, wsHub)
	settleSvc := settle.NewService(st, led, wsHub)
	auditor := audit.New(st)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"market-core"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time price updates.
		r.Get("/ws", wsHub.HandleWS)

		// Market management.
		r.Get("/markets", tradeSvc.ListMarkets)
		r.Post("/markets", tradeSvc.CreateMarket)
		r.Get("/markets/{marketID}", tradeSvc.GetMarket)
		r.Get("/markets/{marketID}/prices", tradeSvc.GetPrices)
		r.Get("/markets/{marketID}/quote", tradeSvc.GetQuote)
		r.Get("/markets/{marketID}/history", tradeSvc.GetMarketHistory)

		// Trade execution.
		r.Post("/buy", tradeSvc.ExecuteBuy)
		r.Post("/sell", tradeSvc.ExecuteSell)

		// Cash movement.
		r.Post("/deposit", tradeSvc.Deposit)
		r.Post("/withdraw", tradeSvc.Withdraw)
		r.Get("/balance/{userID}", tradeSvc.GetBalance)

		// Settlement.
		r.Post("/markets/{marketID}/resolve", settleSvc.HandleResolve)
		r.Post("/redeem", settleSvc.HandleRedeem)

		// Portfolio and journal queries.
		r.Get("/portfolio/{userID}", tradeSvc.GetPortfolio)
		r.Get("/journal/{userID}", tradeSvc.GetJournal)

		// Reconciliation.
		r.Get("/audit", auditor.HandleAudit)
	})

	// Periodic reconciliation keeps the solvency gauge fresh between
	// on-demand audit calls.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := auditor.Run(auditCtx); err != nil {
					slog.Error("periodic audit failed", "err", err)
				}
			case <-auditCtx.Done():
				return
			}
		}
	}()

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("market-core listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down market-core...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("market-core stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
