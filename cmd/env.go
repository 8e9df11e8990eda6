package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sells-group/funscreener/internal/db"
	"github.com/sells-group/funscreener/internal/marketcap"
)

// screenerEnv holds the pool and the service shared by serve and query.
type screenerEnv struct {
	Pool    *pgxpool.Pool
	Engine  *marketcap.Engine
	Service *marketcap.Service
}

// Close releases the connection pool.
func (se *screenerEnv) Close() {
	if se.Pool != nil {
		se.Pool.Close()
	}
}

// initScreener validates config for mode, connects the pool, and builds the
// engine and service. Callers should defer env.Close().
func initScreener(ctx context.Context, mode string) (*screenerEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	pool, err := initPool(ctx)
	if err != nil {
		return nil, err
	}

	engine := marketcap.NewEngine(pool, marketcap.WithFuzzyWindowDays(cfg.Screener.FuzzyWindowDays))
	zap.L().Debug("screener ready",
		zap.Int("fuzzy_window_days", engine.WindowDays()),
		zap.Int32("max_conns", cfg.Store.MaxConns),
	)

	return &screenerEnv{
		Pool:    pool,
		Engine:  engine,
		Service: marketcap.NewService(engine),
	}, nil
}

func initPool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
