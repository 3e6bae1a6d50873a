package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"StockAdviser/internal/advisor"
	"StockAdviser/internal/cache"
	"StockAdviser/internal/calculator"
	"StockAdviser/internal/collector"
	"StockAdviser/internal/config"
	"StockAdviser/internal/logger"
	"StockAdviser/internal/portfolio"
	"StockAdviser/internal/profile"
	"StockAdviser/internal/store"
	"StockAdviser/internal/strategy"
	"StockAdviser/internal/tracker"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	store      *store.SQLite
	rdb        *redis.Client
	snapshots  *cache.CachingSnapshotSource
	advisor    *advisor.Advisor
	tracker    *tracker.Tracker
	portfolios *portfolio.Manager
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			cfgPath = v
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.FromEnv()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.NewSQLite(cfg.Database.SQLitePath, log)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	a := &app{cfg: cfg, log: log, store: st}

	if _, err := profile.Seed(ctx, st, cfg.Profiles.UsersFile, time.Now().UTC(), log); err != nil {
		a.close()
		return nil, fmt.Errorf("seed profiles: %w", err)
	}

	var fetcher collector.Fetcher
	switch cfg.MarketData.Provider {
	case "mock":
		fetcher = collector.NewMockFetcher()
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Infow("market data source", "provider", fetcher.Name())

	col := collector.NewCollector(fetcher, st, collector.Config{
		HistoryDays: cfg.MarketData.HistoryDays,
		Indicators:  calculator.Options{LegacyMACDSignal: cfg.Advisor.LegacyMACDSignal},
	}, log)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warnw("redis unavailable, snapshot cache disabled", "addr", cfg.Redis.Addr, "error", err)
			rdb.Close()
		} else {
			a.rdb = rdb
		}
	}
	// A nil client makes the cache a pass-through.
	a.snapshots = cache.NewCachingSnapshotSource(a.rdb, cfg.Redis.SnapshotTTL, col, "", log)

	a.advisor = advisor.New(st, a.snapshots, strategy.NewConstantSentiment(), advisor.Config{
		BatchSize:     cfg.Advisor.BatchSize,
		BatchPause:    cfg.Advisor.BatchPause,
		MinConfidence: cfg.MinConfidence(),
	}, log)
	a.tracker = tracker.New(st, log)
	a.portfolios = portfolio.NewManager(st, a.snapshots, log)
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if err := a.store.Close(); err != nil {
		a.log.Warnw("close store", "error", err)
	}
	_ = a.log.Sync()
}
