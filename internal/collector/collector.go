package collector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"StockAdviser/internal/calculator"
	"StockAdviser/internal/model"
)

// DefaultHistoryDays covers the 200-day average plus the 52-week range.
const DefaultHistoryDays = 300

// SnapshotStore keeps the latest snapshot per symbol.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *model.StockSnapshot) error
	GetSnapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool, error)
}

// Config sets how many daily bars are fetched per snapshot and how the
// indicators over them are computed.
type Config struct {
	HistoryDays int
	Indicators  calculator.Options
}

// Collector builds snapshots from fetched bars and quotes. With a store it
// records every snapshot and serves the stored one when the provider fails.
type Collector struct {
	fetcher Fetcher
	store   SnapshotStore
	cfg     Config
	log     *zap.SugaredLogger
}

// NewCollector creates a new Collector. store may be nil.
func NewCollector(fetcher Fetcher, store SnapshotStore, cfg Config, log *zap.SugaredLogger) *Collector {
	if cfg.HistoryDays < calculator.MinHistory {
		cfg.HistoryDays = DefaultHistoryDays
	}
	return &Collector{fetcher: fetcher, store: store, cfg: cfg, log: log}
}

// Snapshot fetches market data for symbol and computes its indicators.
// An unknown symbol yields ok == false.
func (c *Collector) Snapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool, error) {
	snap, err := c.collect(ctx, symbol)
	if err == nil {
		if c.store != nil {
			if err := c.store.SaveSnapshot(ctx, snap); err != nil {
				c.log.Warnw("save snapshot failed", "symbol", symbol, "error", err)
			}
		}
		return snap, true, nil
	}

	if c.store != nil {
		if stored, ok, serr := c.store.GetSnapshot(ctx, symbol); serr == nil && ok {
			c.log.Warnw("provider failed, using stored snapshot",
				"symbol", symbol, "provider", c.fetcher.Name(), "error", err, "as_of", stored.Timestamp)
			return stored, true, nil
		}
	}
	if errors.Is(err, ErrNoData) {
		return nil, false, nil
	}
	return nil, false, err
}

func (c *Collector) collect(ctx context.Context, symbol string) (*model.StockSnapshot, error) {
	q, err := c.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}

	bars, err := c.fetcher.FetchDailyBars(ctx, symbol, c.cfg.HistoryDays)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warnw("daily bars unavailable, indicators left empty", "symbol", symbol, "error", err)
		bars = nil
	}

	snap := &model.StockSnapshot{
		Symbol:             symbol,
		CompanyName:        q.CompanyName,
		Sector:             q.Sector,
		Industry:           q.Industry,
		Price:              q.Price,
		PriceChange:        q.PriceChange,
		PriceChangePercent: q.PriceChangePercent,
		Open:               q.Open,
		DayHigh:            q.DayHigh,
		DayLow:             q.DayLow,
		Week52High:         q.Week52High,
		Week52Low:          q.Week52Low,
		Volume:             q.Volume,
		AverageVolume:      q.AverageVolume,
		PERatio:            q.PERatio,
		DividendYield:      q.DividendYield,
		Beta:               q.Beta,
		EPS:                q.EPS,
		MarketCap:          q.MarketCap,
		Timestamp:          q.Time,
		Indicators:         calculator.Compute(bars, c.cfg.Indicators),
		Fundamentals:       q.Fundamentals,
	}

	if snap.Week52High.IsZero() || snap.Week52Low.IsZero() {
		if h, l, err := calculator.Calculate52WeekRange(bars); err == nil {
			snap.Week52High, snap.Week52Low = h, l
		}
	}
	if snap.AverageVolume == 0 && len(bars) > 0 {
		snap.AverageVolume = snap.Indicators.VolumeSMA.IntPart()
	}
	return snap, nil
}
