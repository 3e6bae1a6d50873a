package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
	"StockAdviser/internal/store"
)

var now = time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)

func risingBars(n int, start int64) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := decimal.NewFromInt(start + int64(i))
		bars[i] = model.OHLCV{
			Time:   now.AddDate(0, 0, i-n),
			Open:   c,
			High:   c.Add(decimal.NewFromInt(1)),
			Low:    c.Sub(decimal.NewFromInt(1)),
			Close:  c,
			Volume: 1000 + int64(i),
		}
	}
	return bars
}

// brokenFetcher fails every call.
type brokenFetcher struct{ err error }

func (b brokenFetcher) Name() string { return "broken" }
func (b brokenFetcher) FetchDailyBars(context.Context, string, int) ([]model.OHLCV, error) {
	return nil, b.err
}
func (b brokenFetcher) FetchQuote(context.Context, string) (*Quote, error) { return nil, b.err }

func strictMock() *MockFetcher {
	m := NewMockFetcher()
	m.Strict = true
	m.Now = func() time.Time { return now }
	return m
}

func TestSnapshot_BuildsIndicatorsAndRecords(t *testing.T) {
	m := strictMock()
	m.Quotes["AAPL"] = &Quote{
		Symbol:        "AAPL",
		CompanyName:   "Apple Inc.",
		Price:         decimal.NewFromInt(350),
		PERatio:       decimal.RequireFromString("28.5"),
		DividendYield: decimal.RequireFromString("0.005"),
		Time:          now,
	}
	m.Bars["AAPL"] = risingBars(250, 100)
	mem := store.NewMemory()
	c := NewCollector(m, mem, Config{}, zap.NewNop().Sugar())

	ctx := context.Background()
	snap, ok, err := c.Snapshot(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Apple Inc.", snap.CompanyName)
	assert.True(t, snap.Price.Equal(decimal.NewFromInt(350)))
	assert.True(t, snap.Indicators.SMA20.Equal(decimal.RequireFromString("339.5")))
	assert.True(t, snap.Indicators.RSI.Equal(decimal.NewFromInt(100)))
	// 52-week range falls back to the bars when the quote has none.
	assert.True(t, snap.Week52High.Equal(decimal.NewFromInt(350)))
	assert.True(t, snap.Week52Low.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, int64(1239), snap.AverageVolume)
	assert.True(t, snap.Timestamp.Equal(now))

	stored, ok, err := mem.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Indicators.SMA20.Equal(snap.Indicators.SMA20))
}

func TestSnapshot_ShortHistoryLeavesIndicatorsEmpty(t *testing.T) {
	m := strictMock()
	m.Quotes["IPO"] = &Quote{Symbol: "IPO", Price: decimal.NewFromInt(20), Week52High: decimal.NewFromInt(25), Week52Low: decimal.NewFromInt(15)}
	m.Bars["IPO"] = risingBars(40, 10)
	c := NewCollector(m, nil, Config{}, zap.NewNop().Sugar())

	snap, ok, err := c.Snapshot(context.Background(), "IPO")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.TechnicalIndicators{}, snap.Indicators)
	assert.True(t, snap.Week52High.Equal(decimal.NewFromInt(25)))
}

func TestSnapshot_MissingBarsStillYieldSnapshot(t *testing.T) {
	m := strictMock()
	m.Quotes["XYZ"] = &Quote{Symbol: "XYZ", Price: decimal.NewFromInt(12)}
	c := NewCollector(m, nil, Config{}, zap.NewNop().Sugar())

	snap, ok, err := c.Snapshot(context.Background(), "XYZ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.TechnicalIndicators{}, snap.Indicators)
}

func TestSnapshot_UnknownSymbolIsAbsent(t *testing.T) {
	c := NewCollector(strictMock(), store.NewMemory(), Config{}, zap.NewNop().Sugar())

	snap, ok, err := c.Snapshot(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestSnapshot_FallsBackToStoredSnapshot(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.SaveSnapshot(ctx, &model.StockSnapshot{Symbol: "MSFT", Price: decimal.NewFromInt(410), Timestamp: now}))

	c := NewCollector(brokenFetcher{err: errors.New("rate limited")}, mem, Config{}, zap.NewNop().Sugar())

	snap, ok, err := c.Snapshot(ctx, "MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.Price.Equal(decimal.NewFromInt(410)))

	_, ok, err = c.Snapshot(ctx, "NVDA")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMockFetcher_SyntheticData(t *testing.T) {
	t.Parallel()

	m := NewMockFetcher()
	m.Now = func() time.Time { return now }
	ctx := context.Background()

	q, err := m.FetchQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.IsPositive())

	again, err := m.FetchQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(again.Price))

	bars, err := m.FetchDailyBars(ctx, "AAPL", DefaultHistoryDays)
	require.NoError(t, err)
	require.Len(t, bars, DefaultHistoryDays)
	assert.True(t, bars[0].Time.Before(bars[len(bars)-1].Time))

	c := NewCollector(m, nil, Config{}, zap.NewNop().Sugar())
	snap, ok, err := c.Snapshot(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.Indicators.SMA200.IsPositive())
}
