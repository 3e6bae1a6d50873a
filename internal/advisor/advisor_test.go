package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
	"StockAdviser/internal/store"
	"StockAdviser/internal/strategy"
)

var clock = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	snapshots map[string]*model.StockSnapshot
	failures  map[string]error
	panics    map[string]bool
	calls     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snapshots: make(map[string]*model.StockSnapshot),
		failures:  make(map[string]error),
		panics:    make(map[string]bool),
		calls:     make(map[string]int),
	}
}

func (f *fakeSource) Snapshot(_ context.Context, symbol string) (*model.StockSnapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.panics[symbol] {
		panic("quote decoder: index out of range")
	}
	if err, ok := f.failures[symbol]; ok {
		return nil, false, err
	}
	s, ok := f.snapshots[symbol]
	return s, ok, nil
}

func (f *fakeSource) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// strongSnapshot scores 85 technical and 85 fundamental: composite 78, Buy.
func strongSnapshot(symbol string) *model.StockSnapshot {
	return &model.StockSnapshot{
		Symbol:             symbol,
		Price:              d("100"),
		PriceChangePercent: d("3"),
		PERatio:            d("12"),
		DividendYield:      d("0.035"),
		Beta:               d("0.7"),
		Indicators: model.TechnicalIndicators{
			RSI:            d("25"),
			SMA20:          d("90"),
			SMA50:          d("85"),
			SMA200:         d("80"),
			MACD:           d("1.5"),
			MACDSignal:     d("1.0"),
			MACDHistogram:  d("0.5"),
			BollingerUpper: d("110"),
			BollingerLower: d("90"),
		},
		Fundamentals: model.Fundamentals{
			RevenueGrowth:  d("0.18"),
			ReturnOnEquity: d("0.22"),
			NetMargin:      d("0.25"),
			DebtToEquity:   d("0.3"),
		},
	}
}

// weakSnapshot has no indicator history: composite 34, Sell.
func weakSnapshot(symbol string) *model.StockSnapshot {
	return &model.StockSnapshot{Symbol: symbol, Price: d("50")}
}

func setup(t *testing.T, users ...*model.User) (*Advisor, *store.Memory, *fakeSource) {
	t.Helper()
	mem := store.NewMemory()
	for _, u := range users {
		require.NoError(t, mem.PutUser(context.Background(), u))
	}
	src := newFakeSource()
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.BatchPause = 0
	a := New(mem, src, strategy.NewConstantSentiment(), cfg, zap.NewNop().Sugar())
	a.now = func() time.Time { return clock }
	var n atomic.Int64
	a.newID = func() string { return fmt.Sprintf("rec-%d", n.Add(1)) }
	return a, mem, src
}

func user(id string, sectors ...string) *model.User {
	u := &model.User{ID: id, CreatedAt: clock, UpdatedAt: clock, Strategy: model.DefaultTradingStrategy()}
	u.Strategy.PreferredSectors = sectors
	return u
}

func symbolsOf(recs []*model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Symbol
	}
	return out
}

func TestWatchlist(t *testing.T) {
	t.Parallel()

	core := Watchlist(nil)
	assert.Equal(t, CoreSymbols, core)

	tech := Watchlist([]string{"Technology", "Unknown"})
	assert.Len(t, tech, 21)
	assert.Equal(t, []string{"ADBE", "CRM", "NFLX"}, tech[18:])

	all := Watchlist([]string{"Technology", "Healthcare", "Finance", "Consumer", "Energy", "Technology"})
	assert.Len(t, all, 38)
	seen := map[string]bool{}
	for _, s := range all {
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}
}

func TestWatchlist_Capped(t *testing.T) {
	extra := make([]string, 60)
	for i := range extra {
		extra[i] = fmt.Sprintf("X%02d", i)
	}
	SectorSymbols["Synthetic"] = extra
	t.Cleanup(func() { delete(SectorSymbols, "Synthetic") })

	got := Watchlist([]string{"Synthetic"})
	require.Len(t, got, MaxWatchlist)
	assert.Equal(t, "X31", got[MaxWatchlist-1])
}

func TestGenerateForUser_PersistsConfidentRecommendations(t *testing.T) {
	a, mem, src := setup(t, user("u1"))
	src.snapshots["MSFT"] = strongSnapshot("MSFT")
	src.snapshots["AAPL"] = strongSnapshot("AAPL")
	src.snapshots["TSLA"] = weakSnapshot("TSLA")
	src.failures["GOOGL"] = errors.New("upstream timeout")

	ctx := context.Background()
	recs, err := a.GenerateForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbolsOf(recs))

	r := recs[0]
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, model.ActionBuy, r.Action)
	assert.True(t, r.Confidence.Equal(d("78")))
	assert.True(t, r.Confidence.Equal(r.OverallScore))
	assert.True(t, r.TargetPrice.Equal(d("115")))
	assert.True(t, r.StopLoss.Equal(d("90")))
	assert.Equal(t, model.StatusActive, r.Status)
	assert.True(t, r.ValidUntil.Equal(clock.Add(model.ValidityPeriod)))

	// Every watchlist symbol was attempted despite the failure.
	for _, s := range CoreSymbols {
		assert.Equal(t, 1, src.callCount(s), s)
	}

	stored, err := mem.ListRecommendations(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestGenerateForUser_SecondRunCreatesNothing(t *testing.T) {
	a, _, src := setup(t, user("u1"))
	src.snapshots["AAPL"] = strongSnapshot("AAPL")
	ctx := context.Background()

	first, err := a.GenerateForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := a.GenerateForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, second)
	// Covered symbols are not even fetched again.
	assert.Equal(t, 1, src.callCount("AAPL"))
}

func TestGenerateForUser_ExpiredRecommendationIsReplaced(t *testing.T) {
	a, mem, src := setup(t, user("u1"))
	src.snapshots["AAPL"] = strongSnapshot("AAPL")
	ctx := context.Background()

	_, err := a.GenerateForUser(ctx, "u1")
	require.NoError(t, err)

	a.now = func() time.Time { return clock.Add(model.ValidityPeriod + time.Hour) }
	recs, err := a.GenerateForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	all, err := mem.ListRecommendations(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.StatusActive, all[0].Status)
	assert.Equal(t, model.StatusExpired, all[1].Status)
}

func TestGenerateForUser_NoSnapshotsCreatesNothing(t *testing.T) {
	a, _, _ := setup(t, user("u1", "Energy"))

	recs, err := a.GenerateForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateForUser_SurvivesPanicsAndNilSnapshots(t *testing.T) {
	a, _, src := setup(t, user("u1"))
	src.snapshots["AAPL"] = strongSnapshot("AAPL")
	src.snapshots["MSFT"] = nil
	src.panics["GOOGL"] = true

	recs, err := a.GenerateForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, symbolsOf(recs))
	for _, s := range CoreSymbols {
		assert.Equal(t, 1, src.callCount(s), s)
	}

	_, err = a.GenerateForSymbol(context.Background(), "u1", "MSFT")
	assert.ErrorIs(t, err, ErrSnapshotUnavailable)
}

func TestGenerateForUser_UnknownUser(t *testing.T) {
	a, _, _ := setup(t)

	_, err := a.GenerateForUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGenerateForUser_CancelledContext(t *testing.T) {
	a, _, src := setup(t, user("u1"))
	src.snapshots["AAPL"] = strongSnapshot("AAPL")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs, err := a.GenerateForUser(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recs)
	assert.Zero(t, src.callCount("AAPL"))
}

func TestGenerateForSymbol(t *testing.T) {
	a, _, src := setup(t, user("u1"))
	src.snapshots["TSLA"] = weakSnapshot("TSLA")
	ctx := context.Background()

	rec, err := a.GenerateForSymbol(ctx, "u1", " tsla ")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", rec.Symbol)
	// No confidence gate on the single-symbol path.
	assert.True(t, rec.Confidence.Equal(d("34")))
	assert.Equal(t, model.ActionSell, rec.Action)

	again, err := a.GenerateForSymbol(ctx, "u1", "TSLA")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, 1, src.callCount("TSLA"))
}

func TestGenerateForSymbol_Errors(t *testing.T) {
	a, _, src := setup(t, user("u1"))
	src.failures["NVDA"] = errors.New("boom")
	ctx := context.Background()

	_, err := a.GenerateForSymbol(ctx, "u1", "IBM")
	assert.ErrorIs(t, err, ErrSnapshotUnavailable)

	_, err = a.GenerateForSymbol(ctx, "u1", "NVDA")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotUnavailable)

	_, err = a.GenerateForSymbol(ctx, "ghost", "AAPL")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGenerateForAllUsers(t *testing.T) {
	a, _, src := setup(t, user("u1"), user("u2", "Technology"))
	src.snapshots["AAPL"] = strongSnapshot("AAPL")
	src.snapshots["CRM"] = strongSnapshot("CRM")

	sum, err := a.GenerateForAllUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Users)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, []string{"AAPL", "AAPL", "CRM"}, symbolsOf(sum.Recommendations))
}
