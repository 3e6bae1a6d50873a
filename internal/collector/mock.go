package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without explicit data get a deterministic synthetic series unless
// Strict is set.
type MockFetcher struct {
	Quotes map[string]*Quote
	Bars   map[string][]model.OHLCV
	Strict bool
	Now    func() time.Time
}

// NewMockFetcher returns a fetcher that synthesizes data for unknown symbols.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Quotes: make(map[string]*Quote),
		Bars:   make(map[string][]model.OHLCV),
		Now:    time.Now,
	}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	if m.Strict {
		return nil, fmt.Errorf("mock bars %s: %w", symbol, ErrNoData)
	}
	return generateMockBars(basePrice(symbol), days, m.now()), nil
}

func (m *MockFetcher) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	if q, ok := m.Quotes[symbol]; ok {
		c := *q
		return &c, nil
	}
	if m.Strict {
		return nil, fmt.Errorf("mock quote %s: %w", symbol, ErrNoData)
	}

	bars, err := m.FetchDailyBars(ctx, symbol, 2)
	if err != nil {
		return nil, err
	}
	last := bars[len(bars)-1]
	prev := bars[0].Close
	change := last.Close.Sub(prev)
	return &Quote{
		Symbol:             symbol,
		CompanyName:        symbol + " Corp",
		Price:              last.Close,
		PriceChange:        change,
		PriceChangePercent: change.Div(prev).Mul(decimal.NewFromInt(100)).RoundBank(2),
		Open:               last.Open,
		DayHigh:            last.High,
		DayLow:             last.Low,
		Volume:             last.Volume,
		AverageVolume:      last.Volume,
		PERatio:            decimal.NewFromInt(18),
		DividendYield:      decimal.RequireFromString("0.015"),
		EPS:                last.Close.Div(decimal.NewFromInt(18)).RoundBank(2),
		Fundamentals: model.Fundamentals{
			RevenueGrowth:  decimal.RequireFromString("0.08"),
			ReturnOnEquity: decimal.RequireFromString("0.16"),
			NetMargin:      decimal.RequireFromString("0.12"),
			DebtToEquity:   decimal.RequireFromString("0.6"),
		},
		Time: m.now(),
	}, nil
}

func (m *MockFetcher) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// basePrice spreads symbols across 20..520 so mock output differs per symbol.
func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 20 + float64(h.Sum32()%500)
}

func generateMockBars(base float64, count int, now time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := decimal.NewFromFloat(base * (1 + float64(i-count/2)*0.001)).Round(2)
		bars[i] = model.OHLCV{
			Time:   now.AddDate(0, 0, -(count - i)),
			Open:   p.Mul(decimal.RequireFromString("0.999")).Round(2),
			High:   p.Mul(decimal.RequireFromString("1.005")).Round(2),
			Low:    p.Mul(decimal.RequireFromString("0.995")).Round(2),
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
