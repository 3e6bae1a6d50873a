package collector

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

// ErrNoData is returned when the provider knows nothing about a symbol.
var ErrNoData = errors.New("no market data")

// Quote is the current trading state and valuation of a symbol.
type Quote struct {
	Symbol             string
	CompanyName        string
	Sector             string
	Industry           string
	Price              decimal.Decimal
	PriceChange        decimal.Decimal
	PriceChangePercent decimal.Decimal
	Open               decimal.Decimal
	DayHigh            decimal.Decimal
	DayLow             decimal.Decimal
	Week52High         decimal.Decimal
	Week52Low          decimal.Decimal
	Volume             int64
	AverageVolume      int64
	PERatio            decimal.Decimal
	DividendYield      decimal.Decimal
	Beta               decimal.Decimal
	EPS                decimal.Decimal
	MarketCap          decimal.Decimal
	Fundamentals       model.Fundamentals
	Time               time.Time
}

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	Name() string
}
