package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

// YahooFetcher implements Fetcher using Yahoo Finance through finance-go.
// Yahoo does not expose beta or statement fundamentals here; those stay zero.
type YahooFetcher struct {
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. finance-go uses a
// process-wide HTTP client, so the proxy applies to every caller.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	finance.SetHTTPClient(&http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	})
	return &YahooFetcher{
		SymbolMap: map[string]string{
			"BRK.B": "BRK-B",
			"BF.B":  "BF-B",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// FetchDailyBars returns up to days daily bars, oldest first.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	// Calendar days cover weekends and holidays.
	start := end.AddDate(0, 0, -(days*7/5 + 10))
	iter := chart.Get(&chart.Params{
		Symbol:   f.yahooSymbol(symbol),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []model.OHLCV
	for iter.Next() {
		b := iter.Bar()
		if b.Close.IsZero() {
			continue // null bars (halts, holidays)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrNoData)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := equity.Get(f.yahooSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("yahoo equity %s: %w", symbol, err)
	}
	if e == nil || e.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("yahoo equity %s: %w", symbol, ErrNoData)
	}

	name := e.LongName
	if name == "" {
		name = e.ShortName
	}
	q := &Quote{
		Symbol:             symbol,
		CompanyName:        name,
		Price:              price(e.RegularMarketPrice),
		PriceChange:        price(e.RegularMarketChange),
		PriceChangePercent: price(e.RegularMarketChangePercent),
		Open:               price(e.RegularMarketOpen),
		DayHigh:            price(e.RegularMarketDayHigh),
		DayLow:             price(e.RegularMarketDayLow),
		Week52High:         price(e.FiftyTwoWeekHigh),
		Week52Low:          price(e.FiftyTwoWeekLow),
		Volume:             int64(e.RegularMarketVolume),
		AverageVolume:      int64(e.AverageDailyVolume3Month),
		PERatio:            price(e.TrailingPE),
		DividendYield:      decimal.NewFromFloat(e.TrailingAnnualDividendYield).Round(4),
		EPS:                price(e.EpsTrailingTwelveMonths),
		MarketCap:          decimal.NewFromInt(e.MarketCap),
		Time:               time.Now().UTC(),
	}
	q.Fundamentals.BookValuePerShare = price(e.BookValue)
	q.Fundamentals.PriceToBook = price(e.PriceToBook)
	return q, nil
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
