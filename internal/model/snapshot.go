package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TechnicalIndicators holds the indicators derived from a daily price history.
// A zero value means "unavailable".
type TechnicalIndicators struct {
	RSI             decimal.Decimal `json:"rsi"`
	SMA20           decimal.Decimal `json:"sma20"`
	SMA50           decimal.Decimal `json:"sma50"`
	SMA200          decimal.Decimal `json:"sma200"`
	EMA12           decimal.Decimal `json:"ema12"`
	EMA26           decimal.Decimal `json:"ema26"`
	MACD            decimal.Decimal `json:"macd"`
	MACDSignal      decimal.Decimal `json:"macdSignal"`
	MACDHistogram   decimal.Decimal `json:"macdHistogram"`
	BollingerUpper  decimal.Decimal `json:"bollingerUpper"`
	BollingerMiddle decimal.Decimal `json:"bollingerMiddle"`
	BollingerLower  decimal.Decimal `json:"bollingerLower"`
	VolumeSMA       decimal.Decimal `json:"volumeSma"`
}

// Fundamentals holds company financials as reported by the market-data source.
type Fundamentals struct {
	Revenue           decimal.Decimal `json:"revenue"`
	RevenueGrowth     decimal.Decimal `json:"revenueGrowth"`
	NetIncome         decimal.Decimal `json:"netIncome"`
	GrossMargin       decimal.Decimal `json:"grossMargin"`
	OperatingMargin   decimal.Decimal `json:"operatingMargin"`
	NetMargin         decimal.Decimal `json:"netMargin"`
	DebtToEquity      decimal.Decimal `json:"debtToEquity"`
	ReturnOnEquity    decimal.Decimal `json:"returnOnEquity"`
	ReturnOnAssets    decimal.Decimal `json:"returnOnAssets"`
	CurrentRatio      decimal.Decimal `json:"currentRatio"`
	QuickRatio        decimal.Decimal `json:"quickRatio"`
	BookValuePerShare decimal.Decimal `json:"bookValuePerShare"`
	PriceToBook       decimal.Decimal `json:"priceToBook"`
	PriceToSales      decimal.Decimal `json:"priceToSales"`
}

// StockSnapshot is an immutable view of one symbol at a point in time.
// A newer snapshot supersedes an older one; snapshots are never mutated.
type StockSnapshot struct {
	Symbol             string              `json:"symbol"`
	CompanyName        string              `json:"companyName"`
	Sector             string              `json:"sector"`
	Industry           string              `json:"industry"`
	Price              decimal.Decimal     `json:"price"`
	PriceChange        decimal.Decimal     `json:"priceChange"`
	PriceChangePercent decimal.Decimal     `json:"priceChangePercent"`
	Open               decimal.Decimal     `json:"open"`
	DayHigh            decimal.Decimal     `json:"dayHigh"`
	DayLow             decimal.Decimal     `json:"dayLow"`
	Week52High         decimal.Decimal     `json:"week52High"`
	Week52Low          decimal.Decimal     `json:"week52Low"`
	Volume             int64               `json:"volume"`
	AverageVolume      int64               `json:"averageVolume"`
	PERatio            decimal.Decimal     `json:"peRatio"`
	DividendYield      decimal.Decimal     `json:"dividendYield"`
	Beta               decimal.Decimal     `json:"beta"`
	EPS                decimal.Decimal     `json:"eps"`
	MarketCap          decimal.Decimal     `json:"marketCap"`
	Timestamp          time.Time           `json:"timestamp"`
	Indicators         TechnicalIndicators `json:"technicalIndicators"`
	Fundamentals       Fundamentals        `json:"fundamentals"`
}
