package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Closes extracts the closing prices of bars, preserving order.
func Closes(bars []OHLCV) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts the traded volumes of bars as decimals.
func Volumes(bars []OHLCV) []decimal.Decimal {
	vols := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		vols[i] = decimal.NewFromInt(b.Volume)
	}
	return vols
}
