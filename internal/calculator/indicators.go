package calculator

import (
	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

// MinHistory is the number of daily bars required before any indicator is computed.
const MinHistory = 200

const (
	rsiPeriod       = 14
	bollingerPeriod = 20
)

var bollingerWidth = decimal.NewFromInt(2)

// Options tunes indicator computation.
type Options struct {
	// LegacyMACDSignal selects MACDSingleValueSignal instead of MACD.
	LegacyMACDSignal bool
}

// Compute derives all technical indicators from ascending daily bars.
// With fewer than MinHistory bars every field is left at zero.
func Compute(bars []model.OHLCV, opts Options) model.TechnicalIndicators {
	if len(bars) < MinHistory {
		return model.TechnicalIndicators{}
	}
	closes := model.Closes(bars)

	macd := MACD(closes)
	if opts.LegacyMACDSignal {
		macd = MACDSingleValueSignal(closes)
	}
	bands := BollingerBands(closes, bollingerPeriod, bollingerWidth)

	return model.TechnicalIndicators{
		RSI:             RSI(tail(closes, rsiPeriod+1), rsiPeriod),
		SMA20:           SMA(closes, 20),
		SMA50:           SMA(closes, 50),
		SMA200:          SMA(closes, 200),
		EMA12:           EMA(tail(closes, macdFast), macdFast),
		EMA26:           EMA(tail(closes, macdSlow), macdSlow),
		MACD:            macd.MACD,
		MACDSignal:      macd.Signal,
		MACDHistogram:   macd.Histogram,
		BollingerUpper:  bands.Upper,
		BollingerMiddle: bands.Middle,
		BollingerLower:  bands.Lower,
		VolumeSMA:       SMA(model.Volumes(bars), bollingerPeriod),
	}
}
