package calculator

import "github.com/shopspring/decimal"

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACDResult holds the MACD line, its signal line and their difference,
// each rounded to 4 places.
type MACDResult struct {
	MACD      decimal.Decimal
	Signal    decimal.Decimal
	Histogram decimal.Decimal
}

// MACD computes EMA(12) - EMA(26) of the latest prices and a signal line that
// is the EMA(9) of the MACD values at the last nine closing positions. When
// fewer positions are available the signal uses as many as exist.
func MACD(prices []decimal.Decimal) MACDResult {
	if len(prices) < macdSlow {
		return MACDResult{}
	}

	points := len(prices) - macdSlow + 1
	if points > macdSignal {
		points = macdSignal
	}
	history := make([]decimal.Decimal, 0, points)
	for end := len(prices) - points + 1; end <= len(prices); end++ {
		history = append(history, macdLine(prices[:end]))
	}

	line := history[len(history)-1]
	signal := ema(history, macdSignal).RoundBank(4)
	return MACDResult{
		MACD:      line.RoundBank(4),
		Signal:    signal,
		Histogram: line.Sub(signal).RoundBank(4),
	}
}

// MACDSingleValueSignal reproduces the legacy computation where the signal
// line is the EMA(9) of a one-element series holding only the latest MACD
// value, so the signal equals the MACD and the histogram is zero.
func MACDSingleValueSignal(prices []decimal.Decimal) MACDResult {
	if len(prices) < macdSlow {
		return MACDResult{}
	}
	line := macdLine(prices)
	signal := EMA([]decimal.Decimal{line}, macdSignal)
	return MACDResult{
		MACD:      line.RoundBank(4),
		Signal:    signal.RoundBank(4),
		Histogram: line.Sub(signal).RoundBank(4),
	}
}

// macdLine is EMA(12) of the last 12 prices minus EMA(26) of the last 26.
func macdLine(prices []decimal.Decimal) decimal.Decimal {
	return EMA(tail(prices, macdFast), macdFast).Sub(EMA(tail(prices, macdSlow), macdSlow))
}
