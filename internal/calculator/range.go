package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

// Calculate52WeekRange scans the most recent 252 trading days and returns the high and low.
func Calculate52WeekRange(dailyBars []model.OHLCV) (high, low decimal.Decimal, err error) {
	return highLow(dailyBars, 252)
}

func highLow(bars []model.OHLCV, lookback int) (high, low decimal.Decimal, err error) {
	if len(bars) == 0 {
		return decimal.Zero, decimal.Zero, errors.New("no daily bars provided")
	}
	start := len(bars) - lookback
	if start < 0 {
		start = 0
	}
	high, low = bars[start].High, bars[start].Low
	for _, b := range bars[start+1:] {
		if b.High.GreaterThan(high) {
			high = b.High
		}
		if b.Low.LessThan(low) {
			low = b.Low
		}
	}
	return high, low, nil
}
