package calculator

import (
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// Bands holds Bollinger band levels rounded to 2 places.
type Bands struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// BollingerBands returns the SMA(period) of the last period prices plus and
// minus k population standard deviations of the same window.
func BollingerBands(prices []decimal.Decimal, period int, k decimal.Decimal) Bands {
	if period <= 0 || len(prices) < period {
		return Bands{}
	}
	window := prices[len(prices)-period:]

	data := make(stats.Float64Data, len(window))
	for i, p := range window {
		data[i] = p.InexactFloat64()
	}
	std, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return Bands{}
	}

	middle := mean(window)
	width := decimal.NewFromFloat(std).Mul(k)
	return Bands{
		Upper:  middle.Add(width).RoundBank(2),
		Middle: middle.RoundBank(2),
		Lower:  middle.Sub(width).RoundBank(2),
	}
}
