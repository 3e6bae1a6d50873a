package calculator

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// emaPrecision bounds the scale of intermediate EMA values so repeated
// multiplication does not grow the decimal representation without limit.
const emaPrecision = 16

// SMA returns the simple moving average of the last period prices, rounded to
// 2 places. It returns zero when fewer than period prices are available.
func SMA(prices []decimal.Decimal, period int) decimal.Decimal {
	if period <= 0 || len(prices) < period {
		return decimal.Zero
	}
	return mean(prices[len(prices)-period:]).RoundBank(2)
}

// EMA returns the exponential moving average over the supplied prices, seeded
// with the first element and rounded to 2 places.
func EMA(prices []decimal.Decimal, period int) decimal.Decimal {
	return ema(prices, period).RoundBank(2)
}

func ema(prices []decimal.Decimal, period int) decimal.Decimal {
	if period <= 0 || len(prices) == 0 {
		return decimal.Zero
	}
	k := two.Div(decimal.NewFromInt(int64(period + 1)))
	rest := one.Sub(k)

	e := prices[0]
	for _, p := range prices[1:] {
		e = p.Mul(k).Add(e.Mul(rest)).Round(emaPrecision)
	}
	return e
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// tail returns the last n values, or all of them when fewer are available.
func tail(values []decimal.Decimal, n int) []decimal.Decimal {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
