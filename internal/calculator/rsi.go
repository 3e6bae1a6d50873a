package calculator

import "github.com/shopspring/decimal"

// RSI computes the Relative Strength Index from the first period price
// changes of the series, using simple (not Wilder-smoothed) averages.
// Returns zero when fewer than period+1 prices are available and 100 when
// the series has no losses.
func RSI(prices []decimal.Decimal, period int) decimal.Decimal {
	if period <= 0 || len(prices) < period+1 {
		return decimal.Zero
	}

	gains, losses := decimal.Zero, decimal.Zero
	for i := 1; i <= period; i++ {
		change := prices[i].Sub(prices[i-1])
		switch {
		case change.IsPositive():
			gains = gains.Add(change)
		case change.IsNegative():
			losses = losses.Add(change.Neg())
		}
	}

	if losses.IsZero() {
		return hundred
	}
	n := decimal.NewFromInt(int64(period))
	rs := gains.Div(n).Div(losses.Div(n))
	return hundred.Sub(hundred.Div(one.Add(rs))).RoundBank(2)
}
