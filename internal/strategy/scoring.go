package strategy

import (
	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

var (
	d002 = decimal.RequireFromString("0.02")
	d003 = decimal.RequireFromString("0.03")
	d005 = decimal.RequireFromString("0.05")
	d010 = decimal.RequireFromString("0.10")
	d015 = decimal.RequireFromString("0.15")
	d020 = decimal.RequireFromString("0.20")
	d050 = decimal.RequireFromString("0.5")
	d100 = decimal.RequireFromString("1.0")

	rsiOversold   = decimal.NewFromInt(30)
	rsiNeutral    = decimal.NewFromInt(50)
	rsiWarm       = decimal.NewFromInt(60)
	rsiOverbought = decimal.NewFromInt(70)

	peCheap = decimal.NewFromInt(15)
	peFair  = decimal.NewFromInt(25)
)

const (
	minScore = 0
	maxScore = 100
)

// TechnicalScore scores price action against the snapshot's indicators.
// The result is clamped to [0, 100].
func TechnicalScore(s *model.StockSnapshot) decimal.Decimal {
	ind := s.Indicators
	score := 0

	switch {
	case ind.RSI.LessThan(rsiOversold):
		score += 20
	case ind.RSI.LessThan(rsiNeutral):
		score += 10
	case ind.RSI.GreaterThan(rsiOverbought):
		score -= 20
	case ind.RSI.GreaterThan(rsiWarm):
		score -= 10
	}

	if s.Price.GreaterThan(ind.SMA20) {
		score += 15
	}
	if s.Price.GreaterThan(ind.SMA50) {
		score += 15
	}
	if s.Price.GreaterThan(ind.SMA200) {
		score += 10
	}

	if ind.MACD.GreaterThan(ind.MACDSignal) {
		score += 15
	}
	if ind.MACDHistogram.IsPositive() {
		score += 10
	}

	switch {
	case s.Price.LessThanOrEqual(ind.BollingerLower):
		score += 10
	case s.Price.GreaterThanOrEqual(ind.BollingerUpper):
		score -= 10
	}

	return clamp(score)
}

// FundamentalScore scores valuation, growth, profitability, leverage and
// yield. The result is clamped to [0, 100].
func FundamentalScore(s *model.StockSnapshot) decimal.Decimal {
	f := s.Fundamentals
	score := 0

	if s.PERatio.IsPositive() {
		switch {
		case s.PERatio.LessThan(peCheap):
			score += 20
		case s.PERatio.LessThan(peFair):
			score += 10
		}
	}

	score += growthLadder.score(f.RevenueGrowth)
	score += returnLadder.score(f.ReturnOnEquity)
	score += returnLadder.score(f.NetMargin)

	switch {
	case f.DebtToEquity.LessThan(d050):
		score += 10
	case f.DebtToEquity.LessThan(d100):
		score += 5
	}

	switch {
	case s.DividendYield.GreaterThan(d003):
		score += 10
	case s.DividendYield.GreaterThan(d002):
		score += 5
	}

	return clamp(score)
}

// ladder awards 15, 10 or 5 points for a value strictly above the
// high, mid or low rung respectively.
type ladder struct {
	high, mid, low decimal.Decimal
}

var (
	growthLadder = ladder{high: d015, mid: d010, low: d005}
	returnLadder = ladder{high: d020, mid: d015, low: d010}
)

func (l ladder) score(v decimal.Decimal) int {
	switch {
	case v.GreaterThan(l.high):
		return 15
	case v.GreaterThan(l.mid):
		return 10
	case v.GreaterThan(l.low):
		return 5
	}
	return 0
}

func clamp(score int) decimal.Decimal {
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}
	return decimal.NewFromInt(int64(score))
}
