package strategy

import (
	"strings"

	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

var (
	technicalWeight   = decimal.RequireFromString("0.4")
	fundamentalWeight = decimal.RequireFromString("0.4")
	sentimentWeight   = decimal.RequireFromString("0.2")
)

// CompositeScore blends the sub-scores 40/40/20 and rounds to 2 places. It is
// also the recommendation's confidence.
func CompositeScore(technical, fundamental, sentiment decimal.Decimal) decimal.Decimal {
	return technical.Mul(technicalWeight).
		Add(fundamental.Mul(fundamentalWeight)).
		Add(sentiment.Mul(sentimentWeight)).
		RoundBank(2)
}

// ActionTiers maps a composite score to an action, checked top-down.
var ActionTiers = []struct {
	MinScore decimal.Decimal
	Action   model.Action
}{
	{decimal.NewFromInt(80), model.ActionStrongBuy},
	{decimal.NewFromInt(65), model.ActionBuy},
	{decimal.NewFromInt(35), model.ActionHold},
	{decimal.NewFromInt(20), model.ActionSell},
}

// TargetTiers maps a composite score to a price multiplier, checked top-down.
var TargetTiers = []struct {
	MinScore   decimal.Decimal
	Multiplier decimal.Decimal
}{
	{decimal.NewFromInt(80), decimal.RequireFromString("1.20")},
	{decimal.NewFromInt(65), decimal.RequireFromString("1.15")},
	{decimal.NewFromInt(50), decimal.RequireFromString("1.10")},
	{decimal.NewFromInt(35), decimal.RequireFromString("1.05")},
}

// DefaultTargetMultiplier applies below the lowest target tier.
var DefaultTargetMultiplier = decimal.RequireFromString("0.95")

// DetermineAction maps a composite score to an action.
func DetermineAction(score decimal.Decimal) model.Action {
	for _, t := range ActionTiers {
		if score.GreaterThanOrEqual(t.MinScore) {
			return t.Action
		}
	}
	return model.ActionStrongSell
}

// TargetPrice scales the current price by the tier multiplier, rounded to 2 places.
func TargetPrice(price, score decimal.Decimal) decimal.Decimal {
	multiplier := DefaultTargetMultiplier
	for _, t := range TargetTiers {
		if score.GreaterThanOrEqual(t.MinScore) {
			multiplier = t.Multiplier
			break
		}
	}
	return price.Mul(multiplier).RoundBank(2)
}

// StopLoss places the stop stopLossPct percent below the current price.
func StopLoss(price, stopLossPct decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(stopLossPct.Div(decimal.NewFromInt(100)))).RoundBank(2)
}

var (
	betaVeryHigh = decimal.RequireFromString("1.5")
	betaHigh     = decimal.RequireFromString("1.2")
	betaMedium   = decimal.RequireFromString("0.8")
)

// DetermineRiskLevel classifies risk from volatility (beta) and score.
func DetermineRiskLevel(score, beta decimal.Decimal) model.RiskLevel {
	switch {
	case beta.GreaterThan(betaVeryHigh) || score.LessThan(decimal.NewFromInt(30)):
		return model.RiskVeryHigh
	case beta.GreaterThan(betaHigh) || score.LessThan(decimal.NewFromInt(40)):
		return model.RiskHigh
	case beta.GreaterThan(betaMedium) || score.LessThan(decimal.NewFromInt(60)):
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// DetermineTimeHorizon derives the holding period from the score alone; the
// user's configured horizon is deliberately not consulted.
func DetermineTimeHorizon(score decimal.Decimal) model.TimeHorizon {
	switch {
	case score.GreaterThan(decimal.NewFromInt(70)):
		return model.TimeHorizonShortTerm
	case score.GreaterThan(decimal.NewFromInt(50)):
		return model.TimeHorizonMediumTerm
	default:
		return model.TimeHorizonLongTerm
	}
}

var (
	strongSubScore   = decimal.NewFromInt(60)
	weakSubScore     = decimal.NewFromInt(40)
	momentumUp       = decimal.NewFromInt(2)
	momentumDown     = decimal.NewFromInt(-2)
	attractivePE     = decimal.NewFromInt(20)
	strongGrowth     = d010
	highReturnOnEq   = d015
	dividendInterest = d002
)

// Reasoning explains the sub-scores and recent momentum as "; "-joined clauses.
func Reasoning(technical, fundamental decimal.Decimal, s *model.StockSnapshot) string {
	var reasons []string

	switch {
	case technical.GreaterThan(strongSubScore):
		reasons = append(reasons, "Strong technical indicators suggest upward momentum")
	case technical.LessThan(weakSubScore):
		reasons = append(reasons, "Technical indicators indicate potential downside")
	}

	switch {
	case fundamental.GreaterThan(strongSubScore):
		reasons = append(reasons, "Solid fundamentals with strong financial metrics")
	case fundamental.LessThan(weakSubScore):
		reasons = append(reasons, "Weak fundamentals raise concerns")
	}

	switch {
	case s.PriceChangePercent.GreaterThan(momentumUp):
		reasons = append(reasons, "Recent positive price movement supports bullish outlook")
	case s.PriceChangePercent.LessThan(momentumDown):
		reasons = append(reasons, "Recent price decline may present buying opportunity")
	}

	return strings.Join(reasons, "; ")
}

// KeyFactors lists the short labels that apply to the snapshot, in a fixed order.
func KeyFactors(s *model.StockSnapshot) []string {
	ind := s.Indicators
	factors := []string{}

	if ind.RSI.LessThan(rsiOversold) {
		factors = append(factors, "Oversold conditions (RSI)")
	}
	if ind.RSI.GreaterThan(rsiOverbought) {
		factors = append(factors, "Overbought conditions (RSI)")
	}
	if s.Price.GreaterThan(ind.SMA20) {
		factors = append(factors, "Price above 20-day SMA")
	}
	if s.Price.GreaterThan(ind.SMA50) {
		factors = append(factors, "Price above 50-day SMA")
	}
	if s.Fundamentals.RevenueGrowth.GreaterThan(strongGrowth) {
		factors = append(factors, "Strong revenue growth")
	}
	if s.Fundamentals.ReturnOnEquity.GreaterThan(highReturnOnEq) {
		factors = append(factors, "High return on equity")
	}
	if s.PERatio.LessThan(attractivePE) {
		factors = append(factors, "Attractive P/E ratio")
	}
	if s.DividendYield.GreaterThan(dividendInterest) {
		factors = append(factors, "Dividend income potential")
	}

	return factors
}
