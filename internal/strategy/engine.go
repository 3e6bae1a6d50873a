package strategy

import (
	"github.com/shopspring/decimal"

	"StockAdviser/internal/model"
)

// Analysis is the full, deterministic evaluation of one snapshot.
type Analysis struct {
	TechnicalScore   decimal.Decimal
	FundamentalScore decimal.Decimal
	SentimentScore   decimal.Decimal
	OverallScore     decimal.Decimal
	Action           model.Action
	TargetPrice      decimal.Decimal
	StopLoss         decimal.Decimal
	RiskLevel        model.RiskLevel
	TimeHorizon      model.TimeHorizon
	Reasoning        string
	KeyFactors       []string
}

// Evaluate scores a snapshot and derives the trade decision for a user's
// strategy. It has no side effects.
func Evaluate(s *model.StockSnapshot, ts model.TradingStrategy, sentiment decimal.Decimal) *Analysis {
	technical := TechnicalScore(s)
	fundamental := FundamentalScore(s)
	overall := CompositeScore(technical, fundamental, sentiment)

	return &Analysis{
		TechnicalScore:   technical,
		FundamentalScore: fundamental,
		SentimentScore:   sentiment,
		OverallScore:     overall,
		Action:           DetermineAction(overall),
		TargetPrice:      TargetPrice(s.Price, overall),
		StopLoss:         StopLoss(s.Price, ts.SellStrategy.StopLossPct),
		RiskLevel:        DetermineRiskLevel(overall, s.Beta),
		TimeHorizon:      DetermineTimeHorizon(overall),
		Reasoning:        Reasoning(technical, fundamental, s),
		KeyFactors:       KeyFactors(s),
	}
}
