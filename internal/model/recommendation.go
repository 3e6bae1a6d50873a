package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValidityPeriod is how long a recommendation stays actionable after creation.
const ValidityPeriod = 7 * 24 * time.Hour

// Action is the recommended trade.
type Action string

const (
	ActionStrongBuy  Action = "StrongBuy"
	ActionBuy        Action = "Buy"
	ActionHold       Action = "Hold"
	ActionSell       Action = "Sell"
	ActionStrongSell Action = "StrongSell"
)

// Actions lists every Action, strongest buy first.
var Actions = []Action{ActionStrongBuy, ActionBuy, ActionHold, ActionSell, ActionStrongSell}

// RiskLevel classifies how risky acting on a recommendation is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "VeryHigh"
)

// TimeHorizon is the expected holding period of a recommendation.
type TimeHorizon string

const (
	TimeHorizonShortTerm  TimeHorizon = "ShortTerm"  // 1-4 weeks
	TimeHorizonMediumTerm TimeHorizon = "MediumTerm" // 1-6 months
	TimeHorizonLongTerm   TimeHorizon = "LongTerm"   // 6+ months
)

// Status is the lifecycle state of a recommendation. Active is the only
// non-terminal state.
type Status string

const (
	StatusActive    Status = "Active"
	StatusExecuted  Status = "Executed"
	StatusExpired   Status = "Expired"
	StatusCancelled Status = "Cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s != StatusActive }

// Outcome classifies a closed recommendation.
type Outcome string

const (
	OutcomeProfitable Outcome = "Profitable"
	OutcomeLoss       Outcome = "Loss"
	OutcomeBreakeven  Outcome = "Breakeven"
)

// ParseAction converts a name into an Action.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ParseOutcome converts a name into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeProfitable, OutcomeLoss, OutcomeBreakeven:
		return o, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Recommendation is a scored trade signal for one user and symbol.
type Recommendation struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	Symbol           string           `json:"symbol"`
	Action           Action           `json:"action"`
	Confidence       decimal.Decimal  `json:"confidence"`
	TargetPrice      decimal.Decimal  `json:"targetPrice"`
	StopLoss         decimal.Decimal  `json:"stopLoss"`
	Reasoning        string           `json:"reasoning"`
	KeyFactors       []string         `json:"keyFactors"`
	RiskLevel        RiskLevel        `json:"riskLevel"`
	TimeHorizon      TimeHorizon      `json:"timeHorizon"`
	CreatedAt        time.Time        `json:"createdAt"`
	ValidUntil       time.Time        `json:"validUntil"`
	Status           Status           `json:"status"`
	TechnicalScore   decimal.Decimal  `json:"technicalScore"`
	FundamentalScore decimal.Decimal  `json:"fundamentalScore"`
	SentimentScore   decimal.Decimal  `json:"sentimentScore"`
	OverallScore     decimal.Decimal  `json:"overallScore"`
	ActualAction     *Action          `json:"actualAction,omitempty"`
	ActualPrice      *decimal.Decimal `json:"actualPrice,omitempty"`
	ExecutedAt       *time.Time       `json:"executedAt,omitempty"`
}

// RecommendationHistory is the closed record of a terminated recommendation.
type RecommendationHistory struct {
	ID                   string           `json:"id"`
	RecommendationID     string           `json:"recommendationId"`
	UserID               string           `json:"userId"`
	Symbol               string           `json:"symbol"`
	OriginalAction       Action           `json:"originalAction"`
	OriginalPrice        decimal.Decimal  `json:"originalPrice"`
	ActualAction         *Action          `json:"actualAction,omitempty"`
	ActualPrice          *decimal.Decimal `json:"actualPrice,omitempty"`
	Outcome              Outcome          `json:"outcome"`
	ProfitLoss           *decimal.Decimal `json:"profitLoss,omitempty"`
	ProfitLossPercentage *decimal.Decimal `json:"profitLossPercentage,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	ClosedAt             time.Time        `json:"closedAt"`
}
