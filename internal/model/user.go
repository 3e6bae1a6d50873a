package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskTolerance is the user's declared appetite for risk.
type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "Low"
	RiskToleranceMedium RiskTolerance = "Medium"
	RiskToleranceHigh   RiskTolerance = "High"
)

// InvestmentHorizon is the user's preferred holding period.
type InvestmentHorizon string

const (
	HorizonShortTerm  InvestmentHorizon = "ShortTerm"
	HorizonMediumTerm InvestmentHorizon = "MediumTerm"
	HorizonLongTerm   InvestmentHorizon = "LongTerm"
)

// SellStrategy configures exits. Percentages are on a 0-100 scale.
type SellStrategy struct {
	TakeProfitPct       decimal.Decimal `json:"takeProfitPercentage"`
	StopLossPct         decimal.Decimal `json:"stopLossPercentage"`
	TrailingStopEnabled bool            `json:"trailingStopEnabled"`
	TrailingStopPct     decimal.Decimal `json:"trailingStopPercentage"`
}

// TradingStrategy is owned by a User and read-only to the engine.
type TradingStrategy struct {
	RiskTolerance     RiskTolerance     `json:"riskTolerance"`
	InvestmentHorizon InvestmentHorizon `json:"investmentHorizon"`
	MaxPortfolioSize  int               `json:"maxPortfolioSize"`
	PreferredSectors  []string          `json:"preferredSectors"`
	SellStrategy      SellStrategy      `json:"sellStrategy"`
}

// DefaultTradingStrategy returns the strategy assigned to new users.
func DefaultTradingStrategy() TradingStrategy {
	return TradingStrategy{
		RiskTolerance:     RiskToleranceMedium,
		InvestmentHorizon: HorizonMediumTerm,
		MaxPortfolioSize:  20,
		SellStrategy: SellStrategy{
			TakeProfitPct:   decimal.NewFromInt(20),
			StopLossPct:     decimal.NewFromInt(10),
			TrailingStopPct: decimal.NewFromInt(5),
		},
	}
}

// User is an account holder with a trading strategy.
type User struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Strategy    TradingStrategy `json:"tradingStrategy"`
}
