package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

// SentimentScorer rates market sentiment for a symbol on a [0, 100] scale.
type SentimentScorer interface {
	SentimentScore(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// NeutralSentiment is the score used when no sentiment source is configured.
var NeutralSentiment = decimal.NewFromInt(50)

// ConstantSentiment returns the same score for every symbol.
type ConstantSentiment struct {
	Value decimal.Decimal
}

// NewConstantSentiment returns a scorer that always reports NeutralSentiment.
func NewConstantSentiment() ConstantSentiment {
	return ConstantSentiment{Value: NeutralSentiment}
}

func (c ConstantSentiment) SentimentScore(_ context.Context, _ string) (decimal.Decimal, error) {
	return c.Value, nil
}
