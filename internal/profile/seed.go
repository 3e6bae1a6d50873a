// Package profile loads user profiles and their trading strategies.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"StockAdviser/internal/model"
	"StockAdviser/internal/store"
)

// UserStore is where seeded profiles are written.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	PutUser(ctx context.Context, u *model.User) error
}

// Seed upserts every profile in filePath into st and returns how many were written.
// Missing strategy fields take the defaults given to new users.
func Seed(ctx context.Context, st UserStore, filePath string, now time.Time, log *zap.SugaredLogger) (int, error) {
	users, err := LoadUsers(filePath)
	if err != nil {
		return 0, fmt.Errorf("load profiles: %w", err)
	}
	if len(users) == 0 {
		log.Warnw("no user profiles found", "path", filePath)
		return 0, nil
	}

	for i, u := range users {
		if strings.TrimSpace(u.ID) == "" {
			return i, fmt.Errorf("profile %d in %s has no id", i, filePath)
		}
		Normalize(u)

		u.CreatedAt = now
		if existing, err := st.GetUser(ctx, u.ID); err == nil {
			u.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, store.ErrNotFound) {
			return i, fmt.Errorf("look up user %s: %w", u.ID, err)
		}
		u.UpdatedAt = now

		if err := st.PutUser(ctx, u); err != nil {
			return i, fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}
	log.Infow("user profiles seeded", "count", len(users), "path", filePath)
	return len(users), nil
}

// Normalize fills unset strategy fields from model.DefaultTradingStrategy.
// The sell-strategy percentages have no meaningful zero (a 0% stop-loss fires
// on any dip), so an explicit 0 is treated as unset and gets the default too.
func Normalize(u *model.User) {
	def := model.DefaultTradingStrategy()
	s := &u.Strategy

	if s.RiskTolerance == "" {
		s.RiskTolerance = def.RiskTolerance
	}
	if s.InvestmentHorizon == "" {
		s.InvestmentHorizon = def.InvestmentHorizon
	}
	if s.MaxPortfolioSize <= 0 {
		s.MaxPortfolioSize = def.MaxPortfolioSize
	}
	if s.SellStrategy.TakeProfitPct.IsZero() {
		s.SellStrategy.TakeProfitPct = def.SellStrategy.TakeProfitPct
	}
	if s.SellStrategy.StopLossPct.IsZero() {
		s.SellStrategy.StopLossPct = def.SellStrategy.StopLossPct
	}
	if s.SellStrategy.TrailingStopPct.IsZero() {
		s.SellStrategy.TrailingStopPct = def.SellStrategy.TrailingStopPct
	}
}
