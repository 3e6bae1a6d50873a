// Package tracker closes recommendations: execution, cancellation and expiry.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
	"StockAdviser/internal/store"
)

// ErrNotActionable is returned when a transition is requested on a
// recommendation that is no longer Active.
var ErrNotActionable = errors.New("recommendation is not active")

var hundred = decimal.NewFromInt(100)

// Store is the persistence the tracker needs. CloseRecommendation must apply
// the status change and the optional history row together, and only while
// the stored row is still Active (store.ErrNotActive otherwise).
type Store interface {
	GetRecommendation(ctx context.Context, userID, id string) (*model.Recommendation, error)
	CloseRecommendation(ctx context.Context, rec *model.Recommendation, h *model.RecommendationHistory) error
	ListActiveRecommendations(ctx context.Context) ([]*model.Recommendation, error)
}

// ExecuteRequest records what the user actually did. Outcome is optional;
// when set, a history record is written.
type ExecuteRequest struct {
	Action  model.Action
	Price   decimal.Decimal
	Outcome *model.Outcome
}

// Tracker applies user and time driven transitions out of Active.
type Tracker struct {
	store Store
	log   *zap.SugaredLogger
	now   func() time.Time
	newID func() string
}

// New returns a Tracker using wall-clock UTC time and random UUIDs.
func New(store Store, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// IsExpired reports whether rec is still Active but past its validity window.
func IsExpired(rec *model.Recommendation, now time.Time) bool {
	return rec.Status == model.StatusActive && now.After(rec.ValidUntil)
}

// Execute marks an Active recommendation Executed. With an outcome, the
// history row is written in the same store operation.
func (t *Tracker) Execute(ctx context.Context, userID, recID string, req ExecuteRequest) (*model.Recommendation, error) {
	rec, err := t.store.GetRecommendation(ctx, userID, recID)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", recID, err)
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("execute %s (status %s): %w", recID, rec.Status, ErrNotActionable)
	}

	now := t.now()
	action := req.Action
	price := req.Price
	rec.Status = model.StatusExecuted
	rec.ExecutedAt = &now
	rec.ActualAction = &action
	rec.ActualPrice = &price

	var h *model.RecommendationHistory
	if req.Outcome != nil {
		h = t.history(rec, *req.Outcome, now)
	}
	if err := t.close(ctx, rec, h); err != nil {
		return nil, fmt.Errorf("execute %s: %w", recID, err)
	}

	t.log.Infow("recommendation executed",
		"recommendation_id", recID, "user_id", userID, "symbol", rec.Symbol,
		"action", action, "price", price.String(), "history", h != nil)
	return rec, nil
}

// Cancel marks an Active recommendation Cancelled.
func (t *Tracker) Cancel(ctx context.Context, userID, recID string) (*model.Recommendation, error) {
	rec, err := t.store.GetRecommendation(ctx, userID, recID)
	if err != nil {
		return nil, fmt.Errorf("cancel %s: %w", recID, err)
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("cancel %s (status %s): %w", recID, rec.Status, ErrNotActionable)
	}

	rec.Status = model.StatusCancelled
	if err := t.close(ctx, rec, nil); err != nil {
		return nil, fmt.Errorf("cancel %s: %w", recID, err)
	}
	t.log.Infow("recommendation cancelled", "recommendation_id", recID, "user_id", userID)
	return rec, nil
}

// SweepExpired marks every lapsed Active recommendation Expired and returns
// how many were changed. Rows closed by someone else since the listing are
// skipped; other failed updates are logged and skipped.
func (t *Tracker) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	active, err := t.store.ListActiveRecommendations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recommendations: %w", err)
	}

	expired := 0
	for _, rec := range active {
		if !IsExpired(rec, now) {
			continue
		}
		rec.Status = model.StatusExpired
		err := t.close(ctx, rec, nil)
		switch {
		case errors.Is(err, ErrNotActionable):
			t.log.Debugw("recommendation already closed", "recommendation_id", rec.ID)
			continue
		case err != nil:
			t.log.Warnw("expire recommendation failed", "recommendation_id", rec.ID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		t.log.Infow("expired recommendations", "count", expired)
	}
	return expired, nil
}

// close persists the transition, reporting a lost race as ErrNotActionable.
func (t *Tracker) close(ctx context.Context, rec *model.Recommendation, h *model.RecommendationHistory) error {
	err := t.store.CloseRecommendation(ctx, rec, h)
	if errors.Is(err, store.ErrNotActive) {
		return fmt.Errorf("%w: %w", ErrNotActionable, err)
	}
	return err
}

// history builds the closed record. Profit and loss are measured against the
// target price and left nil when no positive target exists.
func (t *Tracker) history(rec *model.Recommendation, outcome model.Outcome, closedAt time.Time) *model.RecommendationHistory {
	h := &model.RecommendationHistory{
		ID:               t.newID(),
		RecommendationID: rec.ID,
		UserID:           rec.UserID,
		Symbol:           rec.Symbol,
		OriginalAction:   rec.Action,
		OriginalPrice:    rec.TargetPrice,
		ActualAction:     rec.ActualAction,
		ActualPrice:      rec.ActualPrice,
		Outcome:          outcome,
		CreatedAt:        rec.CreatedAt,
		ClosedAt:         closedAt,
	}
	if rec.ActualPrice != nil && rec.TargetPrice.IsPositive() {
		pl := rec.ActualPrice.Sub(rec.TargetPrice)
		pct := pl.Div(rec.TargetPrice).Mul(hundred).RoundBank(2)
		h.ProfitLoss = &pl
		h.ProfitLossPercentage = &pct
	}
	return h
}
