// Package advisor turns market snapshots into persisted recommendations for
// each user's watchlist.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
	"StockAdviser/internal/store"
	"StockAdviser/internal/strategy"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")
)

// SnapshotSource supplies the latest snapshot for a symbol. A missing
// snapshot is reported with ok == false, not an error.
type SnapshotSource interface {
	Snapshot(ctx context.Context, symbol string) (snap *model.StockSnapshot, ok bool, err error)
}

// Store is the persistence the advisor needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	ActiveRecommendations(ctx context.Context, userID string, now time.Time) ([]*model.Recommendation, error)
	CreateRecommendation(ctx context.Context, rec *model.Recommendation) error
}

// Config tunes a generation run. Symbols are analysed BatchSize at a time
// with BatchPause between batches; results below MinConfidence are dropped.
type Config struct {
	BatchSize     int
	BatchPause    time.Duration
	MinConfidence decimal.Decimal // 0-100
}

// DefaultConfig returns batches of 5, a 200ms pause and a threshold of 60.
func DefaultConfig() Config {
	return Config{
		BatchSize:     5,
		BatchPause:    200 * time.Millisecond,
		MinConfidence: decimal.NewFromInt(60),
	}
}

// Summary describes one generation run across all users.
type Summary struct {
	Users           int
	Failed          int
	Recommendations []*model.Recommendation
}

// Advisor generates recommendations for users. It is safe for concurrent use.
type Advisor struct {
	store     Store
	source    SnapshotSource
	sentiment strategy.SentimentScorer
	cfg       Config
	log       *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

// New returns an Advisor. A non-positive BatchSize falls back to the default.
func New(st Store, source SnapshotSource, sentiment strategy.SentimentScorer, cfg Config, log *zap.SugaredLogger) *Advisor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Advisor{
		store:     st,
		source:    source,
		sentiment: sentiment,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// GenerateForUser analyses every uncovered watchlist symbol and returns the
// recommendations it persisted, in watchlist order. Per-symbol failures are
// logged and skipped. A cancelled context stops further batches; whatever was
// created so far is returned together with the context error.
func (a *Advisor) GenerateForUser(ctx context.Context, userID string) ([]*model.Recommendation, error) {
	user, err := a.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	active, err := a.store.ActiveRecommendations(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("load active recommendations for %s: %w", userID, err)
	}
	covered := make(map[string]bool, len(active))
	for _, r := range active {
		covered[r.Symbol] = true
	}

	var pending []string
	for _, s := range Watchlist(user.Strategy.PreferredSectors) {
		if !covered[s] {
			pending = append(pending, s)
		}
	}
	a.log.Infow("generating recommendations", "user_id", userID, "symbols", len(pending), "covered", len(covered))

	results := make([]*model.Recommendation, len(pending))
	for start := 0; start < len(pending); start += a.cfg.BatchSize {
		if start > 0 && a.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(a.cfg.BatchPause):
			}
		}
		if ctx.Err() != nil {
			break
		}

		end := min(start+a.cfg.BatchSize, len(pending))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						a.log.Errorw("symbol analysis panicked", "symbol", pending[i], "user_id", userID,
							"panic", r, "stack", string(debug.Stack()))
					}
				}()
				results[i] = a.processSymbol(ctx, user, pending[i], now)
			}(i)
		}
		wg.Wait()
	}

	created := make([]*model.Recommendation, 0, len(results))
	for _, r := range results {
		if r != nil {
			created = append(created, r)
		}
	}
	a.log.Infow("generation finished", "user_id", userID, "created", len(created))

	if err := ctx.Err(); err != nil {
		return created, fmt.Errorf("generate for %s: %w", userID, err)
	}
	return created, nil
}

// processSymbol returns the persisted recommendation, or nil when the symbol
// was skipped, fell below the confidence threshold, or failed.
func (a *Advisor) processSymbol(ctx context.Context, user *model.User, symbol string, now time.Time) *model.Recommendation {
	rec, ok, err := a.analyze(ctx, user, symbol, now)
	if err != nil {
		a.log.Errorw("analyze symbol failed", "symbol", symbol, "user_id", user.ID, "error", err)
		return nil
	}
	if !ok {
		a.log.Warnw("no snapshot, skipping", "symbol", symbol, "user_id", user.ID)
		return nil
	}
	if rec.Confidence.LessThan(a.cfg.MinConfidence) {
		a.log.Debugw("below confidence threshold", "symbol", symbol, "user_id", user.ID, "confidence", rec.Confidence.String())
		return nil
	}

	if err := a.store.CreateRecommendation(ctx, rec); err != nil {
		if errors.Is(err, store.ErrActiveExists) {
			a.log.Infow("symbol already covered", "symbol", symbol, "user_id", user.ID)
		} else {
			a.log.Errorw("persist recommendation failed", "symbol", symbol, "user_id", user.ID, "error", err)
		}
		return nil
	}
	return rec
}

// GenerateForSymbol returns the user's active recommendation for symbol, or
// analyses and persists a new one regardless of confidence.
func (a *Advisor) GenerateForSymbol(ctx context.Context, userID, symbol string) (*model.Recommendation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	user, err := a.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	if existing, err := a.activeFor(ctx, userID, symbol, now); err != nil || existing != nil {
		return existing, err
	}

	rec, ok, err := a.analyze(ctx, user, symbol, now)
	if err != nil {
		return nil, fmt.Errorf("analyze %s for %s: %w", symbol, userID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSnapshotUnavailable)
	}

	if err := a.store.CreateRecommendation(ctx, rec); err != nil {
		if errors.Is(err, store.ErrActiveExists) {
			if existing, lerr := a.activeFor(ctx, userID, symbol, now); lerr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("persist %s for %s: %w", symbol, userID, err)
	}
	a.log.Infow("recommendation created", "symbol", symbol, "user_id", userID,
		"action", rec.Action, "confidence", rec.Confidence.String())
	return rec, nil
}

// GenerateForAllUsers runs GenerateForUser for every stored user. A failing
// user is counted and logged; the run continues with the next one.
func (a *Advisor) GenerateForAllUsers(ctx context.Context) (Summary, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list users: %w", err)
	}

	var sum Summary
	for _, u := range users {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Users++
		recs, err := a.GenerateForUser(ctx, u.ID)
		sum.Recommendations = append(sum.Recommendations, recs...)
		if err != nil {
			sum.Failed++
			a.log.Errorw("generation failed", "user_id", u.ID, "error", err)
		}
	}
	a.log.Infow("generation run complete", "users", sum.Users, "failed", sum.Failed, "created", len(sum.Recommendations))
	return sum, nil
}

func (a *Advisor) user(ctx context.Context, userID string) (*model.User, error) {
	user, err := a.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user, nil
}

func (a *Advisor) activeFor(ctx context.Context, userID, symbol string, now time.Time) (*model.Recommendation, error) {
	active, err := a.store.ActiveRecommendations(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("load active recommendations for %s: %w", userID, err)
	}
	for _, r := range active {
		if r.Symbol == symbol {
			return r, nil
		}
	}
	return nil, nil
}

func (a *Advisor) analyze(ctx context.Context, user *model.User, symbol string, now time.Time) (*model.Recommendation, bool, error) {
	snap, ok, err := a.source.Snapshot(ctx, symbol)
	if err != nil || !ok {
		return nil, false, err
	}
	if snap == nil {
		return nil, false, nil
	}

	sentiment, err := a.sentiment.SentimentScore(ctx, symbol)
	if err != nil {
		return nil, false, fmt.Errorf("sentiment: %w", err)
	}

	an := strategy.Evaluate(snap, user.Strategy, sentiment)
	return &model.Recommendation{
		ID:               a.newID(),
		UserID:           user.ID,
		Symbol:           symbol,
		Action:           an.Action,
		Confidence:       an.OverallScore,
		TargetPrice:      an.TargetPrice,
		StopLoss:         an.StopLoss,
		Reasoning:        an.Reasoning,
		KeyFactors:       an.KeyFactors,
		RiskLevel:        an.RiskLevel,
		TimeHorizon:      an.TimeHorizon,
		CreatedAt:        now,
		ValidUntil:       now.Add(model.ValidityPeriod),
		Status:           model.StatusActive,
		TechnicalScore:   an.TechnicalScore,
		FundamentalScore: an.FundamentalScore,
		SentimentScore:   an.SentimentScore,
		OverallScore:     an.OverallScore,
	}, true, nil
}
