package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockAdviser/internal/advisor"
	"StockAdviser/internal/model"
	"StockAdviser/internal/notifier"
	"StockAdviser/internal/store"
)

// Generator produces recommendations, for a whole run or one symbol.
type Generator interface {
	GenerateForAllUsers(ctx context.Context) (advisor.Summary, error)
	GenerateForSymbol(ctx context.Context, userID, symbol string) (*model.Recommendation, error)
}

// Sweeper expires recommendations whose validity has lapsed.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Lister reads a user's recommendations, newest first.
type Lister interface {
	ListRecommendations(ctx context.Context, userID string, limit int) ([]*model.Recommendation, error)
}

// Notifier delivers HTML-formatted text.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Advisor  Generator
	Tracker  Sweeper
	Store    Lister
	Notifier Notifier // nil disables reports
	Ctx      context.Context

	log *zap.SugaredLogger
	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, adv Generator, tr Sweeper, st Lister, n Notifier, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Advisor:  adv,
		Tracker:  tr,
		Store:    st,
		Notifier: n,
		Ctx:      ctx,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterAll registers the generation and expiry sweep tasks.
func (s *Scheduler) RegisterAll(generateCron, sweepCron string) error {
	if _, err := s.Cron.AddFunc(generateCron, s.generateTask); err != nil {
		return fmt.Errorf("register generate task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunGenerateNow executes the generation task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunGenerateNow() {
	s.generateTask()
}

func (s *Scheduler) generateTask() {
	s.log.Info("running generation task")
	// Expire first so lapsed symbols are eligible again.
	s.sweepTask()

	sum, err := s.Advisor.GenerateForAllUsers(s.Ctx)
	if err != nil {
		s.log.Errorw("generation task failed", "error", err)
		s.trySend("❌ Generation run failed: " + html.EscapeString(err.Error()))
		return
	}
	s.trySend(notifier.FormatGenerationReport(s.now(), sum.Users, sum.Failed, sum.Recommendations))
}

func (s *Scheduler) sweepTask() {
	n, err := s.Tracker.SweepExpired(s.Ctx, s.now())
	if err != nil {
		s.log.Errorw("expiry sweep failed", "error", err)
		return
	}
	s.log.Debugw("expiry sweep finished", "expired", n)
}

const helpText = "Available commands:\n" +
	"• /recommend &lt;user&gt; &lt;symbol&gt;\n" +
	"• /list &lt;user&gt;\n" +
	"• /run\n" +
	"• /sweep"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}

	switch fields[0] {
	case "/recommend":
		if len(fields) != 3 {
			return "Usage: /recommend &lt;user&gt; &lt;symbol&gt;"
		}
		rec, err := s.Advisor.GenerateForSymbol(ctx, fields[1], fields[2])
		switch {
		case errors.Is(err, advisor.ErrUserNotFound):
			return fmt.Sprintf("Unknown user %s", html.EscapeString(fields[1]))
		case errors.Is(err, advisor.ErrSnapshotUnavailable):
			return fmt.Sprintf("No market data for %s", html.EscapeString(strings.ToUpper(fields[2])))
		case err != nil:
			s.log.Errorw("recommend command failed", "user_id", fields[1], "symbol", fields[2], "error", err)
			return "Recommendation failed, see logs"
		}
		return notifier.FormatRecommendation(rec)
	case "/list":
		if len(fields) != 2 {
			return "Usage: /list &lt;user&gt;"
		}
		recs, err := s.Store.ListRecommendations(ctx, fields[1], store.DefaultRecommendationLimit)
		if err != nil {
			s.log.Errorw("list command failed", "user_id", fields[1], "error", err)
			return "Listing failed, see logs"
		}
		return notifier.FormatRecommendationList(fields[1], recs)
	case "/run":
		s.generateTask()
		return ""
	case "/sweep":
		n, err := s.Tracker.SweepExpired(ctx, s.now())
		if err != nil {
			return "Sweep failed, see logs"
		}
		return fmt.Sprintf("Expired %d recommendations", n)
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Errorw("send notification failed", "error", err)
	}
}
