package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockAdviser/internal/advisor"
	"StockAdviser/internal/model"
)

type fakeAdvisor struct {
	summary advisor.Summary
	err     error
	runs    int
}

func (f *fakeAdvisor) GenerateForAllUsers(context.Context) (advisor.Summary, error) {
	f.runs++
	return f.summary, f.err
}

func (f *fakeAdvisor) GenerateForSymbol(_ context.Context, userID, symbol string) (*model.Recommendation, error) {
	switch {
	case strings.HasPrefix(userID, "ghost"):
		return nil, fmt.Errorf("%s: %w", userID, advisor.ErrUserNotFound)
	case userID == "nodata":
		return nil, fmt.Errorf("%s: %w", symbol, advisor.ErrSnapshotUnavailable)
	}
	return &model.Recommendation{ID: "r1", UserID: userID, Symbol: symbol, Action: model.ActionBuy, Confidence: decimal.NewFromInt(70)}, nil
}

type fakeTracker struct {
	expired int
	sweeps  int
}

func (f *fakeTracker) SweepExpired(context.Context, time.Time) (int, error) {
	f.sweeps++
	return f.expired, nil
}

type fakeLister struct{}

func (fakeLister) ListRecommendations(_ context.Context, userID string, _ int) ([]*model.Recommendation, error) {
	if userID == "broken" {
		return nil, errors.New("db locked")
	}
	return nil, nil
}

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.sent = append(f.sent, text)
	return nil
}

func TestHandleCommand_EscapesUserInput(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	assert.Equal(t, "Unknown user ghost&lt;b&gt;", s.HandleCommand(ctx, "/recommend ghost<b> AAPL"))
	assert.Equal(t, "No market data for &lt;I&gt;&amp;X", s.HandleCommand(ctx, "/recommend nodata <i>&x"))
	assert.Equal(t, "No recommendations for &lt;script&gt;", s.HandleCommand(ctx, "/list <script>"))
}

func newTestScheduler() (*Scheduler, *fakeAdvisor, *fakeTracker, *fakeNotifier) {
	adv := &fakeAdvisor{}
	tr := &fakeTracker{expired: 2}
	n := &fakeNotifier{}
	s := NewScheduler(context.Background(), adv, tr, fakeLister{}, n, zap.NewNop().Sugar())
	s.now = func() time.Time { return time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC) }
	return s, adv, tr, n
}

func TestRegisterAll(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	require.NoError(t, s.RegisterAll("0 0 6 * * 1-5", "0 0 * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s, _, _, _ = newTestScheduler()
	assert.Error(t, s.RegisterAll("not a cron", "0 0 * * * *"))
	s, _, _, _ = newTestScheduler()
	assert.Error(t, s.RegisterAll("0 0 6 * * 1-5", "bad"))
}

func TestRunGenerateNow_SweepsThenReports(t *testing.T) {
	s, adv, tr, n := newTestScheduler()
	adv.summary = advisor.Summary{Users: 2, Recommendations: []*model.Recommendation{
		{Symbol: "AAPL", UserID: "alice", Action: model.ActionBuy, Confidence: decimal.NewFromInt(78)},
	}}

	s.RunGenerateNow()

	assert.Equal(t, 1, tr.sweeps)
	assert.Equal(t, 1, adv.runs)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "New recommendations: 1")
	assert.Contains(t, n.sent[0], "2025-03-03")
}

func TestRunGenerateNow_ReportsFailure(t *testing.T) {
	s, adv, _, n := newTestScheduler()
	adv.err = errors.New("store offline")

	s.RunGenerateNow()

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "store offline")
}

func TestRunGenerateNow_WithoutNotifier(t *testing.T) {
	adv := &fakeAdvisor{}
	s := NewScheduler(context.Background(), adv, &fakeTracker{}, fakeLister{}, nil, zap.NewNop().Sugar())
	s.RunGenerateNow()
	assert.Equal(t, 1, adv.runs)
}

func TestHandleCommand(t *testing.T) {
	s, adv, _, _ := newTestScheduler()
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/recommend alice aapl"), "<b>aapl: Buy</b>")
	assert.Equal(t, "Unknown user ghost", s.HandleCommand(ctx, "/recommend ghost AAPL"))
	assert.Equal(t, "No market data for ZZZ", s.HandleCommand(ctx, "/recommend nodata zzz"))
	assert.Contains(t, s.HandleCommand(ctx, "/recommend alice"), "Usage")

	assert.Equal(t, "No recommendations for alice", s.HandleCommand(ctx, "/list alice"))
	assert.Equal(t, "Listing failed, see logs", s.HandleCommand(ctx, "/list broken"))

	assert.Equal(t, "Expired 2 recommendations", s.HandleCommand(ctx, "/sweep"))

	assert.Empty(t, s.HandleCommand(ctx, "/run"))
	assert.Equal(t, 1, adv.runs)

	assert.Equal(t, helpText, s.HandleCommand(ctx, "hello"))
	assert.Equal(t, helpText, s.HandleCommand(ctx, "   "))
}
