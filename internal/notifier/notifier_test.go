package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
)

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop().Sugar())
	n.APIBase = srv.URL
	n.Client = srv.Client()
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry_ReportsLastError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).SendWithRetry(context.Background(), "hello", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, 1, calls)
}

func TestSendWithRetry_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := newTestNotifier(srv).SendWithRetry(ctx, "hello", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartPolling_RepliesToCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		replies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if r.URL.Query().Get("offset") == "0" {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":1,"message":{"text":" /help "}},{"update_id":2}]}`))
				return
			}
			cancel()
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	var commands []string
	newTestNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		return "echo " + cmd
	})

	assert.Equal(t, []string{"/help"}, commands)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"echo /help"}, replies)
}

func rec(symbol, user string, action model.Action, conf string) *model.Recommendation {
	return &model.Recommendation{
		ID:          "id-" + symbol,
		UserID:      user,
		Symbol:      symbol,
		Action:      action,
		Confidence:  decimal.RequireFromString(conf),
		TargetPrice: decimal.NewFromInt(115),
		StopLoss:    decimal.NewFromInt(90),
		Reasoning:   "Strong technical indicators suggest upward momentum",
		KeyFactors:  []string{"Price above 20-day SMA"},
		RiskLevel:   model.RiskLow,
		TimeHorizon: model.TimeHorizonShortTerm,
		CreatedAt:   time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC),
		ValidUntil:  time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC),
		Status:      model.StatusActive,
	}
}

func TestFormatGenerationReport(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC)
	out := FormatGenerationReport(date, 3, 1, []*model.Recommendation{
		rec("MSFT", "alice", model.ActionBuy, "66"),
		rec("NVDA", "bob", model.ActionStrongBuy, "82.5"),
	})

	assert.Contains(t, out, "2025-03-03")
	assert.Contains(t, out, "Users: 3 (1 failed)")
	assert.Contains(t, out, "New recommendations: 2")
	assert.Less(t, strings.Index(out, "NVDA"), strings.Index(out, "MSFT"))
	assert.Contains(t, out, "conf 82.50")

	empty := FormatGenerationReport(date, 2, 0, nil)
	assert.Contains(t, empty, "New recommendations: 0")
	assert.NotContains(t, empty, "failed")
}

func TestFormatRecommendation(t *testing.T) {
	t.Parallel()

	out := FormatRecommendation(rec("AAPL", "alice", model.ActionBuy, "78"))
	assert.Contains(t, out, "<b>AAPL: Buy</b>")
	assert.Contains(t, out, "Target: 115.00 | Stop: 90.00")
	assert.Contains(t, out, "• Price above 20-day SMA")
	assert.Contains(t, out, "id id-AAPL")

	list := FormatRecommendationList("alice", []*model.Recommendation{rec("AAPL", "alice", model.ActionBuy, "78")})
	assert.Contains(t, list, "03-03 AAPL Buy (78) Active")
	assert.Equal(t, "No recommendations for bob", FormatRecommendationList("bob", nil))
}
