package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"StockAdviser/internal/model"
)

var actionIcon = map[model.Action]string{
	model.ActionStrongBuy:  "🟢🟢",
	model.ActionBuy:        "🟢",
	model.ActionHold:       "⚪",
	model.ActionSell:       "🔴",
	model.ActionStrongSell: "🔴🔴",
}

// FormatGenerationReport summarises one scheduled generation run.
func FormatGenerationReport(date time.Time, users, failed int, recs []*model.Recommendation) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>StockAdviser daily run</b> | %s\n\n", date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Users: %d", users))
	if failed > 0 {
		b.WriteString(fmt.Sprintf(" (%d failed)", failed))
	}
	b.WriteString(fmt.Sprintf("\nNew recommendations: %d\n", len(recs)))
	if len(recs) == 0 {
		return b.String()
	}

	// Strongest first; one line per user and symbol.
	sorted := append([]*model.Recommendation(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence.GreaterThan(sorted[j].Confidence)
	})
	b.WriteString("\n")
	for _, r := range sorted {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s %s | conf %s | target %s | stop %s\n",
			actionIcon[r.Action], html.EscapeString(r.Symbol), r.Action, html.EscapeString(r.UserID),
			r.Confidence.StringFixed(2), r.TargetPrice.StringFixed(2), r.StopLoss.StringFixed(2)))
	}
	return b.String()
}

// FormatRecommendation renders a single recommendation in detail.
func FormatRecommendation(r *model.Recommendation) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s: %s</b>\n\n", actionIcon[r.Action], html.EscapeString(r.Symbol), r.Action))
	b.WriteString(fmt.Sprintf("Confidence: %s\n", r.Confidence.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Scores: technical %s | fundamental %s | sentiment %s\n",
		r.TechnicalScore.StringFixed(0), r.FundamentalScore.StringFixed(0), r.SentimentScore.StringFixed(0)))
	b.WriteString(fmt.Sprintf("Target: %s | Stop: %s\n", r.TargetPrice.StringFixed(2), r.StopLoss.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Risk: %s | Horizon: %s\n", r.RiskLevel, r.TimeHorizon))
	if r.Reasoning != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", html.EscapeString(r.Reasoning)))
	}
	if len(r.KeyFactors) > 0 {
		b.WriteString("\n")
		for _, f := range r.KeyFactors {
			b.WriteString("• " + html.EscapeString(f) + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("\nValid until %s | id %s", r.ValidUntil.Format("2006-01-02 15:04"), r.ID))
	return b.String()
}

// FormatRecommendationList renders one line per recommendation.
func FormatRecommendationList(userID string, recs []*model.Recommendation) string {
	if len(recs) == 0 {
		return fmt.Sprintf("No recommendations for %s", html.EscapeString(userID))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Recommendations for %s</b>\n\n", html.EscapeString(userID)))
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("%s %s %s (%s) %s\n",
			r.CreatedAt.Format("01-02"), html.EscapeString(r.Symbol), r.Action, r.Confidence.StringFixed(0), r.Status))
	}
	return b.String()
}
