package store

import (
	"errors"
	"fmt"
	"time"

	"StockAdviser/internal/model"
)

var (
	// ErrNotFound is returned when a user, recommendation or snapshot does not exist.
	ErrNotFound = errors.New("not found")
	// ErrActiveExists is returned by CreateRecommendation when the user already
	// holds an active, unexpired recommendation for the symbol.
	ErrActiveExists = errors.New("active recommendation already exists")
	// ErrNotActive is returned by CloseRecommendation when the stored row has
	// already left the Active state.
	ErrNotActive = errors.New("recommendation is not active")
)

// Default page sizes for the listing operations.
const (
	DefaultRecommendationLimit = 50
	DefaultHistoryLimit        = 100
)

// activeAt reports whether rec still counts as active at now.
func activeAt(rec *model.Recommendation, now time.Time) bool {
	return rec.Status == model.StatusActive && !now.After(rec.ValidUntil)
}

func checkClose(rec *model.Recommendation) error {
	if !rec.Status.Terminal() {
		return fmt.Errorf("close recommendation %s: target status %s is not terminal", rec.ID, rec.Status)
	}
	return nil
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func cloneRecommendation(r *model.Recommendation) *model.Recommendation {
	c := *r
	c.KeyFactors = append([]string(nil), r.KeyFactors...)
	if c.KeyFactors == nil {
		c.KeyFactors = []string{}
	}
	return &c
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Strategy.PreferredSectors = append([]string(nil), u.Strategy.PreferredSectors...)
	return &c
}

func clonePortfolio(p *model.Portfolio) *model.Portfolio {
	c := *p
	c.Holdings = append([]model.Holding(nil), p.Holdings...)
	if c.Holdings == nil {
		c.Holdings = []model.Holding{}
	}
	return &c
}
