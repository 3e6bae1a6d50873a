package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"StockAdviser/internal/model"
)

// Memory is an in-process store. It backs tests and the mock provider mode.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	recs      map[string]*model.Recommendation
	history   []*model.RecommendationHistory
	snapshots map[string]*model.StockSnapshot

	portfolios   map[string]*model.Portfolio
	transactions []*model.Transaction
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*model.User),
		recs:       make(map[string]*model.Recommendation),
		snapshots:  make(map[string]*model.StockSnapshot),
		portfolios: make(map[string]*model.Portfolio),
	}
}

// PutUser inserts or replaces u.
func (m *Memory) PutUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = cloneUser(u)
	return nil
}

// GetUser returns a copy of the user, or ErrNotFound.
func (m *Memory) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return cloneUser(u), nil
}

// ListUsers returns every user ordered by id.
func (m *Memory) ListUsers(_ context.Context) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveRecommendations returns the user's Active recommendations still valid at now.
func (m *Memory) ActiveRecommendations(_ context.Context, userID string, now time.Time) ([]*model.Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Recommendation
	for _, r := range m.recs {
		if r.UserID == userID && activeAt(r, now) {
			out = append(out, cloneRecommendation(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// CreateRecommendation inserts rec unless (user, symbol) is already covered.
// Active rows that lapsed before rec.CreatedAt are marked Expired first.
func (m *Memory) CreateRecommendation(_ context.Context, rec *model.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.UserID != rec.UserID || r.Symbol != rec.Symbol || r.Status != model.StatusActive {
			continue
		}
		if activeAt(r, rec.CreatedAt) {
			return fmt.Errorf("user %s symbol %s: %w", rec.UserID, rec.Symbol, ErrActiveExists)
		}
		r.Status = model.StatusExpired
	}
	m.recs[rec.ID] = cloneRecommendation(rec)
	return nil
}

// GetRecommendation returns the user's recommendation with id, or ErrNotFound.
func (m *Memory) GetRecommendation(_ context.Context, userID, id string) (*model.Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[id]
	if !ok || r.UserID != userID {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	return cloneRecommendation(r), nil
}

// CloseRecommendation moves the stored Active row to rec's terminal status
// and appends h, if any, under the same lock.
func (m *Memory) CloseRecommendation(_ context.Context, rec *model.Recommendation, h *model.RecommendationHistory) error {
	if err := checkClose(rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.recs[rec.ID]
	if !ok || cur.UserID != rec.UserID {
		return fmt.Errorf("recommendation %s: %w", rec.ID, ErrNotFound)
	}
	if cur.Status.Terminal() {
		return fmt.Errorf("recommendation %s (status %s): %w", rec.ID, cur.Status, ErrNotActive)
	}
	if h != nil {
		for _, e := range m.history {
			if e.ID == h.ID {
				return fmt.Errorf("history %s already exists", h.ID)
			}
		}
	}

	cur.Status = rec.Status
	cur.ActualAction = rec.ActualAction
	cur.ActualPrice = rec.ActualPrice
	cur.ExecutedAt = rec.ExecutedAt
	if h != nil {
		c := *h
		m.history = append(m.history, &c)
	}
	return nil
}

// ListActiveRecommendations returns every Active row regardless of user or expiry.
func (m *Memory) ListActiveRecommendations(_ context.Context) ([]*model.Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Recommendation
	for _, r := range m.recs {
		if r.Status == model.StatusActive {
			out = append(out, cloneRecommendation(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListRecommendations returns the user's recommendations newest first; limit <= 0 uses the package default.
func (m *Memory) ListRecommendations(_ context.Context, userID string, limit int) ([]*model.Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Recommendation
	for _, r := range m.recs {
		if r.UserID == userID {
			out = append(out, cloneRecommendation(r))
		}
	}
	sortNewestFirst(out)
	if n := limitOr(limit, DefaultRecommendationLimit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// ListHistory returns the user's outcome history newest first; limit <= 0 uses the package default.
func (m *Memory) ListHistory(_ context.Context, userID string, limit int) ([]*model.RecommendationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.RecommendationHistory
	for _, h := range m.history {
		if h.UserID == userID {
			c := *h
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClosedAt.After(out[j].ClosedAt) })
	if n := limitOr(limit, DefaultHistoryLimit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// SaveSnapshot keeps snap if it is at least as new as the stored one.
func (m *Memory) SaveSnapshot(_ context.Context, snap *model.StockSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.snapshots[snap.Symbol]; ok && cur.Timestamp.After(snap.Timestamp) {
		return nil
	}
	c := *snap
	m.snapshots[snap.Symbol] = &c
	return nil
}

// GetSnapshot returns the last saved snapshot for symbol.
func (m *Memory) GetSnapshot(_ context.Context, symbol string) (*model.StockSnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[symbol]
	if !ok {
		return nil, false, nil
	}
	c := *s
	return &c, true, nil
}

// SavePortfolio inserts or replaces p.
func (m *Memory) SavePortfolio(_ context.Context, p *model.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.portfolios[p.ID]; ok && cur.UserID != p.UserID {
		return fmt.Errorf("portfolio %s: %w", p.ID, ErrNotFound)
	}
	m.portfolios[p.ID] = clonePortfolio(p)
	return nil
}

// GetPortfolio returns the user's portfolio with id, or ErrNotFound.
func (m *Memory) GetPortfolio(_ context.Context, userID, id string) (*model.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.portfolios[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("portfolio %s: %w", id, ErrNotFound)
	}
	return clonePortfolio(p), nil
}

// ListPortfolios returns the user's portfolios oldest first.
func (m *Memory) ListPortfolios(_ context.Context, userID string) ([]*model.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Portfolio
	for _, p := range m.portfolios {
		if p.UserID == userID {
			out = append(out, clonePortfolio(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeletePortfolio removes the portfolio and its transactions.
func (m *Memory) DeletePortfolio(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.portfolios[id]
	if !ok || p.UserID != userID {
		return fmt.Errorf("portfolio %s: %w", id, ErrNotFound)
	}
	delete(m.portfolios, id)
	kept := m.transactions[:0]
	for _, t := range m.transactions {
		if t.PortfolioID != id {
			kept = append(kept, t)
		}
	}
	m.transactions = kept
	return nil
}

// RecordTransaction stores tx and the portfolio it produced under one lock.
func (m *Memory) RecordTransaction(_ context.Context, p *model.Portfolio, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.portfolios[p.ID]
	if !ok || cur.UserID != p.UserID {
		return fmt.Errorf("portfolio %s: %w", p.ID, ErrNotFound)
	}
	for _, t := range m.transactions {
		if t.ID == tx.ID {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}
	}
	c := *tx
	m.transactions = append(m.transactions, &c)
	m.portfolios[p.ID] = clonePortfolio(p)
	return nil
}

// ListTransactions returns the portfolio's transactions newest first. An empty
// holdingID selects every holding.
func (m *Memory) ListTransactions(_ context.Context, userID, portfolioID, holdingID string) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.transactions {
		if t.UserID != userID || t.PortfolioID != portfolioID {
			continue
		}
		if holdingID != "" && t.HoldingID != holdingID {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) Close() error { return nil }

func sortNewestFirst(recs []*model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
