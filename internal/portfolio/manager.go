// Package portfolio tracks user portfolios, their holdings and the
// transactions applied to them.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"StockAdviser/internal/model"
)

var (
	// ErrPortfolioFull is returned when a new symbol would exceed the user's
	// MaxPortfolioSize.
	ErrPortfolioFull = errors.New("portfolio is at its maximum size")
	// ErrInvalidInput is returned for malformed holdings and transactions.
	ErrInvalidInput = errors.New("invalid input")
	// ErrHoldingNotFound is returned when a holding id is not in the portfolio.
	ErrHoldingNotFound = errors.New("holding not found")
)

// costPlaces is the precision kept for average cost prices.
const costPlaces = 4

// Store is the persistence the manager needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	SavePortfolio(ctx context.Context, p *model.Portfolio) error
	GetPortfolio(ctx context.Context, userID, id string) (*model.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]*model.Portfolio, error)
	DeletePortfolio(ctx context.Context, userID, id string) error
	RecordTransaction(ctx context.Context, p *model.Portfolio, tx *model.Transaction) error
	ListTransactions(ctx context.Context, userID, portfolioID, holdingID string) ([]*model.Transaction, error)
}

// PriceSource supplies the latest snapshot for a symbol.
type PriceSource interface {
	Snapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool, error)
}

// HoldingInput describes a holding to add or overwrite.
type HoldingInput struct {
	Symbol           string
	AssetType        model.AssetType
	Quantity         decimal.Decimal
	AverageCostPrice decimal.Decimal
	CurrentPrice     decimal.Decimal
}

// TransactionInput describes a transaction to apply. A zero Timestamp means now.
type TransactionInput struct {
	Type      model.TransactionType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Fees      decimal.Decimal
	Notes     string
	Timestamp time.Time
}

// Manager serializes read-modify-write cycles on portfolios.
type Manager struct {
	mu     sync.Mutex
	store  Store
	prices PriceSource
	log    *zap.SugaredLogger
	now    func() time.Time
	newID  func() string
}

// NewManager creates a Manager. prices may be nil, which disables Revalue.
func NewManager(store Store, prices PriceSource, log *zap.SugaredLogger) *Manager {
	return &Manager{
		store:  store,
		prices: prices,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Create adds an empty portfolio for an existing user.
func (m *Manager) Create(ctx context.Context, userID, name, description string) (*model.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("portfolio name is required: %w", ErrInvalidInput)
	}
	if _, err := m.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	now := m.now()
	p := &model.Portfolio{
		ID:          m.newID(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Holdings:    []model.Holding{},
	}
	if err := m.store.SavePortfolio(ctx, p); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	m.log.Infow("portfolio created", "portfolio_id", p.ID, "user_id", userID)
	return p, nil
}

// Get returns the user's portfolio.
func (m *Manager) Get(ctx context.Context, userID, id string) (*model.Portfolio, error) {
	return m.store.GetPortfolio(ctx, userID, id)
}

// List returns the user's portfolios, oldest first.
func (m *Manager) List(ctx context.Context, userID string) ([]*model.Portfolio, error) {
	return m.store.ListPortfolios(ctx, userID)
}

// Rename changes the name and description. An empty name keeps the current one.
func (m *Manager) Rename(ctx context.Context, userID, id, name, description string) (*model.Portfolio, error) {
	return m.update(ctx, userID, id, func(_ *model.User, p *model.Portfolio) error {
		if name = strings.TrimSpace(name); name != "" {
			p.Name = name
		}
		p.Description = description
		return nil
	})
}

// Delete removes a portfolio together with its transactions.
func (m *Manager) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.DeletePortfolio(ctx, userID, id); err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	m.log.Infow("portfolio deleted", "portfolio_id", id, "user_id", userID)
	return nil
}

// AddHolding adds in to the portfolio. A symbol already held is merged into
// the existing holding at the quantity-weighted average cost.
func (m *Manager) AddHolding(ctx context.Context, userID, portfolioID string, in HoldingInput) (*model.Portfolio, error) {
	if err := validateHolding(&in); err != nil {
		return nil, err
	}
	return m.update(ctx, userID, portfolioID, func(u *model.User, p *model.Portfolio) error {
		now := m.now()
		if i := p.HoldingBySymbol(in.Symbol); i >= 0 {
			h := &p.Holdings[i]
			qty := h.Quantity.Add(in.Quantity)
			h.AverageCostPrice = h.TotalCost().Add(in.Quantity.Mul(in.AverageCostPrice)).
				Div(qty).RoundBank(costPlaces)
			h.Quantity = qty
			if !in.CurrentPrice.IsZero() {
				h.CurrentPrice = in.CurrentPrice
			}
			h.LastUpdated = now
			return nil
		}

		if limit := u.Strategy.MaxPortfolioSize; limit > 0 && len(p.Holdings) >= limit {
			return fmt.Errorf("add %s to portfolio %s (limit %d): %w", in.Symbol, p.ID, limit, ErrPortfolioFull)
		}
		current := in.CurrentPrice
		if current.IsZero() {
			current = in.AverageCostPrice
		}
		p.Holdings = append(p.Holdings, model.Holding{
			ID:               m.newID(),
			Symbol:           in.Symbol,
			AssetType:        in.AssetType,
			Quantity:         in.Quantity,
			AverageCostPrice: in.AverageCostPrice,
			CurrentPrice:     current,
			LastUpdated:      now,
		})
		return nil
	})
}

// UpdateHolding overwrites the holding's values with in.
func (m *Manager) UpdateHolding(ctx context.Context, userID, portfolioID, holdingID string, in HoldingInput) (*model.Portfolio, error) {
	if err := validateHolding(&in); err != nil {
		return nil, err
	}
	return m.update(ctx, userID, portfolioID, func(_ *model.User, p *model.Portfolio) error {
		i := p.HoldingIndex(holdingID)
		if i < 0 {
			return fmt.Errorf("holding %s: %w", holdingID, ErrHoldingNotFound)
		}
		if j := p.HoldingBySymbol(in.Symbol); j >= 0 && j != i {
			return fmt.Errorf("symbol %s is already held as %s: %w", in.Symbol, p.Holdings[j].ID, ErrInvalidInput)
		}
		h := &p.Holdings[i]
		h.Symbol = in.Symbol
		h.AssetType = in.AssetType
		h.Quantity = in.Quantity
		h.AverageCostPrice = in.AverageCostPrice
		h.CurrentPrice = in.CurrentPrice
		h.LastUpdated = m.now()
		return nil
	})
}

// RemoveHolding drops the holding. Its transactions are kept.
func (m *Manager) RemoveHolding(ctx context.Context, userID, portfolioID, holdingID string) (*model.Portfolio, error) {
	return m.update(ctx, userID, portfolioID, func(_ *model.User, p *model.Portfolio) error {
		i := p.HoldingIndex(holdingID)
		if i < 0 {
			return fmt.Errorf("holding %s: %w", holdingID, ErrHoldingNotFound)
		}
		p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
		return nil
	})
}

// RecordTransaction applies in to the holding and stores both together.
//
//	Buy:      quantity grows, average cost absorbs quantity*price
//	Sell:     quantity shrinks; selling more than is held is rejected
//	Dividend: holding unchanged
//	Split:    quantity is the ratio; quantity multiplied, prices divided
//
// Buy and Sell also mark the holding at the transaction price.
func (m *Manager) RecordTransaction(ctx context.Context, userID, portfolioID, holdingID string, in TransactionInput) (*model.Transaction, *model.Portfolio, error) {
	if !in.Quantity.IsPositive() {
		return nil, nil, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if in.Price.IsNegative() || in.Fees.IsNegative() {
		return nil, nil, fmt.Errorf("price and fees must not be negative: %w", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("record transaction: %w", err)
	}
	i := p.HoldingIndex(holdingID)
	if i < 0 {
		return nil, nil, fmt.Errorf("holding %s: %w", holdingID, ErrHoldingNotFound)
	}

	now := m.now()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	tx := &model.Transaction{
		ID:          m.newID(),
		PortfolioID: portfolioID,
		HoldingID:   holdingID,
		UserID:      userID,
		Type:        in.Type,
		Quantity:    in.Quantity,
		Price:       in.Price,
		TotalAmount: in.Quantity.Mul(in.Price),
		Fees:        in.Fees,
		Notes:       in.Notes,
		Timestamp:   ts,
		CreatedAt:   now,
	}

	h := &p.Holdings[i]
	switch in.Type {
	case model.TransactionBuy:
		qty := h.Quantity.Add(tx.Quantity)
		h.AverageCostPrice = h.TotalCost().Add(tx.TotalAmount).Div(qty).RoundBank(costPlaces)
		h.Quantity = qty
		h.CurrentPrice = tx.Price
	case model.TransactionSell:
		if tx.Quantity.GreaterThan(h.Quantity) {
			return nil, nil, fmt.Errorf("sell %s of %s holding %s: %w", tx.Quantity, h.Quantity, h.Symbol, ErrInvalidInput)
		}
		h.Quantity = h.Quantity.Sub(tx.Quantity)
		h.CurrentPrice = tx.Price
	case model.TransactionDividend:
	case model.TransactionSplit:
		h.Quantity = h.Quantity.Mul(tx.Quantity)
		h.AverageCostPrice = h.AverageCostPrice.Div(tx.Quantity).RoundBank(costPlaces)
		h.CurrentPrice = h.CurrentPrice.Div(tx.Quantity).RoundBank(costPlaces)
	default:
		return nil, nil, fmt.Errorf("transaction type %q: %w", in.Type, ErrInvalidInput)
	}
	h.LastUpdated = now
	p.UpdatedAt = now

	if err := m.store.RecordTransaction(ctx, p, tx); err != nil {
		return nil, nil, fmt.Errorf("record transaction: %w", err)
	}
	m.log.Infow("transaction recorded",
		"portfolio_id", portfolioID, "holding_id", holdingID, "symbol", h.Symbol,
		"type", tx.Type, "quantity", tx.Quantity.String(), "price", tx.Price.String())
	return tx, p, nil
}

// Transactions lists the portfolio's transactions newest first, optionally
// restricted to one holding.
func (m *Manager) Transactions(ctx context.Context, userID, portfolioID, holdingID string) ([]*model.Transaction, error) {
	if _, err := m.store.GetPortfolio(ctx, userID, portfolioID); err != nil {
		return nil, err
	}
	return m.store.ListTransactions(ctx, userID, portfolioID, holdingID)
}

// Revalue marks every holding at its latest snapshot price and returns how
// many were updated. Symbols without a snapshot keep their price.
func (m *Manager) Revalue(ctx context.Context, userID, portfolioID string) (*model.Portfolio, int, error) {
	if m.prices == nil {
		return nil, 0, errors.New("revalue: no price source configured")
	}
	updated := 0
	p, err := m.update(ctx, userID, portfolioID, func(_ *model.User, p *model.Portfolio) error {
		now := m.now()
		for i := range p.Holdings {
			h := &p.Holdings[i]
			snap, ok, err := m.prices.Snapshot(ctx, h.Symbol)
			if err != nil {
				m.log.Warnw("price lookup failed", "symbol", h.Symbol, "portfolio_id", p.ID, "error", err)
				continue
			}
			if !ok || snap == nil || !snap.Price.IsPositive() {
				continue
			}
			h.CurrentPrice = snap.Price
			h.LastUpdated = now
			updated++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return p, updated, nil
}

// update loads the portfolio and its owner, applies fn and saves the result.
func (m *Manager) update(ctx context.Context, userID, id string, fn func(u *model.User, p *model.Portfolio) error) (*model.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := m.store.GetPortfolio(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(u, p); err != nil {
		return nil, err
	}
	p.UpdatedAt = m.now()
	if err := m.store.SavePortfolio(ctx, p); err != nil {
		return nil, fmt.Errorf("save portfolio %s: %w", id, err)
	}
	return p, nil
}

func validateHolding(in *HoldingInput) error {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	if in.Symbol == "" {
		return fmt.Errorf("symbol is required: %w", ErrInvalidInput)
	}
	if in.AssetType == "" {
		in.AssetType = model.AssetStock
	}
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if in.AverageCostPrice.IsNegative() || in.CurrentPrice.IsNegative() {
		return fmt.Errorf("prices must not be negative: %w", ErrInvalidInput)
	}
	return nil
}
