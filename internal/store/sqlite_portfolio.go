package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"StockAdviser/internal/model"
)

// SavePortfolio inserts or replaces p. A portfolio id owned by another user
// is reported as ErrNotFound.
func (s *SQLite) SavePortfolio(ctx context.Context, p *model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertPortfolio(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// GetPortfolio returns the user's portfolio with id, or ErrNotFound.
func (s *SQLite) GetPortfolio(ctx context.Context, userID, id string) (*model.Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %s: %w", id, ErrNotFound)
	}
	return p, err
}

// ListPortfolios returns the user's portfolios oldest first.
func (s *SQLite) ListPortfolios(ctx context.Context, userID string) ([]*model.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios
		WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePortfolio removes the portfolio and its transactions.
func (s *SQLite) DeletePortfolio(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete portfolio %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM portfolio_transactions WHERE portfolio_id = ?`, id); err != nil {
		return fmt.Errorf("delete transactions of portfolio %s: %w", id, err)
	}
	return tx.Commit()
}

// RecordTransaction inserts t and writes the portfolio it produced in one
// transaction.
func (s *SQLite) RecordTransaction(ctx context.Context, p *model.Portfolio, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM portfolios WHERE id = ?`, p.ID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != p.UserID) {
		return fmt.Errorf("portfolio %s: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO portfolio_transactions
		(id, portfolio_id, holding_id, user_id, type, quantity, price, total_amount, fees, notes, timestamp, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.PortfolioID, t.HoldingID, t.UserID, string(t.Type),
		t.Quantity, t.Price, t.TotalAmount, t.Fees, t.Notes,
		unixNano(t.Timestamp), unixNano(t.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	if err := upsertPortfolio(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTransactions returns the portfolio's transactions newest first. An empty
// holdingID selects every holding.
func (s *SQLite) ListTransactions(ctx context.Context, userID, portfolioID, holdingID string) ([]*model.Transaction, error) {
	query := `SELECT id, portfolio_id, holding_id, user_id, type, quantity, price, total_amount, fees, notes, timestamp, created_at
		FROM portfolio_transactions WHERE user_id = ? AND portfolio_id = ?`
	args := []any{userID, portfolioID}
	if holdingID != "" {
		query += ` AND holding_id = ?`
		args = append(args, holdingID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY timestamp DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		var (
			t                    model.Transaction
			typ                  string
			notes                sql.NullString
			timestamp, createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.HoldingID, &t.UserID, &typ,
			&t.Quantity, &t.Price, &t.TotalAmount, &t.Fees, &notes, &timestamp, &createdAt); err != nil {
			return nil, err
		}
		t.Type = model.TransactionType(typ)
		t.Notes = notes.String
		t.Timestamp = fromUnixNano(timestamp)
		t.CreatedAt = fromUnixNano(createdAt)
		out = append(out, &t)
	}
	return out, rows.Err()
}

const portfolioColumns = `id, user_id, name, description, holdings, created_at, updated_at`

func upsertPortfolio(ctx context.Context, tx *sql.Tx, p *model.Portfolio) error {
	holdings := p.Holdings
	if holdings == nil {
		holdings = []model.Holding{}
	}
	data, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("encode holdings for portfolio %s: %w", p.ID, err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO portfolios (`+portfolioColumns+`)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			holdings = excluded.holdings,
			updated_at = excluded.updated_at
		WHERE portfolios.user_id = excluded.user_id`,
		p.ID, p.UserID, p.Name, p.Description, string(data), unixNano(p.CreatedAt), unixNano(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save portfolio %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func scanPortfolio(row rowScanner) (*model.Portfolio, error) {
	var (
		p                    model.Portfolio
		description          sql.NullString
		holdings             string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &description, &holdings, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(holdings), &p.Holdings); err != nil {
		return nil, fmt.Errorf("decode holdings for portfolio %s: %w", p.ID, err)
	}
	if p.Holdings == nil {
		p.Holdings = []model.Holding{}
	}
	p.Description = description.String
	p.CreatedAt = fromUnixNano(createdAt)
	p.UpdatedAt = fromUnixNano(updatedAt)
	return &p, nil
}
