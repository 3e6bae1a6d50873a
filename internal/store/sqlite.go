package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockAdviser/internal/model"
)

// SQLite persists users, recommendations, history, snapshots and portfolios
// to a SQLite database.
type SQLite struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// NewSQLite opens (or creates) the SQLite database and runs migrations.
func NewSQLite(dbPath string, log *zap.SugaredLogger) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infow("sqlite store opened", "path", dbPath)
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			email        TEXT,
			display_name TEXT,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL,
			strategy     TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			action            TEXT NOT NULL,
			confidence        TEXT,
			target_price      TEXT,
			stop_loss         TEXT,
			reasoning         TEXT,
			key_factors       TEXT,
			risk_level        TEXT,
			time_horizon      TEXT,
			created_at        INTEGER NOT NULL,
			valid_until       INTEGER NOT NULL,
			status            TEXT NOT NULL,
			technical_score   TEXT,
			fundamental_score TEXT,
			sentiment_score   TEXT,
			overall_score     TEXT,
			actual_action     TEXT,
			actual_price      TEXT,
			executed_at       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rec_user_created ON recommendations(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_rec_status ON recommendations(status)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rec_one_active
			ON recommendations(user_id, symbol) WHERE status = 'Active'`,

		`CREATE TABLE IF NOT EXISTS recommendation_history (
			id                     TEXT PRIMARY KEY,
			recommendation_id      TEXT NOT NULL,
			user_id                TEXT NOT NULL,
			symbol                 TEXT NOT NULL,
			original_action        TEXT,
			original_price         TEXT,
			actual_action          TEXT,
			actual_price           TEXT,
			outcome                TEXT,
			profit_loss            TEXT,
			profit_loss_percentage TEXT,
			created_at             INTEGER NOT NULL,
			closed_at              INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user_closed ON recommendation_history(user_id, closed_at)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			symbol    TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			data      TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS portfolios (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT,
			holdings    TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolio_user ON portfolios(user_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS portfolio_transactions (
			id           TEXT PRIMARY KEY,
			portfolio_id TEXT NOT NULL,
			holding_id   TEXT NOT NULL,
			user_id      TEXT NOT NULL,
			type         TEXT NOT NULL,
			quantity     TEXT NOT NULL,
			price        TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			fees         TEXT NOT NULL,
			notes        TEXT,
			timestamp    INTEGER NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_portfolio ON portfolio_transactions(portfolio_id, timestamp)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

// PutUser inserts or replaces u, keeping the stored created_at on update.
func (s *SQLite) PutUser(ctx context.Context, u *model.User) error {
	strategy, err := json.Marshal(u.Strategy)
	if err != nil {
		return fmt.Errorf("encode strategy for user %s: %w", u.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO users
		(id, email, display_name, created_at, updated_at, strategy)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			updated_at = excluded.updated_at,
			strategy = excluded.strategy`,
		u.ID, u.Email, u.DisplayName, unixNano(u.CreatedAt), unixNano(u.UpdatedAt), string(strategy),
	)
	return err
}

// GetUser returns the user with id, or ErrNotFound.
func (s *SQLite) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, err
}

// ListUsers returns every user ordered by id.
func (s *SQLite) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ActiveRecommendations returns the user's Active recommendations still valid at now.
func (s *SQLite) ActiveRecommendations(ctx context.Context, userID string, now time.Time) ([]*model.Recommendation, error) {
	return s.queryRecommendations(ctx,
		`WHERE user_id = ? AND status = 'Active' AND valid_until >= ? ORDER BY created_at DESC, id`,
		userID, unixNano(now))
}

// CreateRecommendation inserts rec unless (user, symbol) is already covered.
// Active rows that lapsed before rec.CreatedAt are marked Expired first.
func (s *SQLite) CreateRecommendation(ctx context.Context, rec *model.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	created := unixNano(rec.CreatedAt)
	if _, err := tx.ExecContext(ctx, `UPDATE recommendations SET status = 'Expired'
		WHERE user_id = ? AND symbol = ? AND status = 'Active' AND valid_until < ?`,
		rec.UserID, rec.Symbol, created); err != nil {
		return fmt.Errorf("expire stale %s for user %s: %w", rec.Symbol, rec.UserID, err)
	}

	var active int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendations
		WHERE user_id = ? AND symbol = ? AND status = 'Active'`,
		rec.UserID, rec.Symbol).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("user %s symbol %s: %w", rec.UserID, rec.Symbol, ErrActiveExists)
	}

	args, err := recommendationArgs(rec)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO recommendations (`+recommendationColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...); err != nil {
		return fmt.Errorf("insert recommendation %s: %w", rec.ID, err)
	}
	return tx.Commit()
}

// GetRecommendation returns the user's recommendation with id, or ErrNotFound.
func (s *SQLite) GetRecommendation(ctx context.Context, userID, id string) (*model.Recommendation, error) {
	recs, err := s.queryRecommendations(ctx, `WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	return recs[0], nil
}

// CloseRecommendation moves the stored Active row to rec's terminal status
// and inserts h, if any, in the same transaction.
func (s *SQLite) CloseRecommendation(ctx context.Context, rec *model.Recommendation, h *model.RecommendationHistory) error {
	if err := checkClose(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var actualAction sql.NullString
	if rec.ActualAction != nil {
		actualAction = sql.NullString{String: string(*rec.ActualAction), Valid: true}
	}
	res, err := tx.ExecContext(ctx, `UPDATE recommendations
		SET status = ?, actual_action = ?, actual_price = ?, executed_at = ?
		WHERE id = ? AND user_id = ? AND status = 'Active'`,
		string(rec.Status), actualAction, nullDecimal(rec.ActualPrice), nullTime(rec.ExecutedAt),
		rec.ID, rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("close recommendation %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM recommendations WHERE id = ? AND user_id = ?`,
			rec.ID, rec.UserID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("recommendation %s: %w", rec.ID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("recommendation %s (status %s): %w", rec.ID, status, ErrNotActive)
	}

	if h != nil {
		if err := insertHistory(ctx, tx, h); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListActiveRecommendations returns every Active row regardless of user or expiry.
func (s *SQLite) ListActiveRecommendations(ctx context.Context) ([]*model.Recommendation, error) {
	return s.queryRecommendations(ctx, `WHERE status = 'Active' ORDER BY created_at DESC, id`)
}

// ListRecommendations returns the user's recommendations newest first; limit <= 0 uses the package default.
func (s *SQLite) ListRecommendations(ctx context.Context, userID string, limit int) ([]*model.Recommendation, error) {
	return s.queryRecommendations(ctx, `WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		userID, limitOr(limit, DefaultRecommendationLimit))
}

func insertHistory(ctx context.Context, tx *sql.Tx, h *model.RecommendationHistory) error {
	var actualAction sql.NullString
	if h.ActualAction != nil {
		actualAction = sql.NullString{String: string(*h.ActualAction), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO recommendation_history
		(id, recommendation_id, user_id, symbol, original_action, original_price,
		 actual_action, actual_price, outcome, profit_loss, profit_loss_percentage,
		 created_at, closed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		h.ID, h.RecommendationID, h.UserID, h.Symbol, string(h.OriginalAction), h.OriginalPrice,
		actualAction, nullDecimal(h.ActualPrice), string(h.Outcome),
		nullDecimal(h.ProfitLoss), nullDecimal(h.ProfitLossPercentage),
		unixNano(h.CreatedAt), unixNano(h.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("insert history for recommendation %s: %w", h.RecommendationID, err)
	}
	return nil
}

// ListHistory returns the user's outcome history newest first; limit <= 0 uses the package default.
func (s *SQLite) ListHistory(ctx context.Context, userID string, limit int) ([]*model.RecommendationHistory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, recommendation_id, user_id, symbol, original_action, original_price,
		actual_action, actual_price, outcome, profit_loss, profit_loss_percentage,
		created_at, closed_at
		FROM recommendation_history WHERE user_id = ? ORDER BY closed_at DESC LIMIT ?`,
		userID, limitOr(limit, DefaultHistoryLimit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RecommendationHistory
	for rows.Next() {
		var (
			h                      model.RecommendationHistory
			original, outcome      string
			actualAction           sql.NullString
			actualPrice, pl, plPct decimal.NullDecimal
			createdAt, closedAt    int64
		)
		if err := rows.Scan(&h.ID, &h.RecommendationID, &h.UserID, &h.Symbol, &original, &h.OriginalPrice,
			&actualAction, &actualPrice, &outcome, &pl, &plPct, &createdAt, &closedAt); err != nil {
			return nil, err
		}
		h.OriginalAction = model.Action(original)
		h.Outcome = model.Outcome(outcome)
		h.ActualAction = actionPtr(actualAction)
		h.ActualPrice = decimalPtr(actualPrice)
		h.ProfitLoss = decimalPtr(pl)
		h.ProfitLossPercentage = decimalPtr(plPct)
		h.CreatedAt = fromUnixNano(createdAt)
		h.ClosedAt = fromUnixNano(closedAt)
		out = append(out, &h)
	}
	return out, rows.Err()
}

// SaveSnapshot keeps snap if it is at least as new as the stored one.
func (s *SQLite) SaveSnapshot(ctx context.Context, snap *model.StockSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO snapshots (symbol, timestamp, data) VALUES (?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET timestamp = excluded.timestamp, data = excluded.data
		WHERE excluded.timestamp >= snapshots.timestamp`,
		snap.Symbol, unixNano(snap.Timestamp), string(data))
	return err
}

// GetSnapshot returns the last saved snapshot for symbol.
func (s *SQLite) GetSnapshot(ctx context.Context, symbol string) (*model.StockSnapshot, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE symbol = ?`, symbol).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap model.StockSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}
	return &snap, true, nil
}

func (s *SQLite) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}

const userColumns = `id, email, display_name, created_at, updated_at, strategy`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                    model.User
		createdAt, updatedAt int64
		strategy             string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &createdAt, &updatedAt, &strategy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(strategy), &u.Strategy); err != nil {
		return nil, fmt.Errorf("decode strategy for user %s: %w", u.ID, err)
	}
	u.CreatedAt = fromUnixNano(createdAt)
	u.UpdatedAt = fromUnixNano(updatedAt)
	return &u, nil
}

const recommendationColumns = `id, user_id, symbol, action, confidence, target_price, stop_loss,
	reasoning, key_factors, risk_level, time_horizon, created_at, valid_until, status,
	technical_score, fundamental_score, sentiment_score, overall_score,
	actual_action, actual_price, executed_at`

func recommendationArgs(r *model.Recommendation) ([]any, error) {
	factors := r.KeyFactors
	if factors == nil {
		factors = []string{}
	}
	kf, err := json.Marshal(factors)
	if err != nil {
		return nil, fmt.Errorf("encode key factors for %s: %w", r.ID, err)
	}
	var actualAction sql.NullString
	if r.ActualAction != nil {
		actualAction = sql.NullString{String: string(*r.ActualAction), Valid: true}
	}
	return []any{
		r.ID, r.UserID, r.Symbol, string(r.Action), r.Confidence, r.TargetPrice, r.StopLoss,
		r.Reasoning, string(kf), string(r.RiskLevel), string(r.TimeHorizon),
		unixNano(r.CreatedAt), unixNano(r.ValidUntil), string(r.Status),
		r.TechnicalScore, r.FundamentalScore, r.SentimentScore, r.OverallScore,
		actualAction, nullDecimal(r.ActualPrice), nullTime(r.ExecutedAt),
	}, nil
}

func (s *SQLite) queryRecommendations(ctx context.Context, where string, args ...any) ([]*model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Recommendation
	for rows.Next() {
		var (
			r                                 model.Recommendation
			action, risk, horizon, status, kf string
			createdAt, validUntil             int64
			actualAction                      sql.NullString
			actualPrice                       decimal.NullDecimal
			executedAt                        sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Symbol, &action, &r.Confidence, &r.TargetPrice, &r.StopLoss,
			&r.Reasoning, &kf, &risk, &horizon, &createdAt, &validUntil, &status,
			&r.TechnicalScore, &r.FundamentalScore, &r.SentimentScore, &r.OverallScore,
			&actualAction, &actualPrice, &executedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(kf), &r.KeyFactors); err != nil {
			return nil, fmt.Errorf("decode key factors for %s: %w", r.ID, err)
		}
		r.Action = model.Action(action)
		r.RiskLevel = model.RiskLevel(risk)
		r.TimeHorizon = model.TimeHorizon(horizon)
		r.Status = model.Status(status)
		r.CreatedAt = fromUnixNano(createdAt)
		r.ValidUntil = fromUnixNano(validUntil)
		r.ActualAction = actionPtr(actualAction)
		r.ActualPrice = decimalPtr(actualPrice)
		if executedAt.Valid {
			t := fromUnixNano(executedAt.Int64)
			r.ExecutedAt = &t
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func actionPtr(n sql.NullString) *model.Action {
	if !n.Valid {
		return nil
	}
	a := model.Action(n.String)
	return &a
}
