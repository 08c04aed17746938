package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Strategy is user bookkeeping for a multi-leg options idea. Legs are
// an opaque JSON array edited by the dashboard; this layer never
// interprets them.
type Strategy struct {
	StrategyID string          `json:"strategy_id"`
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Legs       json.RawMessage `json:"legs"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CreateStrategy inserts a strategy row.
func (s *Store) CreateStrategy(ctx context.Context, st Strategy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies (strategy_id, user_id, name, kind, legs, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.StrategyID, st.UserID, st.Name, st.Kind, string(st.Legs), st.Notes, st.CreatedAt, st.UpdatedAt,
	)
	return err
}

// GetStrategy returns one strategy.
func (s *Store) GetStrategy(ctx context.Context, strategyID string) (Strategy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT strategy_id, user_id, name, kind, legs, notes, created_at, updated_at
		FROM strategies WHERE strategy_id = ?`, strategyID)

	st, err := scanStrategy(row.Scan)
	if err == sql.ErrNoRows {
		return Strategy{}, ErrNotFound
	}
	return st, err
}

// ListStrategies returns a user's strategies, newest first.
func (s *Store) ListStrategies(ctx context.Context, userID string) ([]Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy_id, user_id, name, kind, legs, notes, created_at, updated_at
		FROM strategies WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Strategy
	for rows.Next() {
		st, err := scanStrategy(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateStrategy rewrites the mutable columns.
func (s *Store) UpdateStrategy(ctx context.Context, st Strategy) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET name = ?, kind = ?, legs = ?, notes = ?, updated_at = ?
		WHERE strategy_id = ?`,
		st.Name, st.Kind, string(st.Legs), st.Notes, st.UpdatedAt, st.StrategyID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, st.StrategyID)
}

// DeleteStrategy removes a strategy. Backtest rows keep their results
// with strategy_id nulled by the FK.
func (s *Store) DeleteStrategy(ctx context.Context, strategyID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE strategy_id = ?`, strategyID)
	if err != nil {
		return err
	}
	return requireRow(res, strategyID)
}

func scanStrategy(scan func(...any) error) (Strategy, error) {
	var st Strategy
	var legs string
	err := scan(&st.StrategyID, &st.UserID, &st.Name, &st.Kind, &legs, &st.Notes, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return Strategy{}, err
	}
	st.Legs = json.RawMessage(legs)
	return st, nil
}
