package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// BacktestRun is a stored record of a strategy's historical
// performance. These rows are populated by an external process; the
// service only persists and retrieves them.
type BacktestRun struct {
	RunID          string          `json:"run_id"`
	StrategyID     string          `json:"strategy_id,omitempty"`
	UserID         string          `json:"user_id"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	TotalTrades    int             `json:"total_trades"`
	WinRate        float64         `json:"win_rate"`
	MaxDrawdown    float64         `json:"max_drawdown"`
	Sharpe         float64         `json:"sharpe"`
	EquityCurve    json.RawMessage `json:"equity_curve"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateBacktest inserts a run record.
func (s *Store) CreateBacktest(ctx context.Context, bt BacktestRun) error {
	var strategyID sql.NullString
	if bt.StrategyID != "" {
		strategyID = sql.NullString{String: bt.StrategyID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, strategy_id, user_id, started_at, finished_at, initial_balance, final_balance, total_trades, win_rate, max_drawdown, sharpe, equity_curve, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bt.RunID, strategyID, bt.UserID, bt.StartedAt, bt.FinishedAt,
		bt.InitialBalance, bt.FinalBalance, bt.TotalTrades, bt.WinRate,
		bt.MaxDrawdown, bt.Sharpe, string(bt.EquityCurve), bt.CreatedAt,
	)
	return err
}

// GetBacktest returns one run.
func (s *Store) GetBacktest(ctx context.Context, runID string) (BacktestRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, strategy_id, user_id, started_at, finished_at, initial_balance, final_balance, total_trades, win_rate, max_drawdown, sharpe, equity_curve, created_at
		FROM backtest_runs WHERE run_id = ?`, runID)

	bt, err := scanBacktest(row.Scan)
	if err == sql.ErrNoRows {
		return BacktestRun{}, ErrNotFound
	}
	return bt, err
}

// ListBacktests returns a user's runs, newest first.
func (s *Store) ListBacktests(ctx context.Context, userID string) ([]BacktestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, strategy_id, user_id, started_at, finished_at, initial_balance, final_balance, total_trades, win_rate, max_drawdown, sharpe, equity_curve, created_at
		FROM backtest_runs WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		bt, err := scanBacktest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

// DeleteBacktest removes a run.
func (s *Store) DeleteBacktest(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM backtest_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	return requireRow(res, runID)
}

func scanBacktest(scan func(...any) error) (BacktestRun, error) {
	var bt BacktestRun
	var strategyID sql.NullString
	var curve string
	err := scan(
		&bt.RunID, &strategyID, &bt.UserID, &bt.StartedAt, &bt.FinishedAt,
		&bt.InitialBalance, &bt.FinalBalance, &bt.TotalTrades, &bt.WinRate,
		&bt.MaxDrawdown, &bt.Sharpe, &curve, &bt.CreatedAt,
	)
	if err != nil {
		return BacktestRun{}, err
	}
	bt.StrategyID = strategyID.String
	bt.EquityCurve = json.RawMessage(curve)
	return bt, nil
}
