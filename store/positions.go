package store

import (
	"context"
	"database/sql"
	"time"
)

type Position struct {
	PositionID   string    `json:"position_id"`
	AccountID    string    `json:"account_id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	AvgPrice     float64   `json:"avg_price"`
	MarkPrice    float64   `json:"mark_price"`
	UnrealizedPL float64   `json:"unrealized_pl"`
	Delta        float64   `json:"delta"`
	Gamma        float64   `json:"gamma"`
	Theta        float64   `json:"theta"`
	Vega         float64   `json:"vega"`
	OpenedAt     time.Time `json:"opened_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const positionCols = `position_id, account_id, symbol, quantity, avg_price, mark_price, unrealized_pl, delta, gamma, theta, vega, opened_at, updated_at`

// GetPosition returns the position an account holds in a symbol.
func (s *Store) GetPosition(ctx context.Context, accountID, symbol string) (Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+positionCols+` FROM positions
		WHERE account_id = ? AND symbol = ?`, accountID, symbol)

	p, err := scanPosition(row.Scan)
	if err == sql.ErrNoRows {
		return Position{}, ErrNotFound
	}
	return p, err
}

// ListPositions returns an account's open positions ordered by symbol.
func (s *Store) ListPositions(ctx context.Context, accountID string) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+positionCols+` FROM positions
		WHERE account_id = ? ORDER BY symbol ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPosition(scan func(...any) error) (Position, error) {
	var p Position
	err := scan(
		&p.PositionID, &p.AccountID, &p.Symbol, &p.Quantity, &p.AvgPrice,
		&p.MarkPrice, &p.UnrealizedPL, &p.Delta, &p.Gamma, &p.Theta, &p.Vega,
		&p.OpenedAt, &p.UpdatedAt,
	)
	return p, err
}

func upsertPosition(ctx context.Context, tx *sql.Tx, p Position) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO positions (`+positionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			mark_price = excluded.mark_price,
			unrealized_pl = excluded.unrealized_pl,
			delta = excluded.delta,
			gamma = excluded.gamma,
			theta = excluded.theta,
			vega = excluded.vega,
			updated_at = excluded.updated_at`,
		p.PositionID, p.AccountID, p.Symbol, p.Quantity, p.AvgPrice,
		p.MarkPrice, p.UnrealizedPL, p.Delta, p.Gamma, p.Theta, p.Vega,
		p.OpenedAt, p.UpdatedAt,
	)
	return err
}
