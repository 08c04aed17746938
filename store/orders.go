package store

import (
	"context"
	"database/sql"
	"time"
)

// Order sides, types and terminal statuses.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderMarket = "market"
	OrderLimit  = "limit"
	OrderStop   = "stop"

	StatusFilled   = "filled"
	StatusRejected = "rejected"
)

type Order struct {
	OrderID    string     `json:"order_id"`
	AccountID  string     `json:"account_id"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Type       string     `json:"type"`
	Quantity   float64    `json:"quantity"`
	LimitPrice float64    `json:"limit_price,omitempty"`
	StopPrice  float64    `json:"stop_price,omitempty"`
	FillPrice  float64    `json:"fill_price,omitempty"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	PlacedAt   time.Time  `json:"placed_at"`
	FilledAt   *time.Time `json:"filled_at,omitempty"`
}

// InsertOrder records an order row (filled or rejected).
func (s *Store) InsertOrder(ctx context.Context, o Order) error {
	_, err := s.db.ExecContext(ctx, insertOrderSQL, insertOrderArgs(o)...)
	return err
}

const insertOrderSQL = `
	INSERT INTO orders
	(order_id, account_id, symbol, side, order_type, quantity, limit_price, stop_price, fill_price, status, reason, placed_at, filled_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertOrderArgs(o Order) []any {
	var filled sql.NullTime
	if o.FilledAt != nil {
		filled = sql.NullTime{Time: *o.FilledAt, Valid: true}
	}
	return []any{
		o.OrderID, o.AccountID, o.Symbol, o.Side, o.Type, o.Quantity,
		o.LimitPrice, o.StopPrice, o.FillPrice, o.Status, o.Reason, o.PlacedAt, filled,
	}
}

// GetOrder returns one order.
func (s *Store) GetOrder(ctx context.Context, orderID string) (Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, account_id, symbol, side, order_type, quantity, limit_price, stop_price, fill_price, status, reason, placed_at, filled_at
		FROM orders WHERE order_id = ?`, orderID)

	o, err := scanOrder(row.Scan)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListOrders returns an account's orders newest first, optionally
// filtered by status. limit <= 0 means no limit.
func (s *Store) ListOrders(ctx context.Context, accountID, status string, limit int) ([]Order, error) {
	q := `
		SELECT order_id, account_id, symbol, side, order_type, quantity, limit_price, stop_price, fill_price, status, reason, placed_at, filled_at
		FROM orders WHERE account_id = ?`
	args := []any{accountID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY placed_at DESC, order_id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(scan func(...any) error) (Order, error) {
	var o Order
	var filled sql.NullTime
	err := scan(
		&o.OrderID, &o.AccountID, &o.Symbol, &o.Side, &o.Type, &o.Quantity,
		&o.LimitPrice, &o.StopPrice, &o.FillPrice, &o.Status, &o.Reason, &o.PlacedAt, &filled,
	)
	if err != nil {
		return Order{}, err
	}
	if filled.Valid {
		t := filled.Time
		o.FilledAt = &t
	}
	return o, nil
}
