package store

import (
	"context"
	"database/sql"
	"time"
)

// Account is a paper-trading account: simulated cash, synthetic fills.
type Account struct {
	AccountID  string    `json:"account_id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Cash       float64   `json:"cash"`
	Equity     float64   `json:"equity"`
	RealizedPL float64   `json:"realized_pl"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateAccount inserts a paper account.
func (s *Store) CreateAccount(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, user_id, name, cash, equity, realized_pl, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.AccountID, a.UserID, a.Name, a.Cash, a.Equity, a.RealizedPL, a.CreatedAt,
	)
	return err
}

// GetAccount returns one account by ID.
func (s *Store) GetAccount(ctx context.Context, accountID string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, user_id, name, cash, equity, realized_pl, created_at
		FROM accounts WHERE account_id = ?`, accountID,
	).Scan(&a.AccountID, &a.UserID, &a.Name, &a.Cash, &a.Equity, &a.RealizedPL, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// ListAccounts returns a user's accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, user_id, name, cash, equity, realized_pl, created_at
		FROM accounts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.AccountID, &a.UserID, &a.Name, &a.Cash, &a.Equity, &a.RealizedPL, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAccounts returns how many accounts a user holds.
func (s *Store) CountAccounts(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
