package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Roles a user row can carry.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrInviteInvalid   = errors.New("invite code not found")
	ErrInviteExpired   = errors.New("invite code expired")
	ErrInviteExhausted = errors.New("invite code has no uses left")
)

type User struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterUser consumes one use of the invite code, inserts the user and
// their default paper account, all in one transaction. The invite checks
// happen inside the transaction so two concurrent registrations cannot
// both take the last use.
func (s *Store) RegisterUser(ctx context.Context, u User, inviteCode string, acct Account) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var uses int
		var expires time.Time
		err := tx.QueryRowContext(ctx, `
			SELECT uses_remaining, expires_at FROM invite_codes WHERE code = ?`,
			inviteCode,
		).Scan(&uses, &expires)
		if err == sql.ErrNoRows {
			return ErrInviteInvalid
		}
		if err != nil {
			return err
		}
		if time.Now().After(expires) {
			return ErrInviteExpired
		}
		if uses <= 0 {
			return ErrInviteExhausted
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE invite_codes SET uses_remaining = uses_remaining - 1 WHERE code = ?`,
			inviteCode,
		); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (user_id, email, password_hash, display_name, role, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.UserID, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.Active, u.CreatedAt,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
				return ErrEmailTaken
			}
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (account_id, user_id, name, cash, equity, realized_pl, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			acct.AccountID, acct.UserID, acct.Name, acct.Cash, acct.Equity, acct.RealizedPL, acct.CreatedAt,
		)
		return err
	})
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT user_id, email, password_hash, display_name, role, active, created_at
		FROM users WHERE user_id = ?`, userID))
}

// GetUserByEmail returns a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT user_id, email, password_hash, display_name, role, active, created_at
		FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// UserSummary is a user row plus bookkeeping counts, for the admin list.
type UserSummary struct {
	User
	Accounts int `json:"accounts"`
	Orders   int `json:"orders"`
}

// ListUsers returns every user with account and order counts.
func (s *Store) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.email, u.password_hash, u.display_name, u.role, u.active, u.created_at,
			(SELECT COUNT(*) FROM accounts a WHERE a.user_id = u.user_id),
			(SELECT COUNT(*) FROM orders o JOIN accounts a ON o.account_id = a.account_id WHERE a.user_id = u.user_id)
		FROM users u
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(
			&u.UserID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt,
			&u.Accounts, &u.Orders,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetUserActive flips the active flag.
func (s *Store) SetUserActive(ctx context.Context, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = ? WHERE user_id = ?`, active, userID)
	if err != nil {
		return err
	}
	return requireRow(res, userID)
}

// SetUserRole changes a user's role.
func (s *Store) SetUserRole(ctx context.Context, userID, role string) error {
	if role != RoleUser && role != RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE user_id = ?`, role, userID)
	if err != nil {
		return err
	}
	return requireRow(res, userID)
}

func requireRow(res sql.Result, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}
