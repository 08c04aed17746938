package store

import (
	"context"
	"database/sql"
	"time"
)

type InviteCode struct {
	Code          string    `json:"code"`
	UsesRemaining int       `json:"uses_remaining"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateInvite mints a new invite code.
func (s *Store) CreateInvite(ctx context.Context, inv InviteCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invite_codes (code, uses_remaining, expires_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		inv.Code, inv.UsesRemaining, inv.ExpiresAt, inv.CreatedBy, inv.CreatedAt,
	)
	return err
}

// GetInvite returns one invite code row.
func (s *Store) GetInvite(ctx context.Context, code string) (InviteCode, error) {
	var inv InviteCode
	err := s.db.QueryRowContext(ctx, `
		SELECT code, uses_remaining, expires_at, created_by, created_at
		FROM invite_codes WHERE code = ?`, code,
	).Scan(&inv.Code, &inv.UsesRemaining, &inv.ExpiresAt, &inv.CreatedBy, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return InviteCode{}, ErrNotFound
	}
	if err != nil {
		return InviteCode{}, err
	}
	return inv, nil
}

// ListInvites returns all invite codes, newest first.
func (s *Store) ListInvites(ctx context.Context) ([]InviteCode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, uses_remaining, expires_at, created_by, created_at
		FROM invite_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InviteCode
	for rows.Next() {
		var inv InviteCode
		if err := rows.Scan(&inv.Code, &inv.UsesRemaining, &inv.ExpiresAt, &inv.CreatedBy, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RevokeInvite deletes an invite code.
func (s *Store) RevokeInvite(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invite_codes WHERE code = ?`, code)
	if err != nil {
		return err
	}
	return requireRow(res, code)
}
