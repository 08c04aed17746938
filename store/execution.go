package store

import (
	"context"
	"database/sql"
)

// Execution is the batch of rows one order execution produces. The
// paper engine computes everything up front; this writes it atomically
// so a failed write cannot leave an order without its position or
// account update.
type Execution struct {
	Order           Order
	UpsertPositions []Position
	ClosedPositions []string // symbols to delete for Order.AccountID
	Account         *Account // nil when nothing about the account changed
}

// ApplyExecution writes an execution batch in one transaction.
func (s *Store) ApplyExecution(ctx context.Context, ex Execution) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertOrderSQL, insertOrderArgs(ex.Order)...); err != nil {
			return err
		}
		for _, p := range ex.UpsertPositions {
			if err := upsertPosition(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, symbol := range ex.ClosedPositions {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM positions WHERE account_id = ? AND symbol = ?`,
				ex.Order.AccountID, symbol,
			); err != nil {
				return err
			}
		}
		if ex.Account != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE accounts SET cash = ?, equity = ?, realized_pl = ? WHERE account_id = ?`,
				ex.Account.Cash, ex.Account.Equity, ex.Account.RealizedPL, ex.Account.AccountID,
			)
			if err != nil {
				return err
			}
			if err := requireRow(res, ex.Account.AccountID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyMarks refreshes position marks and the account totals in one
// transaction, after a mark-to-market pass.
func (s *Store) ApplyMarks(ctx context.Context, positions []Position, account Account) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range positions {
			if err := upsertPosition(ctx, tx, p); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts SET cash = ?, equity = ?, realized_pl = ? WHERE account_id = ?`,
			account.Cash, account.Equity, account.RealizedPL, account.AccountID,
		)
		if err != nil {
			return err
		}
		return requireRow(res, account.AccountID)
	})
}
