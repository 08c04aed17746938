package store

import "context"

// PlatformStats is the admin console's one-shot overview.
type PlatformStats struct {
	Users       int     `json:"users"`
	ActiveUsers int     `json:"active_users"`
	Accounts    int     `json:"accounts"`
	Orders      int     `json:"orders"`
	Strategies  int     `json:"strategies"`
	Backtests   int     `json:"backtests"`
	TotalCash   float64 `json:"total_cash"`
}

// GetPlatformStats counts rows across the schema.
func (s *Store) GetPlatformStats(ctx context.Context) (PlatformStats, error) {
	var st PlatformStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE active = 1),
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM strategies),
			(SELECT COUNT(*) FROM backtest_runs),
			(SELECT COALESCE(SUM(cash), 0) FROM accounts)`,
	).Scan(&st.Users, &st.ActiveUsers, &st.Accounts, &st.Orders, &st.Strategies, &st.Backtests, &st.TotalCash)
	return st, err
}
