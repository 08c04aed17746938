// store/schema.go
package store

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS invite_codes (
	code TEXT PRIMARY KEY,
	uses_remaining INTEGER NOT NULL,
	expires_at DATETIME NOT NULL,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL,
	realized_pl REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	order_type TEXT NOT NULL,
	quantity REAL NOT NULL,
	limit_price REAL NOT NULL DEFAULT 0,
	stop_price REAL NOT NULL DEFAULT 0,
	fill_price REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	placed_at DATETIME NOT NULL,
	filled_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account_id, placed_at);

CREATE TABLE IF NOT EXISTS positions (
	position_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	quantity REAL NOT NULL,
	avg_price REAL NOT NULL,
	mark_price REAL NOT NULL,
	unrealized_pl REAL NOT NULL DEFAULT 0,
	delta REAL NOT NULL DEFAULT 0,
	gamma REAL NOT NULL DEFAULT 0,
	theta REAL NOT NULL DEFAULT 0,
	vega REAL NOT NULL DEFAULT 0,
	opened_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(account_id, symbol)
);

CREATE TABLE IF NOT EXISTS strategies (
	strategy_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT '',
	legs TEXT NOT NULL DEFAULT '[]',
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_strategies_user ON strategies(user_id);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	strategy_id TEXT REFERENCES strategies(strategy_id) ON DELETE SET NULL,
	user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	initial_balance REAL NOT NULL,
	final_balance REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	sharpe REAL NOT NULL,
	equity_curve TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backtests_user ON backtest_runs(user_id, created_at);
`
