package journal

// Money and quantities are stored as decimal TEXT so sums stay exact.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	id TEXT PRIMARY KEY,
	trade_id TEXT NOT NULL,
	exchange TEXT NOT NULL,
	market_type TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	status TEXT NOT NULL,
	avg_entry_price TEXT NOT NULL,
	qty TEXT NOT NULL,
	leverage TEXT NOT NULL,
	realized_pnl_usd TEXT NOT NULL,
	unrealized_pnl_usd TEXT NOT NULL,
	orders TEXT NOT NULL,
	risk_state TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	opened_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	closed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_closed_at ON positions(closed_at);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	allowed INTEGER NOT NULL,
	reason TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	flags TEXT NOT NULL,
	adjusted_capital TEXT,
	position_size TEXT NOT NULL,
	planned_risk_usd TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_symbol_time ON decisions(symbol, time);
`
