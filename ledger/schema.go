package ledger

const schema = `
CREATE TABLE IF NOT EXISTS fills (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	bot_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	exchange TEXT NOT NULL,
	pair TEXT NOT NULL,
	side TEXT NOT NULL,
	status TEXT NOT NULL,
	fill_price REAL NOT NULL,
	quantity REAL NOT NULL,
	notional REAL NOT NULL,
	fee_amount REAL NOT NULL,
	fee_rate REAL NOT NULL,
	slippage_bps REAL NOT NULL,
	gross_pnl REAL NOT NULL,
	net_pnl REAL NOT NULL,
	mode TEXT NOT NULL,
	simulated INTEGER NOT NULL,
	price_source TEXT NOT NULL,
	mid_price REAL NOT NULL,
	spread REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_bot_time ON fills(bot_id, time);
CREATE INDEX IF NOT EXISTS idx_fills_user_time ON fills(user_id, time);
CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
`
