package ledger

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores entries in a single fills table. Inserts only; there is no
// update or delete path.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(e Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO fills
		(id, order_id, bot_id, user_id, exchange, pair, side, status,
		 fill_price, quantity, notional, fee_amount, fee_rate, slippage_bps,
		 gross_pnl, net_pnl, mode, simulated, price_source, mid_price, spread, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrderID, e.BotID, e.UserID, e.Exchange, e.Pair, e.Side, e.Status,
		e.FillPrice, e.Quantity, e.Notional, e.FeeAmount, e.FeeRate, e.SlippageBps,
		e.GrossPnL, e.NetPnL, e.Mode, e.Simulated, e.PriceSource, e.MidPrice, e.Spread, e.Time,
	)
	if err != nil {
		return fmt.Errorf("append fill %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
