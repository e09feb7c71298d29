package ledger

import (
	"time"
)

const fillColumns = `id, order_id, bot_id, user_id, exchange, pair, side, status,
	fill_price, quantity, notional, fee_amount, fee_rate, slippage_bps,
	gross_pnl, net_pnl, mode, simulated, price_source, mid_price, spread, time`

func (s *SQLite) scanRows(query string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.BotID, &e.UserID, &e.Exchange, &e.Pair, &e.Side, &e.Status,
			&e.FillPrice, &e.Quantity, &e.Notional, &e.FeeAmount, &e.FeeRate, &e.SlippageBps,
			&e.GrossPnL, &e.NetPnL, &e.Mode, &e.Simulated, &e.PriceSource, &e.MidPrice, &e.Spread, &e.Time,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntriesByBot returns a bot's entries at or after since, oldest first.
// A zero since means the bot's whole history.
func (s *SQLite) EntriesByBot(botID string, since time.Time) ([]Entry, error) {
	return s.scanRows(`
		SELECT `+fillColumns+`
		FROM fills
		WHERE bot_id = ? AND time >= ?
		ORDER BY time ASC, id ASC`, botID, since)
}

// EntriesBetween returns all entries with time in [start, end), oldest first.
func (s *SQLite) EntriesBetween(start, end time.Time) ([]Entry, error) {
	return s.scanRows(`
		SELECT `+fillColumns+`
		FROM fills
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start, end)
}

// Recent returns the newest n entries, newest first.
func (s *SQLite) Recent(n int) ([]Entry, error) {
	return s.scanRows(`
		SELECT `+fillColumns+`
		FROM fills
		ORDER BY time DESC, id DESC
		LIMIT ?`, n)
}

// NetPnLByBot sums net PnL for a bot's filled entries at or after since.
func (s *SQLite) NetPnLByBot(botID string, since time.Time) (float64, error) {
	row := s.db.QueryRow(`
		SELECT COALESCE(SUM(net_pnl), 0)
		FROM fills
		WHERE bot_id = ? AND status = ? AND time >= ?`, botID, StatusFilled, since)
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
