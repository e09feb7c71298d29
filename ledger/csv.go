package ledger

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV is a write-only ledger backend for environments without SQLite. It has
// no query surface; the rogue detector and exposure recomputation need the
// SQLite backend.
type CSV struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "order_id", "bot_id", "user_id", "exchange", "pair", "side", "status",
		"fill_price", "quantity", "notional", "fee_amount", "fee_rate", "slippage_bps",
		"gross_pnl", "net_pnl", "mode", "simulated", "price_source", "mid_price", "spread", "time",
	}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSV{w: w, f: f}, nil
}

func (c *CSV) Append(e Entry) error {
	err := c.w.Write([]string{
		e.ID, e.OrderID, e.BotID, e.UserID, e.Exchange, e.Pair, e.Side, e.Status,
		f(e.FillPrice), f(e.Quantity), f(e.Notional), f(e.FeeAmount), f(e.FeeRate), f(e.SlippageBps),
		f(e.GrossPnL), f(e.NetPnL), e.Mode, strconv.FormatBool(e.Simulated),
		e.PriceSource, f(e.MidPrice), f(e.Spread), e.Time.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	return c.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 8, 64)
}
