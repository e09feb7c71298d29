package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/market"
	"github.com/rustyeddy/botgate/risk"
)

// ExposureSource recomputes per-user exposure snapshots from the ledger,
// the only durable authority. Equity is the sum of allocated capital across
// the user's bots plus realized net PnL over the whole ledger.
type ExposureSource struct {
	led  *SQLite
	bots bot.Store
	now  func() time.Time
}

func NewExposureSource(led *SQLite, bots bot.Store) *ExposureSource {
	return &ExposureSource{led: led, bots: bots, now: time.Now}
}

func (x *ExposureSource) Snapshot(ctx context.Context, userID string) (risk.Exposure, error) {
	snap := risk.Exposure{
		UserID:      userID,
		PerAsset:    make(map[string]float64),
		PerExchange: make(map[string]float64),
		Taken:       x.now(),
	}

	for _, a := range x.bots.List() {
		if a.UserID != userID || a.State == bot.StateDeleted {
			continue
		}
		snap.TotalEquity += a.Capital
	}

	rows, err := x.led.db.QueryContext(ctx, `
		SELECT pair, exchange, side, notional, net_pnl, time
		FROM fills
		WHERE user_id = ? AND status = ?
		ORDER BY time ASC`, userID, StatusFilled)
	if err != nil {
		return risk.Exposure{}, fmt.Errorf("recompute exposure: %w", err)
	}
	defer rows.Close()

	dayStart := snap.Taken.UTC().Truncate(24 * time.Hour)
	var pnlToday, pnlTotal float64

	for rows.Next() {
		var pair, exchange, side string
		var notional, netPnL float64
		var at time.Time
		if err := rows.Scan(&pair, &exchange, &side, &notional, &netPnL, &at); err != nil {
			return risk.Exposure{}, fmt.Errorf("recompute exposure: %w", err)
		}

		signed := notional
		if side == string(market.Sell) {
			signed = -notional
		}
		snap.PerAsset[market.BaseAsset(pair)] += signed
		snap.PerExchange[exchange] += signed

		pnlTotal += netPnL
		if !at.Before(dayStart) {
			pnlToday += netPnL
		}
	}
	if err := rows.Err(); err != nil {
		return risk.Exposure{}, fmt.Errorf("recompute exposure: %w", err)
	}

	// Closed-out positions can leave small negative residues; exposure is
	// never negative.
	for k, v := range snap.PerAsset {
		if v < 0 {
			snap.PerAsset[k] = 0
		}
	}
	for k, v := range snap.PerExchange {
		if v < 0 {
			snap.PerExchange[k] = 0
		}
	}

	snap.TotalEquity += pnlTotal
	if pnlToday < 0 {
		snap.RealizedLossToday = -pnlToday
	}
	return snap, nil
}
