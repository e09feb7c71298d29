package risk

import (
	"context"
	"time"

	"github.com/rustyeddy/botgate/market"
)

// Intent is a proposed order from a strategy collaborator. It is consumed
// once by the admission pipeline and never mutated.
type Intent struct {
	BotID    string
	Exchange string
	Pair     string
	Side     market.Side
	Notional float64 // requested size in account currency
	Time     time.Time
}

// Exposure is a per-user snapshot of capital commitment, recomputed from the
// ledger. The evaluator reads the snapshot taken at the start of admission
// and never re-reads live state mid-check.
type Exposure struct {
	UserID            string
	TotalEquity       float64
	PerAsset          map[string]float64
	PerExchange       map[string]float64
	RealizedLossToday float64 // positive number, 0 when the day is flat or up
	Taken             time.Time
}

func (e Exposure) assetExposure(asset string) float64 {
	return e.PerAsset[asset]
}

func (e Exposure) exchangeExposure(exchange string) float64 {
	return e.PerExchange[exchange]
}

// ExposureSource supplies snapshots. Backed by the ledger.
type ExposureSource interface {
	Snapshot(ctx context.Context, userID string) (Exposure, error)
}

// Limits are the system-wide risk fractions, validated at startup.
type Limits struct {
	MinNotional            float64
	PerAssetCapFraction    float64
	PerExchangeCapFraction float64
	DailyLossLimitFraction float64
}

// SizedOrder is an admitted intent with its notional clamped to the bot's
// risk budget and a stop distance attached.
type SizedOrder struct {
	Intent           Intent
	Notional         float64 // clamped
	StopLossFraction float64
}

type Decision struct {
	Allowed bool
	Reason  string
	Order   SizedOrder
}
