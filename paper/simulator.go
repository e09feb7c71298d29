// Package paper fills admitted orders against live ticks without touching
// an exchange. Fills are written to the ledger exactly as real fills would
// be, tagged simulated, so downstream accounting cannot tell them apart.
package paper

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/internal/id"
	"github.com/rustyeddy/botgate/ledger"
	"github.com/rustyeddy/botgate/market"
	"github.com/rustyeddy/botgate/risk"
)

// Rand is the single source of randomness. Tests supply a deterministic
// implementation; production wires math/rand.
type Rand interface {
	Float64() float64
}

// Profile holds the per-exchange simulation parameters. Simulated orders
// always cross the spread, so only the taker fee rate applies.
type Profile struct {
	RejectionRate     float64 // probability of a simulated exchange rejection
	TakerFeeRate      float64
	SlippageMinBps    float64
	SlippageMaxBps    float64
	LiquidityNotional float64 // notional at which slippage reaches its max
	DelayJitterBps    float64 // price drift between decision and fill, at most
}

// Simulator produces one ledger entry per admitted paper order.
type Simulator struct {
	profiles map[string]Profile
	fallback Profile

	mu    sync.Mutex
	rng   Rand
	basis map[basisKey]*position
	now   func() time.Time
}

type basisKey struct {
	botID string
	pair  string
}

// position tracks open quantity and average cost per (bot, pair) so exit
// fills can realize PnL against their cost basis.
type position struct {
	quantity decimal.Decimal
	avgCost  decimal.Decimal
}

func NewSimulator(profiles map[string]Profile, fallback Profile, rng Rand) *Simulator {
	return &Simulator{
		profiles: profiles,
		fallback: fallback,
		rng:      rng,
		basis:    make(map[basisKey]*position),
		now:      time.Now,
	}
}

func (s *Simulator) profileFor(exchange string) Profile {
	if p, ok := s.profiles[exchange]; ok {
		return p
	}
	return s.fallback
}

// SimulateFill executes one sized order against a tick. It never returns an
// error: a missing or zero tick yields a hold entry (no fill), mirroring a
// feed outage rather than crashing the pipeline. A simulated rejection
// still consumes the caller's rate-limit reservation, like a real rejected
// order would.
func (s *Simulator) SimulateFill(acct bot.Account, order risk.SizedOrder, tick market.Tick) ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := ledger.Entry{
		ID:        id.New(),
		OrderID:   order.Intent.BotID + "-" + id.New(),
		BotID:     acct.ID,
		UserID:    acct.UserID,
		Exchange:  order.Intent.Exchange,
		Pair:      order.Intent.Pair,
		Side:      string(order.Intent.Side),
		Mode:      string(bot.ModePaper),
		Simulated: true,
		Time:      s.now(),
	}

	if tick.IsZero() {
		entry.Status = ledger.StatusHold
		return entry
	}

	entry.PriceSource = tick.Source
	entry.MidPrice = tick.Mid()
	entry.Spread = tick.Spread()

	prof := s.profileFor(order.Intent.Exchange)

	if s.rng.Float64() < prof.RejectionRate {
		entry.Status = ledger.StatusRejected
		return entry
	}

	slipBps := prof.slippageBps(order.Notional)
	jitterBps := (s.rng.Float64()*2 - 1) * prof.DelayJitterBps

	mid := decimal.NewFromFloat(tick.Mid())
	dir := decimal.NewFromFloat(order.Intent.Side.Direction())
	bps := decimal.NewFromInt(10_000)

	// Slippage works against the order; delay drift can go either way.
	adj := decimal.NewFromFloat(slipBps).Mul(dir).Add(decimal.NewFromFloat(jitterBps)).Div(bps)
	fillPrice := mid.Mul(decimal.NewFromInt(1).Add(adj))

	notional := decimal.NewFromFloat(order.Notional)
	quantity := notional.Div(fillPrice)

	// Market orders cross the spread, so taker fees apply.
	feeRate := decimal.NewFromFloat(prof.TakerFeeRate)
	fee := fillPrice.Mul(quantity).Mul(feeRate)

	gross := s.realizeLocked(basisKey{botID: acct.ID, pair: order.Intent.Pair}, order.Intent.Side, quantity, fillPrice)

	entry.Status = ledger.StatusFilled
	entry.FillPrice = fillPrice.InexactFloat64()
	entry.Quantity = quantity.InexactFloat64()
	entry.Notional = order.Notional
	entry.FeeAmount = fee.InexactFloat64()
	entry.FeeRate = prof.TakerFeeRate
	entry.SlippageBps = slipBps
	entry.GrossPnL = gross.InexactFloat64()
	entry.NetPnL = gross.Sub(fee).InexactFloat64()
	return entry
}

// slippageBps interpolates within the configured band by order size: orders
// at or above the liquidity notional take the full band.
func (p Profile) slippageBps(notional float64) float64 {
	if p.SlippageMaxBps <= p.SlippageMinBps || p.LiquidityNotional <= 0 {
		return p.SlippageMinBps
	}
	frac := notional / p.LiquidityNotional
	if frac > 1 {
		frac = 1
	}
	return p.SlippageMinBps + (p.SlippageMaxBps-p.SlippageMinBps)*frac
}

// realizeLocked updates the cost basis for the key and returns gross PnL:
// zero for entry fills, price-vs-basis for the closed quantity on exits.
func (s *Simulator) realizeLocked(k basisKey, side market.Side, qty, price decimal.Decimal) decimal.Decimal {
	pos, ok := s.basis[k]
	if !ok {
		pos = &position{}
		s.basis[k] = pos
	}

	if side == market.Buy {
		total := pos.avgCost.Mul(pos.quantity).Add(price.Mul(qty))
		pos.quantity = pos.quantity.Add(qty)
		if pos.quantity.IsPositive() {
			pos.avgCost = total.Div(pos.quantity)
		}
		return decimal.Zero
	}

	// Sell: realize against basis for the overlap with the open quantity.
	closed := qty
	if closed.GreaterThan(pos.quantity) {
		closed = pos.quantity
	}
	gross := price.Sub(pos.avgCost).Mul(closed)
	pos.quantity = pos.quantity.Sub(qty)
	if !pos.quantity.IsPositive() {
		pos.quantity = decimal.Zero
		pos.avgCost = decimal.Zero
	}
	return gross
}
