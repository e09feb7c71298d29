// Package ledger is the append-only record of every fill, simulated or
// real. It is the durable source of truth: window counters and exposure
// snapshots are recoverable caches derived from it. Entries are never
// updated or deleted; corrections are new compensating entries.
package ledger

import "time"

// Entry statuses.
const (
	StatusFilled   = "filled"
	StatusRejected = "rejected" // simulated exchange rejection, zero fill
	StatusHold     = "hold"     // no usable price, no fill
)

// Entry is one immutable ledger record.
type Entry struct {
	ID          string
	OrderID     string
	BotID       string
	UserID      string
	Exchange    string
	Pair        string
	Side        string
	Status      string
	FillPrice   float64
	Quantity    float64
	Notional    float64
	FeeAmount   float64
	FeeRate     float64
	SlippageBps float64
	GrossPnL    float64
	NetPnL      float64
	Mode        string // "paper" or "live"
	Simulated   bool
	PriceSource string
	MidPrice    float64
	Spread      float64
	Time        time.Time
}

// Appender is the write half of a ledger.
type Appender interface {
	Append(Entry) error
}

// Reader is the query surface the rogue detector and exposure
// recomputation need. The zero time means "since the beginning".
type Reader interface {
	EntriesByBot(botID string, since time.Time) ([]Entry, error)
}

// Ledger combines the write surface with lifecycle management.
type Ledger interface {
	Appender
	Close() error
}
