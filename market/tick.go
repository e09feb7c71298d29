package market

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Direction returns +1 for buys and -1 for sells.
func (s Side) Direction() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

// Tick is the latest quote for a trading pair, supplied by an external
// market-data collaborator. Feeds are unreliable; consumers must tolerate
// a zero Tick.
type Tick struct {
	Pair   string
	Bid    float64
	Ask    float64
	Time   time.Time
	Source string
}

func (t Tick) Mid() float64 {
	if t.Bid <= 0 || t.Ask <= 0 {
		return 0
	}
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// IsZero reports whether the tick carries no usable price.
func (t Tick) IsZero() bool {
	return t.Pair == "" || t.Mid() <= 0
}

var ErrNoTick = errors.New("no tick for pair")

type TickSource interface {
	GetTick(ctx context.Context, pair string) (Tick, error)
}

// TickStore holds the latest tick per pair. A tick older than maxAge is
// treated as missing rather than returned stale.
type TickStore struct {
	mu     sync.RWMutex
	maxAge time.Duration
	ticks  map[string]Tick
}

// NewTickStore creates a store. maxAge <= 0 disables staleness checks.
func NewTickStore(maxAge time.Duration) *TickStore {
	return &TickStore{maxAge: maxAge, ticks: make(map[string]Tick)}
}

func (s *TickStore) Set(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[t.Pair] = t
}

func (s *TickStore) GetTick(ctx context.Context, pair string) (Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[pair]
	if !ok {
		return Tick{}, ErrNoTick
	}
	if s.maxAge > 0 && time.Since(t.Time) > s.maxAge {
		return Tick{}, ErrNoTick
	}
	return t, nil
}

// BaseAsset extracts the base asset from a pair like "BTC/USDT", "BTC-USDT"
// or "BTC_USDT". A pair without a separator is its own asset.
func BaseAsset(pair string) string {
	for i := 0; i < len(pair); i++ {
		switch pair[i] {
		case '/', '-', '_':
			return pair[:i]
		}
	}
	return pair
}
