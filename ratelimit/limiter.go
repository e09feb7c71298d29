package ratelimit

import (
	"sync"
	"time"
)

const (
	burstWindow  = 10 * time.Second
	minuteWindow = time.Minute
	dailyWindow  = 24 * time.Hour
)

// Stable deny reason codes, named after the first window that failed.
const (
	ReasonBurst  = "burst_limit_exceeded"
	ReasonMinute = "minute_limit_exceeded"
	ReasonDaily  = "daily_limit_exceeded"
)

// Caps are per-exchange limits for the three windows. A cap <= 0 disables
// that window.
type Caps struct {
	Burst  int
	Minute int
	Daily  int
}

type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// counters is the per-(bot, exchange) state. Each key has its own mutex so
// different keys never contend; the reserve step is atomic per key.
type counters struct {
	mu     sync.Mutex
	burst  window
	minute window
	daily  window
}

type key struct {
	botID    string
	exchange string
}

// Limiter enforces the three rolling windows per (bot, exchange) key.
type Limiter struct {
	mu       sync.RWMutex // guards keys map only
	keys     map[key]*counters
	caps     map[string]Caps
	fallback Caps
	now      func() time.Time
}

// New creates a limiter with per-exchange caps. Exchanges missing from the
// map use fallback.
func New(caps map[string]Caps, fallback Caps) *Limiter {
	return &Limiter{
		keys:     make(map[key]*counters),
		caps:     caps,
		fallback: fallback,
		now:      time.Now,
	}
}

func (l *Limiter) capsFor(exchange string) Caps {
	if c, ok := l.caps[exchange]; ok {
		return c
	}
	return l.fallback
}

func (l *Limiter) countersFor(k key) *counters {
	l.mu.RLock()
	c, ok := l.keys[k]
	l.mu.RUnlock()
	if ok {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.keys[k]; ok {
		return c
	}
	c = &counters{}
	l.keys[k] = c
	return c
}

func (w *window) roll(now time.Time, length time.Duration) {
	if now.Before(w.resetAt) {
		return
	}
	w.count = 0
	if w.resetAt.IsZero() {
		w.resetAt = now.Add(length)
		return
	}
	// Advance in whole window lengths so boundaries stay fixed.
	for !now.Before(w.resetAt) {
		w.resetAt = w.resetAt.Add(length)
	}
}

// CheckAndReserve admits one order attempt for the key, or reports the first
// window that is full and how long until it resets. All three counters are
// incremented together; there are no partial reservations.
func (l *Limiter) CheckAndReserve(botID, exchange string) Decision {
	caps := l.capsFor(exchange)
	c := l.countersFor(key{botID: botID, exchange: exchange})

	c.mu.Lock()
	defer c.mu.Unlock()

	now := l.now()
	c.burst.roll(now, burstWindow)
	c.minute.roll(now, minuteWindow)
	c.daily.roll(now, dailyWindow)

	if caps.Burst > 0 && c.burst.count >= caps.Burst {
		return Decision{Reason: ReasonBurst, RetryAfter: c.burst.resetAt.Sub(now)}
	}
	if caps.Minute > 0 && c.minute.count >= caps.Minute {
		return Decision{Reason: ReasonMinute, RetryAfter: c.minute.resetAt.Sub(now)}
	}
	if caps.Daily > 0 && c.daily.count >= caps.Daily {
		return Decision{Reason: ReasonDaily, RetryAfter: c.daily.resetAt.Sub(now)}
	}

	c.burst.count++
	c.minute.count++
	c.daily.count++
	return Decision{Allowed: true}
}

// Counts returns the current counter values for a key without reserving.
// Intended for observability.
func (l *Limiter) Counts(botID, exchange string) (burst, minute, daily int) {
	c := l.countersFor(key{botID: botID, exchange: exchange})
	c.mu.Lock()
	defer c.mu.Unlock()
	now := l.now()
	c.burst.roll(now, burstWindow)
	c.minute.roll(now, minuteWindow)
	c.daily.roll(now, dailyWindow)
	return c.burst.count, c.minute.count, c.daily.count
}
