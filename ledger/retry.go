package ledger

import (
	"fmt"
	"time"
)

// RetryWriter wraps an Appender with bounded-backoff retries. An order is
// never reported admitted until its entry has durably succeeded, so
// transient persistence failures are retried here rather than surfaced to
// the caller immediately.
type RetryWriter struct {
	inner    Appender
	attempts int
	backoff  time.Duration
	sleep    func(time.Duration) // injectable for tests
}

// NewRetryWriter retries up to attempts times with doubling backoff starting
// at backoff.
func NewRetryWriter(inner Appender, attempts int, backoff time.Duration) *RetryWriter {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryWriter{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
		sleep:    time.Sleep,
	}
}

func (r *RetryWriter) Append(e Entry) error {
	var err error
	delay := r.backoff
	for i := 0; i < r.attempts; i++ {
		if err = r.inner.Append(e); err == nil {
			return nil
		}
		if i < r.attempts-1 {
			r.sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("ledger write failed after %d attempts: %w", r.attempts, err)
}
