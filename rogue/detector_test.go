package rogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/gate"
	"github.com/rustyeddy/botgate/ledger"
)

// memReader serves canned entries per bot, with optional per-bot errors.
type memReader struct {
	entries map[string][]ledger.Entry
	errs    map[string]error
}

func (m *memReader) EntriesByBot(botID string, since time.Time) ([]ledger.Entry, error) {
	if err := m.errs[botID]; err != nil {
		return nil, err
	}
	var out []ledger.Entry
	for _, e := range m.entries[botID] {
		if !e.Time.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memNotifier struct {
	records []Record
}

func (m *memNotifier) QuarantineOpened(r Record) {
	m.records = append(m.records, r)
}

func fill(botID string, at time.Time, netPnL float64) ledger.Entry {
	return ledger.Entry{
		ID:     "e-" + at.Format("150405.000"),
		BotID:  botID,
		Status: ledger.StatusFilled,
		NetPnL: netPnL,
		Time:   at,
	}
}

func activeBot(id string, capital float64) bot.Account {
	return bot.Account{
		ID: id, UserID: "u1", Exchange: "binance",
		Mode: bot.ModePaper, Profile: bot.ProfileSafe,
		Capital: capital, State: bot.StateActive,
	}
}

func newTestDetector(t *testing.T, bots bot.Store, reader ledger.Reader, notifier Notifier) (*Detector, time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(
		context.Background(),
		zaptest.NewLogger(t),
		bots,
		reader,
		Thresholds{HourlyLossRatio: 0.15, MaxDrawdownRatio: 0.20},
		time.Minute,
		notifier,
	)
	d.now = func() time.Time { return now }
	return d, now
}

func TestScan_HourlyLossQuarantines(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	require.NoError(t, bots.Put(activeBot("b1", 1000)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &memReader{entries: map[string][]ledger.Entry{
		// 16% loss in the trailing hour.
		"b1": {
			fill("b1", now.Add(-50*time.Minute), -90),
			fill("b1", now.Add(-20*time.Minute), -70),
		},
	}}
	notifier := &memNotifier{}

	d, _ := newTestDetector(t, bots, reader, notifier)
	d.Scan()

	acct, err := bots.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, bot.StateQuarantined, acct.State)

	recs := d.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "b1", recs[0].BotID)
	assert.Equal(t, ReasonHourlyLoss, recs[0].Reason)
	assert.InDelta(t, 0.16, recs[0].TrailingLoss, 1e-9)
	assert.True(t, recs[0].Active)
	require.Len(t, notifier.records, 1)

	// The mode gate now denies the bot on its next evaluation.
	decision := gate.Evaluate(acct, gate.Flags{PaperEnabled: true}, false)
	assert.False(t, decision.Allowed)
	assert.Equal(t, gate.ReasonBotNotActive, decision.Reason)
}

func TestScan_OldLossesDoNotTripHourlyThreshold(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	require.NoError(t, bots.Put(activeBot("b1", 1000)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &memReader{entries: map[string][]ledger.Entry{
		// Heavy loss, but three hours ago, and shallow drawdown since.
		"b1": {
			fill("b1", now.Add(-3*time.Hour), -160),
			fill("b1", now.Add(-10*time.Minute), -10),
		},
	}}

	d, _ := newTestDetector(t, bots, reader, nil)
	d.Scan()

	// Trailing-hour loss is 1% and the 17% drawdown stays under the 20%
	// threshold, so the bot keeps trading.
	acct, err := bots.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, bot.StateActive, acct.State)
	assert.Empty(t, d.Records())
}

func TestScan_DrawdownQuarantines(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	require.NoError(t, bots.Put(activeBot("b1", 1000)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &memReader{entries: map[string][]ledger.Entry{
		// Peaks at +200, then bleeds to −100 over days: 25% off peak.
		"b1": {
			fill("b1", now.Add(-72*time.Hour), 200),
			fill("b1", now.Add(-48*time.Hour), -150),
			fill("b1", now.Add(-24*time.Hour), -150),
		},
	}}

	d, _ := newTestDetector(t, bots, reader, nil)
	d.Scan()

	acct, err := bots.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, bot.StateQuarantined, acct.State)

	recs := d.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, ReasonDrawdown, recs[0].Reason)
	assert.InDelta(t, 0.25, recs[0].TrailingLoss, 1e-9)
}

func TestScan_OneBotFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	require.NoError(t, bots.Put(activeBot("b1", 1000)))
	require.NoError(t, bots.Put(activeBot("b2", 1000)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &memReader{
		entries: map[string][]ledger.Entry{
			"b2": {fill("b2", now.Add(-10*time.Minute), -200)},
		},
		errs: map[string]error{"b1": errors.New("corrupt ledger row")},
	}

	d, _ := newTestDetector(t, bots, reader, nil)
	d.Scan()

	// b1's failure is logged and skipped; b2 is still quarantined.
	b2, err := bots.Get("b2")
	require.NoError(t, err)
	assert.Equal(t, bot.StateQuarantined, b2.State)

	b1, err := bots.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, bot.StateActive, b1.State)
}

func TestScan_SkipsNonActiveBots(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	acct := activeBot("b1", 1000)
	acct.State = bot.StatePaused
	require.NoError(t, bots.Put(acct))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &memReader{entries: map[string][]ledger.Entry{
		"b1": {fill("b1", now.Add(-10*time.Minute), -500)},
	}}

	d, _ := newTestDetector(t, bots, reader, nil)
	d.Scan()

	got, err := bots.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, bot.StatePaused, got.State)
}

func TestRelease_ReactivatesBot(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	require.NoError(t, bots.Put(activeBot("b1", 1000)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &memReader{entries: map[string][]ledger.Entry{
		"b1": {fill("b1", now.Add(-10*time.Minute), -200)},
	}}

	d, _ := newTestDetector(t, bots, reader, nil)
	d.Scan()

	acct, _ := bots.Get("b1")
	require.Equal(t, bot.StateQuarantined, acct.State)

	require.NoError(t, d.Release("b1"))
	acct, _ = bots.Get("b1")
	assert.Equal(t, bot.StateActive, acct.State)

	recs := d.Records()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Active)
}

func TestRelease_UnknownBot(t *testing.T) {
	t.Parallel()

	bots := bot.NewMemoryStore()
	d, _ := newTestDetector(t, bots, &memReader{}, nil)
	assert.Error(t, d.Release("ghost"))
}
