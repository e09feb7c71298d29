// Package rogue periodically scans the ledger for bots bleeding capital and
// quarantines them. It is the only component allowed to move a bot into the
// quarantined state; the mode gate reads that state but never writes it.
package rogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/ledger"
)

var metricQuarantines = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "gate_bot_quarantines_total",
	Help: "Bots moved to quarantine by the rogue detector",
})

func init() {
	prometheus.MustRegister(metricQuarantines)
}

// Quarantine reasons.
const (
	ReasonHourlyLoss = "trailing_hour_loss"
	ReasonDrawdown   = "max_drawdown"
)

// Record is one quarantine decision. Cleared only by explicit manual review.
type Record struct {
	BotID        string
	Reason       string
	TrailingLoss float64 // loss ratio at detection
	Time         time.Time
	Active       bool
}

// Notifier receives quarantine events for the alerting collaborator.
type Notifier interface {
	QuarantineOpened(Record)
}

// Thresholds are the trip levels, as fractions of bot capital.
type Thresholds struct {
	HourlyLossRatio  float64 // e.g. 0.15
	MaxDrawdownRatio float64 // e.g. 0.20
}

// Detector runs off the hot order path on a fixed interval. It only reads
// the ledger and writes bot state; the gate picks the state up on its next
// evaluation, so a bot may place at most one more order after breaching.
type Detector struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	bots       bot.Store
	led        ledger.Reader
	thresholds Thresholds
	interval   time.Duration
	notifier   Notifier
	now        func() time.Time

	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	records   map[string]Record
}

func NewDetector(
	parentCtx context.Context,
	logger *zap.Logger,
	bots bot.Store,
	led ledger.Reader,
	thresholds Thresholds,
	interval time.Duration,
	notifier Notifier,
) *Detector {
	ctx, cancel := context.WithCancel(parentCtx)
	return &Detector{
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.With(zap.String("component", "rogue_detector")),
		bots:       bots,
		led:        led,
		thresholds: thresholds,
		interval:   interval,
		notifier:   notifier,
		now:        time.Now,
		records:    make(map[string]Record),
	}
}

func (d *Detector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("rogue detector already running")
	}
	d.logger.Info("starting rogue detector", zap.Duration("interval", d.interval))
	d.isRunning = true

	d.wg.Add(1)
	go d.loop()
	return nil
}

func (d *Detector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}
	d.logger.Info("stopping rogue detector")
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		d.logger.Warn("rogue detector stop timed out")
	}

	d.isRunning = false
	return nil
}

func (d *Detector) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.Scan()
		}
	}
}

// Scan evaluates every active bot. One bot's failure never aborts the scan
// of the others.
func (d *Detector) Scan() {
	for _, acct := range d.bots.List() {
		if acct.State != bot.StateActive {
			continue
		}
		if err := d.evaluate(acct); err != nil {
			d.logger.Error("bot evaluation failed, continuing scan",
				zap.String("bot_id", acct.ID), zap.Error(err))
		}
	}
}

func (d *Detector) evaluate(acct bot.Account) (err error) {
	// Malformed ledger data must not take the scan down with it.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating bot: %v", r)
		}
	}()

	if acct.Capital <= 0 {
		return nil
	}

	now := d.now()
	entries, err := d.led.EntriesByBot(acct.ID, time.Time{})
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	hourAgo := now.Add(-time.Hour)
	var hourPnL, cumPnL, peak, maxDD float64
	for _, e := range entries {
		if e.Status != ledger.StatusFilled {
			continue
		}
		cumPnL += e.NetPnL
		if cumPnL > peak {
			peak = cumPnL
		}
		// Drawdown from peak equity since creation.
		if dd := (peak - cumPnL) / (acct.Capital + peak); dd > maxDD {
			maxDD = dd
		}
		if !e.Time.Before(hourAgo) {
			hourPnL += e.NetPnL
		}
	}

	hourlyLoss := 0.0
	if hourPnL < 0 {
		hourlyLoss = -hourPnL / acct.Capital
	}

	switch {
	case hourlyLoss >= d.thresholds.HourlyLossRatio:
		d.quarantine(acct, ReasonHourlyLoss, hourlyLoss)
	case maxDD >= d.thresholds.MaxDrawdownRatio:
		d.quarantine(acct, ReasonDrawdown, maxDD)
	}
	return nil
}

func (d *Detector) quarantine(acct bot.Account, reason string, lossRatio float64) {
	rec := Record{
		BotID:        acct.ID,
		Reason:       reason,
		TrailingLoss: lossRatio,
		Time:         d.now(),
		Active:       true,
	}

	if err := d.bots.SetState(acct.ID, bot.StateQuarantined); err != nil {
		d.logger.Error("failed to quarantine bot",
			zap.String("bot_id", acct.ID), zap.Error(err))
		return
	}

	d.mu.Lock()
	d.records[acct.ID] = rec
	d.mu.Unlock()

	metricQuarantines.Inc()
	d.logger.Warn("bot quarantined",
		zap.String("bot_id", acct.ID),
		zap.String("reason", reason),
		zap.Float64("loss_ratio", lossRatio))

	if d.notifier != nil {
		d.notifier.QuarantineOpened(rec)
	}
}

// Records returns a copy of all quarantine records.
func (d *Detector) Records() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Record, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r)
	}
	return out
}

// Release is the manual-review path: it clears the record and reactivates
// the bot. Nothing clears quarantine automatically.
func (d *Detector) Release(botID string) error {
	d.mu.Lock()
	rec, ok := d.records[botID]
	if ok {
		rec.Active = false
		d.records[botID] = rec
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("no quarantine record for bot %s", botID)
	}
	return d.bots.SetState(botID, bot.StateActive)
}
