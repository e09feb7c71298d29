// Package admission is the layered gate every order intent passes through:
// mode gate, rate limiter, risk evaluator, then the paper simulator or the
// live adapter, in that fixed order, short-circuiting on the first deny.
package admission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/gate"
	"github.com/rustyeddy/botgate/ledger"
	"github.com/rustyeddy/botgate/live"
	"github.com/rustyeddy/botgate/market"
	"github.com/rustyeddy/botgate/paper"
	"github.com/rustyeddy/botgate/ratelimit"
	"github.com/rustyeddy/botgate/risk"
)

type Status string

const (
	Admitted Status = "admitted"
	Rejected Status = "rejected"
)

// Stage identifies which gate produced a rejection, so callers can decide
// whether and when to retry.
type Stage string

const (
	StageModeGate  Stage = "mode_gate"
	StageRateLimit Stage = "rate_limit"
	StageRisk      Stage = "risk"
	StageExecution Stage = "execution"
)

// Result is the outcome reported to the caller. Reason is a stable code,
// never a raw error string.
type Result struct {
	Status     Status
	Stage      Stage
	Reason     string
	RetryAfter time.Duration
	Entry      *ledger.Entry
}

// Options wires the pipeline's collaborators.
type Options struct {
	Bots        bot.Store
	Credentials bot.CredentialSource
	Flags       gate.FlagSource
	Limiter     *ratelimit.Limiter
	Limits      risk.Limits
	Exposure    risk.ExposureSource
	Ticks       market.TickSource
	Paper       *paper.Simulator
	Live        live.Adapter
	Ledger      ledger.Appender
	Logger      *zap.Logger
	TickTimeout time.Duration
}

// Pipeline holds no per-order state; each intent is processed independently
// and concurrent calls for different bots never contend beyond the
// per-key rate counters.
type Pipeline struct {
	opts   Options
	logger *zap.Logger
}

func NewPipeline(opts Options) *Pipeline {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		opts:   opts,
		logger: logger.With(zap.String("component", "admission")),
	}
}

func (p *Pipeline) reject(intent risk.Intent, stage Stage, reason string, retryAfter time.Duration) Result {
	metricOrdersRejected.WithLabelValues(string(stage), reason).Inc()
	p.logger.Info("order rejected",
		zap.String("bot_id", intent.BotID),
		zap.String("pair", intent.Pair),
		zap.String("stage", string(stage)),
		zap.String("reason", reason))
	return Result{Status: Rejected, Stage: stage, Reason: reason, RetryAfter: retryAfter}
}

// Admit runs one intent through the full gate. It returns an error only for
// infrastructure failures (live execution, ledger persistence); an expected
// deny is a Rejected result, not an error.
//
// Rejected orders produce no ledger entry; admitted orders produce exactly
// one, and the order is not reported admitted until that entry has durably
// persisted.
func (p *Pipeline) Admit(ctx context.Context, intent risk.Intent) (Result, error) {
	acct, err := p.opts.Bots.Get(intent.BotID)
	if err != nil {
		return p.reject(intent, StageModeGate, gate.ReasonBotNotActive, 0), nil
	}

	// Flags are read fresh on every call; they may change at runtime.
	flags := p.opts.Flags.Flags()
	if d := gate.Evaluate(acct, flags, p.opts.Credentials.Validated(acct.ID)); !d.Allowed {
		return p.reject(intent, StageModeGate, d.Reason, 0), nil
	}

	if d := p.opts.Limiter.CheckAndReserve(acct.ID, acct.Exchange); !d.Allowed {
		return p.reject(intent, StageRateLimit, d.Reason, d.RetryAfter), nil
	}

	snap := p.snapshot(ctx, acct.UserID)
	d := risk.SizeOrder(acct, intent, snap, p.opts.Limits)
	if !d.Allowed {
		return p.reject(intent, StageRisk, d.Reason, 0), nil
	}

	var entry ledger.Entry
	switch acct.Mode {
	case bot.ModeLive:
		entry, err = p.opts.Live.Execute(ctx, acct, d.Order)
		if err != nil {
			return Result{}, fmt.Errorf("live execution: %w", err)
		}
	default:
		entry = p.opts.Paper.SimulateFill(acct, d.Order, p.tick(ctx, intent.Pair))
		if entry.Status == ledger.StatusRejected {
			metricPaperRejections.Inc()
		} else if entry.Status == ledger.StatusFilled {
			metricPaperFills.Inc()
		}
	}

	if err := p.opts.Ledger.Append(entry); err != nil {
		metricLedgerFailures.Inc()
		p.logger.Error("ledger write failed, order not admitted",
			zap.String("bot_id", acct.ID),
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return Result{}, fmt.Errorf("persist ledger entry: %w", err)
	}

	metricOrdersAdmitted.Inc()
	p.logger.Info("order admitted",
		zap.String("bot_id", acct.ID),
		zap.String("pair", intent.Pair),
		zap.String("status", entry.Status),
		zap.Float64("notional", d.Order.Notional),
		zap.Float64("fill_price", entry.FillPrice))
	return Result{Status: Admitted, Entry: &entry}, nil
}

// snapshot fetches the user's exposure; on failure it substitutes the
// zero-headroom snapshot so the risk stage denies rather than the pipeline
// guessing at capacity.
func (p *Pipeline) snapshot(ctx context.Context, userID string) risk.Exposure {
	snap, err := p.opts.Exposure.Snapshot(ctx, userID)
	if err != nil {
		p.logger.Warn("exposure snapshot unavailable, assuming zero headroom",
			zap.String("user_id", userID), zap.Error(err))
		return risk.Exposure{UserID: userID}
	}
	return snap
}

// tick fetches the latest price under a short timeout. A timeout or miss is
// a zero tick, which the simulator turns into a hold entry.
func (p *Pipeline) tick(ctx context.Context, pair string) market.Tick {
	tctx, cancel := context.WithTimeout(ctx, p.opts.TickTimeout)
	defer cancel()
	t, err := p.opts.Ticks.GetTick(tctx, pair)
	if err != nil {
		return market.Tick{}
	}
	return t
}
