package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/botgate/admission"
	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/config"
	"github.com/rustyeddy/botgate/feed"
	"github.com/rustyeddy/botgate/ledger"
	"github.com/rustyeddy/botgate/live"
	"github.com/rustyeddy/botgate/market"
	"github.com/rustyeddy/botgate/paper"
	"github.com/rustyeddy/botgate/ratelimit"
	"github.com/rustyeddy/botgate/risk"
	"github.com/rustyeddy/botgate/rogue"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the admission gate, reading order intents from stdin",
	Long: `Run wires the full admission pipeline from a config file and processes
order intents supplied by a strategy collaborator as JSON lines on stdin:

  {"bot_id":"b1","exchange":"binance","pair":"BTC/USDT","side":"buy","notional":100}

Each intent produces one admission result on stdout. The rogue detector and
the price feed (when configured) run in the background until stdin closes or
the process is interrupted.`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runMetricsAddr string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "address for the prometheus /metrics endpoint (optional)")
	runCmd.MarkFlagRequired("config")
}

// intentLine is the wire format of one order intent.
type intentLine struct {
	BotID    string  `json:"bot_id"`
	Exchange string  `json:"exchange"`
	Pair     string  `json:"pair"`
	Side     string  `json:"side"`
	Notional float64 `json:"notional"`
}

// resultLine is the admission result reported back to the caller.
type resultLine struct {
	Status       string  `json:"status"`
	Stage        string  `json:"stage,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	RetryAfterMS int64   `json:"retry_after_ms,omitempty"`
	EntryID      string  `json:"entry_id,omitempty"`
	FillPrice    float64 `json:"fill_price,omitempty"`
	NetPnL       float64 `json:"net_pnl,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bots := bot.NewMemoryStore()
	for _, b := range cfg.Bots {
		if err := bots.Put(b.Account()); err != nil {
			return fmt.Errorf("seed bot %s: %w", b.ID, err)
		}
	}

	var (
		led      ledger.Ledger
		reader   ledger.Reader
		exposure risk.ExposureSource
	)
	switch cfg.Ledger.Type {
	case "sqlite":
		sq, err := ledger.NewSQLite(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		led = sq
		reader = sq
		exposure = ledger.NewExposureSource(sq, bots)
	default:
		cs, err := ledger.NewCSV(cfg.Ledger.FillsFile)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		led = cs
		reader = emptyReader{}
		exposure = capitalOnlyExposure{bots: bots}
		logger.Warn("csv ledger has no query surface; exposure tracking and rogue detection are degraded")
	}
	defer led.Close()

	maxAge, _ := cfg.Feed.ParseMaxTickAge()
	ticks := market.NewTickStore(maxAge)

	var feedClient *feed.Client
	if cfg.Feed.URL != "" {
		feedClient = feed.NewClient(cfg.Feed.URL, cfg.Feed.Source, ticks, logger)
		feedClient.Start(ctx)
		defer feedClient.Close()
	}

	flags := config.NewRuntimeFlags(cfg.Flags)
	limiter := ratelimit.New(cfg.RateCaps(), ratelimit.Caps{})
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sim := paper.NewSimulator(cfg.PaperProfiles(), paper.Profile{}, rng)

	pipeline := admission.NewPipeline(admission.Options{
		Bots:        bots,
		Credentials: bot.CredentialMap{}, // credential collaborator not wired; live mode denies
		Flags:       flags,
		Limiter:     limiter,
		Limits:      cfg.RiskLimits(),
		Exposure:    exposure,
		Ticks:       ticks,
		Paper:       sim,
		Live:        live.NewUnconfigured(logger),
		Ledger:      ledger.NewRetryWriter(led, 3, 100*time.Millisecond),
		Logger:      logger,
	})

	interval, _ := cfg.Rogue.ParseInterval()
	detector := rogue.NewDetector(ctx, logger, bots, reader, cfg.RogueThresholds(), interval, nil)
	if err := detector.Start(); err != nil {
		return fmt.Errorf("start rogue detector: %w", err)
	}
	defer detector.Stop()

	if runMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(runMetricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("gate running, reading intents from stdin",
		zap.Int("bots", len(cfg.Bots)),
		zap.String("ledger", cfg.Ledger.Type))

	enc := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var in intentLine
		if err := json.Unmarshal(line, &in); err != nil {
			logger.Warn("dropping malformed intent", zap.Error(err))
			continue
		}

		res, err := pipeline.Admit(ctx, risk.Intent{
			BotID:    in.BotID,
			Exchange: in.Exchange,
			Pair:     in.Pair,
			Side:     market.Side(in.Side),
			Notional: in.Notional,
			Time:     time.Now(),
		})
		if err != nil {
			logger.Error("admission failed", zap.String("bot_id", in.BotID), zap.Error(err))
			continue
		}

		out := resultLine{
			Status:       string(res.Status),
			Stage:        string(res.Stage),
			Reason:       res.Reason,
			RetryAfterMS: res.RetryAfter.Milliseconds(),
		}
		if res.Entry != nil {
			out.EntryID = res.Entry.ID
			out.FillPrice = res.Entry.FillPrice
			out.NetPnL = res.Entry.NetPnL
		}
		enc.Encode(out)
	}
	return scanner.Err()
}

// emptyReader backs rogue detection when the ledger has no query surface.
type emptyReader struct{}

func (emptyReader) EntriesByBot(string, time.Time) ([]ledger.Entry, error) { return nil, nil }

// capitalOnlyExposure is the fallback when exposure cannot be recomputed
// from the ledger: equity is the sum of allocated capital and no open
// exposure is tracked.
type capitalOnlyExposure struct {
	bots bot.Store
}

func (c capitalOnlyExposure) Snapshot(ctx context.Context, userID string) (risk.Exposure, error) {
	snap := risk.Exposure{
		UserID:      userID,
		PerAsset:    map[string]float64{},
		PerExchange: map[string]float64{},
		Taken:       time.Now(),
	}
	for _, a := range c.bots.List() {
		if a.UserID == userID && a.State != bot.StateDeleted {
			snap.TotalEquity += a.Capital
		}
	}
	return snap, nil
}
