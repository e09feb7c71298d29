package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "botgate",
	Short: "Admission control and simulated execution for trading bots",
	Long: `Botgate is the safety core that every bot order passes through.

It provides:
  - Mode gating (paper / live / autopilot switches, credential checks)
  - Multi-window rate limiting per (bot, exchange)
  - Capital and exposure risk checks with per-tier position sizing
  - A stochastic paper-fill simulator with fees and slippage
  - An append-only fill ledger (SQLite or CSV)
  - A rogue-bot detector that quarantines bots breaching loss limits`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
