// Package config loads and validates the system configuration. Validation
// failures are fatal at startup; nothing in the request path re-validates.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/paper"
	"github.com/rustyeddy/botgate/ratelimit"
	"github.com/rustyeddy/botgate/risk"
	"github.com/rustyeddy/botgate/rogue"
)

// ordersPerBotPerDay sets the daily rate cap: bots_allowed × 50 per
// exchange. The exchange-scoped limiter is the sole enforcement point for
// daily volume.
const ordersPerBotPerDay = 50

// maxDelayJitterBps caps the simulator's execution-delay price drift at
// 0.05% either way.
const maxDelayJitterBps = 5

type Config struct {
	Flags     FlagsConfig               `json:"flags" yaml:"flags"`
	Exchanges map[string]ExchangeConfig `json:"exchanges" yaml:"exchanges"`
	Risk      RiskConfig                `json:"risk" yaml:"risk"`
	Rogue     RogueConfig               `json:"rogue" yaml:"rogue"`
	Ledger    LedgerConfig              `json:"ledger" yaml:"ledger"`
	Feed      FeedConfig                `json:"feed" yaml:"feed"`
	Bots      []BotConfig               `json:"bots,omitempty" yaml:"bots,omitempty"`
	Log       LogConfig                 `json:"log" yaml:"log"`
}

// FlagsConfig holds the startup values of the runtime trading switches.
type FlagsConfig struct {
	PaperEnabled     bool `json:"paper_enabled" yaml:"paper_enabled"`
	LiveEnabled      bool `json:"live_enabled" yaml:"live_enabled"`
	AutopilotEnabled bool `json:"autopilot_enabled" yaml:"autopilot_enabled"`
}

type ExchangeConfig struct {
	BotsAllowed       int     `json:"bots_allowed" yaml:"bots_allowed"`
	BurstCap          int     `json:"burst_cap" yaml:"burst_cap"`
	MinuteCap         int     `json:"minute_cap" yaml:"minute_cap"`
	TakerFeeRate      float64 `json:"taker_fee_rate" yaml:"taker_fee_rate"`
	RejectionRate     float64 `json:"rejection_rate" yaml:"rejection_rate"`
	SlippageMinBps    float64 `json:"slippage_min_bps" yaml:"slippage_min_bps"`
	SlippageMaxBps    float64 `json:"slippage_max_bps" yaml:"slippage_max_bps"`
	LiquidityNotional float64 `json:"liquidity_notional" yaml:"liquidity_notional"`
	DelayJitterBps    float64 `json:"delay_jitter_bps" yaml:"delay_jitter_bps"`
}

type RiskConfig struct {
	MinNotional            float64 `json:"min_notional" yaml:"min_notional"`
	PerAssetCapFraction    float64 `json:"per_asset_cap_fraction" yaml:"per_asset_cap_fraction"`
	PerExchangeCapFraction float64 `json:"per_exchange_cap_fraction" yaml:"per_exchange_cap_fraction"`
	DailyLossLimitFraction float64 `json:"daily_loss_limit_fraction" yaml:"daily_loss_limit_fraction"`
}

type RogueConfig struct {
	Interval         string  `json:"interval" yaml:"interval"` // e.g. "1m", "30s"
	HourlyLossRatio  float64 `json:"hourly_loss_ratio" yaml:"hourly_loss_ratio"`
	MaxDrawdownRatio float64 `json:"max_drawdown_ratio" yaml:"max_drawdown_ratio"`
}

func (r RogueConfig) ParseInterval() (time.Duration, error) {
	if r.Interval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(r.Interval)
}

type LedgerConfig struct {
	Type      string `json:"type" yaml:"type"` // "sqlite" or "csv"
	DBPath    string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	FillsFile string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
}

type FeedConfig struct {
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty"`
	MaxTickAge string `json:"max_tick_age,omitempty" yaml:"max_tick_age,omitempty"` // e.g. "10s"
}

func (f FeedConfig) ParseMaxTickAge() (time.Duration, error) {
	if f.MaxTickAge == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(f.MaxTickAge)
}

// BotConfig seeds a bot account at startup.
type BotConfig struct {
	ID        string  `json:"id" yaml:"id"`
	UserID    string  `json:"user_id" yaml:"user_id"`
	Exchange  string  `json:"exchange" yaml:"exchange"`
	Mode      string  `json:"mode" yaml:"mode"`
	Profile   string  `json:"profile" yaml:"profile"`
	Capital   float64 `json:"capital" yaml:"capital"`
	Autopilot bool    `json:"autopilot,omitempty" yaml:"autopilot,omitempty"`
}

func (b BotConfig) Account() bot.Account {
	return bot.Account{
		ID:        b.ID,
		UserID:    b.UserID,
		Exchange:  b.Exchange,
		Mode:      bot.Mode(b.Mode),
		Profile:   bot.RiskProfile(b.Profile),
		Capital:   b.Capital,
		State:     bot.StateActive,
		Autopilot: b.Autopilot,
		CreatedAt: time.Now(),
	}
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// LoadFromFile reads a YAML or JSON config and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML, or JSON for a .json extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks every cap and fraction. It is the only place
// configuration errors surface; the request path trusts the result.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("at least one exchange must be configured")
	}
	for name, ex := range c.Exchanges {
		if ex.BotsAllowed <= 0 {
			return fmt.Errorf("exchange %s: bots_allowed must be positive", name)
		}
		if ex.BurstCap <= 0 || ex.MinuteCap <= 0 {
			return fmt.Errorf("exchange %s: burst_cap and minute_cap must be positive", name)
		}
		if ex.TakerFeeRate < 0 || ex.TakerFeeRate >= 1 {
			return fmt.Errorf("exchange %s: taker_fee_rate must be in [0, 1)", name)
		}
		if ex.RejectionRate < 0 || ex.RejectionRate >= 1 {
			return fmt.Errorf("exchange %s: rejection_rate must be in [0, 1)", name)
		}
		if ex.SlippageMinBps < 0 || ex.SlippageMaxBps < ex.SlippageMinBps {
			return fmt.Errorf("exchange %s: slippage band is inverted", name)
		}
		if ex.LiquidityNotional <= 0 {
			return fmt.Errorf("exchange %s: liquidity_notional must be positive", name)
		}
		if ex.DelayJitterBps < 0 || ex.DelayJitterBps > maxDelayJitterBps {
			return fmt.Errorf("exchange %s: delay_jitter_bps must be in [0, %d]", name, maxDelayJitterBps)
		}
	}

	if c.Risk.MinNotional <= 0 {
		return fmt.Errorf("risk.min_notional must be positive")
	}
	for _, frac := range []struct {
		name  string
		value float64
	}{
		{"risk.per_asset_cap_fraction", c.Risk.PerAssetCapFraction},
		{"risk.per_exchange_cap_fraction", c.Risk.PerExchangeCapFraction},
		{"risk.daily_loss_limit_fraction", c.Risk.DailyLossLimitFraction},
	} {
		if frac.value <= 0 || frac.value > 1 {
			return fmt.Errorf("%s must be in (0, 1]", frac.name)
		}
	}

	if c.Rogue.HourlyLossRatio <= 0 || c.Rogue.HourlyLossRatio > 1 {
		return fmt.Errorf("rogue.hourly_loss_ratio must be in (0, 1]")
	}
	if c.Rogue.MaxDrawdownRatio <= 0 || c.Rogue.MaxDrawdownRatio > 1 {
		return fmt.Errorf("rogue.max_drawdown_ratio must be in (0, 1]")
	}
	if _, err := c.Rogue.ParseInterval(); err != nil {
		return fmt.Errorf("rogue.interval: %w", err)
	}

	switch c.Ledger.Type {
	case "sqlite":
		if c.Ledger.DBPath == "" {
			return fmt.Errorf("ledger.db_path required for sqlite type")
		}
	case "csv":
		if c.Ledger.FillsFile == "" {
			return fmt.Errorf("ledger.fills_file required for csv type")
		}
	default:
		return fmt.Errorf("ledger.type must be 'sqlite' or 'csv'")
	}

	if _, err := c.Feed.ParseMaxTickAge(); err != nil {
		return fmt.Errorf("feed.max_tick_age: %w", err)
	}

	for i, b := range c.Bots {
		if b.ID == "" || b.UserID == "" {
			return fmt.Errorf("bots[%d]: id and user_id are required", i)
		}
		if _, ok := c.Exchanges[b.Exchange]; !ok {
			return fmt.Errorf("bots[%d]: unknown exchange %q", i, b.Exchange)
		}
		if m := bot.Mode(b.Mode); m != bot.ModePaper && m != bot.ModeLive {
			return fmt.Errorf("bots[%d]: mode must be 'paper' or 'live'", i)
		}
		if !bot.RiskProfile(b.Profile).Valid() {
			return fmt.Errorf("bots[%d]: unknown risk profile %q", i, b.Profile)
		}
		if b.Capital <= 0 {
			return fmt.Errorf("bots[%d]: capital must be positive", i)
		}
	}

	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("log.level must be debug, info, warn or error")
		}
	}
	return nil
}

// RateCaps builds the per-exchange limiter caps. The daily cap derives from
// bots_allowed; there is no separate aspirational daily limit.
func (c *Config) RateCaps() map[string]ratelimit.Caps {
	caps := make(map[string]ratelimit.Caps, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		caps[name] = ratelimit.Caps{
			Burst:  ex.BurstCap,
			Minute: ex.MinuteCap,
			Daily:  ex.BotsAllowed * ordersPerBotPerDay,
		}
	}
	return caps
}

// PaperProfiles builds the per-exchange simulator parameters.
func (c *Config) PaperProfiles() map[string]paper.Profile {
	profiles := make(map[string]paper.Profile, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		profiles[name] = paper.Profile{
			RejectionRate:     ex.RejectionRate,
			TakerFeeRate:      ex.TakerFeeRate,
			SlippageMinBps:    ex.SlippageMinBps,
			SlippageMaxBps:    ex.SlippageMaxBps,
			LiquidityNotional: ex.LiquidityNotional,
			DelayJitterBps:    ex.DelayJitterBps,
		}
	}
	return profiles
}

func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MinNotional:            c.Risk.MinNotional,
		PerAssetCapFraction:    c.Risk.PerAssetCapFraction,
		PerExchangeCapFraction: c.Risk.PerExchangeCapFraction,
		DailyLossLimitFraction: c.Risk.DailyLossLimitFraction,
	}
}

func (c *Config) RogueThresholds() rogue.Thresholds {
	return rogue.Thresholds{
		HourlyLossRatio:  c.Rogue.HourlyLossRatio,
		MaxDrawdownRatio: c.Rogue.MaxDrawdownRatio,
	}
}

// Default returns a configuration with sensible defaults for paper trading
// on a single exchange.
func Default() *Config {
	return &Config{
		Flags: FlagsConfig{PaperEnabled: true},
		Exchanges: map[string]ExchangeConfig{
			"binance": {
				BotsAllowed:       20,
				BurstCap:          10,
				MinuteCap:         60,
				TakerFeeRate:      0.001,
				RejectionRate:     0.03,
				SlippageMinBps:    10,
				SlippageMaxBps:    20,
				LiquidityNotional: 50_000,
				DelayJitterBps:    5,
			},
		},
		Risk: RiskConfig{
			MinNotional:            10,
			PerAssetCapFraction:    0.25,
			PerExchangeCapFraction: 0.50,
			DailyLossLimitFraction: 0.05,
		},
		Rogue: RogueConfig{
			Interval:         "1m",
			HourlyLossRatio:  0.15,
			MaxDrawdownRatio: 0.20,
		},
		Ledger: LedgerConfig{
			Type:   "sqlite",
			DBPath: "./fills.db",
		},
		Feed: FeedConfig{
			Source:     "sim",
			MaxTickAge: "10s",
		},
		Log: LogConfig{Level: "info"},
	}
}
