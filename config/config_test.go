package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/botgate/gate"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no exchanges",
			mutate:  func(c *Config) { c.Exchanges = nil },
			wantErr: "at least one exchange",
		},
		{
			name: "zero bots allowed",
			mutate: func(c *Config) {
				ex := c.Exchanges["binance"]
				ex.BotsAllowed = 0
				c.Exchanges["binance"] = ex
			},
			wantErr: "bots_allowed",
		},
		{
			name: "inverted slippage band",
			mutate: func(c *Config) {
				ex := c.Exchanges["binance"]
				ex.SlippageMinBps = 30
				c.Exchanges["binance"] = ex
			},
			wantErr: "slippage band",
		},
		{
			name: "taker fee of one",
			mutate: func(c *Config) {
				ex := c.Exchanges["binance"]
				ex.TakerFeeRate = 1.0
				c.Exchanges["binance"] = ex
			},
			wantErr: "taker_fee_rate",
		},
		{
			name: "jitter above the 5 bps cap",
			mutate: func(c *Config) {
				ex := c.Exchanges["binance"]
				ex.DelayJitterBps = 6
				c.Exchanges["binance"] = ex
			},
			wantErr: "delay_jitter_bps",
		},
		{
			name: "rejection rate of one",
			mutate: func(c *Config) {
				ex := c.Exchanges["binance"]
				ex.RejectionRate = 1.0
				c.Exchanges["binance"] = ex
			},
			wantErr: "rejection_rate",
		},
		{
			name:    "zero min notional",
			mutate:  func(c *Config) { c.Risk.MinNotional = 0 },
			wantErr: "min_notional",
		},
		{
			name:    "loss fraction over one",
			mutate:  func(c *Config) { c.Risk.DailyLossLimitFraction = 1.5 },
			wantErr: "daily_loss_limit_fraction",
		},
		{
			name:    "bad rogue interval",
			mutate:  func(c *Config) { c.Rogue.Interval = "soon" },
			wantErr: "rogue.interval",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Ledger.DBPath = "" },
			wantErr: "db_path",
		},
		{
			name:    "unknown ledger type",
			mutate:  func(c *Config) { c.Ledger.Type = "postgres" },
			wantErr: "ledger.type",
		},
		{
			name: "bot on unknown exchange",
			mutate: func(c *Config) {
				c.Bots = []BotConfig{{
					ID: "b1", UserID: "u1", Exchange: "ghost",
					Mode: "paper", Profile: "safe", Capital: 100,
				}}
			},
			wantErr: "unknown exchange",
		},
		{
			name: "bot with bad profile",
			mutate: func(c *Config) {
				c.Bots = []BotConfig{{
					ID: "b1", UserID: "u1", Exchange: "binance",
					Mode: "paper", Profile: "yolo", Capital: 100,
				}}
			},
			wantErr: "risk profile",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "botgate.yaml")
	orig := Default()
	orig.Bots = []BotConfig{{
		ID: "b1", UserID: "u1", Exchange: "binance",
		Mode: "paper", Profile: "balanced", Capital: 2500,
	}}
	require.NoError(t, orig.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, orig.Risk, loaded.Risk)
	assert.Equal(t, orig.Exchanges, loaded.Exchanges)
	require.Len(t, loaded.Bots, 1)
	assert.Equal(t, "balanced", loaded.Bots[0].Profile)
}

func TestLoadFromFile_RejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "botgate.yaml")
	cfg := Default()
	cfg.Risk.MinNotional = -1
	require.NoError(t, cfg.SaveToFile(path))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestRateCaps_DailyDerivesFromBotsAllowed(t *testing.T) {
	t.Parallel()

	cfg := Default() // binance: 20 bots allowed
	caps := cfg.RateCaps()

	require.Contains(t, caps, "binance")
	assert.Equal(t, 10, caps["binance"].Burst)
	assert.Equal(t, 60, caps["binance"].Minute)
	assert.Equal(t, 1000, caps["binance"].Daily) // 20 × 50
}

func TestRogueConfig_ParseInterval(t *testing.T) {
	t.Parallel()

	d, err := RogueConfig{Interval: "30s"}.ParseInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = RogueConfig{}.ParseInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestRuntimeFlags_SetIsVisibleToReaders(t *testing.T) {
	t.Parallel()

	rf := NewRuntimeFlags(FlagsConfig{PaperEnabled: true})
	assert.True(t, rf.Flags().PaperEnabled)
	assert.False(t, rf.Flags().LiveEnabled)

	rf.Set(gate.Flags{LiveEnabled: true})
	assert.False(t, rf.Flags().PaperEnabled)
	assert.True(t, rf.Flags().LiveEnabled)
}
