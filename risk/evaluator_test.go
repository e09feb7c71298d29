package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/market"
)

var testLimits = Limits{
	MinNotional:            10,
	PerAssetCapFraction:    0.25,
	PerExchangeCapFraction: 0.50,
	DailyLossLimitFraction: 0.05,
}

func testAccount(profile bot.RiskProfile, capital float64) bot.Account {
	return bot.Account{
		ID:       "b1",
		UserID:   "u1",
		Exchange: "binance",
		Mode:     bot.ModePaper,
		Profile:  profile,
		Capital:  capital,
		State:    bot.StateActive,
	}
}

func testIntent(notional float64) Intent {
	return Intent{
		BotID:    "b1",
		Exchange: "binance",
		Pair:     "BTC/USDT",
		Side:     market.Buy,
		Notional: notional,
		Time:     time.Now(),
	}
}

func roomySnapshot(equity float64) Exposure {
	return Exposure{
		UserID:      "u1",
		TotalEquity: equity,
		PerAsset:    map[string]float64{},
		PerExchange: map[string]float64{},
	}
}

func TestSizeOrder_ClampsToTierBudget(t *testing.T) {
	t.Parallel()

	// capital 1000, safe tier (25%) → requested 500 clamps to 250.
	d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(500), roomySnapshot(10000), testLimits)

	require.True(t, d.Allowed)
	assert.InDelta(t, 250.0, d.Order.Notional, 1e-9)
	assert.InDelta(t, 0.02, d.Order.StopLossFraction, 1e-9)
}

func TestSizeOrder_TierFractions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		profile      bot.RiskProfile
		wantNotional float64
	}{
		{bot.ProfileSafe, 250},
		{bot.ProfileBalanced, 500},
		{bot.ProfileAggressive, 750},
		{bot.ProfileMaximal, 1000},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.profile), func(t *testing.T) {
			t.Parallel()
			d := SizeOrder(testAccount(tt.profile, 1000), testIntent(5000), roomySnapshot(100000), testLimits)
			require.True(t, d.Allowed)
			assert.InDelta(t, tt.wantNotional, d.Order.Notional, 1e-9)

			// Invariant: clamped notional never exceeds capital × fraction.
			assert.LessOrEqual(t, d.Order.Notional, 1000*tt.profile.PositionFraction()+1e-9)
		})
	}
}

func TestSizeOrder_SmallRequestPassesUnclamped(t *testing.T) {
	t.Parallel()

	d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(100), roomySnapshot(10000), testLimits)
	require.True(t, d.Allowed)
	assert.InDelta(t, 100.0, d.Order.Notional, 1e-9)
}

func TestSizeOrder_BelowMinimumNotional(t *testing.T) {
	t.Parallel()

	d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(5), roomySnapshot(10000), testLimits)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonBelowMinimumNotional, d.Reason)
}

func TestSizeOrder_ClampCanDropBelowMinimum(t *testing.T) {
	t.Parallel()

	// capital 20, safe tier → max position 5, below the 10 minimum.
	d := SizeOrder(testAccount(bot.ProfileSafe, 20), testIntent(100), roomySnapshot(10000), testLimits)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonBelowMinimumNotional, d.Reason)
}

func TestSizeOrder_AssetExposureCap(t *testing.T) {
	t.Parallel()

	snap := roomySnapshot(1000) // asset cap = 250
	snap.PerAsset["BTC"] = 200

	d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(100), snap, testLimits)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonAssetExposureExceeded, d.Reason)
}

func TestSizeOrder_ExchangeExposureCap(t *testing.T) {
	t.Parallel()

	snap := roomySnapshot(1000) // exchange cap = 500
	snap.PerExchange["binance"] = 450

	d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(100), snap, testLimits)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonExchangeExposureExceeded, d.Reason)
}

func TestSizeOrder_DailyLossCircuitBreaker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		lossToday float64
		wantAllow bool
	}{
		{"under the limit", 49.99, true},
		{"exactly at the limit is denied", 50.0, false}, // inclusive boundary
		{"over the limit", 80.0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap := roomySnapshot(1000) // 5% limit → 50
			snap.RealizedLossToday = tt.lossToday

			d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(100), snap, testLimits)
			assert.Equal(t, tt.wantAllow, d.Allowed)
			if !tt.wantAllow {
				assert.Equal(t, ReasonDailyLossCircuitBreaker, d.Reason)
			}
		})
	}
}

func TestSizeOrder_ZeroHeadroomSnapshotDeniesEverything(t *testing.T) {
	t.Parallel()

	// The DataUnavailable fallback: zero equity, nil maps.
	d := SizeOrder(testAccount(bot.ProfileSafe, 1000), testIntent(100), Exposure{UserID: "u1"}, testLimits)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonAssetExposureExceeded, d.Reason)
}
