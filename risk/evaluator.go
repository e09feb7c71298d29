package risk

import (
	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/market"
)

// Stable deny reason codes exposed to callers.
const (
	ReasonBelowMinimumNotional     = "below_minimum_notional"
	ReasonAssetExposureExceeded    = "asset_exposure_exceeded"
	ReasonExchangeExposureExceeded = "exchange_exposure_exceeded"
	ReasonDailyLossCircuitBreaker  = "daily_loss_circuit_breaker"
)

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// SizeOrder clamps the requested notional to the bot's tier budget and
// checks it against the exposure snapshot. Two concurrent evaluations for
// the same bot may both pass against a stale snapshot; the ledger is the
// authority and the next recomputation corrects exposure.
//
// A zero-equity snapshot (the DataUnavailable fallback) leaves no headroom,
// so every order is denied on exposure.
func SizeOrder(acct bot.Account, intent Intent, snap Exposure, lim Limits) Decision {
	maxPosition := acct.Capital * acct.Profile.PositionFraction()

	notional := intent.Notional
	if notional > maxPosition {
		notional = maxPosition
	}

	if notional < lim.MinNotional {
		return deny(ReasonBelowMinimumNotional)
	}

	asset := market.BaseAsset(intent.Pair)
	if snap.assetExposure(asset)+notional > lim.PerAssetCapFraction*snap.TotalEquity {
		return deny(ReasonAssetExposureExceeded)
	}

	if snap.exchangeExposure(intent.Exchange)+notional > lim.PerExchangeCapFraction*snap.TotalEquity {
		return deny(ReasonExchangeExposureExceeded)
	}

	// Inclusive boundary: losing exactly the limit trips the breaker.
	if snap.TotalEquity > 0 && snap.RealizedLossToday/snap.TotalEquity >= lim.DailyLossLimitFraction {
		return deny(ReasonDailyLossCircuitBreaker)
	}

	return Decision{
		Allowed: true,
		Order: SizedOrder{
			Intent:           intent,
			Notional:         notional,
			StopLossFraction: acct.Profile.StopLossFraction(),
		},
	}
}
