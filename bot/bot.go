package bot

import "time"

// State is a bot's lifecycle state. Only active bots may trade. Deleted is a
// soft state: accounts are never physically removed so ledger references
// stay resolvable.
type State string

const (
	StateActive      State = "active"
	StatePaused      State = "paused"
	StateQuarantined State = "quarantined"
	StateStopped     State = "stopped"
	StateDeleted     State = "deleted"
)

// Mode selects the execution path for admitted orders.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// RiskProfile is one of four named tiers controlling position sizing and
// stop placement.
type RiskProfile string

const (
	ProfileSafe       RiskProfile = "safe"
	ProfileBalanced   RiskProfile = "balanced"
	ProfileAggressive RiskProfile = "aggressive"
	ProfileMaximal    RiskProfile = "maximal"
)

func (p RiskProfile) Valid() bool {
	switch p {
	case ProfileSafe, ProfileBalanced, ProfileAggressive, ProfileMaximal:
		return true
	}
	return false
}

// PositionFraction is the share of a bot's capital a single position may use.
// Unknown profiles fall back to the safe tier.
func (p RiskProfile) PositionFraction() float64 {
	switch p {
	case ProfileBalanced:
		return 0.50
	case ProfileAggressive:
		return 0.75
	case ProfileMaximal:
		return 1.00
	default:
		return 0.25
	}
}

// StopLossFraction is the stop distance attached to sized orders, as a
// fraction of entry price.
func (p RiskProfile) StopLossFraction() float64 {
	switch p {
	case ProfileBalanced:
		return 0.05
	case ProfileAggressive:
		return 0.08
	case ProfileMaximal:
		return 0.10
	default:
		return 0.02
	}
}

// Account is a single trading bot bound to one exchange connection.
type Account struct {
	ID        string
	UserID    string
	Exchange  string
	Mode      Mode
	Profile   RiskProfile
	Capital   float64 // allocated capital in account currency
	State     State
	Autopilot bool
	CreatedAt time.Time
}

func (a Account) Active() bool {
	return a.State == StateActive
}
