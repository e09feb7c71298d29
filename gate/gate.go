package gate

import "github.com/rustyeddy/botgate/bot"

// Flags are the system-wide trading switches. They may change at runtime, so
// callers must read them fresh from a FlagSource on every evaluation.
type Flags struct {
	PaperEnabled     bool
	LiveEnabled      bool
	AutopilotEnabled bool
}

// FlagSource supplies the current flags. Backed by the configuration
// collaborator.
type FlagSource interface {
	Flags() Flags
}

// FlagsFunc adapts a function to a FlagSource.
type FlagsFunc func() Flags

func (f FlagsFunc) Flags() Flags { return f() }

// Static is a fixed FlagSource.
type Static Flags

func (s Static) Flags() Flags { return Flags(s) }

// Stable deny reason codes exposed to callers.
const (
	ReasonBotNotActive       = "bot_not_active"
	ReasonPaperDisabled      = "paper_trading_disabled"
	ReasonLiveDisabled       = "live_trading_disabled"
	ReasonMissingCredentials = "missing_or_invalid_credentials"
	ReasonAutopilotDisabled  = "autopilot_disabled"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Evaluate applies the mode-gate rules in order, first match wins. It is a
// pure function of its inputs: no side effects, safe to call concurrently
// and repeatedly.
func Evaluate(acct bot.Account, flags Flags, credentialsValidated bool) Decision {
	if !acct.Active() {
		return deny(ReasonBotNotActive)
	}
	if acct.Mode == bot.ModePaper && !flags.PaperEnabled {
		return deny(ReasonPaperDisabled)
	}
	if acct.Mode == bot.ModeLive && !flags.LiveEnabled {
		return deny(ReasonLiveDisabled)
	}
	if acct.Mode == bot.ModeLive && !credentialsValidated {
		return deny(ReasonMissingCredentials)
	}
	if acct.Autopilot && !flags.AutopilotEnabled {
		return deny(ReasonAutopilotDisabled)
	}
	return Decision{Allowed: true}
}
