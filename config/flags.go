package config

import (
	"sync"

	"github.com/rustyeddy/botgate/gate"
)

// RuntimeFlags holds the trading switches behind a lock so operators can
// flip them while the system runs. The mode gate reads them fresh on every
// evaluation.
type RuntimeFlags struct {
	mu    sync.RWMutex
	flags gate.Flags
}

func NewRuntimeFlags(f FlagsConfig) *RuntimeFlags {
	return &RuntimeFlags{flags: gate.Flags{
		PaperEnabled:     f.PaperEnabled,
		LiveEnabled:      f.LiveEnabled,
		AutopilotEnabled: f.AutopilotEnabled,
	}}
}

func (r *RuntimeFlags) Flags() gate.Flags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags
}

func (r *RuntimeFlags) Set(f gate.Flags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags = f
}
