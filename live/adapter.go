// Package live is the boundary to real exchange execution. The exchange
// client itself is an external collaborator; only the adapter contract and
// a placeholder implementation live here.
package live

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rustyeddy/botgate/bot"
	"github.com/rustyeddy/botgate/ledger"
	"github.com/rustyeddy/botgate/risk"
)

// Adapter forwards an admitted order to a real exchange and reports the
// resulting fill as a ledger entry.
type Adapter interface {
	Execute(ctx context.Context, acct bot.Account, order risk.SizedOrder) (ledger.Entry, error)
}

var ErrNotConfigured = errors.New("live execution adapter not configured")

// Unconfigured is the default adapter when no exchange client is wired. It
// refuses every order so live mode cannot silently no-op.
type Unconfigured struct {
	logger *zap.Logger
}

func NewUnconfigured(logger *zap.Logger) *Unconfigured {
	return &Unconfigured{logger: logger.With(zap.String("component", "live_adapter"))}
}

func (u *Unconfigured) Execute(ctx context.Context, acct bot.Account, order risk.SizedOrder) (ledger.Entry, error) {
	u.logger.Warn("live order refused, no exchange client configured",
		zap.String("bot_id", acct.ID),
		zap.String("pair", order.Intent.Pair))
	return ledger.Entry{}, ErrNotConfigured
}
