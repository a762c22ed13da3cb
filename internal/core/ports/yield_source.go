package ports

import (
	"context"
	"errors"
)

// ErrStakeCooldown is returned by Harvest while the exit cooldown of a
// deactivated position has not elapsed yet.
var ErrStakeCooldown = errors.New("stake exit cooldown not elapsed")

// YieldSource is the external staking system. It settles with a one-cycle
// lag: a position deactivated at round end matures only after the cooldown,
// i.e. during the following round.
type YieldSource interface {
	Delegate(ctx context.Context, roundID, amount uint64) error
	Deactivate(ctx context.Context, roundID uint64) error
	// Harvest returns the matured principal+yield of a deactivated position.
	Harvest(ctx context.Context, roundID uint64) (uint64, error)
}
