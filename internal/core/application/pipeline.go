package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// rewardPipeline moves a round's aggregate stake through the yield source and
// accounts the proceeds back into the pool. Every step is idempotent: the
// stake position's status gates each transition, so repeated cranks are
// no-ops.
type rewardPipeline struct {
	repoManager ports.RepoManager
	yieldSource ports.YieldSource
}

func newRewardPipeline(repoManager ports.RepoManager, yieldSource ports.YieldSource) *rewardPipeline {
	return &rewardPipeline{repoManager, yieldSource}
}

// delegate places the round's principal with the yield source once deposits
// are closed. The principal leaves the pool's spendable liquidity.
func (p *rewardPipeline) delegate(
	ctx context.Context, registry *domain.Registry, roundID uint64, now int64,
) error {
	position, err := p.repoManager.Stakes().Get(ctx, roundID)
	if err != nil {
		if errors.Is(err, domain.ErrStakeNotFound) {
			return nil
		}
		return err
	}

	if !position.Delegate(now) {
		return nil
	}

	if err := registry.SpendLiquidity(position.Principal); err != nil {
		return err
	}
	if err := p.yieldSource.Delegate(ctx, roundID, position.Principal); err != nil {
		return fmt.Errorf("failed to delegate stake for round %d: %w", roundID, err)
	}
	if err := p.repoManager.Stakes().AddOrUpdate(ctx, *position); err != nil {
		return err
	}
	if err := p.repoManager.Registry().Update(ctx, *registry); err != nil {
		return err
	}

	log.Debugf("delegated %d for round %d", position.Principal, roundID)
	return nil
}

// deactivate begins the yield source's exit process at round end.
func (p *rewardPipeline) deactivate(ctx context.Context, roundID uint64, now int64) error {
	position, err := p.repoManager.Stakes().Get(ctx, roundID)
	if err != nil {
		if errors.Is(err, domain.ErrStakeNotFound) {
			return nil
		}
		return err
	}

	if !position.Deactivate(now) {
		return nil
	}

	if err := p.yieldSource.Deactivate(ctx, roundID); err != nil {
		return fmt.Errorf("failed to deactivate stake for round %d: %w", roundID, err)
	}
	if err := p.repoManager.Stakes().AddOrUpdate(ctx, *position); err != nil {
		return err
	}

	log.Debugf("deactivated stake for round %d", roundID)
	return nil
}

// harvest pulls matured principal+yield into the pool. It is a no-op when the
// position is not deactivating, and returns ports.ErrStakeCooldown while the
// exit cooldown has not elapsed.
func (p *rewardPipeline) harvest(
	ctx context.Context, registry *domain.Registry, roundID uint64, now int64,
) error {
	position, err := p.repoManager.Stakes().Get(ctx, roundID)
	if err != nil {
		if errors.Is(err, domain.ErrStakeNotFound) {
			return nil
		}
		return err
	}

	if position.Status != domain.StakeDeactivating {
		return nil
	}

	proceeds, err := p.yieldSource.Harvest(ctx, roundID)
	if err != nil {
		return err
	}

	if !position.Harvest(proceeds, now) {
		return nil
	}
	if err := registry.AddLiquidity(proceeds); err != nil {
		return err
	}
	if err := p.repoManager.Stakes().AddOrUpdate(ctx, *position); err != nil {
		return err
	}
	if err := p.repoManager.Registry().Update(ctx, *registry); err != nil {
		return err
	}

	log.Infof(
		"harvested round %d: principal %d, yield %d",
		roundID, position.Principal, position.Yield(),
	)
	return nil
}

// prizeAmount computes the distributable prize for a round: the previous
// round's harvested yield plus the seeded liquidity. The one-round settlement
// lag means the round's own stake never funds its own prize.
func (p *rewardPipeline) prizeAmount(
	ctx context.Context, registry *domain.Registry, roundID uint64,
) (uint64, error) {
	prize := registry.PrizeSeedAmount
	if roundID <= 1 {
		return prize, nil
	}

	position, err := p.repoManager.Stakes().Get(ctx, roundID-1)
	if err != nil {
		if errors.Is(err, domain.ErrStakeNotFound) {
			return prize, nil
		}
		return 0, err
	}

	total := prize + position.Yield()
	if total < prize {
		return 0, domain.ErrArithmeticOverflow
	}
	return total, nil
}
