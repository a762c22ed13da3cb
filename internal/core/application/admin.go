package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type adminService struct {
	crankBatchSize int

	repoManager ports.RepoManager
	pipeline    *rewardPipeline
}

func NewAdminService(
	crankBatchSize int, repoManager ports.RepoManager, yieldSource ports.YieldSource,
) AdminService {
	return &adminService{
		crankBatchSize: crankBatchSize,
		repoManager:    repoManager,
		pipeline:       newRewardPipeline(repoManager, yieldSource),
	}
}

// SeedPrize tops up the prize pool out of band. The seeded amount becomes
// part of every subsequent round's distributable prize.
func (a *adminService) SeedPrize(ctx context.Context, caller string, amount uint64) error {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if registry.Closed {
		return domain.ErrProtocolClosed
	}
	if err := registry.SeedPrize(amount); err != nil {
		return err
	}
	if err := a.repoManager.Registry().Update(ctx, *registry); err != nil {
		return err
	}
	log.Infof("seeded prize pool with %d, total seed %d", amount, registry.PrizeSeedAmount)
	return nil
}

// InitRound opens the next round. The previous round must have completed.
func (a *adminService) InitRound(ctx context.Context, caller string) (*domain.Round, error) {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	if registry.Closed {
		return nil, domain.ErrProtocolClosed
	}

	if registry.CurrentRound > 0 {
		current, err := a.repoManager.Rounds().GetRoundWithID(ctx, registry.CurrentRound)
		if err != nil {
			return nil, err
		}
		if !current.IsComplete {
			return nil, domain.ErrRoundNotComplete
		}
	}

	registry.CurrentRound++
	round := domain.NewRound(registry.CurrentRound, uuid.NewString(), time.Now().Unix())

	if err := a.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return nil, err
	}
	if err := a.repoManager.Registry().Update(ctx, *registry); err != nil {
		return nil, err
	}

	log.Infof("round %d started", round.ID)
	return round, nil
}

// AdvanceEpoch bumps the current round's epoch by one without waiting for
// the clock. Monotonic only; finalization still goes through the crank.
func (a *adminService) AdvanceEpoch(ctx context.Context, caller string) error {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}
	round, err := a.repoManager.Rounds().GetRoundWithID(ctx, registry.CurrentRound)
	if err != nil {
		return err
	}
	if err := round.AdvanceEpochManual(); err != nil {
		return err
	}
	return a.repoManager.Rounds().AddOrUpdateRound(ctx, *round)
}

// SelectWinner finalizes the current round with an explicit seed, bypassing
// the randomness source and the draw window. Break-glass only: it scans the
// whole ledger, one bounded page per repository call.
func (a *adminService) SelectWinner(
	ctx context.Context, caller string, seed uint64,
) (*CrankResult, error) {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	round, err := a.repoManager.Rounds().GetRoundWithID(ctx, registry.CurrentRound)
	if err != nil {
		return nil, err
	}
	if round.IsComplete {
		return nil, domain.ErrRoundComplete
	}
	if round.TotalTicketsSold == 0 {
		return nil, domain.ErrNoTicketsSold
	}

	batch := make([]domain.Participant, 0)
	for offset := 0; ; offset += a.crankBatchSize {
		page, err := a.repoManager.Participants().GetPageForRound(
			ctx, round.ID, offset, a.crankBatchSize,
		)
		if err != nil {
			return nil, err
		}
		batch = append(batch, page...)
		if len(page) < a.crankBatchSize {
			break
		}
	}

	winner, winningTicket, err := Select(seed, round.TotalTicketsSold, round.ID, batch)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	prize, err := a.pipeline.prizeAmount(ctx, registry, round.ID)
	if err != nil {
		return nil, err
	}
	if err := round.Finalize(winner, winningTicket, prize, now); err != nil {
		return nil, err
	}
	if err := a.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return nil, err
	}
	if err := a.pipeline.deactivate(ctx, round.ID, now); err != nil {
		return nil, err
	}

	log.Infof("round %d finalized by admin: winner %s, ticket %d", round.ID, winner, winningTicket)
	return &CrankResult{
		RoundID:       round.ID,
		EpochInRound:  round.EpochInRound,
		Completed:     true,
		Winner:        winner,
		WinningTicket: winningTicket,
	}, nil
}

// CreateClaimRecordFor mints a claim record on the winner's behalf with
// explicit amounts, the admin-driven variant of the winner's own call.
func (a *adminService) CreateClaimRecordFor(
	ctx context.Context, caller string, roundID, prize, stake uint64,
) (*domain.ClaimRecord, error) {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	round, err := a.repoManager.Rounds().GetRoundWithID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.IsComplete {
		return nil, domain.ErrRoundNotComplete
	}
	if round.Winner == "" {
		return nil, domain.ErrNoTicketsSold
	}

	claim, err := domain.NewClaimRecord(roundID, round.Winner, prize, stake)
	if err != nil {
		return nil, err
	}
	if err := a.repoManager.Claims().Add(ctx, *claim); err != nil {
		return nil, err
	}
	if err := registry.AddUnclaimed(prize); err != nil {
		return nil, err
	}
	if err := a.repoManager.Registry().Update(ctx, *registry); err != nil {
		return nil, err
	}
	return claim, nil
}

func (a *adminService) Delegate(ctx context.Context, caller string, roundID uint64) error {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}
	return a.pipeline.delegate(ctx, registry, roundID, time.Now().Unix())
}

func (a *adminService) Deactivate(ctx context.Context, caller string, roundID uint64) error {
	if _, err := a.requireAdmin(ctx, caller); err != nil {
		return err
	}
	return a.pipeline.deactivate(ctx, roundID, time.Now().Unix())
}

func (a *adminService) Harvest(ctx context.Context, caller string, roundID uint64) error {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if err := a.pipeline.harvest(ctx, registry, roundID, time.Now().Unix()); err != nil {
		if errors.Is(err, ports.ErrStakeCooldown) {
			return err
		}
		return fmt.Errorf("failed to harvest round %d: %w", roundID, err)
	}
	return nil
}

// CloseProtocol tears the registry down, refused while winners are owed.
func (a *adminService) CloseProtocol(ctx context.Context, caller string) error {
	registry, err := a.requireAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if err := registry.Close(); err != nil {
		return err
	}
	if err := a.repoManager.Registry().Update(ctx, *registry); err != nil {
		return err
	}
	log.Warnf("protocol registry closed by %s", caller)
	return nil
}

func (a *adminService) requireAdmin(ctx context.Context, caller string) (*domain.Registry, error) {
	registry, err := a.repoManager.Registry().Get(ctx)
	if err != nil {
		return nil, err
	}
	if caller == "" || caller != registry.Admin {
		return nil, domain.ErrAdminOnly
	}
	return registry, nil
}
