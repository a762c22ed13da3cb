package application

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	"github.com/rafa-protocol/rafad/internal/metrics"
	log "github.com/sirupsen/logrus"
)

var (
	metricDeposits = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("deposit_total")
	})
	metricCranks = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("crank_total")
	})
	metricRoundFinalized = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("round_finalized_total")
	})
)

type service struct {
	ticketPrice    uint64
	epochDuration  time.Duration
	crankBatchSize int

	repoManager ports.RepoManager
	randSource  ports.RandomnessSource
	pipeline    *rewardPipeline
}

// NewService wires the core against its collaborators and initializes the
// protocol registry on first run.
func NewService(
	ticketPrice uint64, epochDuration time.Duration, crankBatchSize int,
	adminIdentity, yieldSourceIdentity string,
	repoManager ports.RepoManager,
	randSource ports.RandomnessSource, yieldSource ports.YieldSource,
) (Service, error) {
	if ticketPrice == 0 {
		return nil, fmt.Errorf("ticket price must be positive")
	}
	if epochDuration <= 0 {
		return nil, fmt.Errorf("epoch duration must be positive")
	}
	if crankBatchSize <= 0 {
		return nil, fmt.Errorf("crank batch size must be positive")
	}

	ctx := context.Background()
	if _, err := repoManager.Registry().Get(ctx); err != nil {
		if !errors.Is(err, domain.ErrRegistryNotFound) {
			return nil, fmt.Errorf("failed to get registry from db: %w", err)
		}
		registry := domain.NewRegistry(adminIdentity, yieldSourceIdentity)
		if err := repoManager.Registry().Create(ctx, *registry); err != nil {
			return nil, fmt.Errorf("failed to initialize registry: %w", err)
		}
		log.Infof("initialized protocol registry, admin %s", adminIdentity)
	}

	return &service{
		ticketPrice:    ticketPrice,
		epochDuration:  epochDuration,
		crankBatchSize: crankBatchSize,
		repoManager:    repoManager,
		randSource:     randSource,
		pipeline:       newRewardPipeline(repoManager, yieldSource),
	}, nil
}

func (s *service) Start() error {
	log.Debug("starting app service")
	return nil
}

func (s *service) Stop() {
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

// Deposit buys tickets at the fixed price. The round state is recomputed from
// the current time before the eligibility checks run, so a deposit that
// itself pushes the round into epoch 3 or completion is rejected in the same
// call.
func (s *service) Deposit(
	ctx context.Context, identity string, amount uint64,
) (*DepositResult, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if amount%s.ticketPrice != 0 {
		return nil, domain.ErrInvalidTicketAmount
	}
	numTickets := amount / s.ticketPrice

	registry, round, err := s.currentRound(ctx)
	if err != nil {
		return nil, err
	}
	if registry.Closed {
		return nil, domain.ErrProtocolClosed
	}

	now := time.Now().Unix()
	if _, err := s.advanceRound(ctx, registry, round, now, 0); err != nil {
		return nil, err
	}

	if err := round.DepositsAllowed(); err != nil {
		return nil, err
	}

	participant, err := s.repoManager.Participants().Get(ctx, identity)
	if err != nil {
		if !errors.Is(err, domain.ErrParticipantNotFound) {
			return nil, err
		}
		participant = domain.NewParticipant(identity)
	}

	start, end, err := round.AssignTickets(numTickets, amount)
	if err != nil {
		return nil, err
	}
	if err := participant.AddTickets(round.ID, amount, start, end); err != nil {
		return nil, err
	}

	position, err := s.repoManager.Stakes().Get(ctx, round.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrStakeNotFound) {
			return nil, err
		}
		position = domain.NewStakePosition(round.ID)
	}
	if err := position.AddPrincipal(amount); err != nil {
		return nil, err
	}
	if err := registry.AddLiquidity(amount); err != nil {
		return nil, err
	}

	if err := s.repoManager.Participants().AddOrUpdate(ctx, *participant); err != nil {
		return nil, err
	}
	if err := s.repoManager.Stakes().AddOrUpdate(ctx, *position); err != nil {
		return nil, err
	}
	if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return nil, err
	}
	if err := s.repoManager.Registry().Update(ctx, *registry); err != nil {
		return nil, err
	}

	metricDeposits().Add(1)
	log.Debugf(
		"deposit of %d tickets by %s in round %d, range %d-%d",
		numTickets, identity, round.ID, start, end,
	)

	return &DepositResult{
		Identity:    identity,
		RoundID:     round.ID,
		Amount:      amount,
		NumTickets:  numTickets,
		TicketStart: start,
		TicketEnd:   end,
	}, nil
}

// RequestWithdrawal is the pre-finalization opt-out. The funds stay in the
// pool until ProcessWithdrawal after the round completes; the record is
// flagged so the draw treats its tickets as dead.
func (s *service) RequestWithdrawal(
	ctx context.Context, identity string, amount uint64,
) error {
	registry, err := s.repoManager.Registry().Get(ctx)
	if err != nil {
		return err
	}

	participant, err := s.repoManager.Participants().Get(ctx, identity)
	if err != nil {
		return err
	}
	if err := participant.RequestWithdrawal(amount, registry.CurrentRound); err != nil {
		return err
	}

	return s.repoManager.Participants().AddOrUpdate(ctx, *participant)
}

// Crank is the permissionless entry point that recomputes time-based state:
// epoch advancement, stake delegation, harvesting of the previous round and,
// once the draw window has elapsed, finalization. Calling it twice with no
// elapsed time produces no additional state change.
func (s *service) Crank(ctx context.Context, cursor int) (*CrankResult, error) {
	metricCranks().Add(1)

	registry, round, err := s.currentRound(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			return &CrankResult{}, nil
		}
		return nil, err
	}

	now := time.Now().Unix()

	// The previous round's stake matures during this one.
	if round.ID > 1 {
		if err := s.pipeline.harvest(ctx, registry, round.ID-1, now); err != nil &&
			!errors.Is(err, ports.ErrStakeCooldown) {
			return nil, err
		}
	}
	if round.IsComplete {
		if err := s.pipeline.harvest(ctx, registry, round.ID, now); err != nil &&
			!errors.Is(err, ports.ErrStakeCooldown) {
			return nil, err
		}
		return s.crankResult(round, false, 0), nil
	}

	return s.advanceRound(ctx, registry, round, now, cursor)
}

// advanceRound is the pure time-driven recomputation shared by Crank and the
// in-call pre-check of Deposit.
func (s *service) advanceRound(
	ctx context.Context, registry *domain.Registry, round *domain.Round,
	now int64, cursor int,
) (*CrankResult, error) {
	if round.IsComplete {
		return s.crankResult(round, false, 0), nil
	}

	changed := round.Advance(s.epochDuration, now)

	// Deposits are closed from epoch 3 on: the principal is final, place it.
	if round.EpochInRound >= domain.EpochsPerRound {
		if err := s.pipeline.delegate(ctx, registry, round.ID, now); err != nil {
			return nil, err
		}
	}

	if !round.IsFinalizable(s.epochDuration, now) {
		if changed {
			if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
				return nil, err
			}
		}
		return s.crankResult(round, false, 0), nil
	}

	if !round.DrawSeedSet {
		seed, err := s.randSource.GetSeed(ctx, drawAlpha(round.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to get draw seed: %w", err)
		}
		round.SetDrawSeed(seed)
		if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
			return nil, err
		}
	}

	// The batch grows by one page per retry and always starts at the head of
	// the ledger. A draw landing on an opted-out range re-rolls and can
	// resolve to any ticket, so the retry reaching the end of the ledger must
	// hold every record for the re-roll and the fallback to terminate.
	limit := (cursor + 1) * s.crankBatchSize
	batch, err := s.repoManager.Participants().GetPageForRound(ctx, round.ID, 0, limit)
	if err != nil {
		return nil, err
	}

	winner, winningTicket, err := Select(round.DrawSeed, round.TotalTicketsSold, round.ID, batch)
	if err != nil {
		if errors.Is(err, ErrWinnerNotInBatch) {
			hasMore := len(batch) == limit
			return s.crankResult(round, hasMore, cursor+1), nil
		}
		return nil, err
	}

	return s.finalize(ctx, registry, round, winner, winningTicket, now)
}

func (s *service) finalize(
	ctx context.Context, registry *domain.Registry, round *domain.Round,
	winner string, winningTicket uint64, now int64,
) (*CrankResult, error) {
	prize, err := s.pipeline.prizeAmount(ctx, registry, round.ID)
	if err != nil {
		return nil, err
	}
	if err := round.Finalize(winner, winningTicket, prize, now); err != nil {
		return nil, err
	}
	if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return nil, err
	}
	if err := s.pipeline.deactivate(ctx, round.ID, now); err != nil {
		return nil, err
	}

	metricRoundFinalized().Add(1)
	log.Infof(
		"round %d complete: winner %s, ticket %d, prize %d",
		round.ID, winner, winningTicket, prize,
	)
	return s.crankResult(round, false, 0), nil
}

// SnapshotBatch records the current-epoch balance of a bounded batch of the
// round's participants. Already-recorded entries are skipped, so repeated
// calls over the same slice are no-ops.
func (s *service) SnapshotBatch(
	ctx context.Context, offset, limit int,
) (*SnapshotResult, error) {
	_, round, err := s.currentRound(ctx)
	if err != nil {
		return nil, err
	}
	if round.IsComplete {
		return nil, domain.ErrRoundComplete
	}
	if limit <= 0 {
		limit = s.crankBatchSize
	}

	batch, err := s.repoManager.Participants().GetPageForRound(ctx, round.ID, offset, limit)
	if err != nil {
		return nil, err
	}

	processed := 0
	for i := range batch {
		if !batch[i].RecordSnapshot(round.EpochInRound) {
			continue
		}
		if err := s.repoManager.Participants().AddOrUpdate(ctx, batch[i]); err != nil {
			return nil, err
		}
		processed++
	}

	return &SnapshotResult{
		RoundID:   round.ID,
		Epoch:     round.EpochInRound,
		Processed: processed,
		HasMore:   len(batch) == limit,
	}, nil
}

func (s *service) GetRegistry(ctx context.Context) (*domain.Registry, error) {
	return s.repoManager.Registry().Get(ctx)
}

func (s *service) GetCurrentRound(ctx context.Context) (*domain.Round, error) {
	_, round, err := s.currentRound(ctx)
	return round, err
}

func (s *service) GetRound(ctx context.Context, id uint64) (*domain.Round, error) {
	return s.repoManager.Rounds().GetRoundWithID(ctx, id)
}

func (s *service) GetParticipant(ctx context.Context, identity string) (*domain.Participant, error) {
	return s.repoManager.Participants().Get(ctx, identity)
}

func (s *service) currentRound(ctx context.Context) (*domain.Registry, *domain.Round, error) {
	registry, err := s.repoManager.Registry().Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if registry.CurrentRound == 0 {
		return nil, nil, domain.ErrRoundNotFound
	}
	round, err := s.repoManager.Rounds().GetRoundWithID(ctx, registry.CurrentRound)
	if err != nil {
		return nil, nil, err
	}
	return registry, round, nil
}

func (s *service) crankResult(round *domain.Round, hasMore bool, nextCursor int) *CrankResult {
	return &CrankResult{
		RoundID:       round.ID,
		EpochInRound:  round.EpochInRound,
		Completed:     round.IsComplete,
		Winner:        round.Winner,
		WinningTicket: round.WinningTicket,
		HasMore:       hasMore,
		NextCursor:    nextCursor,
	}
}

func drawAlpha(roundID uint64) []byte {
	alpha := make([]byte, 8)
	binary.LittleEndian.PutUint64(alpha, roundID)
	return alpha
}
