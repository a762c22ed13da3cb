package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/metrics"
	log "github.com/sirupsen/logrus"
)

var (
	metricClaims = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("claim_total")
	})
	metricWithdrawals = metrics.LazyLoad(func() metrics.CountMeter {
		return metrics.Counter("withdrawal_total")
	})
)

// CreateClaimRecord lets a round's winner mint their settlement entitlement.
// At most one record ever exists per (round, winner); a second call fails
// with ErrClaimRecordExists, which callers treat as an idempotent no-op.
func (s *service) CreateClaimRecord(
	ctx context.Context, roundID uint64, identity string,
) (*domain.ClaimRecord, error) {
	round, err := s.repoManager.Rounds().GetRoundWithID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.IsComplete {
		return nil, domain.ErrRoundNotComplete
	}
	if round.Winner == "" {
		return nil, domain.ErrNoTicketsSold
	}
	if round.Winner != identity {
		return nil, domain.ErrNotWinner
	}

	stake := uint64(0)
	participant, err := s.repoManager.Participants().Get(ctx, identity)
	if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		return nil, err
	}
	if participant != nil && participant.RoundJoined == roundID {
		stake = participant.Balance
	}

	claim, err := domain.NewClaimRecord(roundID, identity, round.TotalPrize, stake)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.Claims().Add(ctx, *claim); err != nil {
		return nil, err
	}

	registry, err := s.repoManager.Registry().Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := registry.AddUnclaimed(claim.PrizeAmount); err != nil {
		return nil, err
	}
	if err := s.repoManager.Registry().Update(ctx, *registry); err != nil {
		return nil, err
	}

	log.Debugf(
		"claim record created for round %d: winner %s, prize %d, stake %d",
		roundID, identity, claim.PrizeAmount, claim.StakeAmount,
	)
	return claim, nil
}

// ClaimPrize settles the winner's entitlement: stake plus prize, transferred
// exactly once. When the pool cannot cover the full amount, what is available
// is paid now and the remainder stays owed against the next harvest; only a
// fully paid record flips to claimed.
func (s *service) ClaimPrize(
	ctx context.Context, roundID uint64, identity string,
) (*Payout, error) {
	claim, err := s.repoManager.Claims().Get(ctx, roundID, identity)
	if err != nil {
		return nil, err
	}
	if claim.Winner != identity {
		return nil, domain.ErrNotWinner
	}

	round, err := s.repoManager.Rounds().GetRoundWithID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.IsComplete {
		return nil, domain.ErrRoundNotComplete
	}

	registry, err := s.repoManager.Registry().Get(ctx)
	if err != nil {
		return nil, err
	}

	paid, err := claim.Settle(registry.AvailableLiquidity)
	if err != nil {
		return nil, err
	}
	if err := registry.SpendLiquidity(paid); err != nil {
		return nil, err
	}

	if claim.Claimed {
		registry.SettleUnclaimed(claim.PrizeAmount)
		round.PrizeClaimed = true
		if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
			return nil, err
		}
	}

	// The entitlement now lives in the claim record; the ledger entry is
	// settled on first payment.
	participant, err := s.repoManager.Participants().Get(ctx, identity)
	if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		return nil, err
	}
	if participant != nil && participant.RoundJoined == roundID {
		participant.SettleRound()
		if err := s.repoManager.Participants().AddOrUpdate(ctx, *participant); err != nil {
			return nil, err
		}
	}

	if err := s.repoManager.Claims().Update(ctx, *claim); err != nil {
		return nil, err
	}
	if err := s.repoManager.Registry().Update(ctx, *registry); err != nil {
		return nil, err
	}

	metricClaims().Add(1)
	log.Infof(
		"prize claimed for round %d by %s: paid %d, deferred %d",
		roundID, identity, paid, claim.Owed(),
	)

	return &Payout{
		ID:       uuid.NewString(),
		RoundID:  roundID,
		Identity: identity,
		Amount:   paid,
		Deferred: claim.Owed(),
	}, nil
}

// ProcessWithdrawal refunds a non-winner's stake (plus any pending opt-out
// amount) after the round completes. The winner must use ClaimPrize.
func (s *service) ProcessWithdrawal(
	ctx context.Context, roundID uint64, identity string,
) (*Payout, error) {
	round, err := s.repoManager.Rounds().GetRoundWithID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.IsComplete {
		return nil, domain.ErrRoundNotComplete
	}
	if round.Winner == identity {
		return nil, domain.ErrWinnerMustClaim
	}

	participant, err := s.repoManager.Participants().Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	if participant.RoundJoined != roundID {
		return nil, domain.ErrWrongRound
	}

	amount := participant.Balance + participant.PendingWithdrawalAmount
	if amount < participant.Balance {
		return nil, domain.ErrArithmeticOverflow
	}
	if amount == 0 {
		return nil, domain.ErrNothingToWithdraw
	}

	registry, err := s.repoManager.Registry().Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := registry.SpendLiquidity(amount); err != nil {
		return nil, err
	}

	participant.SettleRound()
	if err := s.repoManager.Participants().AddOrUpdate(ctx, *participant); err != nil {
		return nil, err
	}
	if err := s.repoManager.Registry().Update(ctx, *registry); err != nil {
		return nil, err
	}

	metricWithdrawals().Add(1)
	log.Debugf("withdrawal processed for round %d: %s paid %d", roundID, identity, amount)

	return &Payout{
		ID:       uuid.NewString(),
		RoundID:  roundID,
		Identity: identity,
		Amount:   amount,
	}, nil
}
