package domain

import "time"

// EpochsPerRound is the number of fixed-duration phases in a round. Deposits
// are allowed during the first two, the third is the draw window.
const EpochsPerRound = 3

// Round is one complete cycle of ticket sales, staking and winner draw. It is
// mutated by deposits, epoch advancement and finalization, and is immutable
// once complete except for the PrizeClaimed flag.
type Round struct {
	ID               uint64
	EpochInRound     uint8
	StartTimestamp   int64
	EndTimestamp     int64
	StakeReference   string
	TotalStaked      uint64
	TotalPrize       uint64
	TotalTicketsSold uint64
	Winner           string
	WinningTicket    uint64
	IsComplete       bool
	PrizeClaimed     bool

	// DrawSeed is requested from the randomness source once, when the round
	// first becomes finalizable, and persisted so that retried finalization
	// cranks draw the same ticket.
	DrawSeed    uint64
	DrawSeedSet bool
}

func NewRound(id uint64, stakeReference string, now int64) *Round {
	return &Round{
		ID:             id,
		EpochInRound:   1,
		StartTimestamp: now,
		StakeReference: stakeReference,
	}
}

// Advance recomputes the epoch from wall-clock time. It is a pure function of
// the persisted state and now; calling it twice with the same timestamp is a
// no-op. The epoch never decreases.
func (r *Round) Advance(epochDuration time.Duration, now int64) bool {
	if r.IsComplete {
		return false
	}
	elapsed := now - r.StartTimestamp
	if elapsed < 0 {
		elapsed = 0
	}
	epochsPassed := elapsed / int64(epochDuration.Seconds())
	targetEpoch := uint8(EpochsPerRound)
	if epochsPassed < EpochsPerRound {
		targetEpoch = uint8(epochsPassed) + 1
	}
	if targetEpoch > r.EpochInRound {
		r.EpochInRound = targetEpoch
		return true
	}
	return false
}

// IsFinalizable reports whether the round is due for the draw: the third
// epoch has fully elapsed and at least one ticket was sold. A round with no
// tickets stays open indefinitely until a deposit arrives.
func (r *Round) IsFinalizable(epochDuration time.Duration, now int64) bool {
	if r.IsComplete || r.EpochInRound < EpochsPerRound {
		return false
	}
	roundEnd := r.StartTimestamp + EpochsPerRound*int64(epochDuration.Seconds())
	return now >= roundEnd && r.TotalTicketsSold > 0
}

// DepositsAllowed is checked after the in-call crank recomputation, so a
// deposit that itself triggers finalization is rejected in the same call.
func (r *Round) DepositsAllowed() error {
	if r.IsComplete {
		return ErrRoundComplete
	}
	if r.EpochInRound >= EpochsPerRound {
		return ErrDepositsClosedEpoch3
	}
	return nil
}

// AssignTickets hands out the next numTickets sequential ticket numbers and
// bumps the round counters with overflow-checked arithmetic.
func (r *Round) AssignTickets(numTickets, amount uint64) (start, end uint64, err error) {
	if numTickets == 0 {
		return 0, 0, ErrInvalidAmount
	}
	start = r.TotalTicketsSold
	sold, err := checkedAdd(r.TotalTicketsSold, numTickets)
	if err != nil {
		return 0, 0, err
	}
	staked, err := checkedAdd(r.TotalStaked, amount)
	if err != nil {
		return 0, 0, err
	}
	r.TotalTicketsSold = sold
	r.TotalStaked = staked
	return start, start + numTickets - 1, nil
}

func (r *Round) SetDrawSeed(seed uint64) {
	if r.DrawSeedSet {
		return
	}
	r.DrawSeed = seed
	r.DrawSeedSet = true
}

// Finalize records the draw outcome and freezes the round.
func (r *Round) Finalize(winner string, winningTicket, prize uint64, now int64) error {
	if r.IsComplete {
		return ErrRoundComplete
	}
	if r.TotalTicketsSold == 0 {
		return ErrNoTicketsSold
	}
	if winningTicket >= r.TotalTicketsSold {
		return ErrInvalidAmount
	}
	r.Winner = winner
	r.WinningTicket = winningTicket
	r.TotalPrize = prize
	r.EndTimestamp = now
	r.IsComplete = true
	return nil
}

// AdvanceEpochManual bumps the epoch by one, admin-driven. Monotonic only.
func (r *Round) AdvanceEpochManual() error {
	if r.IsComplete || r.EpochInRound >= EpochsPerRound {
		return ErrInvalidEpoch
	}
	r.EpochInRound++
	return nil
}
