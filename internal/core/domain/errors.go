package domain

import "errors"

// Validation errors.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidTicketAmount = errors.New("amount must be an exact multiple of the ticket price")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrInvalidEpoch        = errors.New("invalid epoch state")
)

// State errors.
var (
	ErrDepositsClosedEpoch3 = errors.New("deposits closed: epoch 3 has started")
	ErrRoundComplete        = errors.New("round is complete, deposits blocked")
	ErrRoundNotComplete     = errors.New("round not complete yet")
	ErrRoundNotFound        = errors.New("round not found")
	ErrNoTicketsSold        = errors.New("no tickets sold in this round")
	ErrRangeNotContiguous   = errors.New("ticket range is no longer contiguous, additional deposit rejected")
	ErrWrongRound           = errors.New("participant did not join this round")
	ErrProtocolClosed       = errors.New("protocol registry is closed")
)

// Authorization errors.
var (
	ErrAdminOnly       = errors.New("operation restricted to the protocol admin")
	ErrNotWinner       = errors.New("not the winner of this round")
	ErrWinnerMustClaim = errors.New("winner must claim the prize, not withdraw")
)

// Idempotency errors.
var (
	ErrAlreadyClaimed    = errors.New("prize already claimed")
	ErrClaimRecordExists = errors.New("claim record already exists")
)

// Resource errors.
var (
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrUnclaimedPrizesExist  = errors.New("cannot close protocol: unclaimed prizes exist")
	ErrNothingToWithdraw     = errors.New("nothing to withdraw")
)

// Lookup errors.
var (
	ErrRegistryNotFound    = errors.New("protocol registry not initialized")
	ErrRegistryExists      = errors.New("protocol registry already initialized")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrClaimNotFound       = errors.New("claim record not found")
	ErrStakeNotFound       = errors.New("stake position not found")
)

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}
