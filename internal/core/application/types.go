package application

import (
	"context"

	"github.com/rafa-protocol/rafad/internal/core/domain"
)

// Service is the participant-facing surface: deposits, cranks, snapshots and
// settlement. Every entry point is all-or-nothing and safe to retry.
type Service interface {
	Start() error
	Stop()

	Deposit(ctx context.Context, identity string, amount uint64) (*DepositResult, error)
	RequestWithdrawal(ctx context.Context, identity string, amount uint64) error
	Crank(ctx context.Context, cursor int) (*CrankResult, error)
	SnapshotBatch(ctx context.Context, offset, limit int) (*SnapshotResult, error)

	CreateClaimRecord(ctx context.Context, roundID uint64, identity string) (*domain.ClaimRecord, error)
	ClaimPrize(ctx context.Context, roundID uint64, identity string) (*Payout, error)
	ProcessWithdrawal(ctx context.Context, roundID uint64, identity string) (*Payout, error)

	GetRegistry(ctx context.Context) (*domain.Registry, error)
	GetCurrentRound(ctx context.Context) (*domain.Round, error)
	GetRound(ctx context.Context, id uint64) (*domain.Round, error)
	GetParticipant(ctx context.Context, identity string) (*domain.Participant, error)
}

// AdminService covers the operations restricted to the protocol admin, plus
// the manual break-glass variants of the time-driven ones.
type AdminService interface {
	SeedPrize(ctx context.Context, caller string, amount uint64) error
	InitRound(ctx context.Context, caller string) (*domain.Round, error)
	AdvanceEpoch(ctx context.Context, caller string) error
	SelectWinner(ctx context.Context, caller string, seed uint64) (*CrankResult, error)
	CreateClaimRecordFor(ctx context.Context, caller string, roundID, prize, stake uint64) (*domain.ClaimRecord, error)
	Delegate(ctx context.Context, caller string, roundID uint64) error
	Deactivate(ctx context.Context, caller string, roundID uint64) error
	Harvest(ctx context.Context, caller string, roundID uint64) error
	CloseProtocol(ctx context.Context, caller string) error
}

type DepositResult struct {
	Identity    string
	RoundID     uint64
	Amount      uint64
	NumTickets  uint64
	TicketStart uint64
	TicketEnd   uint64
}

// CrankResult reports what a single crank call did. When a due draw could not
// complete because the winning ticket's owner was outside the supplied batch,
// HasMore is true and the caller re-cranks with NextCursor.
type CrankResult struct {
	RoundID       uint64
	EpochInRound  uint8
	Completed     bool
	Winner        string
	WinningTicket uint64
	HasMore       bool
	NextCursor    int
}

type SnapshotResult struct {
	RoundID   uint64
	Epoch     uint8
	Processed int
	HasMore   bool
}

// Payout is the receipt of a settlement transfer. Deferred is the amount
// still owed when liquidity did not cover the full entitlement.
type Payout struct {
	ID       string
	RoundID  uint64
	Identity string
	Amount   uint64
	Deferred uint64
}
