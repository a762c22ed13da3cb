package domain_test

import (
	"testing"
	"time"

	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/stretchr/testify/require"
)

const epochDuration = 120 * time.Second

func TestRoundAdvance(t *testing.T) {
	start := int64(1_700_000_000)
	round := domain.NewRound(1, "stake-1", start)
	require.Equal(t, uint8(1), round.EpochInRound)

	fixtures := []struct {
		elapsed int64
		epoch   uint8
	}{
		{0, 1},
		{119, 1},
		{121, 2},
		{240, 3},
		{361, 3},
		{10_000, 3},
	}

	for _, f := range fixtures {
		round.Advance(epochDuration, start+f.elapsed)
		require.Equal(t, f.epoch, round.EpochInRound)
	}
}

func TestRoundAdvanceIsIdempotentAndMonotonic(t *testing.T) {
	start := int64(1_700_000_000)
	round := domain.NewRound(1, "stake-1", start)

	changed := round.Advance(epochDuration, start+125)
	require.True(t, changed)
	require.Equal(t, uint8(2), round.EpochInRound)

	changed = round.Advance(epochDuration, start+125)
	require.False(t, changed)
	require.Equal(t, uint8(2), round.EpochInRound)

	// A stale timestamp never rolls the epoch back.
	changed = round.Advance(epochDuration, start+10)
	require.False(t, changed)
	require.Equal(t, uint8(2), round.EpochInRound)
}

func TestRoundFinalizable(t *testing.T) {
	start := int64(1_700_000_000)
	round := domain.NewRound(1, "stake-1", start)

	round.Advance(epochDuration, start+361)
	require.Equal(t, uint8(3), round.EpochInRound)

	// No tickets sold: the round stays open indefinitely.
	require.False(t, round.IsFinalizable(epochDuration, start+361))

	_, _, err := round.AssignTickets(15, 150_000_000)
	require.NoError(t, err)
	require.True(t, round.IsFinalizable(epochDuration, start+361))
	require.False(t, round.IsFinalizable(epochDuration, start+359))
}

func TestRoundDepositsAllowed(t *testing.T) {
	start := int64(1_700_000_000)
	round := domain.NewRound(1, "stake-1", start)
	require.NoError(t, round.DepositsAllowed())

	round.Advance(epochDuration, start+125)
	require.NoError(t, round.DepositsAllowed())

	round.Advance(epochDuration, start+250)
	require.ErrorIs(t, round.DepositsAllowed(), domain.ErrDepositsClosedEpoch3)

	_, _, err := round.AssignTickets(1, 10_000_000)
	require.NoError(t, err)
	require.NoError(t, round.Finalize("alice", 0, 0, start+400))
	require.ErrorIs(t, round.DepositsAllowed(), domain.ErrRoundComplete)
}

func TestRoundAssignTickets(t *testing.T) {
	round := domain.NewRound(1, "stake-1", 0)

	start, end, err := round.AssignTickets(10, 100_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(0), start)
	require.Equal(t, uint64(9), end)

	start, end, err = round.AssignTickets(5, 50_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(10), start)
	require.Equal(t, uint64(14), end)
	require.Equal(t, uint64(15), round.TotalTicketsSold)
	require.Equal(t, uint64(150_000_000), round.TotalStaked)

	_, _, err = round.AssignTickets(^uint64(0), 1)
	require.ErrorIs(t, err, domain.ErrArithmeticOverflow)
}

func TestRoundFinalize(t *testing.T) {
	round := domain.NewRound(4, "stake-4", 0)

	err := round.Finalize("alice", 0, 0, 100)
	require.ErrorIs(t, err, domain.ErrNoTicketsSold)

	_, _, err = round.AssignTickets(15, 150_000_000)
	require.NoError(t, err)

	err = round.Finalize("alice", 15, 0, 100)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	require.NoError(t, round.Finalize("alice", 9, 42, 100))
	require.True(t, round.IsComplete)
	require.Equal(t, "alice", round.Winner)
	require.Equal(t, uint64(9), round.WinningTicket)
	require.Equal(t, uint64(42), round.TotalPrize)
	require.Equal(t, int64(100), round.EndTimestamp)

	require.ErrorIs(t, round.Finalize("bob", 1, 0, 200), domain.ErrRoundComplete)
}

func TestRoundDrawSeedIsSticky(t *testing.T) {
	round := domain.NewRound(1, "stake-1", 0)
	round.SetDrawSeed(123456789)
	round.SetDrawSeed(42)
	require.True(t, round.DrawSeedSet)
	require.Equal(t, uint64(123456789), round.DrawSeed)
}
