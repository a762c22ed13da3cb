package domain_test

import (
	"testing"

	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestParticipantAddTickets(t *testing.T) {
	p := domain.NewParticipant("alice")

	require.NoError(t, p.AddTickets(1, 100_000_000, 0, 9))
	require.Equal(t, uint64(0), p.TicketStart)
	require.Equal(t, uint64(9), p.TicketEnd)
	require.Equal(t, uint64(100_000_000), p.Balance)
	require.Equal(t, uint64(1), p.RoundJoined)

	// Contiguous extension in the same round.
	require.NoError(t, p.AddTickets(1, 50_000_000, 10, 14))
	require.Equal(t, uint64(14), p.TicketEnd)
	require.Equal(t, uint64(150_000_000), p.Balance)

	// Someone else was assigned 15-19 in between: extending would overlap.
	err := p.AddTickets(1, 10_000_000, 20, 20)
	require.ErrorIs(t, err, domain.ErrRangeNotContiguous)

	// Joining a new round resets the record.
	require.NoError(t, p.AddTickets(2, 30_000_000, 7, 9))
	require.Equal(t, uint64(2), p.RoundJoined)
	require.Equal(t, uint64(7), p.TicketStart)
	require.Equal(t, uint64(30_000_000), p.Balance)
	require.Zero(t, p.SnapshotsRecordedMask)
}

func TestParticipantOwnsTicket(t *testing.T) {
	p := domain.NewParticipant("bob")
	require.NoError(t, p.AddTickets(3, 50_000_000, 10, 14))

	require.True(t, p.OwnsTicket(3, 10))
	require.True(t, p.OwnsTicket(3, 14))
	require.False(t, p.OwnsTicket(3, 9))
	require.False(t, p.OwnsTicket(3, 15))
	require.False(t, p.OwnsTicket(4, 10))

	p.SettleRound()
	require.False(t, p.OwnsTicket(3, 10))
}

func TestParticipantSnapshots(t *testing.T) {
	p := domain.NewParticipant("alice")
	require.NoError(t, p.AddTickets(1, 100, 0, 9))

	require.True(t, p.RecordSnapshot(1))
	require.False(t, p.RecordSnapshot(1))
	require.Equal(t, uint64(100), p.SnapshotBalances[0])

	require.NoError(t, p.AddTickets(1, 100, 10, 19))
	require.True(t, p.RecordSnapshot(2))
	require.Equal(t, uint64(200), p.SnapshotBalances[1])
	// The first slot keeps the balance at recording time.
	require.Equal(t, uint64(100), p.SnapshotBalances[0])

	require.False(t, p.RecordSnapshot(0))
	require.False(t, p.RecordSnapshot(4))
}

func TestParticipantRequestWithdrawal(t *testing.T) {
	p := domain.NewParticipant("carol")
	require.NoError(t, p.AddTickets(1, 100, 0, 9))
	require.True(t, p.RecordSnapshot(1))

	require.ErrorIs(t, p.RequestWithdrawal(0, 1), domain.ErrInvalidAmount)
	require.ErrorIs(t, p.RequestWithdrawal(200, 1), domain.ErrInvalidAmount)

	require.NoError(t, p.RequestWithdrawal(60, 1))
	require.Equal(t, uint64(40), p.Balance)
	require.Equal(t, uint64(60), p.PendingWithdrawalAmount)
	require.Equal(t, uint64(1), p.PendingWithdrawalRound)
	require.True(t, p.OptedOut)
	require.Zero(t, p.SnapshotsRecordedMask)
}
