package application_test

import (
	"testing"

	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func participant(identity string, start, end, balance uint64, optedOut bool) domain.Participant {
	return domain.Participant{
		Identity:    identity,
		Balance:     balance,
		TicketStart: start,
		TicketEnd:   end,
		RoundJoined: 1,
		OptedOut:    optedOut,
	}
}

func TestSelect(t *testing.T) {
	batch := []domain.Participant{
		participant("alice", 0, 4, 500, false),
		participant("bob", 5, 7, 300, false),
	}

	t.Run("draws seed mod ticket count", func(t *testing.T) {
		winner, ticket, err := application.Select(7, 8, 1, batch)
		require.NoError(t, err)
		require.Equal(t, "bob", winner)
		require.Equal(t, uint64(7), ticket)

		winner, ticket, err = application.Select(12, 8, 1, batch)
		require.NoError(t, err)
		require.Equal(t, "alice", winner)
		require.Equal(t, uint64(4), ticket)
	})

	t.Run("is deterministic", func(t *testing.T) {
		w1, t1, err := application.Select(123456789, 8, 1, batch)
		require.NoError(t, err)
		w2, t2, err := application.Select(123456789, 8, 1, batch)
		require.NoError(t, err)
		require.Equal(t, w1, w2)
		require.Equal(t, t1, t2)
	})

	t.Run("no tickets sold", func(t *testing.T) {
		_, _, err := application.Select(7, 0, 1, batch)
		require.ErrorIs(t, err, domain.ErrNoTicketsSold)
	})

	t.Run("owner missing from batch", func(t *testing.T) {
		_, _, err := application.Select(7, 8, 1, batch[:1])
		require.ErrorIs(t, err, application.ErrWinnerNotInBatch)
	})

	t.Run("opted out ranges are dead tickets", func(t *testing.T) {
		// Whatever the re-rolls land on, the only possible winner is the
		// single active participant: either a re-roll hits their range or the
		// lowest-active fallback kicks in.
		mixed := []domain.Participant{
			participant("quitter", 0, 98, 0, true),
			participant("stayer", 99, 99, 100, false),
		}
		winner, ticket, err := application.Select(0, 100, 1, mixed)
		require.NoError(t, err)
		require.Equal(t, "stayer", winner)
		require.LessOrEqual(t, ticket, uint64(99))
	})

	t.Run("all opted out", func(t *testing.T) {
		dead := []domain.Participant{
			participant("quitter1", 0, 4, 0, true),
			participant("quitter2", 5, 9, 0, true),
		}
		_, _, err := application.Select(3, 10, 1, dead)
		require.ErrorIs(t, err, application.ErrWinnerNotInBatch)
	})

	t.Run("withdrawn range still blocks reassignment", func(t *testing.T) {
		// The quitter's balance is zero but their range must still resolve,
		// otherwise the draw would never complete.
		mixed := []domain.Participant{
			participant("quitter", 0, 0, 0, true),
			participant("stayer", 1, 1, 100, false),
		}
		winner, _, err := application.Select(0, 2, 1, mixed)
		require.NoError(t, err)
		require.Equal(t, "stayer", winner)
	})
}
