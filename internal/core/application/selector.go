package application

import (
	"errors"

	"github.com/rafa-protocol/rafad/internal/core/domain"
)

// ErrWinnerNotInBatch means the owner of the drawn ticket was not among the
// supplied records. The caller retries with a more complete batch; selection
// is deterministic so the retry draws the same ticket.
var ErrWinnerNotInBatch = errors.New("winning ticket owner not in supplied batch")

// maxRedrawAttempts bounds the deterministic re-roll when the drawn ticket
// belongs to an opted-out participant.
const maxRedrawAttempts = 64

// Select draws the winning ticket as seed mod ticketCount and scans the batch
// for the record whose range contains it. It is a pure function of
// (seed, ticketCount, ledger state): identical inputs always yield the
// identical winner.
//
// Ranges of opted-out participants are dead tickets: landing on one re-rolls
// the seed through splitmix64, and after maxRedrawAttempts the active
// participant with the lowest ticket start wins. For the fallback to be
// deterministic the caller must supply all of the round's participants, which
// is also the contract for the final (non-HasMore) retry.
func Select(
	seed, ticketCount, roundID uint64, batch []domain.Participant,
) (winner string, ticket uint64, err error) {
	if ticketCount == 0 {
		return "", 0, domain.ErrNoTicketsSold
	}

	for attempt := 0; attempt < maxRedrawAttempts; attempt++ {
		ticket = seed % ticketCount

		owner := findOwner(batch, roundID, ticket)
		if owner == nil {
			return "", 0, ErrWinnerNotInBatch
		}
		if !owner.OptedOut {
			return owner.Identity, ticket, nil
		}

		seed = splitmix64(seed)
	}

	if fallback := lowestActive(batch, roundID); fallback != nil {
		return fallback.Identity, fallback.TicketStart, nil
	}
	return "", 0, ErrWinnerNotInBatch
}

func findOwner(batch []domain.Participant, roundID, ticket uint64) *domain.Participant {
	for i := range batch {
		if batch[i].RangeContains(roundID, ticket) {
			return &batch[i]
		}
	}
	return nil
}

func lowestActive(batch []domain.Participant, roundID uint64) *domain.Participant {
	var best *domain.Participant
	for i := range batch {
		p := &batch[i]
		if !p.HasTickets(roundID) || p.OptedOut {
			continue
		}
		if best == nil || p.TicketStart < best.TicketStart {
			best = p
		}
	}
	return best
}

// splitmix64 is the finalizer of the SplitMix64 generator, used to re-roll
// the draw seed deterministically.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
