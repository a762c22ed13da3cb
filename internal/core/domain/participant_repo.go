package domain

import "context"

type ParticipantRepository interface {
	Get(ctx context.Context, identity string) (*Participant, error)
	AddOrUpdate(ctx context.Context, participant Participant) error
	// GetPageForRound returns a bounded batch of the participants that joined
	// the given round, ordered by ticket start. Callers page through it; a
	// short page means the scan is exhausted.
	GetPageForRound(ctx context.Context, roundID uint64, offset, limit int) ([]Participant, error)
	Close()
}
