package domain

import "context"

type RoundRepository interface {
	AddOrUpdateRound(ctx context.Context, round Round) error
	GetRoundWithID(ctx context.Context, id uint64) (*Round, error)
	GetRoundsIDs(ctx context.Context, startedAfter, startedBefore int64) ([]uint64, error)
	Close()
}
