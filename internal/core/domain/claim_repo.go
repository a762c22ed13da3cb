package domain

import "context"

type ClaimRepository interface {
	Get(ctx context.Context, roundID uint64, winner string) (*ClaimRecord, error)
	// Add fails with ErrClaimRecordExists if a record for (round, winner)
	// already exists.
	Add(ctx context.Context, claim ClaimRecord) error
	Update(ctx context.Context, claim ClaimRecord) error
	Close()
}
