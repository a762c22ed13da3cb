package domain

import "context"

type StakeRepository interface {
	Get(ctx context.Context, roundID uint64) (*StakePosition, error)
	AddOrUpdate(ctx context.Context, position StakePosition) error
	Close()
}
