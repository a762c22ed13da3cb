package domain

import "context"

type RegistryRepository interface {
	Get(ctx context.Context) (*Registry, error)
	Create(ctx context.Context, registry Registry) error
	Update(ctx context.Context, registry Registry) error
	Close()
}
