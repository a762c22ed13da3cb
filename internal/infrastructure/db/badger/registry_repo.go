package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	registryStoreDir = "registry"
	registryKey      = "registry"
)

type registryRepository struct {
	store *badgerhold.Store
}

func NewRegistryRepository(config ...interface{}) (domain.RegistryRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, registryStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry store: %s", err)
	}

	return &registryRepository{store}, nil
}

func (r *registryRepository) Get(ctx context.Context) (*domain.Registry, error) {
	var registry domain.Registry
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, registryKey, &registry)
	} else {
		err = r.store.Get(registryKey, &registry)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrRegistryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	return &registry, nil
}

func (r *registryRepository) Create(ctx context.Context, registry domain.Registry) error {
	if err := retry(func() error {
		return r.store.Insert(registryKey, registry)
	}); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrRegistryExists
		}
		return err
	}
	return nil
}

func (r *registryRepository) Update(ctx context.Context, registry domain.Registry) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, registryKey, registry)
	}
	return retry(func() error {
		return r.store.Upsert(registryKey, registry)
	})
}

func (r *registryRepository) Close() {
	r.store.Close()
}
