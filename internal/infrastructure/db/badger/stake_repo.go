package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const stakeStoreDir = "stakes"

type stakeRepository struct {
	store *badgerhold.Store
}

func NewStakeRepository(config ...interface{}) (domain.StakeRepository, error) {
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
		dir = filepath.Join(baseDir, stakeStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open stake store: %s", err)
	}

	return &stakeRepository{store}, nil
}

func (r *stakeRepository) Get(ctx context.Context, roundID uint64) (*domain.StakePosition, error) {
	var position domain.StakePosition
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, stakeKey(roundID), &position)
	} else {
		err = r.store.Get(stakeKey(roundID), &position)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrStakeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stake position for round %d: %w", roundID, err)
	}
	return &position, nil
}

func (r *stakeRepository) AddOrUpdate(ctx context.Context, position domain.StakePosition) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, stakeKey(position.RoundID), position)
	}
	return retry(func() error {
		return r.store.Upsert(stakeKey(position.RoundID), position)
	})
}

func (r *stakeRepository) Close() {
	r.store.Close()
}

func stakeKey(roundID uint64) string {
	return strconv.FormatUint(roundID, 10)
}
