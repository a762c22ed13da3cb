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

const claimStoreDir = "claims"

type claimRepository struct {
	store *badgerhold.Store
}

func NewClaimRepository(config ...interface{}) (domain.ClaimRepository, error) {
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
		dir = filepath.Join(baseDir, claimStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open claim store: %s", err)
	}

	return &claimRepository{store}, nil
}

func (r *claimRepository) Get(
	ctx context.Context, roundID uint64, winner string,
) (*domain.ClaimRecord, error) {
	var claim domain.ClaimRecord
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, claimKey(roundID, winner), &claim)
	} else {
		err = r.store.Get(claimKey(roundID, winner), &claim)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim for round %d: %w", roundID, err)
	}
	return &claim, nil
}

func (r *claimRepository) Add(ctx context.Context, claim domain.ClaimRecord) error {
	key := claimKey(claim.RoundID, claim.Winner)
	var insertFn func() error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		insertFn = func() error {
			return r.store.TxInsert(tx, key, claim)
		}
	} else {
		insertFn = func() error {
			return r.store.Insert(key, claim)
		}
	}
	if err := retry(insertFn); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrClaimRecordExists
		}
		return err
	}
	return nil
}

func (r *claimRepository) Update(ctx context.Context, claim domain.ClaimRecord) error {
	key := claimKey(claim.RoundID, claim.Winner)
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(tx, key, claim)
	}
	return retry(func() error {
		return r.store.Update(key, claim)
	})
}

func (r *claimRepository) Close() {
	r.store.Close()
}

func claimKey(roundID uint64, winner string) string {
	return fmt.Sprintf("%d:%s", roundID, winner)
}
