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

const roundStoreDir = "rounds"

type roundRepository struct {
	store *badgerhold.Store
}

func NewRoundRepository(config ...interface{}) (domain.RoundRepository, error) {
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
		dir = filepath.Join(baseDir, roundStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open round store: %s", err)
	}

	return &roundRepository{store}, nil
}

func (r *roundRepository) AddOrUpdateRound(ctx context.Context, round domain.Round) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, roundKey(round.ID), round)
	}
	return retry(func() error {
		return r.store.Upsert(roundKey(round.ID), round)
	})
}

func (r *roundRepository) GetRoundWithID(ctx context.Context, id uint64) (*domain.Round, error) {
	var round domain.Round
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, roundKey(id), &round)
	} else {
		err = r.store.Get(roundKey(id), &round)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d: %w", id, err)
	}
	return &round, nil
}

func (r *roundRepository) GetRoundsIDs(
	ctx context.Context, startedAfter, startedBefore int64,
) ([]uint64, error) {
	query := &badgerhold.Query{}
	if startedAfter > 0 || startedBefore > 0 {
		q := badgerhold.Where("StartTimestamp").Ge(startedAfter)
		if startedBefore > 0 {
			q = q.And("StartTimestamp").Lt(startedBefore)
		}
		query = q
	}

	rounds := make([]domain.Round, 0)
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &rounds, query)
	} else {
		err = r.store.Find(&rounds, query)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(rounds))
	for _, round := range rounds {
		ids = append(ids, round.ID)
	}
	return ids, nil
}

func (r *roundRepository) Close() {
	r.store.Close()
}

func roundKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}
