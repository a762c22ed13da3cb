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

const participantStoreDir = "participants"

type participantRepository struct {
	store *badgerhold.Store
}

func NewParticipantRepository(config ...interface{}) (domain.ParticipantRepository, error) {
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
		dir = filepath.Join(baseDir, participantStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open participant store: %s", err)
	}

	return &participantRepository{store}, nil
}

func (r *participantRepository) Get(ctx context.Context, identity string) (*domain.Participant, error) {
	var participant domain.Participant
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, identity, &participant)
	} else {
		err = r.store.Get(identity, &participant)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %s: %w", identity, err)
	}
	return &participant, nil
}

func (r *participantRepository) AddOrUpdate(ctx context.Context, participant domain.Participant) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpsert(tx, participant.Identity, participant)
	}
	return retry(func() error {
		return r.store.Upsert(participant.Identity, participant)
	})
}

func (r *participantRepository) GetPageForRound(
	ctx context.Context, roundID uint64, offset, limit int,
) ([]domain.Participant, error) {
	query := badgerhold.Where("RoundJoined").Eq(roundID).
		SortBy("TicketStart").Skip(offset).Limit(limit)

	participants := make([]domain.Participant, 0, limit)
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &participants, query)
	} else {
		err = r.store.Find(&participants, query)
	}
	return participants, err
}

func (r *participantRepository) Close() {
	r.store.Close()
}
