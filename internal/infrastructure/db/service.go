package db

import (
	"fmt"

	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	badgerdb "github.com/rafa-protocol/rafad/internal/infrastructure/db/badger"
)

var (
	registryStoreTypes = map[string]func(...interface{}) (domain.RegistryRepository, error){
		"badger": badgerdb.NewRegistryRepository,
	}
	roundStoreTypes = map[string]func(...interface{}) (domain.RoundRepository, error){
		"badger": badgerdb.NewRoundRepository,
	}
	participantStoreTypes = map[string]func(...interface{}) (domain.ParticipantRepository, error){
		"badger": badgerdb.NewParticipantRepository,
	}
	claimStoreTypes = map[string]func(...interface{}) (domain.ClaimRepository, error){
		"badger": badgerdb.NewClaimRepository,
	}
	stakeStoreTypes = map[string]func(...interface{}) (domain.StakeRepository, error){
		"badger": badgerdb.NewStakeRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	registryStore    domain.RegistryRepository
	roundStore       domain.RoundRepository
	participantStore domain.ParticipantRepository
	claimStore       domain.ClaimRepository
	stakeStore       domain.StakeRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	registryStoreFactory, ok := registryStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	roundStoreFactory := roundStoreTypes[config.DataStoreType]
	participantStoreFactory := participantStoreTypes[config.DataStoreType]
	claimStoreFactory := claimStoreTypes[config.DataStoreType]
	stakeStoreFactory := stakeStoreTypes[config.DataStoreType]

	registryStore, err := registryStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry store: %w", err)
	}
	roundStore, err := roundStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create round store: %w", err)
	}
	participantStore, err := participantStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create participant store: %w", err)
	}
	claimStore, err := claimStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create claim store: %w", err)
	}
	stakeStore, err := stakeStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stake store: %w", err)
	}

	return &service{
		registryStore:    registryStore,
		roundStore:       roundStore,
		participantStore: participantStore,
		claimStore:       claimStore,
		stakeStore:       stakeStore,
	}, nil
}

func (s *service) Registry() domain.RegistryRepository {
	return s.registryStore
}

func (s *service) Rounds() domain.RoundRepository {
	return s.roundStore
}

func (s *service) Participants() domain.ParticipantRepository {
	return s.participantStore
}

func (s *service) Claims() domain.ClaimRepository {
	return s.claimStore
}

func (s *service) Stakes() domain.StakeRepository {
	return s.stakeStore
}

func (s *service) Close() {
	s.registryStore.Close()
	s.roundStore.Close()
	s.participantStore.Close()
	s.claimStore.Close()
	s.stakeStore.Close()
}
