package ports

import "github.com/rafa-protocol/rafad/internal/core/domain"

type RepoManager interface {
	Registry() domain.RegistryRepository
	Rounds() domain.RoundRepository
	Participants() domain.ParticipantRepository
	Claims() domain.ClaimRepository
	Stakes() domain.StakeRepository
	Close()
}
