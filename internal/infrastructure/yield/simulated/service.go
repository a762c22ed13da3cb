package simulatedyield

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rafa-protocol/rafad/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// service emulates an external staking venue: delegated principal accrues
// yield at a fixed rate and becomes harvestable only after the unstaking
// cooldown has elapsed.
type service struct {
	yieldRateBps uint64
	cooldown     time.Duration

	lock      sync.Mutex
	positions map[uint64]*position
}

type position struct {
	amount        uint64
	deactivatedAt time.Time
	active        bool
}

func NewService(yieldRateBps uint64, cooldown time.Duration) ports.YieldSource {
	return &service{
		yieldRateBps: yieldRateBps,
		cooldown:     cooldown,
		positions:    make(map[uint64]*position),
	}
}

func (s *service) Delegate(ctx context.Context, roundID, amount uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if pos, ok := s.positions[roundID]; ok {
		pos.amount += amount
		return nil
	}
	s.positions[roundID] = &position{amount: amount, active: true}
	log.Debugf("delegated %d for round %d", amount, roundID)
	return nil
}

func (s *service) Deactivate(ctx context.Context, roundID uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	pos, ok := s.positions[roundID]
	if !ok {
		return fmt.Errorf("no delegation for round %d", roundID)
	}
	if !pos.active {
		return nil
	}
	pos.active = false
	pos.deactivatedAt = time.Now()
	log.Debugf("deactivated stake for round %d", roundID)
	return nil
}

func (s *service) Harvest(ctx context.Context, roundID uint64) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pos, ok := s.positions[roundID]
	if !ok {
		return 0, fmt.Errorf("no delegation for round %d", roundID)
	}
	if pos.active {
		return 0, ports.ErrStakeCooldown
	}
	if time.Since(pos.deactivatedAt) < s.cooldown {
		return 0, ports.ErrStakeCooldown
	}

	proceeds := pos.amount + pos.amount*s.yieldRateBps/10_000
	delete(s.positions, roundID)
	log.Debugf("harvested %d for round %d", proceeds, roundID)
	return proceeds, nil
}
