package domain

const (
	StakeOpen StakeStatus = iota
	StakeDelegated
	StakeDeactivating
	StakeHarvested
)

type StakeStatus int

func (s StakeStatus) String() string {
	switch s {
	case StakeDelegated:
		return "DELEGATED"
	case StakeDeactivating:
		return "DEACTIVATING"
	case StakeHarvested:
		return "HARVESTED"
	default:
		return "OPEN"
	}
}

// StakePosition tracks one round's aggregate stake through the yield source
// lifecycle: placed during the round, deactivated at round end, harvested
// after the external cooldown, i.e. during the next round.
type StakePosition struct {
	RoundID       uint64
	Principal     uint64
	Status        StakeStatus
	DelegatedAt   int64
	DeactivatedAt int64
	HarvestedAt   int64
	Proceeds      uint64
}

func NewStakePosition(roundID uint64) *StakePosition {
	return &StakePosition{RoundID: roundID}
}

func (s *StakePosition) AddPrincipal(amount uint64) error {
	principal, err := checkedAdd(s.Principal, amount)
	if err != nil {
		return err
	}
	s.Principal = principal
	return nil
}

// Delegate marks the principal as placed with the yield source. Idempotent.
func (s *StakePosition) Delegate(now int64) bool {
	if s.Status != StakeOpen || s.Principal == 0 {
		return false
	}
	s.Status = StakeDelegated
	s.DelegatedAt = now
	return true
}

// Deactivate begins the yield source's exit process. Idempotent.
func (s *StakePosition) Deactivate(now int64) bool {
	if s.Status != StakeDelegated {
		return false
	}
	s.Status = StakeDeactivating
	s.DeactivatedAt = now
	return true
}

// Harvest records the matured principal+yield. Idempotent.
func (s *StakePosition) Harvest(proceeds uint64, now int64) bool {
	if s.Status != StakeDeactivating {
		return false
	}
	s.Status = StakeHarvested
	s.HarvestedAt = now
	s.Proceeds = proceeds
	return true
}

// Yield is the harvested amount in excess of the principal, zero before
// harvest or when the source returned less than the principal.
func (s *StakePosition) Yield() uint64 {
	if s.Status != StakeHarvested || s.Proceeds <= s.Principal {
		return 0
	}
	return s.Proceeds - s.Principal
}
