package domain

// Registry is the protocol singleton. It is created once, referenced by every
// operation and never destroyed, except by an explicit Close while no prize
// liability is outstanding.
type Registry struct {
	Admin                string
	YieldSource          string
	CurrentRound         uint64
	PrizeSeedAmount      uint64
	AvailableLiquidity   uint64
	TotalUnclaimedPrizes uint64
	Closed               bool
}

func NewRegistry(admin, yieldSource string) *Registry {
	return &Registry{
		Admin:       admin,
		YieldSource: yieldSource,
	}
}

// SeedPrize tops up the seeded prize liquidity. The seeded amount is counted
// both as prize accounting and as spendable pool liquidity.
func (r *Registry) SeedPrize(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	seeded, err := checkedAdd(r.PrizeSeedAmount, amount)
	if err != nil {
		return err
	}
	available, err := checkedAdd(r.AvailableLiquidity, amount)
	if err != nil {
		return err
	}
	r.PrizeSeedAmount = seeded
	r.AvailableLiquidity = available
	return nil
}

func (r *Registry) AddLiquidity(amount uint64) error {
	available, err := checkedAdd(r.AvailableLiquidity, amount)
	if err != nil {
		return err
	}
	r.AvailableLiquidity = available
	return nil
}

func (r *Registry) SpendLiquidity(amount uint64) error {
	if amount > r.AvailableLiquidity {
		return ErrInsufficientLiquidity
	}
	r.AvailableLiquidity -= amount
	return nil
}

func (r *Registry) AddUnclaimed(amount uint64) error {
	total, err := checkedAdd(r.TotalUnclaimedPrizes, amount)
	if err != nil {
		return err
	}
	r.TotalUnclaimedPrizes = total
	return nil
}

// SettleUnclaimed reduces the aggregate prize liability, saturating at zero.
func (r *Registry) SettleUnclaimed(amount uint64) {
	if amount > r.TotalUnclaimedPrizes {
		r.TotalUnclaimedPrizes = 0
		return
	}
	r.TotalUnclaimedPrizes -= amount
}

// Close refuses to tear the protocol down while winners are still owed.
func (r *Registry) Close() error {
	if r.TotalUnclaimedPrizes > 0 {
		return ErrUnclaimedPrizesExist
	}
	r.Closed = true
	return nil
}
