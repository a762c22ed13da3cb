package domain

// ClaimRecord is a settlement entitlement letting a round's winner withdraw
// stake+prize. It is created exactly once per completed round and consumed by
// flipping the claimed flag; it is never deleted.
type ClaimRecord struct {
	RoundID     uint64
	Winner      string
	PrizeAmount uint64
	StakeAmount uint64
	PaidAmount  uint64
	Claimed     bool
}

func NewClaimRecord(roundID uint64, winner string, prize, stake uint64) (*ClaimRecord, error) {
	if _, err := checkedAdd(prize, stake); err != nil {
		return nil, err
	}
	return &ClaimRecord{
		RoundID:     roundID,
		Winner:      winner,
		PrizeAmount: prize,
		StakeAmount: stake,
	}, nil
}

// Owed returns the outstanding amount, net of any partial payout already made.
func (c *ClaimRecord) Owed() uint64 {
	total := c.PrizeAmount + c.StakeAmount
	if c.PaidAmount >= total {
		return 0
	}
	return total - c.PaidAmount
}

// Settle pays as much of the outstanding amount as the available liquidity
// allows. The remainder stays owed and is deferred to the next harvest; the
// record counts as claimed only once fully paid.
func (c *ClaimRecord) Settle(available uint64) (paid uint64, err error) {
	if c.Claimed {
		return 0, ErrAlreadyClaimed
	}
	owed := c.Owed()
	paid = owed
	if available < owed {
		paid = available
	}
	if paid == 0 {
		return 0, ErrInsufficientLiquidity
	}
	c.PaidAmount += paid
	if c.Owed() == 0 {
		c.Claimed = true
	}
	return paid, nil
}
