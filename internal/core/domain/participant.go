package domain

// Participant is the per-identity ledger record. One record exists per
// identity and is reused across rounds: joining a new round resets the
// round-scoped fields.
type Participant struct {
	Identity                string
	Balance                 uint64
	TicketStart             uint64
	TicketEnd               uint64
	SnapshotBalances        [EpochsPerRound]uint64
	SnapshotsRecordedMask   uint8
	RoundJoined             uint64
	PendingWithdrawalAmount uint64
	PendingWithdrawalRound  uint64
	OptedOut                bool
}

func NewParticipant(identity string) *Participant {
	return &Participant{Identity: identity}
}

// ResetForRound clears the round-scoped state when the identity joins a new
// round with a fresh deposit.
func (p *Participant) ResetForRound(roundID uint64) {
	p.Balance = 0
	p.TicketStart = 0
	p.TicketEnd = 0
	p.SnapshotBalances = [EpochsPerRound]uint64{}
	p.SnapshotsRecordedMask = 0
	p.PendingWithdrawalAmount = 0
	p.PendingWithdrawalRound = 0
	p.OptedOut = false
	p.RoundJoined = roundID
}

// HasTickets reports whether the record holds a live ticket range for the
// given round.
func (p *Participant) HasTickets(roundID uint64) bool {
	return p.RoundJoined == roundID && p.Balance > 0
}

// OwnsTicket reports whether ticket falls inside the assigned range.
func (p *Participant) OwnsTicket(roundID, ticket uint64) bool {
	return p.HasTickets(roundID) && ticket >= p.TicketStart && ticket <= p.TicketEnd
}

// RangeContains reports whether ticket falls inside the range assigned to the
// record for the round, even when the balance was withdrawn: an opted-out
// participant's numbers are never reassigned, they become dead tickets.
func (p *Participant) RangeContains(roundID, ticket uint64) bool {
	if p.RoundJoined != roundID {
		return false
	}
	if p.Balance == 0 && !p.OptedOut {
		return false
	}
	return ticket >= p.TicketStart && ticket <= p.TicketEnd
}

// AddTickets credits a deposit. A first deposit installs the range; a repeat
// deposit in the same round may only extend it if no other range was assigned
// in between, otherwise the ledger-wide non-overlap invariant would break.
func (p *Participant) AddTickets(roundID, amount, start, end uint64) error {
	if p.RoundJoined != roundID {
		p.ResetForRound(roundID)
	}
	if p.Balance == 0 {
		p.TicketStart = start
		p.TicketEnd = end
	} else {
		if start != p.TicketEnd+1 {
			return ErrRangeNotContiguous
		}
		p.TicketEnd = end
	}
	balance, err := checkedAdd(p.Balance, amount)
	if err != nil {
		return err
	}
	p.Balance = balance
	return nil
}

// RecordSnapshot stores the balance for the given epoch (1-based) exactly
// once; repeated calls over an already-recorded epoch are no-ops.
func (p *Participant) RecordSnapshot(epoch uint8) bool {
	if epoch < 1 || epoch > EpochsPerRound {
		return false
	}
	bit := uint8(1) << (epoch - 1)
	if p.SnapshotsRecordedMask&bit != 0 {
		return false
	}
	p.SnapshotBalances[epoch-1] = p.Balance
	p.SnapshotsRecordedMask |= bit
	return true
}

// RequestWithdrawal opts the identity out of the live draw: the pending
// amount is moved out of the staked balance, the snapshot mask is cleared and
// the record is flagged so the selector treats its range as dead tickets.
func (p *Participant) RequestWithdrawal(amount, currentRound uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if p.Balance < amount {
		return ErrInvalidAmount
	}
	p.SnapshotsRecordedMask = 0
	p.OptedOut = true
	p.Balance -= amount
	pending, err := checkedAdd(p.PendingWithdrawalAmount, amount)
	if err != nil {
		return err
	}
	p.PendingWithdrawalAmount = pending
	p.PendingWithdrawalRound = currentRound
	return nil
}

// SettleRound zeroes the round participation after a claim or withdrawal has
// been paid out.
func (p *Participant) SettleRound() {
	p.Balance = 0
	p.PendingWithdrawalAmount = 0
	p.TicketStart = 0
	p.TicketEnd = 0
}
