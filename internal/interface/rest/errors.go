package rest

import (
	"errors"
	"net/http"

	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	"github.com/rafa-protocol/rafad/internal/interface/rest/utils"
)

// toHTTPError maps the core's sentinel errors onto http statuses so that
// clients can distinguish rejected requests from broken ones.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrRegistryNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrClaimNotFound),
		errors.Is(err, domain.ErrStakeNotFound):
		return utils.HTTPError(err, http.StatusNotFound)

	case errors.Is(err, domain.ErrAdminOnly),
		errors.Is(err, domain.ErrNotWinner),
		errors.Is(err, domain.ErrWinnerMustClaim):
		return utils.Forbidden(err)

	case errors.Is(err, domain.ErrClaimRecordExists),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrRegistryExists),
		errors.Is(err, domain.ErrRoundComplete),
		errors.Is(err, domain.ErrRoundNotComplete),
		errors.Is(err, domain.ErrDepositsClosedEpoch3),
		errors.Is(err, domain.ErrUnclaimedPrizesExist),
		errors.Is(err, domain.ErrProtocolClosed),
		errors.Is(err, ports.ErrStakeCooldown):
		return utils.HTTPError(err, http.StatusConflict)

	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTicketAmount),
		errors.Is(err, domain.ErrInvalidEpoch),
		errors.Is(err, domain.ErrArithmeticOverflow),
		errors.Is(err, domain.ErrRangeNotContiguous),
		errors.Is(err, domain.ErrWrongRound),
		errors.Is(err, domain.ErrNoTicketsSold),
		errors.Is(err, domain.ErrNothingToWithdraw),
		errors.Is(err, domain.ErrInsufficientLiquidity):
		return utils.BadRequest(err)
	}
	return err
}
