package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/interface/rest/utils"
)

// IdentityHeader carries the caller's identity. There is no authentication
// layer: on purpose, every state transition is either permissionless or
// validated against the ledger itself.
const IdentityHeader = "X-Rafa-Identity"

type Raffle struct {
	svc application.Service
}

func NewRaffle(svc application.Service) *Raffle {
	return &Raffle{svc}
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type withdrawalRequest struct {
	Amount uint64 `json:"amount"`
}

type snapshotRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (h *Raffle) handleDeposit(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOf(r)
	if err != nil {
		return err
	}
	var req depositRequest
	if err := utils.ParseJSON(r.Body, &req); err != nil {
		return utils.BadRequest(err)
	}

	res, err := h.svc.Deposit(r.Context(), identity, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, res)
}

func (h *Raffle) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOf(r)
	if err != nil {
		return err
	}
	var req withdrawalRequest
	if err := utils.ParseJSON(r.Body, &req); err != nil {
		return utils.BadRequest(err)
	}

	if err := h.svc.RequestWithdrawal(r.Context(), identity, req.Amount); err != nil {
		return toHTTPError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Raffle) handleCrank(w http.ResponseWriter, r *http.Request) error {
	cursor := 0
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return utils.BadRequest(fmt.Errorf("invalid cursor: %s", raw))
		}
		cursor = parsed
	}

	res, err := h.svc.Crank(r.Context(), cursor)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, res)
}

func (h *Raffle) handleSnapshot(w http.ResponseWriter, r *http.Request) error {
	var req snapshotRequest
	if err := utils.ParseJSON(r.Body, &req); err != nil {
		return utils.BadRequest(err)
	}
	if req.Offset < 0 || req.Limit < 0 {
		return utils.BadRequest(fmt.Errorf("offset and limit must be non-negative"))
	}

	res, err := h.svc.SnapshotBatch(r.Context(), req.Offset, req.Limit)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, res)
}

func (h *Raffle) handleCreateClaim(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOf(r)
	if err != nil {
		return err
	}
	roundID, err := roundIDOf(r)
	if err != nil {
		return err
	}

	claim, err := h.svc.CreateClaimRecord(r.Context(), roundID, identity)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, claim)
}

func (h *Raffle) handleClaimPrize(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOf(r)
	if err != nil {
		return err
	}
	roundID, err := roundIDOf(r)
	if err != nil {
		return err
	}

	payout, err := h.svc.ClaimPrize(r.Context(), roundID, identity)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, payout)
}

func (h *Raffle) handleProcessWithdrawal(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOf(r)
	if err != nil {
		return err
	}
	roundID, err := roundIDOf(r)
	if err != nil {
		return err
	}

	payout, err := h.svc.ProcessWithdrawal(r.Context(), roundID, identity)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, payout)
}

func (h *Raffle) handleGetRegistry(w http.ResponseWriter, r *http.Request) error {
	registry, err := h.svc.GetRegistry(r.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, registry)
}

func (h *Raffle) handleGetCurrentRound(w http.ResponseWriter, r *http.Request) error {
	round, err := h.svc.GetCurrentRound(r.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, round)
}

func (h *Raffle) handleGetRound(w http.ResponseWriter, r *http.Request) error {
	roundID, err := roundIDOf(r)
	if err != nil {
		return err
	}
	round, err := h.svc.GetRound(r.Context(), roundID)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, round)
}

func (h *Raffle) handleGetParticipant(w http.ResponseWriter, r *http.Request) error {
	identity := mux.Vars(r)["identity"]
	participant, err := h.svc.GetParticipant(r.Context(), identity)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, participant)
}

func (h *Raffle) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/deposits").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleDeposit))
	sub.Path("/withdrawals").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleRequestWithdrawal))
	sub.Path("/crank").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleCrank))
	sub.Path("/snapshots").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleSnapshot))

	sub.Path("/registry").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(h.handleGetRegistry))
	sub.Path("/rounds/current").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(h.handleGetCurrentRound))
	sub.Path("/rounds/{id}").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(h.handleGetRound))
	sub.Path("/participants/{identity}").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(h.handleGetParticipant))

	sub.Path("/rounds/{id}/claims").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleCreateClaim))
	sub.Path("/rounds/{id}/claims/settle").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleClaimPrize))
	sub.Path("/rounds/{id}/withdrawals").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleProcessWithdrawal))
}

func identityOf(r *http.Request) (string, error) {
	identity := r.Header.Get(IdentityHeader)
	if identity == "" {
		return "", utils.BadRequest(fmt.Errorf("missing %s header", IdentityHeader))
	}
	return identity, nil
}

func roundIDOf(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, utils.BadRequest(fmt.Errorf("invalid round id: %s", raw))
	}
	return id, nil
}
