package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/interface/rest/utils"
)

type Admin struct {
	svc application.AdminService
}

func NewAdmin(svc application.AdminService) *Admin {
	return &Admin{svc}
}

type seedPrizeRequest struct {
	Amount uint64 `json:"amount"`
}

type selectWinnerRequest struct {
	Seed uint64 `json:"seed"`
}

type claimRecordRequest struct {
	Prize uint64 `json:"prize"`
	Stake uint64 `json:"stake"`
}

func (h *Admin) handleSeedPrize(w http.ResponseWriter, r *http.Request) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	var req seedPrizeRequest
	if err := utils.ParseJSON(r.Body, &req); err != nil {
		return utils.BadRequest(err)
	}

	if err := h.svc.SeedPrize(r.Context(), caller, req.Amount); err != nil {
		return toHTTPError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Admin) handleInitRound(w http.ResponseWriter, r *http.Request) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	round, err := h.svc.InitRound(r.Context(), caller)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, round)
}

func (h *Admin) handleAdvanceEpoch(w http.ResponseWriter, r *http.Request) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	if err := h.svc.AdvanceEpoch(r.Context(), caller); err != nil {
		return toHTTPError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Admin) handleSelectWinner(w http.ResponseWriter, r *http.Request) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	var req selectWinnerRequest
	if err := utils.ParseJSON(r.Body, &req); err != nil {
		return utils.BadRequest(err)
	}

	res, err := h.svc.SelectWinner(r.Context(), caller, req.Seed)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, res)
}

func (h *Admin) handleCreateClaimRecord(w http.ResponseWriter, r *http.Request) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	roundID, err := roundIDOf(r)
	if err != nil {
		return err
	}
	var req claimRecordRequest
	if err := utils.ParseJSON(r.Body, &req); err != nil {
		return utils.BadRequest(err)
	}

	claim, err := h.svc.CreateClaimRecordFor(r.Context(), caller, roundID, req.Prize, req.Stake)
	if err != nil {
		return toHTTPError(err)
	}
	return utils.WriteJSON(w, claim)
}

func (h *Admin) handleDelegate(w http.ResponseWriter, r *http.Request) error {
	return h.handlePipelineOp(w, r, h.svc.Delegate)
}

func (h *Admin) handleDeactivate(w http.ResponseWriter, r *http.Request) error {
	return h.handlePipelineOp(w, r, h.svc.Deactivate)
}

func (h *Admin) handleHarvest(w http.ResponseWriter, r *http.Request) error {
	return h.handlePipelineOp(w, r, h.svc.Harvest)
}

func (h *Admin) handlePipelineOp(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, caller string, roundID uint64) error,
) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	roundID, err := roundIDOf(r)
	if err != nil {
		return err
	}
	if err := op(r.Context(), caller, roundID); err != nil {
		return toHTTPError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Admin) handleCloseProtocol(w http.ResponseWriter, r *http.Request) error {
	caller, err := identityOf(r)
	if err != nil {
		return err
	}
	if err := h.svc.CloseProtocol(r.Context(), caller); err != nil {
		return toHTTPError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/prize").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleSeedPrize))
	sub.Path("/rounds").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleInitRound))
	sub.Path("/rounds/epoch").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleAdvanceEpoch))
	sub.Path("/rounds/winner").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleSelectWinner))
	sub.Path("/rounds/{id}/claims").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleCreateClaimRecord))

	sub.Path("/stakes/{id}/delegate").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleDelegate))
	sub.Path("/stakes/{id}/deactivate").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleDeactivate))
	sub.Path("/stakes/{id}/harvest").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleHarvest))

	sub.Path("/close").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(h.handleCloseProtocol))
}
