package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkit/banksync/internal/adapter/http/dto"
	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// ConnectionHandler handles bank connection HTTP requests.
type ConnectionHandler struct {
	connUC *usecase.ConnectionUseCase
}

// NewConnectionHandler creates a new ConnectionHandler.
func NewConnectionHandler(connUC *usecase.ConnectionUseCase) *ConnectionHandler {
	return &ConnectionHandler{connUC: connUC}
}

// Connect links an account to the aggregator via public token exchange.
func (h *ConnectionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	accountID := chi.URLParam(r, "accountID")

	var req dto.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	startDate, err := req.Validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	conn, err := h.connUC.Connect(r.Context(), usecase.ConnectInput{
		BusinessID:          businessID,
		AccountID:           accountID,
		PublicToken:         req.PublicToken,
		AggregatorAccountID: req.AggregatorAccountID,
		EffectiveStartDate:  startDate,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to connect account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.ConnectionFromDomain(conn))
}

// Status returns the connection status for one account.
func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	accountID := chi.URLParam(r, "accountID")

	status, err := h.connUC.Status(r.Context(), businessID, accountID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get connection status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// StatusAll returns the status of every connection of the business.
func (h *ConnectionHandler) StatusAll(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")

	statuses, err := h.connUC.StatusAll(r.Context(), businessID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list connections", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}

// UpdateStartDate moves the retention boundary for an account's
// connection. Without confirm, a move that would prune synced rows is
// rejected with the would-be-pruned count.
func (h *ConnectionHandler) UpdateStartDate(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	accountID := chi.URLParam(r, "accountID")

	var req dto.UpdateStartDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	startDate, err := req.Validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	change, err := h.connUC.UpdateStartDate(r.Context(), businessID, accountID, startDate, req.Confirm)
	if err != nil {
		if errors.Is(err, domain.ErrStartDateConflict) && change != nil {
			// Surface the count so the client can re-submit with confirm.
			writeJSON(w, http.StatusConflict, dto.StartDateChangeResponse{PrunedCount: change.PrunedCount})
			return
		}
		writeError(w, mapDomainError(err), "failed to update start date", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.StartDateChangeResponse{PrunedCount: change.PrunedCount})
}
