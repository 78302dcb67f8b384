package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkit/banksync/internal/adapter/http/dto"
	"github.com/ledgerkit/banksync/internal/adapter/http/middleware"
	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// SnapshotHandler handles reconcile snapshot HTTP requests.
type SnapshotHandler struct {
	snapUC *usecase.SnapshotUseCase
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapUC *usecase.SnapshotUseCase) *SnapshotHandler {
	return &SnapshotHandler{snapUC: snapUC}
}

// Create creates the snapshot for one account and month. A month that
// already has a snapshot answers 409 with the existing record.
func (h *SnapshotHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	userID, _ := middleware.GetUserID(r.Context())

	var req dto.CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	snap, err := h.snapUC.Create(r.Context(), businessID, req.AccountID, req.Month, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotExists) && snap != nil {
			writeJSON(w, http.StatusConflict, dto.SnapshotFromDomain(snap, nil))
			return
		}
		writeError(w, mapDomainError(err), "failed to create snapshot", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.SnapshotFromDomain(snap, nil))
}

// Get retrieves a snapshot. Write-capable roles additionally get signed
// artifact download URLs.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	snapshotID := chi.URLParam(r, "snapshotID")
	userID, _ := middleware.GetUserID(r.Context())

	snap, urls, err := h.snapUC.Get(r.Context(), businessID, userID, snapshotID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get snapshot", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotFromDomain(snap, urls))
}
