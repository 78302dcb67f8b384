package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkit/banksync/internal/adapter/http/dto"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// SyncHandler handles sync trigger requests.
type SyncHandler struct {
	syncUC *usecase.SyncUseCase
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncUC *usecase.SyncUseCase) *SyncHandler {
	return &SyncHandler{syncUC: syncUC}
}

// Trigger runs one sync for the account's connection. The request is
// synchronous: the response carries the ingest counts of this run.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	result, err := h.syncUC.Sync(r.Context(), businessID, accountID)
	if err != nil {
		writeError(w, mapDomainError(err), "sync failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SyncFromResult(result))
}
