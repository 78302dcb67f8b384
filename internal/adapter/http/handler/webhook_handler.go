package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/ledgerkit/banksync/internal/adapter/http/dto"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// WebhookHandler receives aggregator webhooks. The only state it
// touches is the has-new-transactions flag; ingestion always goes
// through an explicit sync.
type WebhookHandler struct {
	connUC       *usecase.ConnectionUseCase
	sharedSecret string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(connUC *usecase.ConnectionUseCase, sharedSecret string) *WebhookHandler {
	return &WebhookHandler{connUC: connUC, sharedSecret: sharedSecret}
}

// Receive handles a transactions webhook. Unknown items and webhook
// types are acknowledged without effect so the aggregator stops
// redelivering them.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.sharedSecret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.sharedSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook secret", "")
			return
		}
	}

	var req dto.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook", err.Error())
		return
	}

	if req.WebhookType != "TRANSACTIONS" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.connUC.FlagNewTransactions(r.Context(), req.ItemID); err != nil {
		// Ack anyway; an unknown item is not a delivery failure.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
