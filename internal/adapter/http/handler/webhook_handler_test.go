package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
	"github.com/ledgerkit/banksync/internal/usecase"
	"github.com/ledgerkit/banksync/internal/usecase/mocks"
)

func newWebhookHandler(t *testing.T, secret string) (*WebhookHandler, *mocks.MockConnectionRepository) {
	t.Helper()
	conns := mocks.NewMockConnectionRepository()
	connUC := usecase.NewConnectionUseCase(
		conns,
		mocks.NewMockBankTransactionRepository(),
		mocks.NewMockAccountRepository(),
		nil,
		&mocks.MockTokenCipher{},
		mocks.NewMockCache(),
		&mocks.SequenceIDGenerator{},
		logging.New(logging.ParseLevel("error"), "text"),
		4,
	)
	return NewWebhookHandler(connUC, secret), conns
}

func postWebhook(h *WebhookHandler, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/aggregator", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func TestWebhookFlagsKnownItem(t *testing.T) {
	h, conns := newWebhookHandler(t, "hook-secret")
	conns.Seed(&domain.BankConnection{
		ID:          "conn-1",
		BusinessID:  "biz-1",
		AccountID:   "acc-1",
		PlaidItemID: "item-1",
	})

	rec := postWebhook(h, "hook-secret", `{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("status = %q", resp["status"])
	}
	if !conns.Get("conn-1").HasNewTransactions {
		t.Fatal("connection not flagged")
	}
}

func TestWebhookAcksUnknownItem(t *testing.T) {
	h, _ := newWebhookHandler(t, "hook-secret")

	rec := postWebhook(h, "hook-secret", `{"webhook_type":"TRANSACTIONS","item_id":"item-unknown"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, unknown items must be acked", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "ignored" {
		t.Fatalf("status = %q", resp["status"])
	}
}

func TestWebhookIgnoresOtherTypes(t *testing.T) {
	h, conns := newWebhookHandler(t, "hook-secret")
	conns.Seed(&domain.BankConnection{ID: "conn-1", PlaidItemID: "item-1"})

	rec := postWebhook(h, "hook-secret", `{"webhook_type":"ITEM","webhook_code":"ERROR","item_id":"item-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if conns.Get("conn-1").HasNewTransactions {
		t.Fatal("non-transactions webhook must not flag")
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	h, _ := newWebhookHandler(t, "hook-secret")

	rec := postWebhook(h, "wrong", `{"webhook_type":"TRANSACTIONS","item_id":"item-1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookRejectsInvalidBody(t *testing.T) {
	h, _ := newWebhookHandler(t, "hook-secret")

	for _, body := range []string{"not json", `{"webhook_type":"TRANSACTIONS"}`, `{}`} {
		rec := postWebhook(h, "hook-secret", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}
