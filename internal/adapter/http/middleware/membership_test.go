package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/usecase/mocks"
)

func businessRequest(userID, businessID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := req.Context()
	if userID != "" {
		ctx = context.WithValue(ctx, UserIDContextKey, userID)
	}
	rctx := chi.NewRouteContext()
	if businessID != "" {
		rctx.URLParams.Add("businessID", businessID)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
}

func TestMembershipMiddleware(t *testing.T) {
	members := mocks.NewMockMembershipRepository()
	members.Seed("biz-1", "user-1", domain.RoleAdmin)
	mw := NewMembershipMiddleware(members)

	tests := []struct {
		name       string
		userID     string
		businessID string
		wantStatus int
		wantRole   domain.Role
	}{
		{"member", "user-1", "biz-1", http.StatusOK, domain.RoleAdmin},
		{"non-member", "user-2", "biz-1", http.StatusForbidden, ""},
		{"wrong business", "user-1", "biz-2", http.StatusForbidden, ""},
		{"unauthenticated", "", "biz-1", http.StatusUnauthorized, ""},
		{"missing business param", "user-1", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRole domain.Role
			handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotRole, _ = GetRole(r.Context())
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, businessRequest(tt.userID, tt.businessID))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotRole != tt.wantRole {
				t.Fatalf("role = %q, want %q", gotRole, tt.wantRole)
			}
		})
	}
}

func TestRequireWrite(t *testing.T) {
	tests := []struct {
		role       domain.Role
		wantStatus int
	}{
		{domain.RoleOwner, http.StatusOK},
		{domain.RoleAdmin, http.StatusOK},
		{domain.RoleMember, http.StatusOK},
		{domain.RoleViewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			handler := RequireWrite(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), RoleContextKey, tt.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireWriteWithoutRole(t *testing.T) {
	handler := RequireWrite(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
