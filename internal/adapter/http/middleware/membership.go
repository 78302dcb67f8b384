package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/usecase"
)

const (
	// RoleContextKey is the context key for the caller's business role.
	RoleContextKey ContextKey = "role"
)

// MembershipMiddleware resolves the caller's role in the business named
// by the {businessID} route param. Non-members are rejected before any
// handler sees the request; the existence of the business is not leaked.
type MembershipMiddleware struct {
	members usecase.MembershipRepository
}

// NewMembershipMiddleware creates a new MembershipMiddleware.
func NewMembershipMiddleware(members usecase.MembershipRepository) *MembershipMiddleware {
	return &MembershipMiddleware{members: members}
}

// Wrap wraps an http.Handler with membership enforcement.
func (m *MembershipMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		businessID := chi.URLParam(r, "businessID")
		if businessID == "" {
			http.Error(w, "missing business ID", http.StatusBadRequest)
			return
		}

		role, err := m.members.GetRole(r.Context(), businessID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotMember) {
				http.Error(w, "not a member of this business", http.StatusForbidden)
				return
			}
			http.Error(w, "membership check failed", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), RoleContextKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireWrite rejects read-only roles on mutating routes.
func RequireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRole(r.Context())
		if !ok || !role.CanWrite() {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetRole extracts the caller's business role from context.
func GetRole(ctx context.Context) (domain.Role, bool) {
	role, ok := ctx.Value(RoleContextKey).(domain.Role)
	return role, ok
}
