package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ledgerkit/banksync/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrConnectionNotFound, http.StatusNotFound},
		{domain.ErrTransactionNotFound, http.StatusNotFound},
		{domain.ErrSnapshotNotFound, http.StatusNotFound},
		{domain.ErrNotMember, http.StatusForbidden},
		{domain.ErrInvalidMonth, http.StatusBadRequest},
		{domain.ErrNonIntegerCents, http.StatusBadRequest},
		{domain.ErrSnapshotExists, http.StatusConflict},
		{domain.ErrStartDateConflict, http.StatusConflict},
		{domain.ErrUpstreamFailure, http.StatusBadGateway},
		{errors.New("anything else"), http.StatusInternalServerError},
		// Wrapped errors map the same as bare ones.
		{fmt.Errorf("create: %w", domain.ErrSnapshotExists), http.StatusConflict},
		{fmt.Errorf("%w: sync page 3: boom", domain.ErrUpstreamFailure), http.StatusBadGateway},
	}

	for _, tt := range tests {
		if got := mapDomainError(tt.err); got != tt.want {
			t.Errorf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
