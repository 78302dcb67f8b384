package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// MembershipRepository implements usecase.MembershipRepository.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// GetRole resolves the role of a user within a business. A user without
// a membership row gets domain.ErrNotMember.
func (r *MembershipRepository) GetRole(ctx context.Context, businessID, userID string) (domain.Role, error) {
	query := `SELECT role FROM business_members WHERE business_id = $1 AND user_id = $2`
	var role domain.Role
	err := r.pool.QueryRow(ctx, query, businessID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotMember
		}
		return "", err
	}
	return role, nil
}
