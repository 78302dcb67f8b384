package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByID retrieves an account scoped to a business.
func (r *AccountRepository) GetByID(ctx context.Context, businessID, id string) (*domain.Account, error) {
	query := `
		SELECT id, business_id, name, account_type, created_at
		FROM accounts
		WHERE business_id = $1 AND id = $2
	`
	var acct domain.Account
	err := r.pool.QueryRow(ctx, query, businessID, id).Scan(
		&acct.ID,
		&acct.BusinessID,
		&acct.Name,
		&acct.Type,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}
