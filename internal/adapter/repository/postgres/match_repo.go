package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// MatchRepository implements usecase.MatchRepository.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

// ListByTransactionIDs lists all matches, voided included, that
// reference the given bank transactions. Voided matches are needed for
// the snapshot audit trail.
func (r *MatchRepository) ListByTransactionIDs(ctx context.Context, txnIDs []string) ([]*domain.BankMatch, error) {
	if len(txnIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, business_id, bank_transaction_id, entry_id,
		       matched_amount_cents, voided_at, created_at
		FROM bank_matches
		WHERE bank_transaction_id = ANY($1)
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, txnIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*domain.BankMatch
	for rows.Next() {
		var m domain.BankMatch
		err := rows.Scan(
			&m.ID,
			&m.BusinessID,
			&m.BankTransactionID,
			&m.EntryID,
			&m.MatchedAmountCents,
			&m.VoidedAt,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
