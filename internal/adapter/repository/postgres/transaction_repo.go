package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// BankTransactionRepository implements usecase.BankTransactionRepository.
type BankTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewBankTransactionRepository creates a new BankTransactionRepository.
func NewBankTransactionRepository(pool *pgxpool.Pool) *BankTransactionRepository {
	return &BankTransactionRepository{pool: pool}
}

// Upsert inserts a transaction row or, when the external id already
// exists for the account, refreshes its mutable fields. A refresh also
// clears any prior soft-removal: the aggregator re-sending a record
// supersedes a removal delta. The returned flag reports whether a new
// row was created; (xmax = 0) is true only for freshly inserted tuples.
func (r *BankTransactionRepository) Upsert(ctx context.Context, txn *domain.BankTransaction) (bool, error) {
	query := `
		INSERT INTO bank_transactions (
			id, business_id, account_id, external_transaction_id,
			posted_date, authorized_date, amount_cents, name,
			is_pending, is_removed, removed_at, source, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, NULL, $10, $11, $12)
		ON CONFLICT (account_id, external_transaction_id) DO UPDATE SET
			posted_date = EXCLUDED.posted_date,
			authorized_date = EXCLUDED.authorized_date,
			amount_cents = EXCLUDED.amount_cents,
			name = EXCLUDED.name,
			is_pending = EXCLUDED.is_pending,
			is_removed = false,
			removed_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`
	var created bool
	err := r.pool.QueryRow(ctx, query,
		txn.ID,
		txn.BusinessID,
		txn.AccountID,
		txn.ExternalID,
		txn.PostedDate,
		txn.AuthorizedDate,
		txn.AmountCents,
		txn.Name,
		txn.IsPending,
		txn.Source,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, err
	}
	return created, nil
}

// UpgradePending rewrites a pending row in place with its posted
// successor, preserving the row id so existing matches survive the
// upgrade. Returns false when no pending row with that external id
// exists, or when the posted external id is already present (the
// upgrade already happened on a previous sync).
func (r *BankTransactionRepository) UpgradePending(ctx context.Context, accountID, pendingExternalID string, posted *domain.BankTransaction) (bool, error) {
	query := `
		UPDATE bank_transactions
		SET external_transaction_id = $3,
		    posted_date = $4,
		    authorized_date = $5,
		    amount_cents = $6,
		    name = $7,
		    is_pending = false,
		    updated_at = $8
		WHERE account_id = $1 AND external_transaction_id = $2 AND is_pending
	`
	tag, err := r.pool.Exec(ctx, query,
		accountID,
		pendingExternalID,
		posted.ExternalID,
		posted.PostedDate,
		posted.AuthorizedDate,
		posted.AmountCents,
		posted.Name,
		posted.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRemoved soft-removes a transaction by external id.
func (r *BankTransactionRepository) MarkRemoved(ctx context.Context, accountID, externalID string, at time.Time) error {
	query := `
		UPDATE bank_transactions
		SET is_removed = true, removed_at = $3, updated_at = $3
		WHERE account_id = $1 AND external_transaction_id = $2 AND NOT is_removed
	`
	_, err := r.pool.Exec(ctx, query, accountID, externalID, at)
	return err
}

// DeleteAggregatorRowsBefore hard-deletes aggregator-sourced rows older
// than the retention boundary. Matches referencing the deleted rows are
// removed by the ON DELETE CASCADE on bank_matches.
func (r *BankTransactionRepository) DeleteAggregatorRowsBefore(ctx context.Context, accountID string, before time.Time) (int64, error) {
	query := `
		DELETE FROM bank_transactions
		WHERE account_id = $1 AND source = $2 AND posted_date < $3
	`
	tag, err := r.pool.Exec(ctx, query, accountID, domain.SourceAggregator, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountAggregatorRowsBefore counts the rows a retention move would prune.
func (r *BankTransactionRepository) CountAggregatorRowsBefore(ctx context.Context, accountID string, before time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM bank_transactions
		WHERE account_id = $1 AND source = $2 AND posted_date < $3
	`
	var count int64
	err := r.pool.QueryRow(ctx, query, accountID, domain.SourceAggregator, before).Scan(&count)
	return count, err
}

// CountPending counts live pending rows for an account.
func (r *BankTransactionRepository) CountPending(ctx context.Context, accountID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM bank_transactions
		WHERE account_id = $1 AND is_pending AND NOT is_removed
	`
	var count int
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&count)
	return count, err
}

// SumPostedSince sums posted, non-removed amounts from the given date.
func (r *BankTransactionRepository) SumPostedSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0) FROM bank_transactions
		WHERE account_id = $1 AND posted_date >= $2 AND NOT is_pending AND NOT is_removed
	`
	var sum int64
	err := r.pool.QueryRow(ctx, query, accountID, since).Scan(&sum)
	return sum, err
}

// ListForRange lists non-removed transactions with a posted date inside
// [start, end), ordered stably for deterministic snapshot output.
func (r *BankTransactionRepository) ListForRange(ctx context.Context, accountID string, start, end time.Time) ([]*domain.BankTransaction, error) {
	query := `
		SELECT id, business_id, account_id, external_transaction_id,
		       posted_date, authorized_date, amount_cents, name,
		       is_pending, is_removed, removed_at, source, created_at, updated_at
		FROM bank_transactions
		WHERE account_id = $1 AND posted_date >= $2 AND posted_date < $3 AND NOT is_removed
		ORDER BY posted_date, id
	`
	rows, err := r.pool.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.BankTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.BankTransaction, error) {
	var txn domain.BankTransaction
	err := row.Scan(
		&txn.ID,
		&txn.BusinessID,
		&txn.AccountID,
		&txn.ExternalID,
		&txn.PostedDate,
		&txn.AuthorizedDate,
		&txn.AmountCents,
		&txn.Name,
		&txn.IsPending,
		&txn.IsRemoved,
		&txn.RemovedAt,
		&txn.Source,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
