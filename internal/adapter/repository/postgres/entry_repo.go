package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `
	id, business_id, account_id, entry_date, payee, amount_cents,
	entry_type, is_adjustment, deleted_at, created_at, updated_at`

// Create inserts a new ledger entry.
func (r *EntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.BusinessID,
		entry.AccountID,
		entry.Date,
		entry.Payee,
		entry.AmountCents,
		entry.Type,
		entry.IsAdjustment,
		entry.DeletedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	return err
}

// CountNonOpening counts live entries that are not the synthetic opening
// row. A nonzero count means the user already bootstrapped the ledger by
// hand and opening synthesis must not inject an estimate.
func (r *EntryRepository) CountNonOpening(ctx context.Context, accountID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM entries
		WHERE account_id = $1 AND deleted_at IS NULL AND payee <> $2
	`
	var count int
	err := r.pool.QueryRow(ctx, query, accountID, domain.OpeningBalancePayee).Scan(&count)
	return count, err
}

// FindOpeningPlaceholder returns the zero-amount opening placeholder for
// the account, or (nil, nil) when none exists. If several placeholders
// exist the oldest one wins.
func (r *EntryRepository) FindOpeningPlaceholder(ctx context.Context, accountID string) (*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM entries
		WHERE account_id = $1 AND deleted_at IS NULL AND payee = $2 AND amount_cents = 0
		ORDER BY created_at
		LIMIT 1
	`
	entry, err := scanEntry(r.pool.QueryRow(ctx, query, accountID, domain.OpeningBalancePayee))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// UpdateOpening fills in a placeholder opening entry with the estimated
// amount.
func (r *EntryRepository) UpdateOpening(ctx context.Context, id string, amountCents int64, entryType domain.EntryType, date time.Time, updatedAt time.Time) error {
	query := `
		UPDATE entries
		SET amount_cents = $2, entry_type = $3, entry_date = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, amountCents, entryType, date, updatedAt)
	return err
}

// ListForRange lists live, non-adjustment entries dated inside
// [start, end), ordered stably for deterministic snapshot output.
func (r *EntryRepository) ListForRange(ctx context.Context, accountID string, start, end time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM entries
		WHERE account_id = $1 AND deleted_at IS NULL AND NOT is_adjustment
		  AND entry_date >= $2 AND entry_date < $3
		ORDER BY entry_date, id
	`
	rows, err := r.pool.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var entry domain.Entry
	err := row.Scan(
		&entry.ID,
		&entry.BusinessID,
		&entry.AccountID,
		&entry.Date,
		&entry.Payee,
		&entry.AmountCents,
		&entry.Type,
		&entry.IsAdjustment,
		&entry.DeletedAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
