package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// SnapshotRepository implements usecase.SnapshotRepository.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

const snapshotColumns = `
	id, business_id, account_id, month,
	bank_unmatched_count, bank_partial_count, bank_matched_count,
	entries_expected_count, entries_matched_count, revert_count,
	remaining_abs_cents,
	bank_artifact_key, matches_artifact_key, audit_artifact_key,
	bank_sha256, matches_sha256, audit_sha256,
	created_at, created_by`

// Create inserts a snapshot row. The unique (business_id, account_id,
// month) index enforces create-once; a conflict surfaces as
// domain.ErrSnapshotExists so the caller can return the winner.
func (r *SnapshotRepository) Create(ctx context.Context, snap *domain.ReconcileSnapshot) error {
	query := `
		INSERT INTO reconcile_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.pool.Exec(ctx, query,
		snap.ID,
		snap.BusinessID,
		snap.AccountID,
		snap.Month,
		snap.Counts.BankUnmatched,
		snap.Counts.BankPartial,
		snap.Counts.BankMatched,
		snap.Counts.EntriesExpected,
		snap.Counts.EntriesMatched,
		snap.Counts.Reverts,
		snap.RemainingAbsCents,
		snap.Artifacts.BankKey,
		snap.Artifacts.MatchesKey,
		snap.Artifacts.AuditKey,
		snap.Artifacts.BankSHA256,
		snap.Artifacts.MatchesSHA256,
		snap.Artifacts.AuditSHA256,
		snap.CreatedAt,
		snap.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSnapshotExists
		}
		return err
	}
	return nil
}

// GetByID retrieves a snapshot scoped to a business.
func (r *SnapshotRepository) GetByID(ctx context.Context, businessID, id string) (*domain.ReconcileSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM reconcile_snapshots WHERE business_id = $1 AND id = $2`
	snap, err := scanSnapshot(r.pool.QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	return snap, nil
}

// GetByMonth probes for an existing snapshot of a month. It returns
// (nil, nil) when none exists.
func (r *SnapshotRepository) GetByMonth(ctx context.Context, businessID, accountID, month string) (*domain.ReconcileSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + ` FROM reconcile_snapshots
		WHERE business_id = $1 AND account_id = $2 AND month = $3
	`
	snap, err := scanSnapshot(r.pool.QueryRow(ctx, query, businessID, accountID, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}

// SetArtifacts records the artifact keys and checksums once the CSV
// blobs have been written to the object store.
func (r *SnapshotRepository) SetArtifacts(ctx context.Context, id string, artifacts domain.ArtifactSet) error {
	query := `
		UPDATE reconcile_snapshots
		SET bank_artifact_key = $2, matches_artifact_key = $3, audit_artifact_key = $4,
		    bank_sha256 = $5, matches_sha256 = $6, audit_sha256 = $7
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id,
		artifacts.BankKey,
		artifacts.MatchesKey,
		artifacts.AuditKey,
		artifacts.BankSHA256,
		artifacts.MatchesSHA256,
		artifacts.AuditSHA256,
	)
	return err
}

func scanSnapshot(row pgx.Row) (*domain.ReconcileSnapshot, error) {
	var snap domain.ReconcileSnapshot
	err := row.Scan(
		&snap.ID,
		&snap.BusinessID,
		&snap.AccountID,
		&snap.Month,
		&snap.Counts.BankUnmatched,
		&snap.Counts.BankPartial,
		&snap.Counts.BankMatched,
		&snap.Counts.EntriesExpected,
		&snap.Counts.EntriesMatched,
		&snap.Counts.Reverts,
		&snap.RemainingAbsCents,
		&snap.Artifacts.BankKey,
		&snap.Artifacts.MatchesKey,
		&snap.Artifacts.AuditKey,
		&snap.Artifacts.BankSHA256,
		&snap.Artifacts.MatchesSHA256,
		&snap.Artifacts.AuditSHA256,
		&snap.CreatedAt,
		&snap.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
