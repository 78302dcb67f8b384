package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/banksync/internal/domain"
)

// ConnectionRepository implements usecase.ConnectionRepository.
type ConnectionRepository struct {
	pool *pgxpool.Pool
}

// NewConnectionRepository creates a new ConnectionRepository.
func NewConnectionRepository(pool *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

const connectionColumns = `
	id, business_id, account_id, plaid_item_id, plaid_account_id,
	access_token_ciphertext, effective_start_date, sync_cursor, status,
	has_new_transactions, last_known_balance_cents, balance_refreshed_at,
	last_sync_at, opening_adjustment_created_at, created_at, updated_at`

// Create inserts a new bank connection.
func (r *ConnectionRepository) Create(ctx context.Context, conn *domain.BankConnection) error {
	query := `
		INSERT INTO bank_connections (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		conn.ID,
		conn.BusinessID,
		conn.AccountID,
		conn.PlaidItemID,
		conn.PlaidAccountID,
		conn.AccessTokenCiphertext,
		conn.EffectiveStartDate,
		conn.SyncCursor,
		conn.Status,
		conn.HasNewTransactions,
		conn.LastKnownBalanceCents,
		conn.BalanceRefreshedAt,
		conn.LastSyncAt,
		conn.OpeningAdjustmentCreatedAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	return err
}

// GetByAccount retrieves the connection for an account.
func (r *ConnectionRepository) GetByAccount(ctx context.Context, businessID, accountID string) (*domain.BankConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE business_id = $1 AND account_id = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, businessID, accountID))
}

// GetByItemID retrieves the connection for an aggregator item.
func (r *ConnectionRepository) GetByItemID(ctx context.Context, itemID string) (*domain.BankConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE plaid_item_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, itemID))
}

// ListByBusiness retrieves all connections of a business.
func (r *ConnectionRepository) ListByBusiness(ctx context.Context, businessID string) ([]*domain.BankConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE business_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*domain.BankConnection
	for rows.Next() {
		conn, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// UpdateCredentials replaces the aggregator credentials of a connection.
func (r *ConnectionRepository) UpdateCredentials(ctx context.Context, id, itemID, plaidAccountID string, ciphertext []byte, updatedAt time.Time) error {
	query := `
		UPDATE bank_connections
		SET plaid_item_id = $2, plaid_account_id = $3, access_token_ciphertext = $4,
		    status = $5, updated_at = $6
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, itemID, plaidAccountID, ciphertext, domain.ConnectionStatusConnected, updatedAt)
	return err
}

// UpdateSyncState commits the cursor and sync bookkeeping after a
// successful sync. The new-transactions flag is cleared only when the
// sync ingested at least one new row; a healthy sync also resets an
// errored connection back to CONNECTED.
func (r *ConnectionRepository) UpdateSyncState(ctx context.Context, id, cursor string, lastSyncAt time.Time, clearNewFlag bool, balanceCents int64) error {
	query := `
		UPDATE bank_connections
		SET sync_cursor = $2,
		    last_sync_at = $3,
		    has_new_transactions = CASE WHEN $4 THEN false ELSE has_new_transactions END,
		    last_known_balance_cents = $5,
		    balance_refreshed_at = $3,
		    status = $6,
		    updated_at = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, cursor, lastSyncAt, clearNewFlag, balanceCents, domain.ConnectionStatusConnected)
	return err
}

// UpdateStartDate moves the retention boundary.
func (r *ConnectionRepository) UpdateStartDate(ctx context.Context, id string, start, updatedAt time.Time) error {
	query := `UPDATE bank_connections SET effective_start_date = $2, updated_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, start, updatedAt)
	return err
}

// UpdateStatus sets the connection health.
func (r *ConnectionRepository) UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus, updatedAt time.Time) error {
	query := `UPDATE bank_connections SET status = $2, updated_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, status, updatedAt)
	return err
}

// SetHasNewTransactions sets the webhook-driven freshness flag.
func (r *ConnectionRepository) SetHasNewTransactions(ctx context.Context, id string, flag bool) error {
	query := `UPDATE bank_connections SET has_new_transactions = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, flag)
	return err
}

// MarkOpeningAdjustmentCreated closes the one-shot opening synthesis gate.
func (r *ConnectionRepository) MarkOpeningAdjustmentCreated(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE bank_connections
		SET opening_adjustment_created_at = $2, updated_at = $2
		WHERE id = $1 AND opening_adjustment_created_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *ConnectionRepository) scanOne(row pgx.Row) (*domain.BankConnection, error) {
	var conn domain.BankConnection
	err := row.Scan(
		&conn.ID,
		&conn.BusinessID,
		&conn.AccountID,
		&conn.PlaidItemID,
		&conn.PlaidAccountID,
		&conn.AccessTokenCiphertext,
		&conn.EffectiveStartDate,
		&conn.SyncCursor,
		&conn.Status,
		&conn.HasNewTransactions,
		&conn.LastKnownBalanceCents,
		&conn.BalanceRefreshedAt,
		&conn.LastSyncAt,
		&conn.OpeningAdjustmentCreatedAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, err
	}
	return &conn, nil
}
