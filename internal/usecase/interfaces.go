package usecase

import (
	"context"
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
)

// AccountRepository defines read access to the account registry.
type AccountRepository interface {
	GetByID(ctx context.Context, businessID, id string) (*domain.Account, error)
}

// MembershipRepository resolves a user's role within a business.
type MembershipRepository interface {
	GetRole(ctx context.Context, businessID, userID string) (domain.Role, error)
}

// ConnectionRepository defines data access for bank connections.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.BankConnection) error
	GetByAccount(ctx context.Context, businessID, accountID string) (*domain.BankConnection, error)
	GetByItemID(ctx context.Context, itemID string) (*domain.BankConnection, error)
	ListByBusiness(ctx context.Context, businessID string) ([]*domain.BankConnection, error)
	UpdateCredentials(ctx context.Context, id, itemID, plaidAccountID string, ciphertext []byte, updatedAt time.Time) error
	UpdateSyncState(ctx context.Context, id, cursor string, lastSyncAt time.Time, clearNewFlag bool, balanceCents int64) error
	UpdateStartDate(ctx context.Context, id string, start, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus, updatedAt time.Time) error
	SetHasNewTransactions(ctx context.Context, id string, flag bool) error
	MarkOpeningAdjustmentCreated(ctx context.Context, id string, at time.Time) error
}

// BankTransactionRepository defines data access for aggregator-sourced
// transactions. Upsert must tolerate a losing create race by degrading to
// an update on the (account_id, external_transaction_id) key.
type BankTransactionRepository interface {
	Upsert(ctx context.Context, txn *domain.BankTransaction) (created bool, err error)
	UpgradePending(ctx context.Context, accountID, pendingExternalID string, posted *domain.BankTransaction) (upgraded bool, err error)
	MarkRemoved(ctx context.Context, accountID, externalID string, at time.Time) error
	DeleteAggregatorRowsBefore(ctx context.Context, accountID string, before time.Time) (int64, error)
	CountAggregatorRowsBefore(ctx context.Context, accountID string, before time.Time) (int64, error)
	CountPending(ctx context.Context, accountID string) (int, error)
	SumPostedSince(ctx context.Context, accountID string, since time.Time) (int64, error)
	ListForRange(ctx context.Context, accountID string, start, end time.Time) ([]*domain.BankTransaction, error)
}

// EntryRepository defines the slice of ledger-entry access this core
// needs: creating/adjusting the synthetic opening entry and reading a
// month of entries for classification.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	CountNonOpening(ctx context.Context, accountID string) (int, error)
	FindOpeningPlaceholder(ctx context.Context, accountID string) (*domain.Entry, error)
	UpdateOpening(ctx context.Context, id string, amountCents int64, entryType domain.EntryType, date time.Time, updatedAt time.Time) error
	ListForRange(ctx context.Context, accountID string, start, end time.Time) ([]*domain.Entry, error)
}

// MatchRepository defines read access to the match ledger. Matches are
// created and voided by the reconciliation UI outside this core.
type MatchRepository interface {
	ListByTransactionIDs(ctx context.Context, txnIDs []string) ([]*domain.BankMatch, error)
}

// SnapshotRepository defines data access for reconcile snapshots.
// Create must surface the (business_id, account_id, month) uniqueness
// violation as domain.ErrSnapshotExists. GetByMonth returns (nil, nil)
// when no snapshot exists; it is an existence probe, not a lookup.
type SnapshotRepository interface {
	Create(ctx context.Context, snap *domain.ReconcileSnapshot) error
	GetByID(ctx context.Context, businessID, id string) (*domain.ReconcileSnapshot, error)
	GetByMonth(ctx context.Context, businessID, accountID, month string) (*domain.ReconcileSnapshot, error)
	SetArtifacts(ctx context.Context, id string, artifacts domain.ArtifactSet) error
}

// ObjectStore is the durable blob capability snapshot artifacts are
// written to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// TokenCipher encrypts aggregator access tokens at rest.
type TokenCipher interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
}

// Retrier executes an operation with a bounded retry policy.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
