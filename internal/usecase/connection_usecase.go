package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
)

// ConnectionUseCase manages bank connection lifecycle and status:
// token exchange, retention boundary changes and status polling.
type ConnectionUseCase struct {
	connRepo    ConnectionRepository
	txnRepo     BankTransactionRepository
	accountRepo AccountRepository
	aggregator  AggregatorClient
	cipher      TokenCipher
	cache       Cache
	idGen       IDGenerator
	logger      *logging.Logger
	concurrency int
}

// NewConnectionUseCase creates a new ConnectionUseCase.
func NewConnectionUseCase(
	connRepo ConnectionRepository,
	txnRepo BankTransactionRepository,
	accountRepo AccountRepository,
	aggregator AggregatorClient,
	cipher TokenCipher,
	cache Cache,
	idGen IDGenerator,
	logger *logging.Logger,
	concurrency int,
) *ConnectionUseCase {
	if concurrency <= 0 {
		concurrency = DefaultStatusConcurrency
	}
	return &ConnectionUseCase{
		connRepo:    connRepo,
		txnRepo:     txnRepo,
		accountRepo: accountRepo,
		aggregator:  aggregator,
		cipher:      cipher,
		cache:       cache,
		idGen:       idGen,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ConnectInput carries the token exchange parameters.
type ConnectInput struct {
	BusinessID          string
	AccountID           string
	PublicToken         string
	AggregatorAccountID string
	EffectiveStartDate  time.Time
}

// Connect exchanges a public token and creates (or re-credentials) the
// one-per-account connection. Re-connecting keeps the cursor and
// retention state so history is not re-ingested.
func (uc *ConnectionUseCase) Connect(ctx context.Context, input ConnectInput) (*domain.BankConnection, error) {
	if _, err := uc.accountRepo.GetByID(ctx, input.BusinessID, input.AccountID); err != nil {
		return nil, err
	}

	itemID, accessToken, err := uc.aggregator.ExchangePublicToken(ctx, input.PublicToken)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange token: %v", domain.ErrUpstreamFailure, err)
	}
	ciphertext, err := uc.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	now := time.Now().UTC()
	existing, err := uc.connRepo.GetByAccount(ctx, input.BusinessID, input.AccountID)
	if err == nil {
		if err := uc.connRepo.UpdateCredentials(ctx, existing.ID, itemID, input.AggregatorAccountID, ciphertext, now); err != nil {
			return nil, err
		}
		existing.PlaidItemID = itemID
		existing.PlaidAccountID = input.AggregatorAccountID
		existing.AccessTokenCiphertext = ciphertext
		existing.UpdatedAt = now
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	conn := &domain.BankConnection{
		ID:                    uc.idGen.Generate(),
		BusinessID:            input.BusinessID,
		AccountID:             input.AccountID,
		PlaidItemID:           itemID,
		PlaidAccountID:        input.AggregatorAccountID,
		AccessTokenCiphertext: ciphertext,
		EffectiveStartDate:    input.EffectiveStartDate,
		Status:                domain.ConnectionStatusConnected,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := uc.connRepo.Create(ctx, conn); err != nil {
		return nil, err
	}
	uc.logger.InfoCtx(ctx, "bank connection created",
		"account_id", input.AccountID, "item_id", itemID)
	return conn, nil
}

// StartDateChange reports the outcome of an UpdateStartDate call.
type StartDateChange struct {
	PrunedCount int64
}

// UpdateStartDate moves the retention boundary. Moving it forward prunes
// aggregator-sourced rows; without confirm the call fails with the
// would-be-pruned count so the caller can present it.
func (uc *ConnectionUseCase) UpdateStartDate(ctx context.Context, businessID, accountID string, newStart time.Time, confirm bool) (*StartDateChange, error) {
	conn, err := uc.connRepo.GetByAccount(ctx, businessID, accountID)
	if err != nil {
		return nil, err
	}

	affected, err := uc.txnRepo.CountAggregatorRowsBefore(ctx, accountID, newStart)
	if err != nil {
		return nil, err
	}
	if affected > 0 && !confirm {
		return &StartDateChange{PrunedCount: affected}, fmt.Errorf("%w: %d transactions", domain.ErrStartDateConflict, affected)
	}

	now := time.Now().UTC()
	if err := uc.connRepo.UpdateStartDate(ctx, conn.ID, newStart, now); err != nil {
		return nil, err
	}
	pruned, err := uc.txnRepo.DeleteAggregatorRowsBefore(ctx, accountID, newStart)
	if err != nil {
		return nil, err
	}
	uc.invalidateStatus(ctx, businessID)
	return &StartDateChange{PrunedCount: pruned}, nil
}

// ConnectionStatus is the externally visible state of one connection.
type ConnectionStatus struct {
	AccountID             string                  `json:"account_id"`
	Status                domain.ConnectionStatus `json:"status"`
	HasCursor             bool                    `json:"has_cursor"`
	HasNewTransactions    bool                    `json:"has_new_transactions"`
	LastKnownBalanceCents int64                   `json:"last_known_balance_cents"`
	LastSyncAt            *time.Time              `json:"last_sync_at,omitempty"`
}

// Status returns the connection status for one account.
func (uc *ConnectionUseCase) Status(ctx context.Context, businessID, accountID string) (*ConnectionStatus, error) {
	conn, err := uc.connRepo.GetByAccount(ctx, businessID, accountID)
	if err != nil {
		return nil, err
	}
	return statusOf(conn), nil
}

// StatusAll polls every connection of a business with a bounded
// concurrency window. The window limits parallel status work only; it
// never applies inside a single sync. Results are cached briefly.
func (uc *ConnectionUseCase) StatusAll(ctx context.Context, businessID string) ([]*ConnectionStatus, error) {
	cacheKey := "connstatus:" + businessID
	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, cacheKey); err == nil && len(raw) > 0 {
			var cached []*ConnectionStatus
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	conns, err := uc.connRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	statuses := make([]*ConnectionStatus, len(conns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, conn := range conns {
		g.Go(func() error {
			fresh, err := uc.connRepo.GetByAccount(gctx, businessID, conn.AccountID)
			if err != nil {
				return err
			}
			statuses[i] = statusOf(fresh)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if raw, err := json.Marshal(statuses); err == nil {
			_ = uc.cache.Set(ctx, cacheKey, raw, StatusCacheTTL)
		}
	}
	return statuses, nil
}

// FlagNewTransactions marks the connection for an aggregator item as
// having fresh data. Driven by the aggregator webhook; cleared by the
// next sync that ingests at least one new row.
func (uc *ConnectionUseCase) FlagNewTransactions(ctx context.Context, itemID string) error {
	conn, err := uc.connRepo.GetByItemID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := uc.connRepo.SetHasNewTransactions(ctx, conn.ID, true); err != nil {
		return err
	}
	uc.invalidateStatus(ctx, conn.BusinessID)
	return nil
}

func (uc *ConnectionUseCase) invalidateStatus(ctx context.Context, businessID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, "connstatus:"+businessID); err != nil {
		uc.logger.WarnCtx(ctx, "failed to invalidate status cache", "business_id", businessID, "error", err)
	}
}

func statusOf(conn *domain.BankConnection) *ConnectionStatus {
	return &ConnectionStatus{
		AccountID:             conn.AccountID,
		Status:                conn.Status,
		HasCursor:             conn.SyncCursor != "",
		HasNewTransactions:    conn.HasNewTransactions,
		LastKnownBalanceCents: conn.LastKnownBalanceCents,
		LastSyncAt:            conn.LastSyncAt,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrConnectionNotFound) || errors.Is(err, domain.ErrAccountNotFound)
}
