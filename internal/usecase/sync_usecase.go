package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
	"github.com/ledgerkit/banksync/internal/infrastructure/metrics"
)

// SyncConfig carries the safety caps for one sync invocation.
type SyncConfig struct {
	MaxPages        int
	MaxTransactions int
}

// SyncUseCase drives cursor-based ingestion of transaction deltas for one
// bank connection: retention pruning, pending→posted upgrades, idempotent
// upserts, soft removals and the one-time opening-balance synthesis.
type SyncUseCase struct {
	connRepo   ConnectionRepository
	txnRepo    BankTransactionRepository
	entryRepo  EntryRepository
	aggregator AggregatorClient
	cipher     TokenCipher
	retrier    Retrier
	idGen      IDGenerator
	logger     *logging.Logger
	metrics    *metrics.Metrics
	cfg        SyncConfig
}

// NewSyncUseCase creates a new SyncUseCase.
func NewSyncUseCase(
	connRepo ConnectionRepository,
	txnRepo BankTransactionRepository,
	entryRepo EntryRepository,
	aggregator AggregatorClient,
	cipher TokenCipher,
	retrier Retrier,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
	cfg SyncConfig,
) *SyncUseCase {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxTransactions <= 0 {
		cfg.MaxTransactions = DefaultMaxTransactions
	}
	return &SyncUseCase{
		connRepo:   connRepo,
		txnRepo:    txnRepo,
		entryRepo:  entryRepo,
		aggregator: aggregator,
		cipher:     cipher,
		retrier:    retrier,
		idGen:      idGen,
		logger:     logger,
		metrics:    m,
		cfg:        cfg,
	}
}

// SyncResult reports what one sync invocation did.
type SyncResult struct {
	NewCount       int
	DuplicateCount int
	PendingCount   int
	PrunedCount    int64
	LastSyncAt     time.Time
	Pages          int
	TotalSeen      int
	Capped         bool
	HasMore        bool
}

// Sync pulls all pending transaction deltas for the account's connection.
// Caller is expected to serialize syncs per account; the cursor and
// connection state are persisted only after the loop finishes, so a
// failed page leaves the previously committed cursor untouched and the
// next invocation resumes from it.
func (uc *SyncUseCase) Sync(ctx context.Context, businessID, accountID string) (*SyncResult, error) {
	conn, err := uc.connRepo.GetByAccount(ctx, businessID, accountID)
	if err != nil {
		return nil, err
	}

	token, err := uc.cipher.Decrypt(conn.AccessTokenCiphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}

	var balanceCents int64
	err = uc.retrier.Retry(ctx, func() error {
		var balErr error
		balanceCents, balErr = uc.aggregator.GetBalance(ctx, token, conn.PlaidAccountID)
		return balErr
	})
	if err != nil {
		uc.markError(ctx, conn.ID)
		if uc.metrics != nil {
			uc.metrics.SyncsFailed.WithLabelValues("balance").Inc()
		}
		return nil, fmt.Errorf("%w: get balance: %v", domain.ErrUpstreamFailure, err)
	}

	// Retention prune. Only aggregator-sourced rows are eligible;
	// manually-imported history is never touched by this step.
	pruned, err := uc.txnRepo.DeleteAggregatorRowsBefore(ctx, accountID, conn.EffectiveStartDate)
	if err != nil {
		return nil, err
	}
	if pruned > 0 {
		if uc.metrics != nil {
			uc.metrics.TransactionsPruned.Add(float64(pruned))
		}
		uc.logger.InfoCtx(ctx, "pruned transactions outside retention window",
			"account_id", accountID, "pruned", pruned)
	}

	result := &SyncResult{PrunedCount: pruned}
	cursor := conn.SyncCursor
	hasMore := true

	for hasMore {
		if result.Pages >= uc.cfg.MaxPages || result.TotalSeen >= uc.cfg.MaxTransactions {
			result.Capped = true
			break
		}

		var page *SyncPageResult
		err = uc.retrier.Retry(ctx, func() error {
			var pageErr error
			page, pageErr = uc.aggregator.SyncPage(ctx, token, conn.PlaidAccountID, cursor)
			return pageErr
		})
		if err != nil {
			// Abort without persisting cursor advancement; the next
			// invocation resumes from the last committed cursor.
			uc.markError(ctx, conn.ID)
			if uc.metrics != nil {
				uc.metrics.SyncsFailed.WithLabelValues("page").Inc()
			}
			return nil, fmt.Errorf("%w: sync page %d: %v", domain.ErrUpstreamFailure, result.Pages+1, err)
		}

		result.Pages++
		result.TotalSeen += len(page.Added) + len(page.Modified) + len(page.Removed)

		now := time.Now().UTC()
		for _, rec := range page.Added {
			if err := uc.ingest(ctx, conn, rec, now, result); err != nil {
				return nil, err
			}
		}
		for _, rec := range page.Modified {
			if err := uc.ingest(ctx, conn, rec, now, result); err != nil {
				return nil, err
			}
		}
		for _, externalID := range page.Removed {
			if err := uc.txnRepo.MarkRemoved(ctx, accountID, externalID, now); err != nil {
				return nil, err
			}
		}

		cursor = page.NextCursor
		hasMore = page.HasMore
	}
	result.HasMore = hasMore

	if conn.NeedsOpeningAdjustment() {
		if err := uc.synthesizeOpening(ctx, conn, balanceCents); err != nil {
			return nil, err
		}
	}

	// Recompute from the store rather than accumulating during the loop;
	// pending upgrades would otherwise skew the count.
	pendingCount, err := uc.txnRepo.CountPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	result.PendingCount = pendingCount

	now := time.Now().UTC()
	result.LastSyncAt = now
	if err := uc.connRepo.UpdateSyncState(ctx, conn.ID, cursor, now, result.NewCount > 0, balanceCents); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SyncsCompleted.Inc()
		uc.metrics.SyncPages.Observe(float64(result.Pages))
		uc.metrics.TransactionsIngested.Add(float64(result.NewCount))
		uc.metrics.TransactionsDuplicate.Add(float64(result.DuplicateCount))
		if result.Capped {
			uc.metrics.SyncsCapped.Inc()
		}
	}

	uc.logger.InfoCtx(ctx, "sync completed",
		"account_id", accountID,
		"new", result.NewCount,
		"duplicates", result.DuplicateCount,
		"pending", result.PendingCount,
		"pages", result.Pages,
		"capped", result.Capped,
	)

	return result, nil
}

// ingest applies one added/modified record: retention filter, sign
// conversion, pending upgrade, then upsert by external id.
func (uc *SyncUseCase) ingest(ctx context.Context, conn *domain.BankConnection, rec AggregatorTransaction, now time.Time, result *SyncResult) error {
	if rec.PostedDate.Before(conn.EffectiveStartDate) {
		return nil
	}

	txn := &domain.BankTransaction{
		ID:             uc.idGen.Generate(),
		BusinessID:     conn.BusinessID,
		AccountID:      conn.AccountID,
		ExternalID:     rec.ExternalID,
		PostedDate:     rec.PostedDate,
		AuthorizedDate: rec.AuthorizedDate,
		AmountCents:    domain.FromAggregatorSign(rec.AmountCents),
		Name:           rec.Name,
		IsPending:      rec.Pending,
		Source:         domain.SourceAggregator,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// A record referencing an earlier pending row means that row is the
	// same economic event. Upgrade it in place first so the upsert below
	// updates it instead of creating a second row.
	if rec.PendingExternalID != "" && rec.PendingExternalID != rec.ExternalID {
		if _, err := uc.txnRepo.UpgradePending(ctx, conn.AccountID, rec.PendingExternalID, txn); err != nil {
			return err
		}
	}

	created, err := uc.txnRepo.Upsert(ctx, txn)
	if err != nil {
		return err
	}
	if created {
		result.NewCount++
	} else {
		result.DuplicateCount++
	}
	return nil
}

// synthesizeOpening runs the one-time opening-balance correction:
// current balance minus the retained posted activity gives the balance
// the account must have started with at the retention boundary. Real
// user entries always win over a guess.
func (uc *SyncUseCase) synthesizeOpening(ctx context.Context, conn *domain.BankConnection, balanceCents int64) error {
	postedSum, err := uc.txnRepo.SumPostedSince(ctx, conn.AccountID, conn.EffectiveStartDate)
	if err != nil {
		return err
	}
	suggested := balanceCents - postedSum

	nonOpening, err := uc.entryRepo.CountNonOpening(ctx, conn.AccountID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	switch {
	case nonOpening > 0:
		// Real entries exist; never guess over user data.
	default:
		placeholder, err := uc.entryRepo.FindOpeningPlaceholder(ctx, conn.AccountID)
		if err != nil {
			return err
		}
		if placeholder != nil {
			if err := uc.entryRepo.UpdateOpening(ctx, placeholder.ID, suggested, domain.EntryTypeForAmount(suggested), conn.EffectiveStartDate, now); err != nil {
				return err
			}
		} else {
			entry := &domain.Entry{
				ID:           uc.idGen.Generate(),
				BusinessID:   conn.BusinessID,
				AccountID:    conn.AccountID,
				Date:         conn.EffectiveStartDate,
				Payee:        domain.OpeningBalancePayee,
				AmountCents:  suggested,
				Type:         domain.EntryTypeForAmount(suggested),
				IsAdjustment: true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := uc.entryRepo.Create(ctx, entry); err != nil {
				return err
			}
		}
		uc.logger.InfoCtx(ctx, "opening balance synthesized",
			"account_id", conn.AccountID, "amount_cents", suggested)
	}

	// The gate is marked no matter which branch ran, so the synthesis
	// never reruns for this connection.
	return uc.connRepo.MarkOpeningAdjustmentCreated(ctx, conn.ID, now)
}

func (uc *SyncUseCase) markError(ctx context.Context, connID string) {
	if err := uc.connRepo.UpdateStatus(ctx, connID, domain.ConnectionStatusError, time.Now().UTC()); err != nil {
		uc.logger.WarnCtx(ctx, "failed to mark connection errored", "connection_id", connID, "error", err)
	}
}
