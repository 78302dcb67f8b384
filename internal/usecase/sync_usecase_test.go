package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
	"github.com/ledgerkit/banksync/internal/usecase"
	"github.com/ledgerkit/banksync/internal/usecase/mocks"
)

// fakeAggregator scripts sync pages by cursor value.
type fakeAggregator struct {
	balance    int64
	balanceErr error
	pages      map[string]*usecase.SyncPageResult
	pageErrs   map[string]error
	pageCalls  int
}

func (f *fakeAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	return "item-1", "token-1", nil
}

func (f *fakeAggregator) GetBalance(ctx context.Context, accessToken, aggregatorAccountID string) (int64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeAggregator) SyncPage(ctx context.Context, accessToken, aggregatorAccountID, cursor string) (*usecase.SyncPageResult, error) {
	f.pageCalls++
	if err, ok := f.pageErrs[cursor]; ok {
		return nil, err
	}
	if page, ok := f.pages[cursor]; ok {
		return page, nil
	}
	return &usecase.SyncPageResult{NextCursor: cursor, HasMore: false}, nil
}

type syncFixture struct {
	connRepo  *mocks.MockConnectionRepository
	txnRepo   *mocks.MockBankTransactionRepository
	entryRepo *mocks.MockEntryRepository
	agg       *fakeAggregator
	conn      *domain.BankConnection
	uc        *usecase.SyncUseCase
}

func newSyncFixture(t *testing.T, cfg usecase.SyncConfig) *syncFixture {
	t.Helper()

	f := &syncFixture{
		connRepo:  mocks.NewMockConnectionRepository(),
		txnRepo:   mocks.NewMockBankTransactionRepository(),
		entryRepo: mocks.NewMockEntryRepository(),
		agg: &fakeAggregator{
			balance: 53210,
			pages:   make(map[string]*usecase.SyncPageResult),
		},
	}

	f.conn = &domain.BankConnection{
		ID:                    "conn-1",
		BusinessID:            "biz-1",
		AccountID:             "acc-1",
		PlaidItemID:           "item-1",
		PlaidAccountID:        "plaid-acc-1",
		AccessTokenCiphertext: []byte("enc:token-1"),
		EffectiveStartDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:                domain.ConnectionStatusConnected,
	}
	f.connRepo.Seed(f.conn)

	f.uc = usecase.NewSyncUseCase(
		f.connRepo,
		f.txnRepo,
		f.entryRepo,
		f.agg,
		&mocks.MockTokenCipher{},
		&mocks.ImmediateRetrier{Attempts: 2},
		&mocks.SequenceIDGenerator{},
		logging.New(logging.ParseLevel("error"), "text"),
		nil,
		cfg,
	)
	return f
}

func aggTxn(externalID string, date time.Time, amountCents int64, pending bool) usecase.AggregatorTransaction {
	return usecase.AggregatorTransaction{
		ExternalID:  externalID,
		PostedDate:  date,
		AmountCents: amountCents,
		Name:        "txn " + externalID,
		Pending:     pending,
	}
}

func TestSync_FirstSyncIngestsAndSynthesizesOpening(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	// One posted outflow of $15.00 (outflow-positive on the wire).
	f.agg.pages[""] = &usecase.SyncPageResult{
		Added:      []usecase.AggregatorTransaction{aggTxn("ext-1", jan5, 1500, false)},
		NextCursor: "c1",
		HasMore:    false,
	}

	result, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NewCount != 1 || result.DuplicateCount != 0 {
		t.Fatalf("counts = %d new / %d dup, want 1/0", result.NewCount, result.DuplicateCount)
	}

	row := f.txnRepo.Get("acc-1", "ext-1")
	if row == nil {
		t.Fatal("transaction not ingested")
	}
	if row.AmountCents != -1500 {
		t.Fatalf("amount = %d, want -1500 (sign flipped)", row.AmountCents)
	}
	if row.Source != domain.SourceAggregator {
		t.Fatalf("source = %s", row.Source)
	}

	// Opening synthesis: balance 53210 minus posted sum -1500 = 54710.
	var opening *domain.Entry
	for _, e := range f.entryRepo.All() {
		if e.IsOpening() {
			opening = e
		}
	}
	if opening == nil {
		t.Fatal("opening entry not created")
	}
	if opening.AmountCents != 54710 {
		t.Fatalf("opening amount = %d, want 54710", opening.AmountCents)
	}
	if opening.Type != domain.EntryTypeIncome {
		t.Fatalf("opening type = %s, want INCOME", opening.Type)
	}
	if !opening.IsAdjustment {
		t.Fatal("opening entry must be an adjustment")
	}
	if f.conn.OpeningAdjustmentCreatedAt == nil {
		t.Fatal("opening gate not marked")
	}

	if f.conn.SyncCursor != "c1" {
		t.Fatalf("cursor = %q, want c1", f.conn.SyncCursor)
	}
	if f.conn.LastKnownBalanceCents != 53210 {
		t.Fatalf("balance = %d", f.conn.LastKnownBalanceCents)
	}
	if f.conn.LastSyncAt == nil {
		t.Fatal("last sync not recorded")
	}
}

func TestSync_ResyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	page := &usecase.SyncPageResult{
		Added: []usecase.AggregatorTransaction{
			aggTxn("ext-1", jan5, 1500, false),
			aggTxn("ext-2", jan5, 200, false),
		},
		NextCursor: "c1",
		HasMore:    false,
	}
	f.agg.pages[""] = page
	// The aggregator replays the same records from the committed cursor.
	f.agg.pages["c1"] = &usecase.SyncPageResult{
		Added:      page.Added,
		NextCursor: "c2",
		HasMore:    false,
	}

	first, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.NewCount != 2 {
		t.Fatalf("first sync new = %d, want 2", first.NewCount)
	}

	second, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.NewCount != 0 || second.DuplicateCount != 2 {
		t.Fatalf("second sync = %d new / %d dup, want 0/2", second.NewCount, second.DuplicateCount)
	}
	if f.txnRepo.Len() != 2 {
		t.Fatalf("row count = %d, want 2", f.txnRepo.Len())
	}
}

func TestSync_RetentionSkipsAndPrunes(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	// A stale aggregator row from before the boundary, left by an earlier
	// start date.
	f.txnRepo.Seed(&domain.BankTransaction{
		ID:         "old-1",
		AccountID:  "acc-1",
		ExternalID: "ext-old",
		PostedDate: time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
		Source:     domain.SourceAggregator,
	})

	f.agg.pages[""] = &usecase.SyncPageResult{
		Added: []usecase.AggregatorTransaction{
			aggTxn("ext-before", time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), 100, false),
			aggTxn("ext-after", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), 100, false),
		},
		NextCursor: "c1",
	}

	result, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PrunedCount != 1 {
		t.Fatalf("pruned = %d, want 1", result.PrunedCount)
	}
	if f.txnRepo.Get("acc-1", "ext-old") != nil {
		t.Fatal("stale row not pruned")
	}
	if f.txnRepo.Get("acc-1", "ext-before") != nil {
		t.Fatal("record before the boundary must be skipped, not ingested")
	}
	if f.txnRepo.Get("acc-1", "ext-after") == nil {
		t.Fatal("record inside the window not ingested")
	}
	if result.NewCount != 1 {
		t.Fatalf("new = %d, want 1", result.NewCount)
	}
}

func TestSync_PendingUpgradePreservesRowID(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	jan3 := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	f.txnRepo.Seed(&domain.BankTransaction{
		ID:          "row-1",
		AccountID:   "acc-1",
		ExternalID:  "pend-1",
		PostedDate:  jan3,
		AmountCents: -1000,
		IsPending:   true,
		Source:      domain.SourceAggregator,
	})

	posted := aggTxn("post-1", jan3.AddDate(0, 0, 2), 1000, false)
	posted.PendingExternalID = "pend-1"
	f.agg.pages[""] = &usecase.SyncPageResult{
		Added:      []usecase.AggregatorTransaction{posted},
		NextCursor: "c1",
	}

	result, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.txnRepo.Get("acc-1", "pend-1") != nil {
		t.Fatal("pending external id still present after upgrade")
	}
	row := f.txnRepo.Get("acc-1", "post-1")
	if row == nil {
		t.Fatal("posted row missing")
	}
	if row.ID != "row-1" {
		t.Fatalf("row id = %q, want row-1 (matches must survive the upgrade)", row.ID)
	}
	if row.IsPending {
		t.Fatal("row still pending after upgrade")
	}
	if result.NewCount != 0 || result.DuplicateCount != 1 {
		t.Fatalf("counts = %d new / %d dup, want 0/1", result.NewCount, result.DuplicateCount)
	}
	if result.PendingCount != 0 {
		t.Fatalf("pending count = %d, want 0", result.PendingCount)
	}
}

func TestSync_OpeningSynthesisSkippedWhenUserEntriesExist(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	f.entryRepo.Seed(&domain.Entry{
		ID:          "entry-1",
		AccountID:   "acc-1",
		Payee:       "Coffee",
		AmountCents: -450,
	})

	if _, err := f.uc.Sync(context.Background(), "biz-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range f.entryRepo.All() {
		if e.IsOpening() {
			t.Fatal("opening entry must not be created over user data")
		}
	}
	// The gate closes regardless: the decision is one-shot.
	if f.conn.OpeningAdjustmentCreatedAt == nil {
		t.Fatal("opening gate not marked")
	}
}

func TestSync_OpeningSynthesisFillsPlaceholder(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	f.entryRepo.Seed(&domain.Entry{
		ID:          "ph-1",
		AccountID:   "acc-1",
		Payee:       domain.OpeningBalancePayee,
		AmountCents: 0,
	})

	if _, err := f.uc.Sync(context.Background(), "biz-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ph := f.entryRepo.Get("ph-1")
	if ph.AmountCents != 53210 {
		t.Fatalf("placeholder amount = %d, want 53210", ph.AmountCents)
	}
	openings := 0
	for _, e := range f.entryRepo.All() {
		if e.IsOpening() {
			openings++
		}
	}
	if openings != 1 {
		t.Fatalf("opening entries = %d, want exactly 1 (placeholder reused)", openings)
	}
}

func TestSync_OpeningSynthesisRunsOnce(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	done := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.conn.OpeningAdjustmentCreatedAt = &done

	if _, err := f.uc.Sync(context.Background(), "biz-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.entryRepo.All()) != 0 {
		t.Fatal("synthesis must not rerun once the gate is marked")
	}
}

func TestSync_PageCapStopsEarlyWithPartialProgress(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{MaxPages: 2})

	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, cursor := range []string{"", "c1", "c2"} {
		f.agg.pages[cursor] = &usecase.SyncPageResult{
			Added:      []usecase.AggregatorTransaction{aggTxn(fmt.Sprintf("ext-%d", i), jan5, 100, false)},
			NextCursor: fmt.Sprintf("c%d", i+1),
			HasMore:    true,
		}
	}

	result, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Capped {
		t.Fatal("expected capped result")
	}
	if result.Pages != 2 {
		t.Fatalf("pages = %d, want 2", result.Pages)
	}
	if !result.HasMore {
		t.Fatal("expected has_more after cap")
	}
	// Partial progress commits: the next invocation resumes from c2.
	if f.conn.SyncCursor != "c2" {
		t.Fatalf("cursor = %q, want c2", f.conn.SyncCursor)
	}
}

func TestSync_PageFailureLeavesCommittedCursor(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	f.agg.pages[""] = &usecase.SyncPageResult{
		Added:      []usecase.AggregatorTransaction{aggTxn("ext-1", jan5, 100, false)},
		NextCursor: "c1",
		HasMore:    true,
	}
	f.agg.pageErrs = map[string]error{"c1": errors.New("upstream 500")}

	_, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if !errors.Is(err, domain.ErrUpstreamFailure) {
		t.Fatalf("err = %v, want ErrUpstreamFailure", err)
	}

	if f.conn.SyncCursor != "" {
		t.Fatalf("cursor = %q, want unchanged empty cursor", f.conn.SyncCursor)
	}
	if f.conn.Status != domain.ConnectionStatusError {
		t.Fatalf("status = %s, want ERROR", f.conn.Status)
	}
	// Retried once before giving up.
	if f.agg.pageCalls != 3 {
		t.Fatalf("page calls = %d, want 3 (1 ok + 2 attempts)", f.agg.pageCalls)
	}
}

func TestSync_BalanceFailureMarksError(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})
	f.agg.balanceErr = errors.New("institution down")

	_, err := f.uc.Sync(context.Background(), "biz-1", "acc-1")
	if !errors.Is(err, domain.ErrUpstreamFailure) {
		t.Fatalf("err = %v, want ErrUpstreamFailure", err)
	}
	if f.conn.Status != domain.ConnectionStatusError {
		t.Fatalf("status = %s, want ERROR", f.conn.Status)
	}
}

func TestSync_RemovedRecordsAreSoftRemoved(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})

	f.txnRepo.Seed(&domain.BankTransaction{
		ID:         "row-1",
		AccountID:  "acc-1",
		ExternalID: "ext-1",
		PostedDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Source:     domain.SourceAggregator,
	})

	f.agg.pages[""] = &usecase.SyncPageResult{
		Removed:    []string{"ext-1"},
		NextCursor: "c1",
	}

	if _, err := f.uc.Sync(context.Background(), "biz-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := f.txnRepo.Get("acc-1", "ext-1")
	if row == nil {
		t.Fatal("removed rows must be kept, not deleted")
	}
	if !row.IsRemoved || row.RemovedAt == nil {
		t.Fatal("row not soft-removed")
	}
}

func TestSync_ClearsNewFlagOnlyWhenNewRowsIngested(t *testing.T) {
	f := newSyncFixture(t, usecase.SyncConfig{})
	f.conn.HasNewTransactions = true

	// Empty delta: flag must survive.
	if _, err := f.uc.Sync(context.Background(), "biz-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.conn.HasNewTransactions {
		t.Fatal("flag cleared without new rows")
	}

	f.agg.pages[f.conn.SyncCursor] = &usecase.SyncPageResult{
		Added:      []usecase.AggregatorTransaction{aggTxn("ext-1", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), 100, false)},
		NextCursor: "c9",
	}
	if _, err := f.uc.Sync(context.Background(), "biz-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.conn.HasNewTransactions {
		t.Fatal("flag not cleared after ingesting a new row")
	}
}
