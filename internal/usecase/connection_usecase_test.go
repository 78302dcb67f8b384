package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
	"github.com/ledgerkit/banksync/internal/usecase"
	"github.com/ledgerkit/banksync/internal/usecase/mocks"
)

type connFixture struct {
	conns    *mocks.MockConnectionRepository
	txns     *mocks.MockBankTransactionRepository
	accounts *mocks.MockAccountRepository
	agg      *mocks.MockAggregatorClient
	cache    *mocks.MockCache
	uc       *usecase.ConnectionUseCase
}

func newConnFixture(t *testing.T) *connFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &connFixture{
		conns:    mocks.NewMockConnectionRepository(),
		txns:     mocks.NewMockBankTransactionRepository(),
		accounts: mocks.NewMockAccountRepository(),
		agg:      mocks.NewMockAggregatorClient(ctrl),
		cache:    mocks.NewMockCache(),
	}
	f.accounts.Seed(&domain.Account{ID: "acc-1", BusinessID: "biz-1", Name: "Checking"})

	f.uc = usecase.NewConnectionUseCase(
		f.conns,
		f.txns,
		f.accounts,
		f.agg,
		&mocks.MockTokenCipher{},
		f.cache,
		&mocks.SequenceIDGenerator{},
		logging.New(logging.ParseLevel("error"), "text"),
		4,
	)
	return f
}

func TestConnect_CreatesNewConnection(t *testing.T) {
	f := newConnFixture(t)
	f.agg.EXPECT().
		ExchangePublicToken(gomock.Any(), "public-xyz").
		Return("item-9", "secret-token", nil)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	conn, err := f.uc.Connect(context.Background(), usecase.ConnectInput{
		BusinessID:          "biz-1",
		AccountID:           "acc-1",
		PublicToken:         "public-xyz",
		AggregatorAccountID: "plaid-acc-9",
		EffectiveStartDate:  start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conn.PlaidItemID != "item-9" || conn.PlaidAccountID != "plaid-acc-9" {
		t.Fatalf("credentials not recorded: %+v", conn)
	}
	if string(conn.AccessTokenCiphertext) != "enc:secret-token" {
		t.Fatal("access token stored unencrypted")
	}
	if !conn.EffectiveStartDate.Equal(start) {
		t.Fatalf("start date = %v", conn.EffectiveStartDate)
	}
	if conn.Status != domain.ConnectionStatusConnected {
		t.Fatalf("status = %s", conn.Status)
	}
	if f.conns.Get(conn.ID) == nil {
		t.Fatal("connection not persisted")
	}
}

func TestConnect_RecredentialsExistingConnection(t *testing.T) {
	f := newConnFixture(t)
	marked := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	f.conns.Seed(&domain.BankConnection{
		ID:                         "conn-1",
		BusinessID:                 "biz-1",
		AccountID:                  "acc-1",
		PlaidItemID:                "item-old",
		SyncCursor:                 "c7",
		EffectiveStartDate:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:                     domain.ConnectionStatusError,
		OpeningAdjustmentCreatedAt: &marked,
	})

	f.agg.EXPECT().
		ExchangePublicToken(gomock.Any(), "public-new").
		Return("item-new", "fresh-token", nil)

	conn, err := f.uc.Connect(context.Background(), usecase.ConnectInput{
		BusinessID:          "biz-1",
		AccountID:           "acc-1",
		PublicToken:         "public-new",
		AggregatorAccountID: "plaid-acc-9",
		EffectiveStartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conn.ID != "conn-1" {
		t.Fatalf("re-connect must keep the row, got id %q", conn.ID)
	}
	stored := f.conns.Get("conn-1")
	if stored.PlaidItemID != "item-new" {
		t.Fatalf("item id = %q", stored.PlaidItemID)
	}
	if stored.Status != domain.ConnectionStatusConnected {
		t.Fatalf("status = %s, want recovery to CONNECTED", stored.Status)
	}
	// Cursor, retention boundary and the opening gate all survive so
	// history is not re-ingested or re-guessed.
	if stored.SyncCursor != "c7" {
		t.Fatalf("cursor = %q, want c7", stored.SyncCursor)
	}
	if !stored.EffectiveStartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start date changed by re-connect: %v", stored.EffectiveStartDate)
	}
	if stored.OpeningAdjustmentCreatedAt == nil {
		t.Fatal("opening gate reset by re-connect")
	}
}

func TestConnect_UnknownAccount(t *testing.T) {
	f := newConnFixture(t)

	_, err := f.uc.Connect(context.Background(), usecase.ConnectInput{
		BusinessID: "biz-1",
		AccountID:  "acc-unknown",
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestConnect_ExchangeFailure(t *testing.T) {
	f := newConnFixture(t)
	f.agg.EXPECT().
		ExchangePublicToken(gomock.Any(), gomock.Any()).
		Return("", "", errors.New("invalid public token"))

	_, err := f.uc.Connect(context.Background(), usecase.ConnectInput{
		BusinessID: "biz-1",
		AccountID:  "acc-1",
	})
	if !errors.Is(err, domain.ErrUpstreamFailure) {
		t.Fatalf("err = %v, want ErrUpstreamFailure", err)
	}
}

func TestUpdateStartDate_ForwardRequiresConfirm(t *testing.T) {
	f := newConnFixture(t)
	f.conns.Seed(&domain.BankConnection{
		ID:                 "conn-1",
		BusinessID:         "biz-1",
		AccountID:          "acc-1",
		EffectiveStartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	for _, seed := range []struct {
		id  string
		day time.Time
	}{
		{"t-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"t-2", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	} {
		f.txns.Seed(&domain.BankTransaction{
			ID:         seed.id,
			AccountID:  "acc-1",
			ExternalID: "ext-" + seed.id,
			PostedDate: seed.day,
			Source:     domain.SourceAggregator,
		})
	}

	newStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	change, err := f.uc.UpdateStartDate(context.Background(), "biz-1", "acc-1", newStart, false)
	if !errors.Is(err, domain.ErrStartDateConflict) {
		t.Fatalf("err = %v, want ErrStartDateConflict", err)
	}
	if change == nil || change.PrunedCount != 2 {
		t.Fatalf("change = %+v, want would-prune count 2", change)
	}
	if f.txns.Len() != 2 {
		t.Fatal("rows pruned without confirmation")
	}

	change, err = f.uc.UpdateStartDate(context.Background(), "biz-1", "acc-1", newStart, true)
	if err != nil {
		t.Fatalf("confirmed change: %v", err)
	}
	if change.PrunedCount != 2 {
		t.Fatalf("pruned = %d, want 2", change.PrunedCount)
	}
	if f.txns.Len() != 0 {
		t.Fatal("rows not pruned after confirmation")
	}
	if !f.conns.Get("conn-1").EffectiveStartDate.Equal(newStart) {
		t.Fatal("start date not updated")
	}
}

func TestUpdateStartDate_BackwardNeedsNoConfirm(t *testing.T) {
	f := newConnFixture(t)
	f.conns.Seed(&domain.BankConnection{
		ID:                 "conn-1",
		BusinessID:         "biz-1",
		AccountID:          "acc-1",
		EffectiveStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	change, err := f.uc.UpdateStartDate(context.Background(), "biz-1", "acc-1", earlier, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.PrunedCount != 0 {
		t.Fatalf("pruned = %d, want 0", change.PrunedCount)
	}
	if !f.conns.Get("conn-1").EffectiveStartDate.Equal(earlier) {
		t.Fatal("start date not updated")
	}
}

func TestStatusAll_CachesAndInvalidates(t *testing.T) {
	f := newConnFixture(t)
	f.conns.Seed(&domain.BankConnection{
		ID:         "conn-a",
		BusinessID: "biz-1",
		AccountID:  "acc-1",
		SyncCursor: "c1",
		Status:     domain.ConnectionStatusConnected,
	})
	f.conns.Seed(&domain.BankConnection{
		ID:          "conn-b",
		BusinessID:  "biz-1",
		AccountID:   "acc-2",
		PlaidItemID: "item-b",
		Status:      domain.ConnectionStatusError,
	})

	statuses, err := f.uc.StatusAll(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses", len(statuses))
	}
	if statuses[0].AccountID != "acc-1" || !statuses[0].HasCursor {
		t.Fatalf("unexpected first status %+v", statuses[0])
	}
	if statuses[1].Status != domain.ConnectionStatusError {
		t.Fatalf("unexpected second status %+v", statuses[1])
	}

	// A direct mutation is invisible while the cache holds.
	f.conns.Get("conn-b").HasNewTransactions = true
	statuses, err = f.uc.StatusAll(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if statuses[1].HasNewTransactions {
		t.Fatal("expected stale cached status")
	}

	// The webhook path flags and invalidates, so the next read is fresh.
	if err := f.uc.FlagNewTransactions(context.Background(), "item-b"); err != nil {
		t.Fatalf("flag: %v", err)
	}
	statuses, err = f.uc.StatusAll(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if !statuses[1].HasNewTransactions {
		t.Fatal("status not refreshed after invalidation")
	}
}

func TestFlagNewTransactions_UnknownItem(t *testing.T) {
	f := newConnFixture(t)

	err := f.uc.FlagNewTransactions(context.Background(), "item-missing")
	if !errors.Is(err, domain.ErrConnectionNotFound) {
		t.Fatalf("err = %v, want ErrConnectionNotFound", err)
	}
}
