package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/infrastructure/logging"
	"github.com/ledgerkit/banksync/internal/infrastructure/metrics"
)

// SnapshotUseCase computes month-scoped reconciliation snapshots:
// classification of bank transactions against the match ledger,
// byte-stable CSV artifacts and an immutable summary row.
type SnapshotUseCase struct {
	accountRepo AccountRepository
	txnRepo     BankTransactionRepository
	entryRepo   EntryRepository
	matchRepo   MatchRepository
	snapRepo    SnapshotRepository
	memberRepo  MembershipRepository
	store       ObjectStore
	idGen       IDGenerator
	logger      *logging.Logger
	metrics     *metrics.Metrics
	urlTTL      time.Duration
}

// NewSnapshotUseCase creates a new SnapshotUseCase.
func NewSnapshotUseCase(
	accountRepo AccountRepository,
	txnRepo BankTransactionRepository,
	entryRepo EntryRepository,
	matchRepo MatchRepository,
	snapRepo SnapshotRepository,
	memberRepo MembershipRepository,
	store ObjectStore,
	idGen IDGenerator,
	logger *logging.Logger,
	m *metrics.Metrics,
	urlTTL time.Duration,
) *SnapshotUseCase {
	if urlTTL <= 0 {
		urlTTL = DefaultArtifactURLTTL
	}
	return &SnapshotUseCase{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		entryRepo:   entryRepo,
		matchRepo:   matchRepo,
		snapRepo:    snapRepo,
		memberRepo:  memberRepo,
		store:       store,
		idGen:       idGen,
		logger:      logger,
		metrics:     m,
		urlTTL:      urlTTL,
	}
}

// transactionView is one classified bank transaction inside a snapshot's
// point-in-time view.
type transactionView struct {
	Txn          *domain.BankTransaction
	State        domain.MatchState
	MatchedCents int64
	RemainingAbs int64
}

// auditEvent is one match-creation or match-revert event in the audit
// artifact.
type auditEvent struct {
	Event      string
	Match      *domain.BankMatch
	OccurredAt time.Time
}

// monthView is everything a snapshot freezes, computed fresh from the
// live match ledger. There is no stored status field to drift from it.
type monthView struct {
	Transactions  []transactionView
	ActiveMatches []*domain.BankMatch
	AuditEvents   []auditEvent
	Counts        domain.SnapshotCounts
	RemainingAbs  int64
}

// snapshotArtifacts holds the serialized CSVs and their checksums.
type snapshotArtifacts struct {
	Bank, Matches, Audit          []byte
	BankSHA, MatchesSHA, AuditSHA string
}

// Create builds and persists the snapshot for (businessID, accountID,
// month). Creation is create-once: a snapshot that already exists for the
// month is returned alongside domain.ErrSnapshotExists, never overwritten.
func (uc *SnapshotUseCase) Create(ctx context.Context, businessID, accountID, month, createdBy string) (*domain.ReconcileSnapshot, error) {
	if err := domain.ValidateMonth(month); err != nil {
		return nil, err
	}
	if _, err := uc.accountRepo.GetByID(ctx, businessID, accountID); err != nil {
		return nil, err
	}

	if existing, err := uc.snapRepo.GetByMonth(ctx, businessID, accountID, month); err != nil {
		return nil, err
	} else if existing != nil {
		if uc.metrics != nil {
			uc.metrics.SnapshotConflicts.Inc()
		}
		return existing, domain.ErrSnapshotExists
	}

	view, err := uc.buildMonthView(ctx, accountID, month)
	if err != nil {
		return nil, err
	}
	artifacts, err := buildArtifacts(view)
	if err != nil {
		return nil, err
	}

	snap := &domain.ReconcileSnapshot{
		ID:                uc.idGen.Generate(),
		BusinessID:        businessID,
		AccountID:         accountID,
		Month:             month,
		Counts:            view.Counts,
		RemainingAbsCents: view.RemainingAbs,
		Artifacts: domain.ArtifactSet{
			BankSHA256:    artifacts.BankSHA,
			MatchesSHA256: artifacts.MatchesSHA,
			AuditSHA256:   artifacts.AuditSHA,
		},
		CreatedAt: time.Now().UTC(),
		CreatedBy: createdBy,
	}

	// Row first so the snapshot id namespaces the artifact keys. A racing
	// creation loses on the uniqueness constraint and surfaces the winner.
	if err := uc.snapRepo.Create(ctx, snap); err != nil {
		if errors.Is(err, domain.ErrSnapshotExists) {
			if uc.metrics != nil {
				uc.metrics.SnapshotConflicts.Inc()
			}
			if winner, getErr := uc.snapRepo.GetByMonth(ctx, businessID, accountID, month); getErr == nil && winner != nil {
				return winner, domain.ErrSnapshotExists
			}
		}
		return nil, err
	}

	keys := artifactKeys(businessID, accountID, month, snap.ID)
	blobs := map[string][]byte{
		keys.BankKey:    artifacts.Bank,
		keys.MatchesKey: artifacts.Matches,
		keys.AuditKey:   artifacts.Audit,
	}
	for _, key := range []string{keys.BankKey, keys.MatchesKey, keys.AuditKey} {
		if err := uc.store.Put(ctx, key, blobs[key]); err != nil {
			// The row stays in a keys-pending state; repair is an explicit
			// operational action, never a silent regeneration.
			return nil, fmt.Errorf("write artifact %s: %w", key, err)
		}
	}

	snap.Artifacts.BankKey = keys.BankKey
	snap.Artifacts.MatchesKey = keys.MatchesKey
	snap.Artifacts.AuditKey = keys.AuditKey
	if err := uc.snapRepo.SetArtifacts(ctx, snap.ID, snap.Artifacts); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SnapshotsCreated.Inc()
		uc.metrics.ArtifactBytes.Add(float64(len(artifacts.Bank) + len(artifacts.Matches) + len(artifacts.Audit)))
	}
	uc.logger.InfoCtx(ctx, "snapshot created",
		"snapshot_id", snap.ID,
		"account_id", accountID,
		"month", month,
		"unmatched", view.Counts.BankUnmatched,
		"partial", view.Counts.BankPartial,
		"matched", view.Counts.BankMatched,
	)

	return snap, nil
}

// SnapshotURLs carries time-limited download URLs for the artifacts.
type SnapshotURLs struct {
	Bank    string
	Matches string
	Audit   string
}

// Get returns a snapshot record. Write-capable roles additionally get
// signed download URLs; read-only roles get the record without them.
func (uc *SnapshotUseCase) Get(ctx context.Context, businessID, userID, snapshotID string) (*domain.ReconcileSnapshot, *SnapshotURLs, error) {
	snap, err := uc.snapRepo.GetByID(ctx, businessID, snapshotID)
	if err != nil {
		return nil, nil, err
	}

	role, err := uc.memberRepo.GetRole(ctx, businessID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !role.CanWrite() || !snap.Artifacts.Complete() {
		return snap, nil, nil
	}

	urls := &SnapshotURLs{}
	pairs := []struct {
		key string
		dst *string
	}{
		{snap.Artifacts.BankKey, &urls.Bank},
		{snap.Artifacts.MatchesKey, &urls.Matches},
		{snap.Artifacts.AuditKey, &urls.Audit},
	}
	for _, p := range pairs {
		url, err := uc.store.SignedURL(ctx, p.key, uc.urlTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("sign artifact url: %w", err)
		}
		*p.dst = url
	}
	return snap, urls, nil
}

// buildMonthView loads and classifies one month of state. Ordering is
// fixed (posted_date, created_at from the store; audit newest first) so
// two computations over identical state serialize to identical bytes.
func (uc *SnapshotUseCase) buildMonthView(ctx context.Context, accountID, month string) (*monthView, error) {
	start, end, err := domain.MonthBounds(month)
	if err != nil {
		return nil, err
	}

	txns, err := uc.txnRepo.ListForRange(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}

	txnIDs := make([]string, len(txns))
	for i, t := range txns {
		txnIDs[i] = t.ID
	}
	matches, err := uc.matchRepo.ListByTransactionIDs(ctx, txnIDs)
	if err != nil {
		return nil, err
	}

	matchedByTxn := make(map[string]int64)
	matchedEntries := make(map[string]bool)
	view := &monthView{}
	for _, m := range matches {
		if m.Active() {
			matchedByTxn[m.BankTransactionID] += m.AbsMatchedCents()
			matchedEntries[m.EntryID] = true
			view.ActiveMatches = append(view.ActiveMatches, m)
		} else {
			view.Counts.Reverts++
		}
		view.AuditEvents = append(view.AuditEvents, auditEvent{Event: "MATCH_CREATED", Match: m, OccurredAt: m.CreatedAt})
		if m.VoidedAt != nil {
			view.AuditEvents = append(view.AuditEvents, auditEvent{Event: "MATCH_REVERTED", Match: m, OccurredAt: *m.VoidedAt})
		}
	}

	for _, t := range txns {
		state, remaining := domain.ClassifyTransaction(t.AmountCents, matchedByTxn[t.ID])
		switch state {
		case domain.MatchStateUnmatched:
			view.Counts.BankUnmatched++
		case domain.MatchStatePartial:
			view.Counts.BankPartial++
		case domain.MatchStateMatched:
			view.Counts.BankMatched++
		}
		view.RemainingAbs += remaining
		view.Transactions = append(view.Transactions, transactionView{
			Txn:          t,
			State:        state,
			MatchedCents: matchedByTxn[t.ID],
			RemainingAbs: remaining,
		})
	}

	entries, err := uc.entryRepo.ListForRange(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if matchedEntries[e.ID] {
			view.Counts.EntriesMatched++
		} else {
			view.Counts.EntriesExpected++
		}
	}

	// Newest first, capped. Ties break on match id then event name so the
	// artifact stays byte-stable.
	sort.SliceStable(view.AuditEvents, func(i, j int) bool {
		a, b := view.AuditEvents[i], view.AuditEvents[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		if a.Match.ID != b.Match.ID {
			return a.Match.ID > b.Match.ID
		}
		return a.Event < b.Event
	})
	if len(view.AuditEvents) > AuditEventCap {
		view.AuditEvents = view.AuditEvents[:AuditEventCap]
	}

	return view, nil
}

const dateLayout = "2006-01-02"

// buildArtifacts serializes the three CSV artifacts and computes their
// checksums. RFC4180 quoting, LF line endings, one final newline.
func buildArtifacts(view *monthView) (*snapshotArtifacts, error) {
	bank, err := writeCSV(
		[]string{"bank_transaction_id", "external_id", "posted_date", "name", "amount_cents", "pending", "status", "matched_cents", "remaining_abs_cents"},
		len(view.Transactions),
		func(i int) []string {
			tv := view.Transactions[i]
			return []string{
				tv.Txn.ID,
				tv.Txn.ExternalID,
				tv.Txn.PostedDate.Format(dateLayout),
				tv.Txn.Name,
				strconv.FormatInt(tv.Txn.AmountCents, 10),
				strconv.FormatBool(tv.Txn.IsPending),
				string(tv.State),
				strconv.FormatInt(tv.MatchedCents, 10),
				strconv.FormatInt(tv.RemainingAbs, 10),
			}
		},
	)
	if err != nil {
		return nil, err
	}

	matches, err := writeCSV(
		[]string{"match_id", "bank_transaction_id", "entry_id", "matched_amount_cents", "created_at"},
		len(view.ActiveMatches),
		func(i int) []string {
			m := view.ActiveMatches[i]
			return []string{
				m.ID,
				m.BankTransactionID,
				m.EntryID,
				strconv.FormatInt(m.MatchedAmountCents, 10),
				m.CreatedAt.UTC().Format(time.RFC3339),
			}
		},
	)
	if err != nil {
		return nil, err
	}

	audit, err := writeCSV(
		[]string{"event", "match_id", "bank_transaction_id", "entry_id", "matched_amount_cents", "occurred_at"},
		len(view.AuditEvents),
		func(i int) []string {
			ev := view.AuditEvents[i]
			return []string{
				ev.Event,
				ev.Match.ID,
				ev.Match.BankTransactionID,
				ev.Match.EntryID,
				strconv.FormatInt(ev.Match.MatchedAmountCents, 10),
				ev.OccurredAt.UTC().Format(time.RFC3339),
			}
		},
	)
	if err != nil {
		return nil, err
	}

	return &snapshotArtifacts{
		Bank:       bank,
		Matches:    matches,
		Audit:      audit,
		BankSHA:    checksum(bank),
		MatchesSHA: checksum(matches),
		AuditSHA:   checksum(audit),
	}, nil
}

func writeCSV(header []string, rows int, row func(i int) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		if err := w.Write(row(i)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func artifactKeys(businessID, accountID, month, snapshotID string) domain.ArtifactSet {
	prefix := fmt.Sprintf("private/biz/%s/reconcile-snapshots/%s/%s/%s", businessID, accountID, month, snapshotID)
	return domain.ArtifactSet{
		BankKey:    prefix + "/bank.csv",
		MatchesKey: prefix + "/matches.csv",
		AuditKey:   prefix + "/audit.csv",
	}
}
