package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	GetByIDFunc func(ctx context.Context, businessID, id string) (*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

func (m *MockAccountRepository) Seed(acct *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.ID] = acct
}

func (m *MockAccountRepository) GetByID(ctx context.Context, businessID, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, businessID, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acct, ok := m.accounts[id]; ok && acct.BusinessID == businessID {
		return acct, nil
	}
	return nil, domain.ErrAccountNotFound
}

// MockMembershipRepository is a mock implementation of MembershipRepository.
type MockMembershipRepository struct {
	mu    sync.RWMutex
	roles map[string]domain.Role

	GetRoleFunc func(ctx context.Context, businessID, userID string) (domain.Role, error)
}

func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{
		roles: make(map[string]domain.Role),
	}
}

func (m *MockMembershipRepository) Seed(businessID, userID string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[businessID+":"+userID] = role
}

func (m *MockMembershipRepository) GetRole(ctx context.Context, businessID, userID string) (domain.Role, error) {
	if m.GetRoleFunc != nil {
		return m.GetRoleFunc(ctx, businessID, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if role, ok := m.roles[businessID+":"+userID]; ok {
		return role, nil
	}
	return "", domain.ErrNotMember
}

// MockConnectionRepository is a mock implementation of ConnectionRepository.
type MockConnectionRepository struct {
	mu          sync.RWMutex
	connections map[string]*domain.BankConnection

	CreateFunc                       func(ctx context.Context, conn *domain.BankConnection) error
	GetByAccountFunc                 func(ctx context.Context, businessID, accountID string) (*domain.BankConnection, error)
	GetByItemIDFunc                  func(ctx context.Context, itemID string) (*domain.BankConnection, error)
	ListByBusinessFunc               func(ctx context.Context, businessID string) ([]*domain.BankConnection, error)
	UpdateCredentialsFunc            func(ctx context.Context, id, itemID, plaidAccountID string, ciphertext []byte, updatedAt time.Time) error
	UpdateSyncStateFunc              func(ctx context.Context, id, cursor string, lastSyncAt time.Time, clearNewFlag bool, balanceCents int64) error
	UpdateStartDateFunc              func(ctx context.Context, id string, start, updatedAt time.Time) error
	UpdateStatusFunc                 func(ctx context.Context, id string, status domain.ConnectionStatus, updatedAt time.Time) error
	SetHasNewTransactionsFunc        func(ctx context.Context, id string, flag bool) error
	MarkOpeningAdjustmentCreatedFunc func(ctx context.Context, id string, at time.Time) error
}

func NewMockConnectionRepository() *MockConnectionRepository {
	return &MockConnectionRepository{
		connections: make(map[string]*domain.BankConnection),
	}
}

func (m *MockConnectionRepository) Seed(conn *domain.BankConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID] = conn
}

func (m *MockConnectionRepository) Get(id string) *domain.BankConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[id]
}

func (m *MockConnectionRepository) Create(ctx context.Context, conn *domain.BankConnection) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, conn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID] = conn
	return nil
}

func (m *MockConnectionRepository) GetByAccount(ctx context.Context, businessID, accountID string) (*domain.BankConnection, error) {
	if m.GetByAccountFunc != nil {
		return m.GetByAccountFunc(ctx, businessID, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.BusinessID == businessID && conn.AccountID == accountID {
			return conn, nil
		}
	}
	return nil, domain.ErrConnectionNotFound
}

func (m *MockConnectionRepository) GetByItemID(ctx context.Context, itemID string) (*domain.BankConnection, error) {
	if m.GetByItemIDFunc != nil {
		return m.GetByItemIDFunc(ctx, itemID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.PlaidItemID == itemID {
			return conn, nil
		}
	}
	return nil, domain.ErrConnectionNotFound
}

func (m *MockConnectionRepository) ListByBusiness(ctx context.Context, businessID string) ([]*domain.BankConnection, error) {
	if m.ListByBusinessFunc != nil {
		return m.ListByBusinessFunc(ctx, businessID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var conns []*domain.BankConnection
	for _, conn := range m.connections {
		if conn.BusinessID == businessID {
			conns = append(conns, conn)
		}
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
	return conns, nil
}

func (m *MockConnectionRepository) UpdateCredentials(ctx context.Context, id, itemID, plaidAccountID string, ciphertext []byte, updatedAt time.Time) error {
	if m.UpdateCredentialsFunc != nil {
		return m.UpdateCredentialsFunc(ctx, id, itemID, plaidAccountID, ciphertext, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[id]; ok {
		conn.PlaidItemID = itemID
		conn.PlaidAccountID = plaidAccountID
		conn.AccessTokenCiphertext = ciphertext
		conn.Status = domain.ConnectionStatusConnected
		conn.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockConnectionRepository) UpdateSyncState(ctx context.Context, id, cursor string, lastSyncAt time.Time, clearNewFlag bool, balanceCents int64) error {
	if m.UpdateSyncStateFunc != nil {
		return m.UpdateSyncStateFunc(ctx, id, cursor, lastSyncAt, clearNewFlag, balanceCents)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[id]; ok {
		conn.SyncCursor = cursor
		conn.LastSyncAt = &lastSyncAt
		if clearNewFlag {
			conn.HasNewTransactions = false
		}
		conn.LastKnownBalanceCents = balanceCents
		conn.BalanceRefreshedAt = &lastSyncAt
		conn.Status = domain.ConnectionStatusConnected
		conn.UpdatedAt = lastSyncAt
	}
	return nil
}

func (m *MockConnectionRepository) UpdateStartDate(ctx context.Context, id string, start, updatedAt time.Time) error {
	if m.UpdateStartDateFunc != nil {
		return m.UpdateStartDateFunc(ctx, id, start, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[id]; ok {
		conn.EffectiveStartDate = start
		conn.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockConnectionRepository) UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[id]; ok {
		conn.Status = status
		conn.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockConnectionRepository) SetHasNewTransactions(ctx context.Context, id string, flag bool) error {
	if m.SetHasNewTransactionsFunc != nil {
		return m.SetHasNewTransactionsFunc(ctx, id, flag)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[id]; ok {
		conn.HasNewTransactions = flag
	}
	return nil
}

func (m *MockConnectionRepository) MarkOpeningAdjustmentCreated(ctx context.Context, id string, at time.Time) error {
	if m.MarkOpeningAdjustmentCreatedFunc != nil {
		return m.MarkOpeningAdjustmentCreatedFunc(ctx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[id]; ok && conn.OpeningAdjustmentCreatedAt == nil {
		conn.OpeningAdjustmentCreatedAt = &at
	}
	return nil
}

// MockBankTransactionRepository is a mock implementation of
// BankTransactionRepository keyed by (account, external id) like the
// real unique index.
type MockBankTransactionRepository struct {
	mu   sync.RWMutex
	rows map[string]*domain.BankTransaction

	UpsertFunc                     func(ctx context.Context, txn *domain.BankTransaction) (bool, error)
	UpgradePendingFunc             func(ctx context.Context, accountID, pendingExternalID string, posted *domain.BankTransaction) (bool, error)
	MarkRemovedFunc                func(ctx context.Context, accountID, externalID string, at time.Time) error
	DeleteAggregatorRowsBeforeFunc func(ctx context.Context, accountID string, before time.Time) (int64, error)
	CountAggregatorRowsBeforeFunc  func(ctx context.Context, accountID string, before time.Time) (int64, error)
	CountPendingFunc               func(ctx context.Context, accountID string) (int, error)
	SumPostedSinceFunc             func(ctx context.Context, accountID string, since time.Time) (int64, error)
	ListForRangeFunc               func(ctx context.Context, accountID string, start, end time.Time) ([]*domain.BankTransaction, error)
}

func NewMockBankTransactionRepository() *MockBankTransactionRepository {
	return &MockBankTransactionRepository{
		rows: make(map[string]*domain.BankTransaction),
	}
}

func txnKey(accountID, externalID string) string {
	return accountID + ":" + externalID
}

func (m *MockBankTransactionRepository) Seed(txn *domain.BankTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[txnKey(txn.AccountID, txn.ExternalID)] = txn
}

func (m *MockBankTransactionRepository) Get(accountID, externalID string) *domain.BankTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows[txnKey(accountID, externalID)]
}

func (m *MockBankTransactionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MockBankTransactionRepository) Upsert(ctx context.Context, txn *domain.BankTransaction) (bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := txnKey(txn.AccountID, txn.ExternalID)
	if existing, ok := m.rows[key]; ok {
		existing.PostedDate = txn.PostedDate
		existing.AuthorizedDate = txn.AuthorizedDate
		existing.AmountCents = txn.AmountCents
		existing.Name = txn.Name
		existing.IsPending = txn.IsPending
		existing.IsRemoved = false
		existing.RemovedAt = nil
		existing.UpdatedAt = txn.UpdatedAt
		return false, nil
	}
	clone := *txn
	m.rows[key] = &clone
	return true, nil
}

func (m *MockBankTransactionRepository) UpgradePending(ctx context.Context, accountID, pendingExternalID string, posted *domain.BankTransaction) (bool, error) {
	if m.UpgradePendingFunc != nil {
		return m.UpgradePendingFunc(ctx, accountID, pendingExternalID, posted)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pendingKey := txnKey(accountID, pendingExternalID)
	row, ok := m.rows[pendingKey]
	if !ok || !row.IsPending {
		return false, nil
	}
	if _, taken := m.rows[txnKey(accountID, posted.ExternalID)]; taken {
		return false, nil
	}
	delete(m.rows, pendingKey)
	row.ExternalID = posted.ExternalID
	row.PostedDate = posted.PostedDate
	row.AuthorizedDate = posted.AuthorizedDate
	row.AmountCents = posted.AmountCents
	row.Name = posted.Name
	row.IsPending = false
	row.UpdatedAt = posted.UpdatedAt
	m.rows[txnKey(accountID, posted.ExternalID)] = row
	return true, nil
}

func (m *MockBankTransactionRepository) MarkRemoved(ctx context.Context, accountID, externalID string, at time.Time) error {
	if m.MarkRemovedFunc != nil {
		return m.MarkRemovedFunc(ctx, accountID, externalID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[txnKey(accountID, externalID)]; ok && !row.IsRemoved {
		row.IsRemoved = true
		row.RemovedAt = &at
		row.UpdatedAt = at
	}
	return nil
}

func (m *MockBankTransactionRepository) DeleteAggregatorRowsBefore(ctx context.Context, accountID string, before time.Time) (int64, error) {
	if m.DeleteAggregatorRowsBeforeFunc != nil {
		return m.DeleteAggregatorRowsBeforeFunc(ctx, accountID, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for key, row := range m.rows {
		if row.AccountID == accountID && row.Source == domain.SourceAggregator && row.PostedDate.Before(before) {
			delete(m.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockBankTransactionRepository) CountAggregatorRowsBefore(ctx context.Context, accountID string, before time.Time) (int64, error) {
	if m.CountAggregatorRowsBeforeFunc != nil {
		return m.CountAggregatorRowsBeforeFunc(ctx, accountID, before)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, row := range m.rows {
		if row.AccountID == accountID && row.Source == domain.SourceAggregator && row.PostedDate.Before(before) {
			count++
		}
	}
	return count, nil
}

func (m *MockBankTransactionRepository) CountPending(ctx context.Context, accountID string) (int, error) {
	if m.CountPendingFunc != nil {
		return m.CountPendingFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, row := range m.rows {
		if row.AccountID == accountID && row.IsPending && !row.IsRemoved {
			count++
		}
	}
	return count, nil
}

func (m *MockBankTransactionRepository) SumPostedSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	if m.SumPostedSinceFunc != nil {
		return m.SumPostedSinceFunc(ctx, accountID, since)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, row := range m.rows {
		if row.AccountID == accountID && !row.IsPending && !row.IsRemoved && !row.PostedDate.Before(since) {
			sum += row.AmountCents
		}
	}
	return sum, nil
}

func (m *MockBankTransactionRepository) ListForRange(ctx context.Context, accountID string, start, end time.Time) ([]*domain.BankTransaction, error) {
	if m.ListForRangeFunc != nil {
		return m.ListForRangeFunc(ctx, accountID, start, end)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.BankTransaction
	for _, row := range m.rows {
		if row.AccountID == accountID && !row.IsRemoved && !row.PostedDate.Before(start) && row.PostedDate.Before(end) {
			txns = append(txns, row)
		}
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].PostedDate.Equal(txns[j].PostedDate) {
			return txns[i].PostedDate.Before(txns[j].PostedDate)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry

	CreateFunc                 func(ctx context.Context, entry *domain.Entry) error
	CountNonOpeningFunc        func(ctx context.Context, accountID string) (int, error)
	FindOpeningPlaceholderFunc func(ctx context.Context, accountID string) (*domain.Entry, error)
	UpdateOpeningFunc          func(ctx context.Context, id string, amountCents int64, entryType domain.EntryType, date time.Time, updatedAt time.Time) error
	ListForRangeFunc           func(ctx context.Context, accountID string, start, end time.Time) ([]*domain.Entry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.Entry),
	}
}

func (m *MockEntryRepository) Seed(entry *domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
}

func (m *MockEntryRepository) Get(id string) *domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[id]
}

func (m *MockEntryRepository) All() []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*domain.Entry
	for _, e := range m.entries {
		all = append(all, e)
	}
	return all
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockEntryRepository) CountNonOpening(ctx context.Context, accountID string) (int, error) {
	if m.CountNonOpeningFunc != nil {
		return m.CountNonOpeningFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.entries {
		if e.AccountID == accountID && e.DeletedAt == nil && !e.IsOpening() {
			count++
		}
	}
	return count, nil
}

func (m *MockEntryRepository) FindOpeningPlaceholder(ctx context.Context, accountID string) (*domain.Entry, error) {
	if m.FindOpeningPlaceholderFunc != nil {
		return m.FindOpeningPlaceholderFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *domain.Entry
	for _, e := range m.entries {
		if e.AccountID == accountID && e.DeletedAt == nil && e.IsOpening() && e.AmountCents == 0 {
			if found == nil || e.CreatedAt.Before(found.CreatedAt) {
				found = e
			}
		}
	}
	return found, nil
}

func (m *MockEntryRepository) UpdateOpening(ctx context.Context, id string, amountCents int64, entryType domain.EntryType, date time.Time, updatedAt time.Time) error {
	if m.UpdateOpeningFunc != nil {
		return m.UpdateOpeningFunc(ctx, id, amountCents, entryType, date, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.AmountCents = amountCents
		e.Type = entryType
		e.Date = date
		e.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockEntryRepository) ListForRange(ctx context.Context, accountID string, start, end time.Time) ([]*domain.Entry, error) {
	if m.ListForRangeFunc != nil {
		return m.ListForRangeFunc(ctx, accountID, start, end)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.AccountID == accountID && e.DeletedAt == nil && !e.IsAdjustment && !e.Date.Before(start) && e.Date.Before(end) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// MockMatchRepository is a mock implementation of MatchRepository.
type MockMatchRepository struct {
	mu      sync.RWMutex
	matches []*domain.BankMatch

	ListByTransactionIDsFunc func(ctx context.Context, txnIDs []string) ([]*domain.BankMatch, error)
}

func NewMockMatchRepository() *MockMatchRepository {
	return &MockMatchRepository{}
}

func (m *MockMatchRepository) Seed(match *domain.BankMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches = append(m.matches, match)
}

func (m *MockMatchRepository) ListByTransactionIDs(ctx context.Context, txnIDs []string) ([]*domain.BankMatch, error) {
	if m.ListByTransactionIDsFunc != nil {
		return m.ListByTransactionIDsFunc(ctx, txnIDs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(txnIDs))
	for _, id := range txnIDs {
		wanted[id] = true
	}
	var out []*domain.BankMatch
	for _, match := range m.matches {
		if wanted[match.BankTransactionID] {
			out = append(out, match)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository
// enforcing the one-per-month uniqueness like the real index.
type MockSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.ReconcileSnapshot

	CreateFunc       func(ctx context.Context, snap *domain.ReconcileSnapshot) error
	GetByIDFunc      func(ctx context.Context, businessID, id string) (*domain.ReconcileSnapshot, error)
	GetByMonthFunc   func(ctx context.Context, businessID, accountID, month string) (*domain.ReconcileSnapshot, error)
	SetArtifactsFunc func(ctx context.Context, id string, artifacts domain.ArtifactSet) error
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{
		snapshots: make(map[string]*domain.ReconcileSnapshot),
	}
}

func (m *MockSnapshotRepository) Create(ctx context.Context, snap *domain.ReconcileSnapshot) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, snap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.BusinessID == snap.BusinessID && s.AccountID == snap.AccountID && s.Month == snap.Month {
			return domain.ErrSnapshotExists
		}
	}
	clone := *snap
	m.snapshots[snap.ID] = &clone
	return nil
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, businessID, id string) (*domain.ReconcileSnapshot, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, businessID, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.snapshots[id]; ok && s.BusinessID == businessID {
		return s, nil
	}
	return nil, domain.ErrSnapshotNotFound
}

func (m *MockSnapshotRepository) GetByMonth(ctx context.Context, businessID, accountID, month string) (*domain.ReconcileSnapshot, error) {
	if m.GetByMonthFunc != nil {
		return m.GetByMonthFunc(ctx, businessID, accountID, month)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.snapshots {
		if s.BusinessID == businessID && s.AccountID == accountID && s.Month == month {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockSnapshotRepository) SetArtifacts(ctx context.Context, id string, artifacts domain.ArtifactSet) error {
	if m.SetArtifactsFunc != nil {
		return m.SetArtifactsFunc(ctx, id, artifacts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[id]; ok {
		s.Artifacts = artifacts
	}
	return nil
}

// MockTokenCipher is a reversible fake cipher for tests.
type MockTokenCipher struct {
	EncryptFunc func(plaintext string) ([]byte, error)
	DecryptFunc func(ciphertext []byte) (string, error)
}

func (m *MockTokenCipher) Encrypt(plaintext string) ([]byte, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(plaintext)
	}
	return []byte("enc:" + plaintext), nil
}

func (m *MockTokenCipher) Decrypt(ciphertext []byte) (string, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ciphertext)
	}
	s := string(ciphertext)
	if len(s) < 4 || s[:4] != "enc:" {
		return "", fmt.Errorf("not a test ciphertext: %q", s)
	}
	return s[4:], nil
}

// ImmediateRetrier retries without delay up to Attempts times.
type ImmediateRetrier struct {
	Attempts int
}

func (r *ImmediateRetrier) Retry(ctx context.Context, operation func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = operation(); err == nil {
			return nil
		}
	}
	return err
}

// SequenceIDGenerator generates deterministic ids for tests.
type SequenceIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%04d", g.next)
}

// MockCache is an in-memory Cache implementation.
type MockCache struct {
	mu     sync.RWMutex
	values map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss: %s", key)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
