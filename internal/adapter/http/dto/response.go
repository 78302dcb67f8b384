package dto

import (
	"time"

	"github.com/ledgerkit/banksync/internal/domain"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ConnectionResponse represents a bank connection in API responses.
// Credentials never leave the server.
type ConnectionResponse struct {
	ID                 string                  `json:"id"`
	AccountID          string                  `json:"account_id"`
	EffectiveStartDate string                  `json:"effective_start_date"`
	Status             domain.ConnectionStatus `json:"status"`
	HasNewTransactions bool                    `json:"has_new_transactions"`
	LastSyncAt         *time.Time              `json:"last_sync_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
}

// ConnectionFromDomain converts a domain connection to a response.
func ConnectionFromDomain(c *domain.BankConnection) *ConnectionResponse {
	return &ConnectionResponse{
		ID:                 c.ID,
		AccountID:          c.AccountID,
		EffectiveStartDate: c.EffectiveStartDate.Format(dateLayout),
		Status:             c.Status,
		HasNewTransactions: c.HasNewTransactions,
		LastSyncAt:         c.LastSyncAt,
		CreatedAt:          c.CreatedAt,
	}
}

// SyncResponse represents the outcome of one sync invocation.
type SyncResponse struct {
	NewCount       int       `json:"new_count"`
	DuplicateCount int       `json:"duplicate_count"`
	PendingCount   int       `json:"pending_count"`
	PrunedCount    int64     `json:"pruned_count"`
	Pages          int       `json:"pages"`
	Capped         bool      `json:"capped"`
	HasMore        bool      `json:"has_more"`
	LastSyncAt     time.Time `json:"last_sync_at"`
}

// SyncFromResult converts a use case sync result to a response.
func SyncFromResult(r *usecase.SyncResult) *SyncResponse {
	return &SyncResponse{
		NewCount:       r.NewCount,
		DuplicateCount: r.DuplicateCount,
		PendingCount:   r.PendingCount,
		PrunedCount:    r.PrunedCount,
		Pages:          r.Pages,
		Capped:         r.Capped,
		HasMore:        r.HasMore,
		LastSyncAt:     r.LastSyncAt,
	}
}

// SnapshotCountsResponse represents the frozen classification counts.
type SnapshotCountsResponse struct {
	BankUnmatched   int `json:"bank_unmatched"`
	BankPartial     int `json:"bank_partial"`
	BankMatched     int `json:"bank_matched"`
	EntriesExpected int `json:"entries_expected"`
	EntriesMatched  int `json:"entries_matched"`
	Reverts         int `json:"reverts"`
}

// ArtifactResponse represents one artifact of a snapshot.
type ArtifactResponse struct {
	Key    string `json:"key,omitempty"`
	SHA256 string `json:"sha256"`
	URL    string `json:"url,omitempty"`
}

// SnapshotResponse represents a reconcile snapshot in API responses.
type SnapshotResponse struct {
	ID                string                 `json:"id"`
	AccountID         string                 `json:"account_id"`
	Month             string                 `json:"month"`
	Counts            SnapshotCountsResponse `json:"counts"`
	RemainingAbsCents int64                  `json:"remaining_abs_cents"`
	Bank              ArtifactResponse       `json:"bank_artifact"`
	Matches           ArtifactResponse       `json:"matches_artifact"`
	Audit             ArtifactResponse       `json:"audit_artifact"`
	CreatedAt         time.Time              `json:"created_at"`
	CreatedBy         string                 `json:"created_by"`
}

// SnapshotFromDomain converts a domain snapshot (and optional signed
// URLs) to a response.
func SnapshotFromDomain(s *domain.ReconcileSnapshot, urls *usecase.SnapshotURLs) *SnapshotResponse {
	resp := &SnapshotResponse{
		ID:        s.ID,
		AccountID: s.AccountID,
		Month:     s.Month,
		Counts: SnapshotCountsResponse{
			BankUnmatched:   s.Counts.BankUnmatched,
			BankPartial:     s.Counts.BankPartial,
			BankMatched:     s.Counts.BankMatched,
			EntriesExpected: s.Counts.EntriesExpected,
			EntriesMatched:  s.Counts.EntriesMatched,
			Reverts:         s.Counts.Reverts,
		},
		RemainingAbsCents: s.RemainingAbsCents,
		Bank:              ArtifactResponse{Key: s.Artifacts.BankKey, SHA256: s.Artifacts.BankSHA256},
		Matches:           ArtifactResponse{Key: s.Artifacts.MatchesKey, SHA256: s.Artifacts.MatchesSHA256},
		Audit:             ArtifactResponse{Key: s.Artifacts.AuditKey, SHA256: s.Artifacts.AuditSHA256},
		CreatedAt:         s.CreatedAt,
		CreatedBy:         s.CreatedBy,
	}
	if urls != nil {
		resp.Bank.URL = urls.Bank
		resp.Matches.URL = urls.Matches
		resp.Audit.URL = urls.Audit
	}
	return resp
}

// StartDateChangeResponse reports the outcome of a retention move.
type StartDateChangeResponse struct {
	PrunedCount int64 `json:"pruned_count"`
}
