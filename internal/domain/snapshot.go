package domain

import (
	"fmt"
	"regexp"
	"time"
)

// MatchState classifies a bank transaction against its active matches.
// The state is never stored on the transaction; it is recomputed from the
// match ledger every time a snapshot is built.
type MatchState string

const (
	MatchStateUnmatched MatchState = "UNMATCHED"
	MatchStatePartial   MatchState = "PARTIAL"
	MatchStateMatched   MatchState = "MATCHED"
)

// SnapshotCounts is the frozen summary of one month's classification.
type SnapshotCounts struct {
	BankUnmatched   int
	BankPartial     int
	BankMatched     int
	EntriesExpected int
	EntriesMatched  int
	Reverts         int
}

// ArtifactSet holds the object-store keys and checksums of the three CSV
// artifacts belonging to a snapshot.
type ArtifactSet struct {
	BankKey       string
	MatchesKey    string
	AuditKey      string
	BankSHA256    string
	MatchesSHA256 string
	AuditSHA256   string
}

// Complete reports whether all three artifact keys have been recorded.
func (a ArtifactSet) Complete() bool {
	return a.BankKey != "" && a.MatchesKey != "" && a.AuditKey != ""
}

// ReconcileSnapshot is an immutable, point-in-time export of a month's
// reconciliation state. At most one exists per (business, account, month);
// re-creation is rejected, never overwritten.
type ReconcileSnapshot struct {
	ID                string
	BusinessID        string
	AccountID         string
	Month             string
	Counts            SnapshotCounts
	RemainingAbsCents int64
	Artifacts         ArtifactSet
	CreatedAt         time.Time
	CreatedBy         string
}

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ValidateMonth checks the YYYY-MM format and that the month is a real
// calendar month.
func ValidateMonth(month string) error {
	if !monthPattern.MatchString(month) {
		return ErrInvalidMonth
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMonth, month)
	}
	return nil
}

// MonthBounds resolves a YYYY-MM month to the half-open UTC date range
// [start, nextMonthStart). Half-open bounds avoid end-of-month and
// timezone edge cases.
func MonthBounds(month string) (start, end time.Time, err error) {
	if err := ValidateMonth(month); err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, _ = time.Parse("2006-01", month)
	return start, start.AddDate(0, 1, 0), nil
}

// ClassifyTransaction derives the match state of a transaction from the
// sum of the absolute amounts of its active matches. It returns the state
// and the positive remainder contributing to remaining_abs_cents. An
// over-matched transaction (matched beyond the transaction amount) counts
// as MATCHED with zero remainder.
func ClassifyTransaction(amountCents, matchedAbsCents int64) (MatchState, int64) {
	abs := amountCents
	if abs < 0 {
		abs = -abs
	}
	if matchedAbsCents == 0 {
		return MatchStateUnmatched, abs
	}
	remaining := abs - matchedAbsCents
	if remaining <= 0 {
		return MatchStateMatched, 0
	}
	return MatchStatePartial, remaining
}
