package domain

import "time"

// BankMatch links one bank transaction to one ledger entry. The matched
// amount may be smaller than the transaction amount (partial match). A
// match is immutable after creation except for the single voided_at
// transition; rows are never physically deleted because the snapshot
// audit trail is derived from them.
type BankMatch struct {
	ID                 string
	BusinessID         string
	BankTransactionID  string
	EntryID            string
	MatchedAmountCents int64
	VoidedAt           *time.Time
	CreatedAt          time.Time
}

// Active reports whether the match still counts toward classification.
func (m *BankMatch) Active() bool {
	return m.VoidedAt == nil
}

// AbsMatchedCents returns the absolute matched amount.
func (m *BankMatch) AbsMatchedCents() int64 {
	if m.MatchedAmountCents < 0 {
		return -m.MatchedAmountCents
	}
	return m.MatchedAmountCents
}
