package domain

import "time"

// EntryType is the direction of a manual ledger entry.
type EntryType string

const (
	EntryTypeIncome  EntryType = "INCOME"
	EntryTypeExpense EntryType = "EXPENSE"
)

// OpeningBalancePayee labels the synthetic entry created by the
// opening-balance synthesis. Entries carrying this payee are treated as
// placeholders, not user data.
const OpeningBalancePayee = "Opening balance (estimated)"

// Entry is a manually-entered ledger row. It is owned by an external
// collaborator; the sync engine only creates the synthetic opening entry
// and the snapshot engine reads entries for classification.
type Entry struct {
	ID           string
	BusinessID   string
	AccountID    string
	Date         time.Time
	Payee        string
	AmountCents  int64
	Type         EntryType
	IsAdjustment bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOpening reports whether the entry is an opening-balance row.
func (e *Entry) IsOpening() bool {
	return e.Payee == OpeningBalancePayee
}

// EntryTypeForAmount picks INCOME for non-negative amounts and EXPENSE
// otherwise, matching the opening synthesis rule.
func EntryTypeForAmount(amountCents int64) EntryType {
	if amountCents >= 0 {
		return EntryTypeIncome
	}
	return EntryTypeExpense
}
