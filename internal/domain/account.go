package domain

import "time"

// AccountType distinguishes depository accounts from cards and other
// account kinds in the registry.
type AccountType string

const (
	AccountTypeDepository AccountType = "DEPOSITORY"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeOther      AccountType = "OTHER"
)

// Account is a per-business ledger account. The registry is owned by an
// external collaborator; this core only reads it.
type Account struct {
	ID         string
	BusinessID string
	Name       string
	Type       AccountType
	CreatedAt  time.Time
}
