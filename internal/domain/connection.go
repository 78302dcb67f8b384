package domain

import "time"

// ConnectionStatus is the health of a bank connection.
type ConnectionStatus string

const (
	ConnectionStatusConnected ConnectionStatus = "CONNECTED"
	ConnectionStatusError     ConnectionStatus = "ERROR"
)

// BankConnection links one account to one aggregator item. It carries the
// sync cursor, the retention boundary and the one-shot gate for the
// opening-balance synthesis.
type BankConnection struct {
	ID                         string
	BusinessID                 string
	AccountID                  string
	PlaidItemID                string
	PlaidAccountID             string
	AccessTokenCiphertext      []byte
	EffectiveStartDate         time.Time
	SyncCursor                 string
	Status                     ConnectionStatus
	HasNewTransactions         bool
	LastKnownBalanceCents      int64
	BalanceRefreshedAt         *time.Time
	LastSyncAt                 *time.Time
	OpeningAdjustmentCreatedAt *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// NeedsOpeningAdjustment reports whether the one-time opening-balance
// synthesis has not happened yet for this connection.
func (c *BankConnection) NeedsOpeningAdjustment() bool {
	return c.OpeningAdjustmentCreatedAt == nil
}
