package domain

import "time"

// TransactionSource tags where a bank transaction row came from. Only
// aggregator-sourced rows are subject to retention pruning.
type TransactionSource string

const (
	SourceAggregator TransactionSource = "AGGREGATOR"
	SourceImport     TransactionSource = "IMPORT"
)

// BankTransaction is an aggregator-sourced transaction row. Amounts use
// this system's sign convention: negative = outflow. Rows are upserted by
// external id and soft-removed, never hard-deleted outside retention
// pruning (matches may reference them).
type BankTransaction struct {
	ID             string
	BusinessID     string
	AccountID      string
	ExternalID     string
	PostedDate     time.Time
	AuthorizedDate *time.Time
	AmountCents    int64
	Name           string
	IsPending      bool
	IsRemoved      bool
	RemovedAt      *time.Time
	Source         TransactionSource
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AbsAmountCents returns the absolute transaction amount.
func (t *BankTransaction) AbsAmountCents() int64 {
	if t.AmountCents < 0 {
		return -t.AmountCents
	}
	return t.AmountCents
}
