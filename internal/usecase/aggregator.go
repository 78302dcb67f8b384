package usecase

import (
	"context"
	"time"
)

// AggregatorTransaction is one transaction record from a sync page.
// AmountCents keeps the aggregator's outflow-positive sign convention;
// the sync engine converts it on ingestion.
type AggregatorTransaction struct {
	ExternalID        string
	PendingExternalID string
	PostedDate        time.Time
	AuthorizedDate    *time.Time
	AmountCents       int64
	Name              string
	Pending           bool
}

// SyncPageResult is one page of transaction deltas.
type SyncPageResult struct {
	Added      []AggregatorTransaction
	Modified   []AggregatorTransaction
	Removed    []string
	NextCursor string
	HasMore    bool
}

// AggregatorClient is the thin capability over the external bank-data
// aggregator. Cursor semantics forbid concurrent SyncPage calls for one
// connection; the sync loop is strictly sequential.
type AggregatorClient interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error)
	GetBalance(ctx context.Context, accessToken, aggregatorAccountID string) (int64, error)
	SyncPage(ctx context.Context, accessToken, aggregatorAccountID, cursor string) (*SyncPageResult, error)
}
