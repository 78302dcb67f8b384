package domain

import "errors"

var (
	// Membership errors
	ErrNotMember = errors.New("user is not a member of this business")

	// Lookup errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrConnectionNotFound  = errors.New("bank connection not found")
	ErrTransactionNotFound = errors.New("bank transaction not found")
	ErrSnapshotNotFound    = errors.New("snapshot not found")

	// Input errors
	ErrInvalidMonth    = errors.New("month must be formatted YYYY-MM")
	ErrNonIntegerCents = errors.New("amount is not a whole number of cents")

	// Conflict errors
	ErrSnapshotExists    = errors.New("snapshot already exists for this month")
	ErrStartDateConflict = errors.New("start date change would prune synced transactions")

	// Upstream errors
	ErrUpstreamFailure = errors.New("aggregator request failed")

	// Authentication errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
