package usecase

import "time"

const (
	// DefaultMaxPages caps the number of sync pages per invocation.
	DefaultMaxPages = 20
	// DefaultMaxTransactions caps the total rows seen per invocation.
	DefaultMaxTransactions = 5000
	// DefaultStatusConcurrency bounds parallel status polling.
	DefaultStatusConcurrency = 2
	// DefaultArtifactURLTTL limits snapshot download URLs.
	DefaultArtifactURLTTL = 600 * time.Second
	// StatusCacheTTL bounds staleness of cached connection status.
	StatusCacheTTL = 30 * time.Second
	// AuditEventCap bounds the snapshot audit artifact to the most
	// recent events. The audit CSV is explicitly non-exhaustive.
	AuditEventCap = 500
)
