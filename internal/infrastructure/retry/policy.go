package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy retries an operation with exponential backoff and jitter up to a
// hard attempt ceiling. It is the single retry mechanism for aggregator
// calls; a call that exhausts the budget fails the whole invocation.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
	onRetry     func()
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

// WithOnRetry registers a hook invoked once per retried attempt.
func WithOnRetry(fn func()) Option {
	return func(p *Policy) { p.onRetry = fn }
}

// NewPolicy creates a retry policy. maxAttempts counts the first try;
// a value of 3 means at most two retries.
func NewPolicy(maxAttempts int, baseDelay time.Duration, opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    10 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	return p
}

// Retry executes an operation with exponential backoff until it succeeds,
// the attempt ceiling is hit, or the context is done.
func (p *Policy) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.baseDelay
	b.MaxInterval = p.maxDelay
	b.MaxElapsedTime = 0

	attempts := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= p.maxAttempts {
			return backoff.Permanent(err)
		}

		if p.onRetry != nil {
			p.onRetry()
		}
		p.logger.Warn("retrying failed operation",
			"error", err,
			"attempt", attempts,
		)

		return err
	}, backoff.WithContext(b, ctx))
}
