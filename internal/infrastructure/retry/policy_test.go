package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	p := NewPolicy(3, time.Millisecond)

	calls := 0
	err := p.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsAtAttemptCeiling(t *testing.T) {
	p := NewPolicy(3, time.Millisecond)

	wantErr := errors.New("always failing")
	calls := 0
	err := p.Retry(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the operation error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryOnRetryHook(t *testing.T) {
	retries := 0
	p := NewPolicy(4, time.Millisecond, WithOnRetry(func() { retries++ }))

	_ = p.Retry(context.Background(), func() error {
		return errors.New("nope")
	})
	// The hook fires for each retried attempt, not the final failure.
	if retries != 3 {
		t.Fatalf("retries = %d, want 3", retries)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	p := NewPolicy(100, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Retry(ctx, func() error {
		calls++
		return errors.New("keep trying")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls > 3 {
		t.Fatalf("calls = %d, cancellation not honored", calls)
	}
}

func TestNewPolicyClampsAttempts(t *testing.T) {
	p := NewPolicy(0, time.Millisecond)

	calls := 0
	_ = p.Retry(context.Background(), func() error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
