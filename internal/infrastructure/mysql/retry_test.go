package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	base := 10 * time.Millisecond
	max := 50 * time.Millisecond

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, max, max}
	for i, w := range want {
		if got := backoff(base, max, i+1); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestIsRetryableDBErr(t *testing.T) {
	t.Parallel()

	retryable := []error{
		driver.ErrBadConn,
		fmt.Errorf("query: %w", gomysql.ErrInvalidConn),
		&gomysql.MySQLError{Number: erLockDeadlock, Message: "Deadlock found"},
		&gomysql.MySQLError{Number: erLockWaitTimeout, Message: "Lock wait timeout exceeded"},
		errors.New("read tcp: connection reset by peer"),
	}
	for _, err := range retryable {
		if !isRetryableDBErr(err) {
			t.Errorf("expected %v to be retryable", err)
		}
	}

	permanent := []error{
		context.Canceled,
		fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
		&gomysql.MySQLError{Number: 1064, Message: "syntax error"},
		errors.New("boom"),
	}
	for _, err := range permanent {
		if isRetryableDBErr(err) {
			t.Errorf("expected %v not to be retryable", err)
		}
	}
}

func TestDoWithRetry_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	err := doWithRetry(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return driver.ErrBadConn
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoWithRetry_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	want := errors.New("syntax")

	err := doWithRetry(context.Background(), DefaultReadRetry, func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	err := doWithRetry(context.Background(), policy, func() error {
		calls++
		return driver.ErrBadConn
	})
	if !errors.Is(err, driver.ErrBadConn) {
		t.Fatalf("expected ErrBadConn, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDoWithRetry_RespectsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := doWithRetry(ctx, DefaultReadRetry, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Errorf("fn must not run with a canceled context")
	}
}
