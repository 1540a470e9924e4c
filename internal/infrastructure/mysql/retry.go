package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// RetryPolicy は「何回・どのくらい待つか」をまとめた設定。
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultReadRetry is applied to List and Get. Writes are never retried.
var DefaultReadRetry = RetryPolicy{
	MaxAttempts: 3,
	BaseBackoff: 50 * time.Millisecond,
	MaxBackoff:  500 * time.Millisecond,
}

// doWithRetry re-runs fn only for retryable errors and stops as soon as ctx
// is done.
func doWithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = 10 * time.Millisecond
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableDBErr(err) || attempt == policy.MaxAttempts {
			return err
		}

		if err := sleepWithContext(ctx, backoff(policy.BaseBackoff, policy.MaxBackoff, attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff returns base * 2^(attempt-1), capped at max. attempt starts at 1.
func backoff(base, max time.Duration, attempt int) time.Duration {
	b := base
	for i := 1; i < attempt; i++ {
		b *= 2
		if b >= max {
			return max
		}
	}
	if b > max {
		return max
	}
	return b
}

// MySQL error numbers worth another attempt.
const (
	erLockDeadlock    = 1213
	erLockWaitTimeout = 1205
)

func isRetryableDBErr(err error) bool {
	// ctx 系は retry しない（上位に返す）
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) {
		return true
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == erLockDeadlock || myErr.Number == erLockWaitTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection reset"):
		return true
	case strings.Contains(msg, "broken pipe"):
		return true
	default:
		return false
	}
}
