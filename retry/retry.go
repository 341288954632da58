// Package retry provides a small exponential-backoff retry helper used by
// the Anthropic oracle backend, where a single flaky call must not abort an
// entire poll tick (§7).
package retry

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
)

// Func is a unit of work that may be retried.
type Func func() error

// Option configures a retry run.
type Option func(*options)

type options struct {
	maxRetries int
	baseWait   time.Duration
}

func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

func WithBaseWait(d time.Duration) Option {
	return func(o *options) { o.baseWait = d }
}

// Do runs f, retrying on transient failures with exponential backoff and
// jitter. It stops early if ctx is cancelled or f returns a non-retryable
// APIError.
func Do(ctx context.Context, f Func, opts ...Option) error {
	o := &options{maxRetries: DefaultMaxRetries, baseWait: DefaultBaseWait}
	for _, opt := range opts {
		opt(o)
	}

	var lastErr error
	for attempt := 0; attempt < o.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(o.baseWait) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		err := f()
		if err == nil {
			return nil
		}
		lastErr = err
		if apiErr, ok := err.(APIError); ok && !ShouldRetry(apiErr.StatusCode()) {
			return err
		}
	}
	return lastErr
}

// ShouldRetry reports whether the given HTTP status code indicates a
// transient failure worth retrying.
func ShouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// APIError is implemented by errors carrying an HTTP status code, letting Do
// distinguish permanent failures (4xx other than 429) from transient ones.
type APIError interface {
	error
	StatusCode() int
}
