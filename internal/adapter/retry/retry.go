// Package retry bounds calls to remote models with a per-attempt timeout and
// exponential backoff between transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// sleep is replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy is the retry budget for one logical call.
type Policy struct {
	MaxRetries int           // retries after the first attempt
	Backoff    time.Duration // delay before the first retry, doubled each time
	MaxBackoff time.Duration // 0 means uncapped
	Timeout    time.Duration // per attempt, 0 means none
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Backoff << uint(attempt)
	if d < 0 || (p.MaxBackoff > 0 && d > p.MaxBackoff) {
		return p.MaxBackoff
	}
	return d
}

// StatusError is an HTTP response with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, e.Body)
}

// Transient reports whether err is worth retrying: timeouts, network errors,
// throttling and server-side failures.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var status *StatusError
	if errors.As(err, &status) {
		return retryableCode(status.Code)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableCode(apiErrPtr.Code)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableCode(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// Do runs fn until it succeeds, fails permanently, or the budget is spent.
// Each attempt gets its own timeout derived from ctx. The returned int is the
// number of attempts made.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.Delay(attempt-1)); err != nil {
				return zero, attempt, err
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		out, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return out, attempt + 1, nil
		}
		lastErr = err

		// The caller's own deadline or cancellation ends the loop.
		if ctx.Err() != nil {
			return zero, attempt + 1, err
		}
		if !Transient(err) {
			return zero, attempt + 1, err
		}
	}

	return zero, p.MaxRetries + 1, lastErr
}
