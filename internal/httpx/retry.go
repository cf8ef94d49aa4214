// Package httpx holds the retry policy shared by the remote API client and
// the OpenRouter client.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 3

// Backoff returns the delay before retry number attempt (0-based).
type Backoff func(attempt int) time.Duration

// ExponentialBackoff waits 1s, 2s, 4s, ...
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// NoDelay disables waiting between attempts.
func NoDelay(int) time.Duration { return 0 }

// StatusError is returned when retries are exhausted on a transient status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether a status is worth retrying.
func Retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Idempotent reports whether a request with method may be replayed after
// the server answered it with a 5xx.
func Idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Retrier retries requests that fail with 429 or 5xx. Other responses,
// successful or not, are handed back to the caller untouched.
type Retrier struct {
	MaxRetries int
	Backoff    Backoff
}

// DefaultRetrier uses exponential backoff and three retries.
func DefaultRetrier() Retrier {
	return Retrier{MaxRetries: DefaultMaxRetries, Backoff: ExponentialBackoff}
}

// Do runs do until it yields a non-retryable response, ctx ends, or retries
// run out. Transport errors are returned immediately.
func (r Retrier) Do(ctx context.Context, do func(context.Context) (*http.Response, error)) (*http.Response, error) {
	return r.run(ctx, true, do)
}

// DoMethod is Do for a request sent with method. A 5xx answer to a method
// that is not idempotent may already have been applied, so it comes back as
// a StatusError without a replay. 429 is always retried.
func (r Retrier) DoMethod(ctx context.Context, method string, do func(context.Context) (*http.Response, error)) (*http.Response, error) {
	return r.run(ctx, Idempotent(method), do)
}

func (r Retrier) run(ctx context.Context, replay bool, do func(context.Context) (*http.Response, error)) (*http.Response, error) {
	backoff := r.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		resp, err := do(ctx)
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) {
			return resp, nil
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastErr = &StatusError{Code: resp.StatusCode, Body: string(body)}
		if !replay && resp.StatusCode != http.StatusTooManyRequests {
			return nil, lastErr
		}

		// Retry-After on 429 is waited on top of the backoff, unless the
		// backoff is disabled.
		if resp.StatusCode == http.StatusTooManyRequests && backoff(0) > 0 {
			if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
				if err := sleep(ctx, time.Duration(secs)*time.Second); err != nil {
					return nil, err
				}
			}
		}
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
