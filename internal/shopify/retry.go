package shopify

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	apperrors "github.com/makerstall/payoutsapi/pkg/errors"
)

// RetryPolicy controls how throttled platform calls are retried. It is plain
// data passed explicitly to every caller; there are no package-level defaults
// hiding behind helpers.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxJitter    time.Duration
}

// DefaultRetryPolicy matches the platform's observed throttle window.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 1500 * time.Millisecond,
		MaxJitter:    500 * time.Millisecond,
	}
}

// throttleMarker tags an error as a rate-limit signal at the transport layer.
type throttleMarker struct {
	err error
}

func (t *throttleMarker) Error() string { return t.err.Error() }
func (t *throttleMarker) Unwrap() error { return t.err }

func throttleError(err error) error {
	return &throttleMarker{err: err}
}

// IsThrottled reports whether err signals platform rate limiting: a tagged
// transport error, an exhausted-retries error, or a message mentioning
// throttling / rate limits / HTTP 429.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	var marker *throttleMarker
	if errors.As(err, &marker) {
		return true
	}
	var exhausted *apperrors.ErrThrottled
	if errors.As(err, &exhausted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttled") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429")
}

// Do runs fn, retrying while the error signals throttling. Delay before retry
// n is InitialDelay * 2^n plus uniform jitter in [0, MaxJitter]. Non-throttle
// errors propagate immediately. Callers must tolerate multi-second stalls.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.InitialDelay * (1 << (attempt - 1))
			if p.MaxJitter > 0 {
				delay += time.Duration(rand.Int63n(int64(p.MaxJitter)))
			}
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsThrottled(lastErr) {
			return lastErr
		}
	}
	return &apperrors.ErrThrottled{Attempts: p.MaxRetries + 1, Err: lastErr}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
