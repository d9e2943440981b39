package provider

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// jitteredBackOff implements spec §4.D's retry formula exactly:
// delay = min(maxDelay, base·2^attempt) · U(0.5,1). This generalizes
// dotcommander-vybe's RetryWithBackoff (internal/store/retry.go), which
// wraps cenkalti/backoff/v4's ExponentialBackOff with a symmetric
// randomization factor; the spec's asymmetric half-to-full jitter needs a
// BackOff implementation of its own rather than a parameter tweak.
type jitteredBackOff struct {
	base    time.Duration
	maxWait time.Duration
	attempt int
}

func (j *jitteredBackOff) NextBackOff() time.Duration {
	raw := float64(j.base) * math.Pow(2, float64(j.attempt))
	capped := math.Min(raw, float64(j.maxWait))
	j.attempt++
	jitter := 0.5 + rand.Float64()*0.5 // U(0.5, 1)
	return time.Duration(capped * jitter)
}

func (j *jitteredBackOff) Reset() { j.attempt = 0 }

// RetryConfig bounds an Execute retry loop.
type RetryConfig struct {
	Base       time.Duration // default 500ms
	MaxWait    time.Duration // default 20s
	MaxElapsed time.Duration // default 2m
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Base == 0 {
		c.Base = 500 * time.Millisecond
	}
	if c.MaxWait == 0 {
		c.MaxWait = 20 * time.Second
	}
	if c.MaxElapsed == 0 {
		c.MaxElapsed = 2 * time.Minute
	}
	return c
}

// RetryableError wraps an error to mark it retryable (HTTP 429, any 5xx, or
// a transport failure) per spec §7's AIError categorization.
type RetryableError struct{ Err error }

func (r *RetryableError) Error() string { return r.Err.Error() }
func (r *RetryableError) Unwrap() error { return r.Err }

// IsRetryable reports whether err should be retried rather than surfaced as
// a fatal AIError.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout")
}

// WithRetry runs operation under the jittered exponential backoff policy,
// retrying only while IsRetryable(err) holds, and stopping either at
// MaxElapsed or on a non-retryable/context error.
func WithRetry(ctx context.Context, cfg RetryConfig, operation func() (Response, error)) (Response, error) {
	cfg = cfg.withDefaults()
	bo := &jitteredBackOff{base: cfg.Base, maxWait: cfg.MaxWait}
	bounded := backoff.WithMaxElapsedTime(bo, cfg.MaxElapsed)

	var result Response
	err := backoff.Retry(func() error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		resp, err := operation()
		if err == nil {
			result = resp
			return nil
		}
		if IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bounded, ctx))

	if err != nil {
		return Response{}, err
	}
	return result, nil
}
