package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("received status 429")))
	assert.True(t, IsRetryable(errors.New("upstream returned 503")))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("boom")}))
	assert.False(t, IsRetryable(errors.New("invalid api key (401)")))
	assert.False(t, IsRetryable(nil))
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{Base: time.Millisecond, MaxWait: 5 * time.Millisecond, MaxElapsed: time.Second}

	resp, err := WithRetry(context.Background(), cfg, func() (Response, error) {
		attempts++
		if attempts < 3 {
			return Response{}, errors.New("503 service unavailable")
		}
		return Response{Content: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_StopsOnNonRetryable(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{Base: time.Millisecond, MaxWait: 5 * time.Millisecond, MaxElapsed: time.Second}

	_, err := WithRetry(context.Background(), cfg, func() (Response, error) {
		attempts++
		return Response{}, errors.New("400 bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestJitteredBackOff_RespectsCapAndJitterRange(t *testing.T) {
	bo := &jitteredBackOff{base: 100 * time.Millisecond, maxWait: 200 * time.Millisecond}
	for i := 0; i < 10; i++ {
		d := bo.NextBackOff()
		assert.LessOrEqual(t, d, 200*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}
