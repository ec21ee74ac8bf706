package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false,
		LogRetries: false,
	}
}

func TestWithBackoffSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, result.RetryReasons)
}

func TestWithBackoffRetriesUntilSuccess(t *testing.T) {
	calls := 0
	result := WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Len(t, result.RetryReasons, 2)
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	boom := errors.New("service unavailable")
	result := WithBackoff(context.Background(), fastConfig(2), func() error {
		return boom
	})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, boom, result.LastError)
}

func TestWithBackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := fastConfig(10)
	cfg.BaseDelay = 50 * time.Millisecond
	cfg.MaxDelay = time.Second

	result := WithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("timeout")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls, "cancellation must stop further attempts")
	require.ErrorIs(t, result.LastError, context.Canceled)
}

func TestCalculateDelayCapsAtMax(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 4 * time.Second, Multiplier: 2.0}

	assert.Equal(t, time.Second, calculateDelay(cfg, 0))
	assert.Equal(t, 2*time.Second, calculateDelay(cfg, 1))
	assert.Equal(t, 4*time.Second, calculateDelay(cfg, 2))
	assert.Equal(t, 4*time.Second, calculateDelay(cfg, 5), "delay must never exceed MaxDelay")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("invalid api key")))
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.True(t, IsRetryable(errors.New("HTTP 503 Service Unavailable")))
	assert.True(t, IsRetryable(errors.New("Rate Limit exceeded")))
}
