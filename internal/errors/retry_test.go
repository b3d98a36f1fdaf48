package errors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) *Policy {
	return &Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		RetryIf:      IsRetryable,
	}
}

func TestDoWithResultSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastPolicy(3), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", Temporary(CodeModelTimeout, "not yet")
		}
		return "payload", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, 3, attempts)
}

func TestDoWithResultStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastPolicy(5), func() (int, error) {
		attempts++
		return 42, Permanent(CodeModelUnavailable, "gone for good")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, got)
}

func TestDoWithResultExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastPolicy(3), func() (string, error) {
		attempts++
		return "", Temporary(CodeModelTimeout, "never recovers")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "max retries exceeded")

	// The classified error survives the wrapping.
	assert.Equal(t, CategoryTemporary, GetCategory(err))
}

func TestDoWithResultHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := DoWithResult(ctx, &Policy{
		MaxAttempts:  5,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   1.0,
		RetryIf:      IsRetryable,
	}, func() (string, error) {
		attempts++
		cancel()
		return "", Temporary(CodeModelTimeout, "x")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResultRateLimitIsRetryable(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), DefaultPolicy(), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", RateLimit(CodeModelRateLimit, "slow down", time.Millisecond)
		}
		return "after backoff", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "after backoff", got)
	assert.Equal(t, 2, attempts)
}

func TestDoWithResultNilPolicyUsesDefault(t *testing.T) {
	got, err := DoWithResult(context.Background(), nil, func() (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDoWithResultSingleAttemptPolicy(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), fastPolicy(1), func() (string, error) {
		attempts++
		return "", Temporary(CodeModelTimeout, "x")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
