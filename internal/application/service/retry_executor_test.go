package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
)

// fastRetryConfig keeps retry tests quick: real schedule shape, tiny delays.
func fastRetryConfig(maxRetries int) RetryConfig {
	config := DefaultRetryConfig()
	config.MaxRetries = maxRetries
	config.BaseDelay = time.Millisecond
	config.MaxDelay = 8 * time.Millisecond
	config.JitterEnabled = false
	config.RateLimitDelay = time.Millisecond
	config.RateLimitMaxDelay = 4 * time.Millisecond
	return config
}

func TestRetryExecutor_SucceedsFirstAttempt(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(3), nil)

	result := executor.ExecuteWithRetry(context.Background(), "fetch", func(_ context.Context) (any, error) {
		return "payload", nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, "payload", result.Result)
	assert.Equal(t, 1, result.TotalAttempts)
	assert.Empty(t, result.Attempts)
	assert.NoError(t, result.FinalError)
}

func TestRetryExecutor_SucceedsAfterTransientFailures(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(5), nil)

	calls := 0
	result := executor.ExecuteWithRetry(context.Background(), "fetch", func(_ context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, entity.NewMarketError(valueobject.ErrorKindNetworkTransient, "7203.T", "connection reset", nil)
		}
		return "payload", nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalAttempts)
	assert.Equal(t, 3, calls)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, 1, result.Attempts[0].AttemptNumber)
	assert.Equal(t, 2, result.Attempts[1].AttemptNumber)
}

// A non-retryable failure short-circuits after a single call, regardless of
// the retry budget.
func TestRetryExecutor_NonRetryableShortCircuits(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "validation failure",
			err:  entity.NewMarketError(valueobject.ErrorKindValidation, "7203.T", "malformed payload", nil),
		},
		{
			name: "not found",
			err:  entity.NotFoundError("7203.T", "possibly delisted"),
		},
		{
			name: "programming defect",
			err:  entity.NewMarketError(valueobject.ErrorKindProgrammingDefect, "7203.T", "nil pointer dereference", nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewRetryExecutor(fastRetryConfig(5), nil)

			calls := 0
			result := executor.ExecuteWithRetry(context.Background(), "fetch", func(_ context.Context) (any, error) {
				calls++
				return nil, tt.err
			})

			assert.False(t, result.Success)
			assert.Equal(t, 1, calls)
			assert.Equal(t, 1, result.TotalAttempts)
			assert.Empty(t, result.Attempts)
			assert.Equal(t, tt.err, result.FinalError)
		})
	}
}

// A persistently rate-limited operation exhausts its budget: max_retries=5
// yields six attempts, with non-decreasing delays capped at the rate-limit
// ceiling.
func TestRetryExecutor_RateLimitExhaustion(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(5), nil)

	calls := 0
	result := executor.ExecuteWithRetry(context.Background(), "fetch", func(_ context.Context) (any, error) {
		calls++
		return nil, entity.RateLimitError("7203.T", "provider rate limit exceeded")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 6, calls)
	assert.Equal(t, 6, result.TotalAttempts)
	require.Len(t, result.Attempts, 5)

	for i, attempt := range result.Attempts {
		assert.LessOrEqual(t, attempt.Delay, 4*time.Millisecond,
			"delay must be capped at the rate-limit ceiling")
		if i > 0 {
			assert.GreaterOrEqual(t, attempt.Delay, result.Attempts[i-1].Delay,
				"delays must be non-decreasing")
		}
	}

	var marketErr *entity.MarketError
	require.ErrorAs(t, result.FinalError, &marketErr)
	assert.Equal(t, valueobject.ErrorKindRateLimited, marketErr.Kind)
}

func TestRetryExecutor_ContextCancellationDuringBackoff(t *testing.T) {
	config := fastRetryConfig(5)
	config.Strategy = valueobject.RetryStrategyFixed
	config.BaseDelay = 200 * time.Millisecond
	executor := NewRetryExecutor(config, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	result := executor.ExecuteWithRetry(ctx, "fetch", func(_ context.Context) (any, error) {
		calls++
		return nil, entity.NewMarketError(valueobject.ErrorKindNetworkTransient, "7203.T", "connection reset", nil)
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls, "cancellation during backoff must prevent further attempts")
	assert.ErrorIs(t, result.FinalError, context.DeadlineExceeded)
}

func TestRetryExecutor_Do(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(2), nil)

	t.Run("returns the result on success", func(t *testing.T) {
		got, err := executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("re-returns the final error on failure", func(t *testing.T) {
		failure := entity.NotFoundError("7203.T", "possibly delisted")
		got, err := executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
			return nil, failure
		})
		assert.Nil(t, got)
		assert.Equal(t, failure, err)
	})
}

func TestRetryExecutor_Statistics(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(1), nil)

	_, _ = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		return "ok", nil
	})
	_, _ = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
		return nil, entity.NotFoundError("7203.T", "possibly delisted")
	})
	_, _ = executor.Do(context.Background(), "validate", func(_ context.Context) (any, error) {
		return "ok", nil
	})

	stats := executor.GetRetryStatistics()
	assert.Equal(t, 3, stats.TotalOperations)
	assert.Equal(t, 2, stats.SuccessfulOperations)
	assert.Equal(t, 1, stats.FailedOperations)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	assert.Equal(t, 1, stats.RecentFailures)

	fetch, ok := stats.Operations["fetch"]
	require.True(t, ok)
	assert.Equal(t, 2, fetch.TotalExecutions)
	assert.Equal(t, 1, fetch.Successful)
	assert.Equal(t, 1, fetch.Failed)
	assert.InDelta(t, 0.5, fetch.SuccessRate, 1e-9)

	executor.ResetStatistics()
	reset := executor.GetRetryStatistics()
	assert.Zero(t, reset.TotalOperations)
	assert.Empty(t, reset.Operations)
}

func TestRetryExecutor_HistoryRingIsBounded(t *testing.T) {
	config := fastRetryConfig(0)
	config.HistoryCapacity = 10
	executor := NewRetryExecutor(config, nil)

	for i := 0; i < 25; i++ {
		_, _ = executor.Do(context.Background(), "fetch", func(_ context.Context) (any, error) {
			return "ok", nil
		})
	}

	stats := executor.GetRetryStatistics()
	assert.Equal(t, 25, stats.TotalOperations, "totals keep counting past the ring capacity")
	assert.Equal(t, 10, stats.Operations["fetch"].TotalExecutions,
		"per-operation history is bounded by the ring capacity")
}

func TestRetryExecutor_ConfigureRetryPolicy(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(3), nil)

	t.Run("updates settings", func(t *testing.T) {
		err := executor.ConfigureRetryPolicy(7, 2*time.Millisecond, 20*time.Millisecond, "linear", 3*time.Millisecond)
		require.NoError(t, err)

		config := executor.Config()
		assert.Equal(t, 7, config.MaxRetries)
		assert.Equal(t, 2*time.Millisecond, config.BaseDelay)
		assert.Equal(t, 20*time.Millisecond, config.MaxDelay)
		assert.Equal(t, valueobject.RetryStrategyLinear, config.Strategy)
		assert.Equal(t, 3*time.Millisecond, config.RateLimitDelay)
	})

	t.Run("zero values leave settings unchanged", func(t *testing.T) {
		before := executor.Config()
		require.NoError(t, executor.ConfigureRetryPolicy(0, 0, 0, "", 0))
		assert.Equal(t, before, executor.Config())
	})

	t.Run("rejects unknown strategies", func(t *testing.T) {
		err := executor.ConfigureRetryPolicy(0, 0, 0, "fibonacci", 0)
		assert.Error(t, err)
	})
}

func TestRetryExecutor_UntypedErrorsClassifyByMessage(t *testing.T) {
	executor := NewRetryExecutor(fastRetryConfig(2), nil)

	calls := 0
	result := executor.ExecuteWithRetry(context.Background(), "fetch", func(_ context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return "ok", nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 2, calls, "message-classified transient errors must still retry")
}
