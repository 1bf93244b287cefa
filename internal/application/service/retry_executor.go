package service

import (
	"context"
	"sync"
	"time"

	"stocknotifier/internal/application/common/slogger"
	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
)

const (
	defaultRetryHistoryCapacity = 1000
	recentFailureWindow         = time.Hour
)

// Operation is any retryable unit of work. The executor inspects only the
// returned error's kind, never the payload.
type Operation func(ctx context.Context) (any, error)

// RetryAttempt records one failed attempt and the delay taken before the next.
type RetryAttempt struct {
	AttemptNumber int           `json:"attempt_number"`
	Delay         time.Duration `json:"delay"`
	Err           error         `json:"-"`
	Timestamp     time.Time     `json:"timestamp"`
	Elapsed       time.Duration `json:"elapsed"`
}

// RetryResult is the outcome of one retried operation, immutable once produced.
type RetryResult struct {
	Success       bool
	Result        any
	FinalError    error
	Attempts      []RetryAttempt
	TotalAttempts int
	TotalElapsed  time.Duration
	FinishedAt    time.Time
}

// RetryStatistics summarizes executor activity since the last reset.
type RetryStatistics struct {
	TotalOperations      int                           `json:"total_operations"`
	SuccessfulOperations int                           `json:"successful_operations"`
	FailedOperations     int                           `json:"failed_operations"`
	SuccessRate          float64                       `json:"success_rate"`
	RecentFailures       int                           `json:"recent_failures"`
	Operations           map[string]OperationRetryStat `json:"operations"`
}

// OperationRetryStat summarizes retry behavior for one operation name.
type OperationRetryStat struct {
	TotalExecutions int           `json:"total_executions"`
	Successful      int           `json:"successful"`
	Failed          int           `json:"failed"`
	SuccessRate     float64       `json:"success_rate"`
	AverageAttempts float64       `json:"average_attempts"`
	AverageElapsed  time.Duration `json:"average_elapsed"`
	RetryRate       float64       `json:"retry_rate"`
}

// retryResultRing is a fixed-capacity ring of retry results per operation name.
type retryResultRing struct {
	results  []RetryResult
	capacity int
	size     int
	head     int
}

func newRetryResultRing(capacity int) *retryResultRing {
	return &retryResultRing{results: make([]RetryResult, capacity), capacity: capacity}
}

func (r *retryResultRing) add(result RetryResult) {
	r.results[r.head] = result
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

func (r *retryResultRing) all() []RetryResult {
	out := make([]RetryResult, 0, r.size)
	start := (r.head - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		out = append(out, r.results[(start+i)%r.capacity])
	}
	return out
}

// RetryExecutor calls a single operation, consults the classifier for
// retryability and the backoff calculator for delays, and retries until
// success or exhaustion.
type RetryExecutor struct {
	mu         sync.RWMutex
	config     RetryConfig
	classifier *ErrorClassifier
	backoff    *BackoffCalculator
	otel       *RetryMetrics

	history    map[string]*retryResultRing
	totalOps   int
	successOps int
	failedOps  int
}

// NewRetryExecutor creates a retry executor.
func NewRetryExecutor(config RetryConfig, classifier *ErrorClassifier) *RetryExecutor {
	if classifier == nil {
		classifier = NewErrorClassifier()
	}
	if config.HistoryCapacity <= 0 {
		config.HistoryCapacity = defaultRetryHistoryCapacity
	}
	return &RetryExecutor{
		config:     config,
		classifier: classifier,
		backoff:    NewBackoffCalculator(config),
		history:    make(map[string]*retryResultRing),
	}
}

// SetMetrics attaches OpenTelemetry instruments to the executor.
func (r *RetryExecutor) SetMetrics(m *RetryMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.otel = m
}

// Config returns a copy of the current retry configuration.
func (r *RetryExecutor) Config() RetryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// ConfigureRetryPolicy updates retry settings at runtime. Zero values leave
// the corresponding setting unchanged.
func (r *RetryExecutor) ConfigureRetryPolicy(
	maxRetries int,
	baseDelay time.Duration,
	maxDelay time.Duration,
	strategy string,
	rateLimitDelay time.Duration,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	config := r.config
	if maxRetries > 0 {
		config.MaxRetries = maxRetries
	}
	if baseDelay > 0 {
		config.BaseDelay = baseDelay
	}
	if maxDelay > 0 {
		config.MaxDelay = maxDelay
	}
	if strategy != "" {
		parsed, err := valueobject.NewRetryStrategy(strategy)
		if err != nil {
			return err
		}
		config.Strategy = parsed
	}
	if rateLimitDelay > 0 {
		config.RateLimitDelay = rateLimitDelay
	}
	if err := config.Validate(); err != nil {
		return err
	}

	r.config = config
	r.backoff = NewBackoffCalculator(config)

	slogger.Info(context.Background(), "Retry policy updated", slogger.Fields3(
		"max_retries", config.MaxRetries,
		"base_delay", config.BaseDelay.String(),
		"strategy", config.Strategy.String(),
	))
	return nil
}

// ExecuteWithRetry runs an operation until success or exhaustion. The
// operation is invoked at most MaxRetries+1 times; a non-retryable failure
// short-circuits after a single attempt.
func (r *RetryExecutor) ExecuteWithRetry(ctx context.Context, name string, op Operation) RetryResult {
	r.mu.RLock()
	config := r.config
	backoff := r.backoff
	otel := r.otel
	r.mu.RUnlock()

	start := time.Now()
	var attempts []RetryAttempt
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			retryResult := RetryResult{
				Success:       true,
				Result:        result,
				Attempts:      attempts,
				TotalAttempts: attempt + 1,
				TotalElapsed:  time.Since(start),
				FinishedAt:    time.Now(),
			}
			r.record(name, retryResult)
			if otel != nil {
				otel.RecordRetrySuccess(ctx, attempt+1, retryResult.TotalElapsed, name)
			}
			if attempt > 0 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Fields2(
					"operation", name,
					"attempts", attempt+1,
				))
			}
			return retryResult
		}

		lastErr = err
		kind := entity.KindOf(err)
		classification := r.classifier.Classify(err)

		if otel != nil {
			otel.RecordRetryFailure(ctx, attempt+1, kind, name)
		}

		if !classification.Retryable || attempt == config.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := backoff.Delay(kind, attempt)
		attempts = append(attempts, RetryAttempt{
			AttemptNumber: attempt + 1,
			Delay:         delay,
			Err:           err,
			Timestamp:     time.Now(),
			Elapsed:       time.Since(start),
		})

		slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields3(
			"operation", name,
			"attempt", attempt+1,
			"delay", delay.String(),
		))
		if otel != nil {
			otel.RecordRetryDelay(ctx, delay, attempt+1, name)
		}

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(delay):
			continue
		}
		break
	}

	retryResult := RetryResult{
		Success:       false,
		FinalError:    lastErr,
		Attempts:      attempts,
		TotalAttempts: len(attempts) + 1,
		TotalElapsed:  time.Since(start),
		FinishedAt:    time.Now(),
	}
	r.record(name, retryResult)
	if otel != nil {
		otel.RecordRetryExhaustion(ctx, retryResult.TotalAttempts, retryResult.TotalElapsed, name)
	}

	slogger.ErrorWithError(ctx, lastErr, "Operation failed after retries", slogger.Fields2(
		"operation", name,
		"attempts", retryResult.TotalAttempts,
	))
	return retryResult
}

// Do is an adapter for call sites that are not retry-aware: it runs the
// operation with retries and re-returns the final error on failure.
func (r *RetryExecutor) Do(ctx context.Context, name string, op Operation) (any, error) {
	result := r.ExecuteWithRetry(ctx, name, op)
	if result.Success {
		return result.Result, nil
	}
	return nil, result.FinalError
}

func (r *RetryExecutor) record(name string, result RetryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalOps++
	if result.Success {
		r.successOps++
	} else {
		r.failedOps++
	}

	ring, ok := r.history[name]
	if !ok {
		ring = newRetryResultRing(r.config.HistoryCapacity)
		r.history[name] = ring
	}
	ring.add(result)
}

// GetRetryStatistics returns totals and per-operation retry statistics.
func (r *RetryExecutor) GetRetryStatistics() RetryStatistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RetryStatistics{
		TotalOperations:      r.totalOps,
		SuccessfulOperations: r.successOps,
		FailedOperations:     r.failedOps,
		Operations:           make(map[string]OperationRetryStat, len(r.history)),
	}
	if r.totalOps > 0 {
		stats.SuccessRate = float64(r.successOps) / float64(r.totalOps)
	}

	cutoff := time.Now().Add(-recentFailureWindow)
	for name, ring := range r.history {
		results := ring.all()
		if len(results) == 0 {
			continue
		}

		var successful, retried, totalAttempts int
		var totalElapsed time.Duration
		for _, res := range results {
			if res.Success {
				successful++
			} else if res.FinishedAt.After(cutoff) {
				stats.RecentFailures++
			}
			if res.TotalAttempts > 1 {
				retried++
			}
			totalAttempts += res.TotalAttempts
			totalElapsed += res.TotalElapsed
		}

		n := len(results)
		stats.Operations[name] = OperationRetryStat{
			TotalExecutions: n,
			Successful:      successful,
			Failed:          n - successful,
			SuccessRate:     float64(successful) / float64(n),
			AverageAttempts: float64(totalAttempts) / float64(n),
			AverageElapsed:  totalElapsed / time.Duration(n),
			RetryRate:       float64(retried) / float64(n),
		}
	}
	return stats
}

// ResetStatistics clears all retry history and counters.
func (r *RetryExecutor) ResetStatistics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = make(map[string]*retryResultRing)
	r.totalOps = 0
	r.successOps = 0
	r.failedOps = 0
}
