package service

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"stocknotifier/internal/domain/valueobject"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries      int                       `json:"max_retries"`
	BaseDelay       time.Duration             `json:"base_delay"`
	MaxDelay        time.Duration             `json:"max_delay"`
	ExponentialBase float64                   `json:"exponential_base"`
	JitterEnabled   bool                      `json:"jitter_enabled"`
	JitterRange     float64                   `json:"jitter_range"` // fraction of delay, e.g. 0.1 for ±10%
	Strategy        valueobject.RetryStrategy `json:"strategy"`

	// Rate-limited failures back off on their own schedule, independent of
	// the configured strategy.
	RateLimitDelay    time.Duration `json:"rate_limit_delay"`
	RateLimitMaxDelay time.Duration `json:"rate_limit_max_delay"`

	// HistoryCapacity bounds the per-operation retry-result ring buffer.
	HistoryCapacity int `json:"history_capacity"`
}

// DefaultRetryConfig returns the retry configuration used for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		ExponentialBase:   2.0,
		JitterEnabled:     true,
		JitterRange:       0.1,
		Strategy:          valueobject.RetryStrategyExponential,
		RateLimitDelay:    60 * time.Second,
		RateLimitMaxDelay: 300 * time.Second,
		HistoryCapacity:   defaultRetryHistoryCapacity,
	}
}

// Validate checks retry configuration invariants.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("retry config: max retries cannot be negative")
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 {
		return errors.New("retry config: delays cannot be negative")
	}
	if c.ExponentialBase < 1 {
		return errors.New("retry config: exponential base must be >= 1")
	}
	if c.JitterRange < 0 || c.JitterRange > 1 {
		return errors.New("retry config: jitter range must be within [0, 1]")
	}
	return nil
}

// BackoffCalculator computes retry delays from the attempt number and the
// failed error's kind. It is pure apart from jitter.
type BackoffCalculator struct {
	config RetryConfig
}

// NewBackoffCalculator creates a backoff calculator for the given config.
func NewBackoffCalculator(config RetryConfig) *BackoffCalculator {
	return &BackoffCalculator{config: config}
}

// Delay returns the suspension before retrying attempt (0-indexed) after a
// failure of the given kind. Rate-limited failures use the dedicated
// rate-limit schedule; everything else follows the configured strategy,
// capped at MaxDelay, with optional uniform jitter floored at zero.
func (b *BackoffCalculator) Delay(kind valueobject.ErrorKind, attempt int) time.Duration {
	var delay time.Duration

	if kind == valueobject.ErrorKindRateLimited {
		delay = time.Duration(float64(b.config.RateLimitDelay) *
			math.Pow(b.config.ExponentialBase, float64(attempt)))
		if b.config.RateLimitMaxDelay > 0 && delay > b.config.RateLimitMaxDelay {
			delay = b.config.RateLimitMaxDelay
		}
	} else {
		switch b.config.Strategy {
		case valueobject.RetryStrategyExponential:
			delay = time.Duration(float64(b.config.BaseDelay) *
				math.Pow(b.config.ExponentialBase, float64(attempt)))
		case valueobject.RetryStrategyLinear:
			delay = time.Duration(int64(b.config.BaseDelay) * int64(attempt+1))
		case valueobject.RetryStrategyFixed:
			delay = b.config.BaseDelay
		case valueobject.RetryStrategyImmediate:
			delay = 0
		}
		if b.config.MaxDelay > 0 && delay > b.config.MaxDelay {
			delay = b.config.MaxDelay
		}
	}

	if b.config.JitterEnabled && delay > 0 {
		jitterAmount := float64(delay) * b.config.JitterRange
		jitter := (rand.Float64()*2 - 1) * jitterAmount //nolint:gosec // non-cryptographic retry jitter
		delay += time.Duration(jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}
