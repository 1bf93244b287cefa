package valueobject

import (
	"fmt"
	"strings"
)

// RetryStrategy selects how retry delays grow between attempts.
type RetryStrategy int

const (
	RetryStrategyExponential RetryStrategy = iota
	RetryStrategyLinear
	RetryStrategyFixed
	RetryStrategyImmediate
)

// NewRetryStrategy parses a retry strategy from its configuration tag.
func NewRetryStrategy(strategy string) (RetryStrategy, error) {
	switch strings.ToLower(strategy) {
	case "exponential", "exponential_backoff":
		return RetryStrategyExponential, nil
	case "linear", "linear_backoff":
		return RetryStrategyLinear, nil
	case "fixed", "fixed_delay":
		return RetryStrategyFixed, nil
	case "immediate":
		return RetryStrategyImmediate, nil
	default:
		return RetryStrategyExponential, fmt.Errorf("invalid retry strategy: %q", strategy)
	}
}

// String returns the string representation of the strategy.
func (rs RetryStrategy) String() string {
	switch rs {
	case RetryStrategyExponential:
		return "exponential"
	case RetryStrategyLinear:
		return "linear"
	case RetryStrategyFixed:
		return "fixed"
	case RetryStrategyImmediate:
		return "immediate"
	default:
		return "exponential"
	}
}
