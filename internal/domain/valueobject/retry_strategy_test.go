package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryStrategy(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected RetryStrategy
		wantErr  bool
	}{
		{"exponential", "exponential", RetryStrategyExponential, false},
		{"exponential_backoff alias", "exponential_backoff", RetryStrategyExponential, false},
		{"linear", "linear", RetryStrategyLinear, false},
		{"linear_backoff alias", "linear_backoff", RetryStrategyLinear, false},
		{"fixed", "fixed", RetryStrategyFixed, false},
		{"fixed_delay alias", "fixed_delay", RetryStrategyFixed, false},
		{"immediate", "immediate", RetryStrategyImmediate, false},
		{"parsing is case-insensitive", "Exponential", RetryStrategyExponential, false},
		{"unknown strategy is rejected", "fibonacci", RetryStrategyExponential, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := NewRetryStrategy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, strategy)
		})
	}
}

func TestRetryStrategy_String(t *testing.T) {
	assert.Equal(t, "exponential", RetryStrategyExponential.String())
	assert.Equal(t, "linear", RetryStrategyLinear.String())
	assert.Equal(t, "fixed", RetryStrategyFixed.String())
	assert.Equal(t, "immediate", RetryStrategyImmediate.String())
	assert.Equal(t, "exponential", RetryStrategy(42).String())
}
