package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessingAction(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		wantErr bool
	}{
		{"stop_all", "stop_all", false},
		{"stop_batch", "stop_batch", false},
		{"skip_item", "skip_item", false},
		{"continue", "continue", false},
		{"retry", "retry", false},
		{"empty is rejected", "", true},
		{"unknown action is rejected", "abort", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := NewProcessingAction(tt.action)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, action.String())
		})
	}
}

func TestProcessingAction_Halts(t *testing.T) {
	assert.True(t, ActionStopAll().Halts())
	assert.True(t, ActionStopBatch().Halts())
	assert.False(t, ActionSkipItem().Halts())
	assert.False(t, ActionContinue().Halts())
	assert.False(t, ActionRetry().Halts())

	assert.True(t, ActionStopAll().IsStopAll())
	assert.True(t, ActionStopBatch().IsStopBatch())
	assert.True(t, ActionRetry().Equals(ActionRetry()))
	assert.False(t, ActionRetry().Equals(ActionContinue()))
}
