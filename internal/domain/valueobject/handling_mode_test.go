package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlingMode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected HandlingMode
		wantErr  bool
	}{
		{"strict", "strict", ModeStrict(), false},
		{"tolerant", "tolerant", ModeTolerant(), false},
		{"debug", "debug", ModeDebug(), false},
		{"parsing is case-insensitive", "STRICT", ModeStrict(), false},
		{"empty is rejected", "", HandlingMode{}, true},
		{"unknown tag is rejected", "lenient", HandlingMode{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := NewHandlingMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestHandlingMode_Predicates(t *testing.T) {
	assert.True(t, ModeStrict().IsStrict())
	assert.True(t, ModeTolerant().IsTolerant())
	assert.True(t, ModeDebug().IsDebug())
	assert.False(t, ModeStrict().IsTolerant())

	assert.True(t, HandlingMode{}.IsZero())
	assert.False(t, ModeStrict().IsZero())
}

func TestHandlingMode_JSON(t *testing.T) {
	data, err := json.Marshal(ModeTolerant())
	require.NoError(t, err)
	assert.JSONEq(t, `"tolerant"`, string(data))

	var mode HandlingMode
	require.NoError(t, json.Unmarshal([]byte(`"debug"`), &mode))
	assert.True(t, mode.IsDebug())

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &mode))
}
