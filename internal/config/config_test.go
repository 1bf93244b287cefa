package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() map[string]any {
	return map[string]any{
		"provider": map[string]any{
			"base_url":        "https://marketdata.example.com",
			"api_key":         "test-key",
			"request_timeout": "30s",
		},
		"processing": map[string]any{
			"mode":           "tolerant",
			"max_error_rate": 0.3,
		},
		"rotation": map[string]any{
			"enabled":      true,
			"total_groups": 5,
		},
		"retry": map[string]any{
			"max_retries": 5,
			"base_delay":  "1s",
		},
	}
}

func newViper(t *testing.T, settings map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, v.MergeConfigMap(settings))
	return v
}

func TestNew(t *testing.T) {
	cfg, err := New(newViper(t, validSettings()))

	require.NoError(t, err)
	assert.Equal(t, "https://marketdata.example.com", cfg.Provider.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Provider.RequestTimeout)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)

	mode, err := cfg.Processing.HandlingMode()
	require.NoError(t, err)
	assert.True(t, mode.IsTolerant())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantErr string
	}{
		{
			name:    "missing provider base URL",
			mutate:  func(s map[string]any) { s["provider"].(map[string]any)["base_url"] = "" },
			wantErr: "provider.base_url",
		},
		{
			name:    "invalid processing mode",
			mutate:  func(s map[string]any) { s["processing"].(map[string]any)["mode"] = "lenient" },
			wantErr: "processing.mode",
		},
		{
			name:    "negative max retries",
			mutate:  func(s map[string]any) { s["retry"].(map[string]any)["max_retries"] = -1 },
			wantErr: "retry.max_retries",
		},
		{
			name:    "error rate above one",
			mutate:  func(s map[string]any) { s["processing"].(map[string]any)["max_error_rate"] = 1.5 },
			wantErr: "processing.max_error_rate",
		},
		{
			name:    "rotation needs at least one group",
			mutate:  func(s map[string]any) { s["rotation"].(map[string]any)["total_groups"] = 0 },
			wantErr: "rotation.total_groups",
		},
		{
			name:    "slack enabled without webhook",
			mutate:  func(s map[string]any) { s["slack"] = map[string]any{"enabled": true} },
			wantErr: "slack.webhook_url",
		},
		{
			name: "database enabled without user",
			mutate: func(s map[string]any) {
				s["database"] = map[string]any{"enabled": true, "name": "stocks", "port": 5432}
			},
			wantErr: "database.user",
		},
		{
			name: "database enabled without name",
			mutate: func(s map[string]any) {
				s["database"] = map[string]any{"enabled": true, "user": "app", "port": 5432}
			},
			wantErr: "database.name",
		},
		{
			name: "database port out of range",
			mutate: func(s map[string]any) {
				s["database"] = map[string]any{"enabled": true, "user": "app", "name": "stocks", "port": 70000}
			},
			wantErr: "database.port",
		},
		{
			name:    "redis enabled without addr",
			mutate:  func(s map[string]any) { s["redis"] = map[string]any{"enabled": true} },
			wantErr: "redis.addr",
		},
		{
			name:    "nats enabled without url",
			mutate:  func(s map[string]any) { s["nats"] = map[string]any{"enabled": true} },
			wantErr: "nats.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := validSettings()
			tt.mutate(settings)

			_, err := New(newViper(t, settings))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_OptionalBackendsDisabled(t *testing.T) {
	settings := validSettings()
	settings["slack"] = map[string]any{"enabled": false}
	settings["database"] = map[string]any{"enabled": false}
	settings["redis"] = map[string]any{"enabled": false}
	settings["nats"] = map[string]any{"enabled": false}

	_, err := New(newViper(t, settings))
	assert.NoError(t, err)
}
