package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"stocknotifier/internal/domain/valueobject"
)

// Config holds the complete application configuration.
type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider"`
	Screening  ScreeningConfig  `mapstructure:"screening"`
	Rotation   RotationConfig   `mapstructure:"rotation"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Listing    ListingConfig    `mapstructure:"listing"`
	Export     ExportConfig     `mapstructure:"export"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Log        LogConfig        `mapstructure:"log"`
}

// ProviderConfig holds market-data provider configuration.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScreeningConfig holds value-screening thresholds.
type ScreeningConfig struct {
	CriteriaFile     string  `mapstructure:"criteria_file"`
	MaxPER           float64 `mapstructure:"max_per"`
	MaxPBR           float64 `mapstructure:"max_pbr"`
	MinDividendYield float64 `mapstructure:"min_dividend_yield"`
	MinGrowthYears   int     `mapstructure:"min_growth_years"`
	MaxPERVolatility float64 `mapstructure:"max_per_volatility"`
}

// RotationConfig holds symbol-rotation configuration.
type RotationConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	TotalGroups int  `mapstructure:"total_groups"`
}

// ProcessingConfig holds continuation-engine configuration.
type ProcessingConfig struct {
	Mode                 string  `mapstructure:"mode"`
	EnableRetries        bool    `mapstructure:"enable_retries"`
	MaxConsecutiveErrors int     `mapstructure:"max_consecutive_errors"`
	MaxErrorRate         float64 `mapstructure:"max_error_rate"`
	MaxConcurrency       int     `mapstructure:"max_concurrency"`
}

// HandlingMode parses the configured mode tag.
func (c ProcessingConfig) HandlingMode() (valueobject.HandlingMode, error) {
	return valueobject.NewHandlingMode(c.Mode)
}

// RetryConfig holds retry-policy configuration.
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	BaseDelay         time.Duration `mapstructure:"base_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	Strategy          string        `mapstructure:"strategy"`
	JitterEnabled     bool          `mapstructure:"jitter_enabled"`
	RateLimitDelay    time.Duration `mapstructure:"rate_limit_delay"`
	RateLimitMaxDelay time.Duration `mapstructure:"rate_limit_max_delay"`
}

// ListingConfig holds exchange listing configuration.
type ListingConfig struct {
	WorkbookPath string   `mapstructure:"workbook_path"`
	SheetName    string   `mapstructure:"sheet_name"`
	Markets      []string `mapstructure:"markets"`
}

// ExportConfig holds CSV export configuration.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
	IconEmoji  string `mapstructure:"icon_emoji"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// RedisConfig holds quote-cache configuration.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) (*Config, error) {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if _, err := c.Processing.HandlingMode(); err != nil {
		return fmt.Errorf("processing.mode: %w", err)
	}

	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries cannot be negative")
	}
	if c.Processing.MaxErrorRate < 0 || c.Processing.MaxErrorRate > 1 {
		return errors.New("processing.max_error_rate must be within [0, 1]")
	}
	if c.Rotation.TotalGroups < 1 {
		return errors.New("rotation.total_groups must be at least 1")
	}

	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		return errors.New("slack.webhook_url is required when slack is enabled")
	}
	if c.Database.Enabled {
		if c.Database.User == "" {
			return errors.New("database.user is required when database is enabled")
		}
		if c.Database.Name == "" {
			return errors.New("database.name is required when database is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return errors.New("database.port must be between 1 and 65535")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	return nil
}
