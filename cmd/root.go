// Package cmd provides command-line interface functionality for the stocknotifier application.
/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stocknotifier/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stocknotifier",
	Short: "A resilient value-stock screening and notification system",
	Long: `Stocknotifier fetches per-symbol financial data from a market-data
provider, screens the results against value-investing criteria, exports CSV
reports, and delivers Slack notifications.

Retrieval is built around a resilient continuation engine:
- Typed error classification (severity, action, retryability)
- Exponential-backoff retries with a dedicated rate-limit schedule
- Mode-driven continuation (strict, tolerant, debug) across each batch
- Circuit breaking on consecutive errors and trailing error rate`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")
	rootCmd.PersistentFlags().String("mode", "", "Error handling mode (strict, tolerant, debug)")

	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
	}
	if err := viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-format flag: %v\n", err)
	}
	if err := viper.BindPFlag("processing.mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding mode flag: %v\n", err)
	}
}

func initConfig() {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("STOCKNOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found; use defaults and environment
	}

	loaded, err := config.New(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded
}

func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("provider.base_url", "https://marketdata.example.com")
	v.SetDefault("provider.request_timeout", "30s")

	// Screening defaults
	v.SetDefault("screening.max_per", 15.0)
	v.SetDefault("screening.max_pbr", 1.5)
	v.SetDefault("screening.min_dividend_yield", 2.0)
	v.SetDefault("screening.min_growth_years", 3)
	v.SetDefault("screening.max_per_volatility", 30.0)

	// Rotation defaults
	v.SetDefault("rotation.enabled", false)
	v.SetDefault("rotation.total_groups", 5)

	// Processing defaults
	v.SetDefault("processing.mode", "tolerant")
	v.SetDefault("processing.enable_retries", true)
	v.SetDefault("processing.max_concurrency", 1)

	// Retry defaults
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "60s")
	v.SetDefault("retry.strategy", "exponential")
	v.SetDefault("retry.jitter_enabled", true)
	v.SetDefault("retry.rate_limit_delay", "60s")
	v.SetDefault("retry.rate_limit_max_delay", "300s")

	// Listing defaults
	v.SetDefault("listing.workbook_path", "./data/listed_issues.xlsx")

	// Export defaults
	v.SetDefault("export.output_dir", "./output")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "stocknotifier")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 10)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl", "24h")

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
