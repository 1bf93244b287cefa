/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stocknotifier/internal/adapter/outbound/csvexport"
	"stocknotifier/internal/adapter/outbound/exchangelist"
	"stocknotifier/internal/adapter/outbound/marketdata"
	"stocknotifier/internal/adapter/outbound/messaging"
	"stocknotifier/internal/adapter/outbound/postgres"
	"stocknotifier/internal/adapter/outbound/rediscache"
	"stocknotifier/internal/adapter/outbound/slack"
	"stocknotifier/internal/application/common/logging"
	"stocknotifier/internal/application/common/slogger"
	"stocknotifier/internal/application/service"
	"stocknotifier/internal/port/outbound"
)

// newScreenCmd creates and returns the screen command.
func newScreenCmd() *cobra.Command {
	var (
		dateFlag    string
		timeoutFlag time.Duration
	)

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Run the daily value screening",
		Long: `Run one full screening pass: load the listed-issue universe, select
the rotation group for the day, fetch per-symbol financial data with retries
and mode-driven continuation, screen the results against value criteria,
export CSV reports and deliver notifications.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runDate := time.Now()
			if dateFlag != "" {
				parsed, err := time.Parse("2006-01-02", dateFlag)
				if err != nil {
					return fmt.Errorf("invalid --date value %q: %w", dateFlag, err)
				}
				runDate = parsed
			}
			return runScreening(cmd.Context(), runDate, timeoutFlag)
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Run date (YYYY-MM-DD, default: today)")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Hour, "Batch deadline for the whole run")
	return cmd
}

func runScreening(parent context.Context, runDate time.Time, timeout time.Duration) error {
	logger, err := logging.NewApplicationLogger(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	slogger.SetGlobalLogger(logger)

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workflow, cleanup, err := buildWorkflow(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, candidates, err := workflow.RunDailyScreening(ctx, runDate)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Screening run finished", logging.Fields{
		"state":      result.State.String(),
		"processed":  result.ProcessedCount,
		"skipped":    result.SkippedCount,
		"errors":     result.ErrorCount,
		"candidates": len(candidates),
	})
	if !result.Success {
		return fmt.Errorf("screening run ended in state %s with %d errors",
			result.State, result.ErrorCount)
	}
	return nil
}

// buildWorkflow wires the adapters and services from configuration. Optional
// integrations (Slack, database, Redis, NATS) are skipped unless enabled.
func buildWorkflow(
	ctx context.Context,
	logger logging.ApplicationLogger,
) (*service.WorkflowService, func(), error) {
	noop := func() {}

	mode, err := cfg.Processing.HandlingMode()
	if err != nil {
		return nil, noop, err
	}
	thresholds := service.ThresholdsFor(mode)

	classifier := service.NewErrorClassifier(
		service.WithNotFoundAsWarning(thresholds.NotFoundAsWarning),
	)

	retryConfig := service.DefaultRetryConfig()
	retryConfig.MaxRetries = thresholds.RetryMax
	if cfg.Retry.MaxRetries > 0 {
		retryConfig.MaxRetries = cfg.Retry.MaxRetries
	}
	if cfg.Retry.BaseDelay > 0 {
		retryConfig.BaseDelay = cfg.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay > 0 {
		retryConfig.MaxDelay = cfg.Retry.MaxDelay
	}
	if cfg.Retry.RateLimitDelay > 0 {
		retryConfig.RateLimitDelay = cfg.Retry.RateLimitDelay
	}
	if cfg.Retry.RateLimitMaxDelay > 0 {
		retryConfig.RateLimitMaxDelay = cfg.Retry.RateLimitMaxDelay
	}
	retryConfig.JitterEnabled = cfg.Retry.JitterEnabled

	executor := service.NewRetryExecutor(retryConfig, classifier)
	if retryMetrics, err := service.NewRetryMetrics("stocknotifier"); err == nil {
		executor.SetMetrics(retryMetrics)
	}

	errorMetrics, err := service.NewErrorMetrics("stocknotifier")
	if err != nil {
		return nil, noop, fmt.Errorf("initialize error metrics: %w", err)
	}

	engine := service.NewContinuationEngine(service.ProcessingConfig{
		Mode:                 mode,
		EnableRetries:        cfg.Processing.EnableRetries,
		MaxConsecutiveErrors: cfg.Processing.MaxConsecutiveErrors,
		MaxErrorRate:         cfg.Processing.MaxErrorRate,
		MaxConcurrency:       cfg.Processing.MaxConcurrency,
	}, classifier, executor, errorMetrics, logger)

	criteria, err := loadCriteria()
	if err != nil {
		return nil, noop, err
	}
	screening := service.NewScreeningService(criteria)
	rotation := service.NewRotationService(service.RotationConfig{
		Enabled:     cfg.Rotation.Enabled,
		TotalGroups: cfg.Rotation.TotalGroups,
	}, logger)

	source, err := marketdata.NewClient(marketdata.Config{
		BaseURL:        cfg.Provider.BaseURL,
		APIKey:         cfg.Provider.APIKey,
		RequestTimeout: cfg.Provider.RequestTimeout,
	})
	if err != nil {
		return nil, noop, err
	}

	listing, err := exchangelist.NewProvider(exchangelist.Config{
		WorkbookPath: cfg.Listing.WorkbookPath,
		SheetName:    cfg.Listing.SheetName,
	})
	if err != nil {
		return nil, noop, err
	}

	reports, err := csvexport.NewWriter(cfg.Export.OutputDir)
	if err != nil {
		return nil, noop, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var notifier outbound.Notifier
	if cfg.Slack.Enabled {
		slackNotifier, err := slack.NewNotifier(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Username:   cfg.Slack.Username,
			IconEmoji:  cfg.Slack.IconEmoji,
		})
		if err != nil {
			return nil, cleanup, err
		}
		notifier = slackNotifier
	}

	var cache outbound.QuoteCache
	if cfg.Redis.Enabled {
		redisCache, err := rediscache.NewQuoteCache(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = redisCache.Close() })
		cache = redisCache
	}

	var runs outbound.RunRepository
	if cfg.Database.Enabled {
		pool, err := postgres.NewDatabaseConnection(postgres.DatabaseConfig{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			Database:       cfg.Database.Name,
			Username:       cfg.Database.User,
			Password:       cfg.Database.Password,
			MaxConnections: cfg.Database.MaxConnections,
			SSLMode:        cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)

		repository, err := postgres.NewRunRepository(pool)
		if err != nil {
			return nil, cleanup, err
		}
		runs = repository
	}

	var events outbound.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err := messaging.NewNATSEventPublisher(messaging.Config{
			URL:           cfg.NATS.URL,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
		})
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = publisher.Close() })
		events = publisher
	}

	alerting, err := service.NewAlertingService(mode, notifier, events, logger)
	if err != nil {
		return nil, cleanup, err
	}

	workflow, err := service.NewWorkflowService(
		service.WorkflowConfig{
			Markets:  cfg.Listing.Markets,
			CacheTTL: cfg.Redis.TTL,
		},
		listing, source, cache, engine, screening, rotation,
		reports, notifier, runs, events, alerting, logger,
	)
	if err != nil {
		return nil, cleanup, err
	}
	return workflow, cleanup, nil
}

// loadCriteria merges configured thresholds over defaults, with an optional
// criteria file taking precedence.
func loadCriteria() (service.ScreeningCriteria, error) {
	if cfg.Screening.CriteriaFile != "" {
		return service.LoadScreeningCriteria(cfg.Screening.CriteriaFile)
	}

	criteria := service.DefaultScreeningCriteria()
	if cfg.Screening.MaxPER > 0 {
		criteria.MaxPER = cfg.Screening.MaxPER
	}
	if cfg.Screening.MaxPBR > 0 {
		criteria.MaxPBR = cfg.Screening.MaxPBR
	}
	if cfg.Screening.MinDividendYield > 0 {
		criteria.MinDividendYield = cfg.Screening.MinDividendYield
	}
	if cfg.Screening.MinGrowthYears > 0 {
		criteria.MinGrowthYears = cfg.Screening.MinGrowthYears
	}
	if cfg.Screening.MaxPERVolatility > 0 {
		criteria.MaxPERVolatility = cfg.Screening.MaxPERVolatility
	}
	return criteria, criteria.Validate()
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newScreenCmd())
}
