/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stocknotifier/internal/adapter/outbound/exchangelist"
	"stocknotifier/internal/application/common/logging"
	"stocknotifier/internal/application/service"
)

// newRotationCmd creates and returns the rotation command.
func newRotationCmd() *cobra.Command {
	var (
		dateFlag string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "rotation",
		Short: "Show the rotation schedule and today's group",
		Long: `Show which rotation group is scheduled for a date, and optionally
validate that the configured symbol universe splits evenly across groups.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := time.Now()
			if dateFlag != "" {
				parsed, err := time.Parse("2006-01-02", dateFlag)
				if err != nil {
					return fmt.Errorf("invalid --date value %q: %w", dateFlag, err)
				}
				date = parsed
			}
			return runRotationInfo(cmd.Context(), cmd, date, validate)
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Date to inspect (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate group distribution against the listing workbook")
	return cmd
}

func runRotationInfo(ctx context.Context, cmd *cobra.Command, date time.Time, validate bool) error {
	logger, err := logging.NewApplicationLogger(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	rotation := service.NewRotationService(service.RotationConfig{
		Enabled:     cfg.Rotation.Enabled,
		TotalGroups: cfg.Rotation.TotalGroups,
	}, logger)

	info := rotation.GroupInfoFor(date)
	if err := printJSON(cmd, info); err != nil {
		return err
	}
	if !validate {
		return nil
	}

	listing, err := exchangelist.NewProvider(exchangelist.Config{
		WorkbookPath: cfg.Listing.WorkbookPath,
		SheetName:    cfg.Listing.SheetName,
	})
	if err != nil {
		return err
	}
	symbols, err := listing.TradableSymbols(ctx, cfg.Listing.Markets)
	if err != nil {
		return fmt.Errorf("load symbol universe: %w", err)
	}

	result := rotation.ValidateSetup(symbols)
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("rotation validation failed: %s", result.Error)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newRotationCmd())
}
