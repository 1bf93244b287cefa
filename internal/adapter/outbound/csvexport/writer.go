// Package csvexport implements the ReportWriter port with local CSV files.
package csvexport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

const historyFilename = "screening_history.csv"

var resultHeaders = []string{
	"symbol",
	"name",
	"price",
	"per",
	"pbr",
	"dividend_yield",
	"dividend_growth_years",
	"revenue_growth_years",
	"profit_growth_years",
	"per_stability",
	"score",
}

// Writer exports screening results as CSV files under an output directory:
// one timestamped results file per run plus a long-running history file with
// a leading run-date column.
type Writer struct {
	outputDir string
}

// NewWriter creates a CSV report writer, creating the output directory if
// needed.
func NewWriter(outputDir string) (*Writer, error) {
	if outputDir == "" {
		return nil, errors.New("csvexport: output directory cannot be empty")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("csvexport: create output directory: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

var _ outbound.ReportWriter = (*Writer)(nil)

// WriteResults writes the full results report for one run and returns its path.
func (w *Writer) WriteResults(ctx context.Context, stocks []entity.ValueStock, runDate time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("value_stocks_%s.csv", runDate.Format("20060102")))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("csvexport: create results file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(resultHeaders); err != nil {
		return "", fmt.Errorf("csvexport: write header: %w", err)
	}
	for _, stock := range stocks {
		if err := cw.Write(stockRow(stock)); err != nil {
			return "", fmt.Errorf("csvexport: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("csvexport: flush results file: %w", err)
	}
	return path, nil
}

// AppendHistory appends per-candidate rows to the history file, writing the
// header when the file is new.
func (w *Writer) AppendHistory(ctx context.Context, stocks []entity.ValueStock, runDate time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(w.outputDir, historyFilename)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("csvexport: open history file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if isNew {
		if err := cw.Write(append([]string{"run_date"}, resultHeaders...)); err != nil {
			return fmt.Errorf("csvexport: write history header: %w", err)
		}
	}
	for _, stock := range stocks {
		row := append([]string{runDate.Format("2006-01-02")}, stockRow(stock)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csvexport: write history row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvexport: flush history file: %w", err)
	}
	return nil
}

func stockRow(stock entity.ValueStock) []string {
	return []string{
		stock.Symbol,
		stock.Name,
		formatFloat(stock.Price),
		formatFloat(stock.PER),
		formatFloat(stock.PBR),
		formatFloat(stock.DividendYield),
		strconv.Itoa(stock.DividendGrowthYears),
		strconv.Itoa(stock.RevenueGrowthYears),
		strconv.Itoa(stock.ProfitGrowthYears),
		formatFloat(stock.PERStability),
		formatFloat(stock.Score),
	}
}

// formatFloat renders metric values, leaving non-finite ones blank.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
