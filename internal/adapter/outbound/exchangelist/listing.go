// Package exchangelist implements the ListingProvider port by reading the
// exchange's listed-issues workbook.
package exchangelist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

const symbolSuffix = ".T"

// Workbook column headers.
const (
	colCode     = "code"
	colName     = "name"
	colCategory = "category"
	colSector   = "sector"
)

// excludedCategories are investment products, not common stocks.
var excludedCategories = []string{
	"etf",
	"reit",
	"fund",
	"infrastructure fund",
	"preferred",
}

// Config configures the listing provider.
type Config struct {
	WorkbookPath string
	SheetName    string
}

// Provider loads the exchange's listed-issues workbook and yields the
// tradable common-stock universe with suffixed symbol codes.
type Provider struct {
	config Config
}

// NewProvider creates a listing provider.
func NewProvider(config Config) (*Provider, error) {
	if config.WorkbookPath == "" {
		return nil, errors.New("exchangelist: workbook path cannot be empty")
	}
	return &Provider{config: config}, nil
}

var _ outbound.ListingProvider = (*Provider)(nil)

// LoadListedIssues loads every row of the listed-issues workbook.
func (p *Provider) LoadListedIssues(ctx context.Context) ([]entity.ListedIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workbook, err := excelize.OpenFile(p.config.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("exchangelist: open workbook: %w", err)
	}
	defer workbook.Close()

	sheet := p.config.SheetName
	if sheet == "" {
		sheet = workbook.GetSheetName(0)
	}
	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("exchangelist: read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("exchangelist: sheet %q has no data rows", sheet)
	}

	columns, err := columnIndexes(rows[0])
	if err != nil {
		return nil, err
	}

	var issues []entity.ListedIssue
	for _, row := range rows[1:] {
		issue := entity.ListedIssue{
			Code:     cell(row, columns[colCode]),
			Name:     cell(row, columns[colName]),
			Market:   cell(row, columns[colCategory]),
			Sector:   cell(row, columns[colSector]),
			Category: cell(row, columns[colCategory]),
		}
		if issue.Code == "" || issue.Name == "" || issue.Category == "" {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// TradableSymbols returns suffixed symbol codes for tradable common stocks
// on the target markets, excluding ETF, REIT and fund products.
func (p *Provider) TradableSymbols(ctx context.Context, markets []string) ([]string, error) {
	issues, err := p.LoadListedIssues(ctx)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]struct{}, len(markets))
	for _, market := range markets {
		targets[strings.ToLower(market)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var symbols []string
	for _, issue := range issues {
		if isInvestmentProduct(issue.Category) {
			continue
		}
		if len(targets) > 0 {
			if _, ok := targets[strings.ToLower(issue.Category)]; !ok {
				continue
			}
		}
		if !isCommonStockCode(issue.Code) {
			continue
		}

		symbol := issue.Code + symbolSuffix
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)
	return symbols, nil
}

// columnIndexes locates required header columns, case-insensitively.
func columnIndexes(header []string) (map[string]int, error) {
	indexes := map[string]int{colCode: -1, colName: -1, colCategory: -1, colSector: -1}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, required := indexes[key]; required {
			indexes[key] = i
		}
	}
	for _, col := range []string{colCode, colName, colCategory} {
		if indexes[col] < 0 {
			return nil, fmt.Errorf("exchangelist: missing required column %q", col)
		}
	}
	return indexes, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isInvestmentProduct matches ETF, REIT and fund product categories.
func isInvestmentProduct(category string) bool {
	lowered := strings.ToLower(category)
	for _, excluded := range excludedCategories {
		if strings.Contains(lowered, excluded) {
			return true
		}
	}
	return false
}

// isCommonStockCode accepts four-digit numeric issue codes.
func isCommonStockCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
