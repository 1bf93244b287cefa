package outbound

import (
	"context"

	"stocknotifier/internal/domain/entity"
)

// ListingProvider yields the exchange's listed-issue universe.
type ListingProvider interface {
	// LoadListedIssues loads every row of the listed-issues workbook.
	LoadListedIssues(ctx context.Context) ([]entity.ListedIssue, error)

	// TradableSymbols returns suffixed symbol codes for tradable common
	// stocks on the target markets, excluding ETF, REIT and fund products.
	TradableSymbols(ctx context.Context, markets []string) ([]string, error)
}
