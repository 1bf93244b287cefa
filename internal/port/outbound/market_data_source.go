package outbound

import (
	"context"
	"time"

	"stocknotifier/internal/domain/entity"
)

// MarketDataSource defines retrieval operations against the external
// market-data provider. Implementations must return entity.MarketError
// values so failures classify by kind.
type MarketDataSource interface {
	// GetFinancialInfo retrieves current fundamentals for a symbol.
	GetFinancialInfo(ctx context.Context, symbol string) (*entity.FinancialInfo, error)

	// GetQuoteHistory retrieves daily quotes for a symbol in [from, to].
	GetQuoteHistory(ctx context.Context, symbol string, from, to time.Time) ([]entity.PricePoint, error)

	// GetDividendHistory retrieves dividend payments for a symbol in [from, to].
	GetDividendHistory(ctx context.Context, symbol string, from, to time.Time) ([]entity.DividendPayment, error)

	// ValidateSymbol checks whether the provider knows the symbol.
	ValidateSymbol(ctx context.Context, symbol string) error
}
