package outbound

import (
	"context"
	"time"

	"stocknotifier/internal/domain/entity"
)

// QuoteCache is a TTL cache of provider payloads keyed by symbol. A miss is
// not an error: implementations return found == false and a nil error.
type QuoteCache interface {
	// GetFinancialInfo retrieves cached fundamentals for a symbol.
	GetFinancialInfo(ctx context.Context, symbol string) (info *entity.FinancialInfo, found bool, err error)

	// SetFinancialInfo caches fundamentals for a symbol with a TTL.
	SetFinancialInfo(ctx context.Context, info *entity.FinancialInfo, ttl time.Duration) error

	// Invalidate removes a symbol's cached payload.
	Invalidate(ctx context.Context, symbol string) error
}
