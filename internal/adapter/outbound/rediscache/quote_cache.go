// Package rediscache implements the QuoteCache port on Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

const keyPrefix = "stocknotifier:fininfo:"

// Config configures the Redis quote cache.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// QuoteCache caches provider fundamentals in Redis with a TTL, sparing the
// rate-limited provider on repeat lookups. A missing key is a miss, never an
// error.
type QuoteCache struct {
	client *redis.Client
}

// NewQuoteCache creates a Redis-backed quote cache and verifies connectivity.
func NewQuoteCache(ctx context.Context, config Config) (*QuoteCache, error) {
	if config.Addr == "" {
		return nil, errors.New("rediscache: address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("rediscache: ping failed: %w", err)
	}
	return &QuoteCache{client: client}, nil
}

var _ outbound.QuoteCache = (*QuoteCache)(nil)

// GetFinancialInfo retrieves cached fundamentals for a symbol.
func (c *QuoteCache) GetFinancialInfo(ctx context.Context, symbol string) (*entity.FinancialInfo, bool, error) {
	payload, err := c.client.Get(ctx, keyPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rediscache: get %s: %w", symbol, err)
	}

	var info entity.FinancialInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		// A corrupt entry is treated as a miss and evicted.
		_ = c.client.Del(ctx, keyPrefix+symbol).Err()
		return nil, false, nil
	}
	return &info, true, nil
}

// SetFinancialInfo caches fundamentals for a symbol with a TTL.
func (c *QuoteCache) SetFinancialInfo(ctx context.Context, info *entity.FinancialInfo, ttl time.Duration) error {
	if info == nil || info.Symbol == "" {
		return errors.New("rediscache: info with a symbol is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("rediscache: marshal %s: %w", info.Symbol, err)
	}
	if err := c.client.Set(ctx, keyPrefix+info.Symbol, payload, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set %s: %w", info.Symbol, err)
	}
	return nil
}

// Invalidate removes a symbol's cached payload.
func (c *QuoteCache) Invalidate(ctx context.Context, symbol string) error {
	if err := c.client.Del(ctx, keyPrefix+symbol).Err(); err != nil {
		return fmt.Errorf("rediscache: delete %s: %w", symbol, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *QuoteCache) Close() error {
	return c.client.Close()
}
