package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/energypricing/internal/pricing/domain"
)

const (
	resultKeyPrefix = "pricing:result:"
	priceKeyPrefix  = "pricing:price:"
	cacheTTL        = 15 * time.Minute
)

type pricingCache struct {
	client *redis.Client
}

// NewPricingCache 创建 Redis 定价缓存
func NewPricingCache(client *redis.Client) domain.PricingCache {
	return &pricingCache{client: client}
}

func (c *pricingCache) SetLatestPricingResult(ctx context.Context, result *domain.PricingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal pricing result: %w", err)
	}
	return c.client.Set(ctx, resultKeyPrefix+result.Symbol, data, cacheTTL).Err()
}

func (c *pricingCache) GetLatestPricingResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	data, err := c.client.Get(ctx, resultKeyPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result domain.PricingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal pricing result: %w", err)
	}
	return &result, nil
}

func (c *pricingCache) SetLatestPrice(ctx context.Context, price *domain.Price) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("marshal price: %w", err)
	}
	return c.client.Set(ctx, priceKeyPrefix+price.Symbol, data, cacheTTL).Err()
}

func (c *pricingCache) GetLatestPrice(ctx context.Context, symbol string) (*domain.Price, error) {
	data, err := c.client.Get(ctx, priceKeyPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var price domain.Price
	if err := json.Unmarshal(data, &price); err != nil {
		return nil, fmt.Errorf("unmarshal price: %w", err)
	}
	return &price, nil
}
