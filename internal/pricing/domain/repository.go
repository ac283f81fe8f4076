package domain

import "context"

// PricingRepository 定价结果与报价的持久化接口
type PricingRepository interface {
	// WithTx 在单个事务中执行 fn，事务句柄通过 ctx 向下传递
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// SavePricingResult 保存定价结果（同 symbol+model 更新最新一条）
	SavePricingResult(ctx context.Context, result *PricingResult) error
	// GetLatestPricingResult 获取最新定价结果，无记录时返回 (nil, nil)
	GetLatestPricingResult(ctx context.Context, symbol string) (*PricingResult, error)
	// ListPricingResults 按时间倒序获取历史定价结果
	ListPricingResults(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)

	// SavePrice 保存现货报价
	SavePrice(ctx context.Context, price *Price) error
	// GetLatestPrice 获取最新报价，无记录时返回 (nil, nil)
	GetLatestPrice(ctx context.Context, symbol string) (*Price, error)
	// ListPrices 按时间升序获取最近 limit 条报价（波动率标定输入）
	ListPrices(ctx context.Context, symbol string, limit int) ([]*Price, error)
}

// PricingCache 定价结果的缓存接口
type PricingCache interface {
	SetLatestPricingResult(ctx context.Context, result *PricingResult) error
	GetLatestPricingResult(ctx context.Context, symbol string) (*PricingResult, error)
	SetLatestPrice(ctx context.Context, price *Price) error
	GetLatestPrice(ctx context.Context, symbol string) (*Price, error)
}

// EventPublisher 领域事件发布接口（事务性 outbox）
type EventPublisher interface {
	// Publish 在独立事务中发布事件
	Publish(ctx context.Context, topic, key string, event any) error
	// PublishInTx 在调用方事务中写入 outbox，随事务一并提交
	PublishInTx(ctx context.Context, topic, key string, event any) error
}
