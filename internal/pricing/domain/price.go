package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price 标的现货报价实体，来自行情消费者，
// 同时作为波动率标定的历史序列来源
type Price struct {
	ID        uint64          `json:"id"`
	Symbol    string          `json:"symbol"`
	Value     decimal.Decimal `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewPrice 创建报价实体
func NewPrice(symbol string, value decimal.Decimal, ts time.Time) *Price {
	now := time.Now()
	return &Price{
		Symbol:    symbol,
		Value:     value,
		Timestamp: ts,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
