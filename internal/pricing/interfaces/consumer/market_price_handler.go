// 包 行情报价的 Kafka 消费者
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/energypricing/internal/pricing/application"
	"github.com/wyfcoding/energypricing/pkg/logger"
	"github.com/wyfcoding/energypricing/pkg/mq"
)

// MarketPriceTopic 上游行情报价 topic
const MarketPriceTopic = "marketdata.spot.price"

// MarketPriceHandler 消费现货报价并交由命令服务落库
type MarketPriceHandler struct {
	cmd *application.PricingCommandService
}

// NewMarketPriceHandler 创建行情消费处理器
func NewMarketPriceHandler(cmd *application.PricingCommandService) *MarketPriceHandler {
	return &MarketPriceHandler{cmd: cmd}
}

// marketPriceMessage 上游报价消息体
type marketPriceMessage struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // Unix 毫秒
}

// Handle 处理单条报价消息
func (h *MarketPriceHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	var payload marketPriceMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("unmarshal market price message: %w", err)
	}
	if payload.Symbol == "" || payload.Price <= 0 {
		logger.Warn(ctx, "Skipping malformed market price message",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	return h.cmd.RecordSpotPrice(ctx, application.RecordSpotPriceCommand{
		Symbol:    payload.Symbol,
		Price:     decimal.NewFromFloat(payload.Price),
		Timestamp: time.UnixMilli(payload.Timestamp),
	})
}

// Subscribe 绑定消费者并启动消费循环
func (h *MarketPriceHandler) Subscribe(ctx context.Context, c *mq.KafkaConsumer) {
	c.Start(ctx, h.Handle)
}
