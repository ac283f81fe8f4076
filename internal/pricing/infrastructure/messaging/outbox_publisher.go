// 包 事务性 outbox：领域事件随业务事务落库，后台异步转发到 Kafka
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"

	"github.com/wyfcoding/energypricing/pkg/logger"
	"github.com/wyfcoding/energypricing/pkg/metrics"
	"github.com/wyfcoding/energypricing/pkg/mq"
)

const (
	statusPending = "pending"
	statusSent    = "sent"
)

// OutboxMessage outbox 表记录，topic 即领域事件类型
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Topic     string    `gorm:"type:varchar(100);index"`
	Key       string    `gorm:"type:varchar(64)"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher
type OutboxEventPublisher struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
	metrics  *metrics.Metrics
}

// NewOutboxEventPublisher 创建 outbox 事件发布器
func NewOutboxEventPublisher(db *gorm.DB, producer *mq.KafkaProducer, m *metrics.Metrics) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: db, producer: producer, metrics: m}
}

// Publish 在独立事务中写入 outbox
func (p *OutboxEventPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	msg, err := newOutboxMessage(topic, key, event)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Create(msg).Error
}

// PublishInTx 在调用方事务中写入 outbox。
// 事务句柄从 ctx 提取，ctx 中无事务时退回独立写入。
func (p *OutboxEventPublisher) PublishInTx(ctx context.Context, topic, key string, event any) error {
	msg, err := newOutboxMessage(topic, key, event)
	if err != nil {
		return err
	}
	db := p.db
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(msg).Error
}

func newOutboxMessage(topic, key string, event any) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox event: %w", err)
	}
	now := time.Now()
	return &OutboxMessage{
		ID:        uuid.New().String(),
		Topic:     topic,
		Key:       key,
		Payload:   string(payload),
		Status:    statusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ProcessOutboxMessages 转发一批待发送消息，返回成功条数
func (p *OutboxEventPublisher) ProcessOutboxMessages(ctx context.Context, batchSize int) (int, error) {
	var messages []OutboxMessage
	if err := p.db.WithContext(ctx).
		Where("status = ?", statusPending).
		Order("created_at asc").
		Limit(batchSize).
		Find(&messages).Error; err != nil {
		return 0, err
	}

	relayed := 0
	for _, msg := range messages {
		if err := p.producer.SendRaw(ctx, msg.Topic, msg.Key, []byte(msg.Payload)); err != nil {
			// 发送失败保持 pending，下一轮重试
			return relayed, err
		}
		if err := p.db.WithContext(ctx).Model(&OutboxMessage{}).
			Where("id = ?", msg.ID).
			Updates(map[string]any{"status": statusSent, "updated_at": time.Now()}).Error; err != nil {
			return relayed, err
		}
		relayed++
		if p.metrics != nil {
			p.metrics.OutboxRelayedTotal.Inc()
		}
	}
	return relayed, nil
}

// StartRelay 启动后台转发循环，直到 ctx 取消
func (p *OutboxEventPublisher) StartRelay(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := p.ProcessOutboxMessages(ctx, batchSize); err != nil {
					logger.Error(ctx, "Outbox relay failed", "relayed", n, "error", err)
				}
			}
		}
	}()
}

// CleanupProcessedMessages 清理已发送的历史消息
func (p *OutboxEventPublisher) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", statusSent, before).
		Delete(&OutboxMessage{}).Error
}
