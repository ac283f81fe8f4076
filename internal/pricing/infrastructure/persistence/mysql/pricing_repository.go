package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"

	"github.com/wyfcoding/energypricing/internal/pricing/domain"
)

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建 MySQL 定价仓储
func NewPricingRepository(db *gorm.DB) domain.PricingRepository {
	return &pricingRepository{db: db}
}

func (r *pricingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *pricingRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *pricingRepository) SavePricingResult(ctx context.Context, res *domain.PricingResult) error {
	model := toPricingResultModel(res)
	if model == nil {
		return nil
	}
	db := r.getDB(ctx).WithContext(ctx)
	if model.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return err
		}
		res.ID = model.ID
		res.CreatedAt = model.CreatedAt
		res.UpdatedAt = model.UpdatedAt
		return nil
	}
	return db.Model(&PricingResultModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"option_price":  model.OptionPrice,
			"delta":         model.Delta,
			"gamma":         model.Gamma,
			"vega":          model.Vega,
			"theta":         model.Theta,
			"rho":           model.Rho,
			"std_error":     model.StdError,
			"pricing_model": model.PricingModel,
			"calculated_at": model.CalculatedAt,
			"updated_at":    time.Now(),
		}).Error
}

func (r *pricingRepository) GetLatestPricingResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	var m PricingResultModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPricingResult(&m), nil
}

func (r *pricingRepository) ListPricingResults(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var models []PricingResultModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	results := make([]*domain.PricingResult, len(models))
	for i := range models {
		results[i] = toPricingResult(&models[i])
	}
	return results, nil
}

func (r *pricingRepository) SavePrice(ctx context.Context, price *domain.Price) error {
	model := toPriceModel(price)
	if model == nil {
		return nil
	}
	db := r.getDB(ctx).WithContext(ctx)
	if model.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return err
		}
		price.ID = model.ID
		price.CreatedAt = model.CreatedAt
		price.UpdatedAt = model.UpdatedAt
		return nil
	}
	return db.Model(&PriceModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"value":      model.Value,
			"timestamp":  model.Timestamp,
			"updated_at": time.Now(),
		}).Error
}

func (r *pricingRepository) GetLatestPrice(ctx context.Context, symbol string) (*domain.Price, error) {
	var m PriceModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp desc").
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPrice(&m), nil
}

func (r *pricingRepository) ListPrices(ctx context.Context, symbol string, limit int) ([]*domain.Price, error) {
	var models []PriceModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	// 标定需要时间升序
	prices := make([]*domain.Price, len(models))
	for i := range models {
		prices[len(models)-1-i] = toPrice(&models[i])
	}
	return prices, nil
}

// CleanupOldPrices 清理过期报价
func (r *pricingRepository) CleanupOldPrices(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	return r.getDB(ctx).WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&PriceModel{}).Error
}
