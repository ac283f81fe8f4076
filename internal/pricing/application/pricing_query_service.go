package application

import (
	"context"
	"fmt"

	calibration "github.com/wyfcoding/energypricing/internal/calibration/domain"
	"github.com/wyfcoding/energypricing/internal/pricing/domain"
	"github.com/wyfcoding/energypricing/pkg/logger"
)

// PricingQueryService 处理定价相关的查询操作，读路径先查缓存
type PricingQueryService struct {
	repo     domain.PricingRepository
	cache    domain.PricingCache
	defaults Defaults
}

// NewPricingQueryService 创建查询服务
func NewPricingQueryService(repo domain.PricingRepository, cache domain.PricingCache, defaults Defaults) *PricingQueryService {
	if defaults.LatticeSteps <= 0 {
		defaults.LatticeSteps = 200
	}
	return &PricingQueryService{repo: repo, cache: cache, defaults: defaults}
}

// GetLatestPricingResult 查询最新定价结果，缓存未命中回源数据库并回填
func (q *PricingQueryService) GetLatestPricingResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	if q.cache != nil {
		cached, err := q.cache.GetLatestPricingResult(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Pricing result cache read failed", "symbol", symbol, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err := q.repo.GetLatestPricingResult(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if result != nil && q.cache != nil {
		if cacheErr := q.cache.SetLatestPricingResult(ctx, result); cacheErr != nil {
			logger.Warn(ctx, "Pricing result cache backfill failed", "symbol", symbol, "error", cacheErr)
		}
	}
	return result, nil
}

// ListPricingResults 查询历史定价结果
func (q *PricingQueryService) ListPricingResults(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return q.repo.ListPricingResults(ctx, symbol, limit)
}

// GetLatestPrice 查询最新行情报价
func (q *PricingQueryService) GetLatestPrice(ctx context.Context, symbol string) (*domain.Price, error) {
	if q.cache != nil {
		cached, err := q.cache.GetLatestPrice(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Spot price cache read failed", "symbol", symbol, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	return q.repo.GetLatestPrice(ctx, symbol)
}

// ComputeGreeks 有限差分 Greeks，闭式解模型之外统一绑定二叉树定价器
func (q *PricingQueryService) ComputeGreeks(ctx context.Context, query GreeksQuery) (*domain.GreeksReport, error) {
	style := domain.ExerciseStyle(query.ExerciseStyle)
	if style == "" {
		style = domain.ExerciseEuropean
	}
	params, err := domain.NewPricingParameters(
		query.UnderlyingPrice, query.StrikePrice, query.Maturity, query.RiskFreeRate, query.Volatility,
		domain.OptionKind(query.OptionKind), style,
	)
	if err != nil {
		return nil, err
	}

	steps := query.LatticeSteps
	if steps <= 0 {
		steps = q.defaults.LatticeSteps
	}
	pricer := func(p domain.PricingParameters) (float64, error) {
		rep, err := domain.PriceLattice(p, domain.LatticeConfig{Steps: steps})
		if err != nil {
			return 0, err
		}
		return rep.Price, nil
	}
	return domain.ComputeGreeks(ctx, params, pricer, domain.DefaultBumpConfig())
}

// GetExerciseBoundary 查询美式期权的最优行权边界
func (q *PricingQueryService) GetExerciseBoundary(ctx context.Context, query BoundaryQuery) (*domain.LatticeReport, error) {
	params, err := domain.NewPricingParameters(
		query.UnderlyingPrice, query.StrikePrice, query.Maturity, query.RiskFreeRate, query.Volatility,
		domain.OptionKind(query.OptionKind), domain.ExerciseAmerican,
	)
	if err != nil {
		return nil, err
	}

	steps := query.LatticeSteps
	if steps <= 0 {
		steps = q.defaults.LatticeSteps
	}
	return domain.PriceLattice(params, domain.LatticeConfig{Steps: steps, WithBoundary: true})
}

// EstimateVolatility 由存量报价序列标定年化波动率
func (q *PricingQueryService) EstimateVolatility(ctx context.Context, query VolatilityQuery) (*calibration.VolatilityEstimate, error) {
	window := query.Window
	if window <= 0 {
		window = defaultCalibrationWindow
	}

	history, err := q.repo.ListPrices(ctx, query.Symbol, window)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Value.InexactFloat64()
	}

	est, err := calibration.EstimateVolatility(closes)
	if err != nil {
		return nil, fmt.Errorf("volatility calibration for %s: %w", query.Symbol, err)
	}
	return est, nil
}
