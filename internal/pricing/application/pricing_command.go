// 包 定价应用服务，命令与查询分离
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	calibration "github.com/wyfcoding/energypricing/internal/calibration/domain"
	"github.com/wyfcoding/energypricing/internal/pricing/domain"
	"github.com/wyfcoding/energypricing/pkg/logger"
	"github.com/wyfcoding/energypricing/pkg/metrics"
)

// LSM 定价的固定模拟规模
const (
	lsmPaths = 20000
	lsmSteps = 50
)

// 波动率标定的缺省窗口（一年日频收盘）
const defaultCalibrationWindow = 253

// PricingCommandService 处理定价相关的命令操作，
// 领域事件经 outbox 随业务事务一并提交
type PricingCommandService struct {
	repo      domain.PricingRepository
	cache     domain.PricingCache
	publisher domain.EventPublisher
	lsm       *domain.LSMPricer
	metrics   *metrics.Metrics
	defaults  Defaults
}

// NewPricingCommandService 创建命令服务
func NewPricingCommandService(
	repo domain.PricingRepository,
	cache domain.PricingCache,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	defaults Defaults,
) *PricingCommandService {
	if defaults.LatticeSteps <= 0 {
		defaults.LatticeSteps = 200
	}
	if defaults.MonteCarloPaths <= 0 {
		defaults.MonteCarloPaths = 100000
	}
	return &PricingCommandService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		lsm:       domain.NewLSMPricer(),
		metrics:   m,
		defaults:  defaults,
	}
}

// PriceOption 期权定价：计算价格与 Greeks，落库并发布领域事件
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	start := time.Now()

	params, model, err := c.resolveParameters(ctx, &cmd)
	if err != nil {
		c.countError()
		return nil, err
	}

	steps := cmd.LatticeSteps
	if steps <= 0 {
		steps = c.defaults.LatticeSteps
	}

	price, stdErr, err := c.computePrice(params, model, steps, cmd)
	if err != nil {
		c.countError()
		return nil, err
	}

	greeks, err := c.computeGreeks(ctx, params, model, steps)
	if err != nil {
		c.countError()
		return nil, err
	}

	result := domain.NewPricingResult(cmd.Symbol, params, model, price)
	result.SetGreeks(greeks)
	result.StdError = decimal.NewFromFloat(stdErr)

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SavePricingResult(txCtx, result); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}

		pricedEvent := domain.OptionPricedEvent{
			Symbol:          result.Symbol,
			OptionKind:      string(result.OptionKind),
			ExerciseStyle:   string(result.ExerciseStyle),
			OptionPrice:     result.OptionPrice.String(),
			UnderlyingPrice: result.UnderlyingPrice.String(),
			StrikePrice:     result.StrikePrice.String(),
			PricingModel:    string(result.PricingModel),
			CalculatedAt:    result.CalculatedAt,
		}
		if err := c.publisher.PublishInTx(txCtx, domain.OptionPricedEventType, result.Symbol, pricedEvent); err != nil {
			return err
		}

		greeksEvent := domain.GreeksCalculatedEvent{
			Symbol:       result.Symbol,
			Delta:        result.Greeks.Delta.String(),
			Gamma:        result.Greeks.Gamma.String(),
			Vega:         result.Greeks.Vega.String(),
			Theta:        result.Greeks.Theta.String(),
			Rho:          result.Greeks.Rho.String(),
			PricingModel: string(result.PricingModel),
			CalculatedAt: result.CalculatedAt,
		}
		return c.publisher.PublishInTx(txCtx, domain.GreeksCalculatedEventType, result.Symbol, greeksEvent)
	})
	if err != nil {
		c.countError()
		return nil, err
	}

	if c.cache != nil {
		if cacheErr := c.cache.SetLatestPricingResult(ctx, result); cacheErr != nil {
			logger.Warn(ctx, "Failed to cache pricing result", "symbol", result.Symbol, "error", cacheErr)
		}
	}

	if c.metrics != nil {
		c.metrics.PricingsTotal.WithLabelValues(string(model)).Inc()
		c.metrics.PricingDuration.Observe(time.Since(start).Seconds())
		c.metrics.GreeksTotal.Inc()
	}
	return result, nil
}

// resolveParameters 组装并校验定价参数，按需回填行情与标定波动率
func (c *PricingCommandService) resolveParameters(ctx context.Context, cmd *PriceOptionCommand) (domain.PricingParameters, domain.PricingModel, error) {
	if cmd.Symbol == "" {
		return domain.PricingParameters{}, "", fmt.Errorf("%w: symbol is required", domain.ErrInvalidParameters)
	}

	model := domain.PricingModel(cmd.PricingModel)
	if model == "" {
		model = domain.ModelBinomial
	}
	switch model {
	case domain.ModelBinomial, domain.ModelBlackScholes, domain.ModelMonteCarlo, domain.ModelLongstaffSchwartz:
	default:
		return domain.PricingParameters{}, "", fmt.Errorf("%w: unknown pricing model %q", domain.ErrInvalidParameters, cmd.PricingModel)
	}

	style := domain.ExerciseStyle(cmd.ExerciseStyle)
	if style == "" {
		style = domain.ExerciseEuropean
	}

	spot := cmd.UnderlyingPrice
	if cmd.UseLatestPrice {
		latest, err := c.repo.GetLatestPrice(ctx, cmd.Symbol)
		if err != nil {
			return domain.PricingParameters{}, "", err
		}
		if latest == nil {
			return domain.PricingParameters{}, "", fmt.Errorf("%w: no spot price recorded for %s", domain.ErrInvalidParameters, cmd.Symbol)
		}
		spot = latest.Value.InexactFloat64()
	}

	rate := cmd.RiskFreeRate
	if rate == 0 {
		rate = c.defaults.RiskFreeRate
	}

	vol := cmd.Volatility
	if cmd.CalibrateVolatility {
		history, err := c.repo.ListPrices(ctx, cmd.Symbol, defaultCalibrationWindow)
		if err != nil {
			return domain.PricingParameters{}, "", err
		}
		closes := make([]float64, len(history))
		for i, p := range history {
			closes[i] = p.Value.InexactFloat64()
		}
		est, err := calibration.EstimateVolatility(closes)
		if err != nil {
			return domain.PricingParameters{}, "", fmt.Errorf("volatility calibration for %s: %w", cmd.Symbol, err)
		}
		vol = est.Volatility
	}

	params, err := domain.NewPricingParameters(
		spot, cmd.StrikePrice, cmd.Maturity, rate, vol,
		domain.OptionKind(cmd.OptionKind), style,
	)
	if err != nil {
		return domain.PricingParameters{}, "", err
	}
	return params, model, nil
}

// computePrice 按模型计算价格，Monte Carlo 额外返回标准误
func (c *PricingCommandService) computePrice(params domain.PricingParameters, model domain.PricingModel, steps int, cmd PriceOptionCommand) (float64, float64, error) {
	switch model {
	case domain.ModelBlackScholes:
		res, err := domain.BlackScholes(params)
		if err != nil {
			return 0, 0, err
		}
		return res.Price, 0, nil

	case domain.ModelMonteCarlo:
		paths := cmd.MonteCarloPaths
		if paths <= 0 {
			paths = c.defaults.MonteCarloPaths
		}
		cfg := domain.DefaultMonteCarloConfig(paths)
		cfg.Seed = cmd.Seed
		cfg.Workers = c.defaults.Workers
		rep, err := domain.PriceMonteCarlo(params, cfg)
		if err != nil {
			return 0, 0, err
		}
		if c.metrics != nil {
			c.metrics.MonteCarloPathsTotal.Add(float64(rep.Paths))
		}
		return rep.Estimate, rep.StdError, nil

	case domain.ModelLongstaffSchwartz:
		price, err := c.lsm.Price(params, lsmPaths, lsmSteps)
		if err != nil {
			return 0, 0, err
		}
		return price, 0, nil

	default:
		rep, err := domain.PriceLattice(params, domain.LatticeConfig{Steps: steps})
		if err != nil {
			return 0, 0, err
		}
		return rep.Price, 0, nil
	}
}

// computeGreeks 计算 Greeks。闭式解取解析值，
// 其余模型统一用二叉树做有限差分，Monte Carlo 的噪声不进入差分。
func (c *PricingCommandService) computeGreeks(ctx context.Context, params domain.PricingParameters, model domain.PricingModel, steps int) (*domain.GreeksReport, error) {
	if model == domain.ModelBlackScholes {
		res, err := domain.BlackScholes(params)
		if err != nil {
			return nil, err
		}
		return &domain.GreeksReport{
			Price: res.Price,
			Delta: res.Delta,
			Gamma: res.Gamma,
			Vega:  res.Vega,
			Theta: res.Theta,
			Rho:   res.Rho,
		}, nil
	}

	fdParams := params
	if model == domain.ModelMonteCarlo {
		fdParams = params.WithStyle(domain.ExerciseEuropean)
	}
	pricer := func(p domain.PricingParameters) (float64, error) {
		rep, err := domain.PriceLattice(p, domain.LatticeConfig{Steps: steps})
		if err != nil {
			return 0, err
		}
		return rep.Price, nil
	}
	return domain.ComputeGreeks(ctx, fdParams, pricer, domain.DefaultBumpConfig())
}

// ValidatePricing 二叉树与 Monte Carlo 交叉验证：
// 同参数欧式行权下，二叉树价格应落入模拟估计的 95% 置信区间
func (c *PricingCommandService) ValidatePricing(ctx context.Context, cmd ValidatePricingCommand) (*ValidationReport, error) {
	params, err := domain.NewPricingParameters(
		cmd.UnderlyingPrice, cmd.StrikePrice, cmd.Maturity, cmd.RiskFreeRate, cmd.Volatility,
		domain.OptionKind(cmd.OptionKind), domain.ExerciseEuropean,
	)
	if err != nil {
		return nil, err
	}

	steps := cmd.LatticeSteps
	if steps <= 0 {
		steps = c.defaults.LatticeSteps
	}
	paths := cmd.MonteCarloPaths
	if paths <= 0 {
		paths = c.defaults.MonteCarloPaths
	}

	latticeRep, err := domain.PriceLattice(params, domain.LatticeConfig{Steps: steps})
	if err != nil {
		return nil, err
	}

	mcCfg := domain.DefaultMonteCarloConfig(paths)
	mcCfg.Seed = cmd.Seed
	mcCfg.Workers = c.defaults.Workers
	mcRep, err := domain.PriceMonteCarlo(params, mcCfg)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.MonteCarloPathsTotal.Add(float64(mcRep.Paths))
	}

	report := &ValidationReport{
		Symbol:             cmd.Symbol,
		LatticePrice:       latticeRep.Price,
		MonteCarloEstimate: mcRep.Estimate,
		StdError:           mcRep.StdError,
		ConfidenceLow:      mcRep.ConfidenceLow,
		ConfidenceHigh:     mcRep.ConfidenceHigh,
		WithinInterval:     latticeRep.Price >= mcRep.ConfidenceLow && latticeRep.Price <= mcRep.ConfidenceHigh,
		Paths:              mcRep.Paths,
		Seed:               mcRep.Seed,
		EuropeanEquivalent: mcRep.EuropeanEquivalent,
	}

	if c.publisher != nil {
		event := domain.PricingValidatedEvent{
			Symbol:         cmd.Symbol,
			LatticePrice:   report.LatticePrice,
			MonteCarloMean: report.MonteCarloEstimate,
			StdError:       report.StdError,
			WithinInterval: report.WithinInterval,
			ValidatedAt:    time.Now(),
		}
		if pubErr := c.publisher.Publish(ctx, domain.PricingValidatedEventType, cmd.Symbol, event); pubErr != nil {
			logger.Warn(ctx, "Failed to publish validation event", "symbol", cmd.Symbol, "error", pubErr)
		}
	}
	return report, nil
}

// BatchPriceOptions 批量定价，单笔失败不影响其余合约
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	results := make([]*domain.PricingResult, 0, len(cmd.Contracts))
	successCount := 0
	failureCount := 0
	totalTime := 0.0

	for _, contract := range cmd.Contracts {
		start := time.Now()
		result, err := c.PriceOption(ctx, contract)
		totalTime += time.Since(start).Seconds()

		if err != nil {
			logger.Warn(ctx, "Batch pricing contract failed", "symbol", contract.Symbol, "error", err)
			failureCount++
			continue
		}
		results = append(results, result)
		successCount++
	}

	avg := 0.0
	if len(cmd.Contracts) > 0 {
		avg = totalTime / float64(len(cmd.Contracts))
	}

	if c.publisher != nil {
		_ = c.publisher.Publish(ctx, domain.BatchPricingCompletedEventType, cmd.BatchID, domain.BatchPricingCompletedEvent{
			Symbols:     extractSymbols(cmd.Contracts),
			Succeeded:   successCount,
			Failed:      failureCount,
			CompletedAt: time.Now(),
		})
	}

	return &BatchPricingResult{
		BatchID:      cmd.BatchID,
		Results:      results,
		SuccessCount: successCount,
		FailureCount: failureCount,
		AverageTime:  avg,
	}, nil
}

// RecordSpotPrice 行情报价落库并刷新缓存
func (c *PricingCommandService) RecordSpotPrice(ctx context.Context, cmd RecordSpotPriceCommand) error {
	if cmd.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrInvalidParameters)
	}
	if cmd.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidParameters)
	}
	ts := cmd.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	price := domain.NewPrice(cmd.Symbol, cmd.Price, ts)
	if err := c.repo.SavePrice(ctx, price); err != nil {
		return err
	}
	if c.cache != nil {
		if cacheErr := c.cache.SetLatestPrice(ctx, price); cacheErr != nil {
			logger.Warn(ctx, "Failed to cache spot price", "symbol", cmd.Symbol, "error", cacheErr)
		}
	}
	return nil
}

func (c *PricingCommandService) countError() {
	if c.metrics != nil {
		c.metrics.PricingErrorsTotal.Inc()
	}
}

func extractSymbols(contracts []PriceOptionCommand) []string {
	symbols := make([]string, 0, len(contracts))
	seen := make(map[string]bool)
	for _, contract := range contracts {
		if !seen[contract.Symbol] {
			symbols = append(symbols, contract.Symbol)
			seen[contract.Symbol] = true
		}
	}
	return symbols
}
