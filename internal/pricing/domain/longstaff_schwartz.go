package domain

import (
	"fmt"

	"github.com/wyfcoding/pkg/algos/finance"
)

// LSMPricer Longstaff-Schwartz 最小二乘 Monte Carlo 美式期权定价器。
// 与二叉树互为交叉验证：LSM 给出含提前行权权利的路径模拟估计。
type LSMPricer struct {
	impl *finance.LSMPricer
}

// NewLSMPricer 创建 LSM 定价器，回归基函数为二次多项式
func NewLSMPricer() *LSMPricer {
	return &LSMPricer{impl: finance.NewLSMPricer(2)}
}

// Price 对美式期权定价
func (p *LSMPricer) Price(params PricingParameters, paths, steps int) (float64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	if params.Style != ExerciseAmerican {
		return 0, fmt.Errorf("%w: LSM only prices American exercise", ErrInvalidParameters)
	}
	if paths < 2 {
		return 0, fmt.Errorf("%w: need at least 2 paths, got %d", ErrInsufficientSamples, paths)
	}
	if steps < 1 {
		return 0, fmt.Errorf("%w: LSM steps must be >= 1, got %d", ErrInvalidParameters, steps)
	}

	price, err := p.impl.ComputePrice(finance.AmericanOptionParams{
		S0:    params.Spot,
		K:     params.Strike,
		T:     params.Maturity,
		R:     params.Rate,
		Sigma: params.Volatility,
		IsPut: params.Kind == OptionPut,
		Paths: paths,
		Steps: steps,
	})
	if err != nil {
		return 0, fmt.Errorf("lsm pricing failed: %w", err)
	}
	return price, nil
}
