// 包 定价服务的领域模型
package domain

import (
	"errors"
	"fmt"
	"math"
)

// OptionKind 期权类型
type OptionKind string

const (
	OptionCall OptionKind = "CALL" // 看涨期权
	OptionPut  OptionKind = "PUT"  // 看跌期权
)

// ExerciseStyle 行权方式
type ExerciseStyle string

const (
	ExerciseEuropean ExerciseStyle = "EUROPEAN" // 仅到期日可行权
	ExerciseAmerican ExerciseStyle = "AMERICAN" // 到期前任意时点可行权
)

var (
	// ErrInvalidParameters 非法定价参数（S₀/K/T 非正、σ 为负、步数或路径数不足）
	ErrInvalidParameters = errors.New("invalid pricing parameters")
	// ErrInvalidRiskNeutralProbability 风险中性概率超出 (0,1)，参数组合存在套利
	ErrInvalidRiskNeutralProbability = errors.New("risk-neutral probability outside (0,1)")
	// ErrInsufficientSamples Monte Carlo 路径数不足以计算标准误
	ErrInsufficientSamples = errors.New("insufficient monte carlo samples")
)

// PricingParameters 定价参数，不可变值对象
// 通过 NewPricingParameters 构造，构造时完成全部校验，
// 定价算法内部不再重复校验
type PricingParameters struct {
	Spot       float64       // 标的现价 S₀
	Strike     float64       // 行权价 K
	Maturity   float64       // 到期时间 T（年）
	Rate       float64       // 无风险利率 r（连续复利，年化）
	Volatility float64       // 波动率 σ（年化）
	Kind       OptionKind    // CALL / PUT
	Style      ExerciseStyle // EUROPEAN / AMERICAN
}

// NewPricingParameters 构造并校验定价参数
func NewPricingParameters(spot, strike, maturity, rate, volatility float64, kind OptionKind, style ExerciseStyle) (PricingParameters, error) {
	p := PricingParameters{
		Spot:       spot,
		Strike:     strike,
		Maturity:   maturity,
		Rate:       rate,
		Volatility: volatility,
		Kind:       kind,
		Style:      style,
	}
	if err := p.Validate(); err != nil {
		return PricingParameters{}, err
	}
	return p, nil
}

// Validate 校验参数合法性
func (p PricingParameters) Validate() error {
	if !(p.Spot > 0) || math.IsInf(p.Spot, 0) {
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidParameters, p.Spot)
	}
	if !(p.Strike > 0) || math.IsInf(p.Strike, 0) {
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidParameters, p.Strike)
	}
	if !(p.Maturity > 0) || math.IsInf(p.Maturity, 0) {
		return fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidParameters, p.Maturity)
	}
	if p.Volatility < 0 || math.IsNaN(p.Volatility) || math.IsInf(p.Volatility, 0) {
		return fmt.Errorf("%w: volatility must be non-negative, got %v", ErrInvalidParameters, p.Volatility)
	}
	if math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0) {
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidParameters, p.Rate)
	}
	switch p.Kind {
	case OptionCall, OptionPut:
	default:
		return fmt.Errorf("%w: unknown option kind %q", ErrInvalidParameters, p.Kind)
	}
	switch p.Style {
	case ExerciseEuropean, ExerciseAmerican:
	default:
		return fmt.Errorf("%w: unknown exercise style %q", ErrInvalidParameters, p.Style)
	}
	return nil
}

// Payoff 给定标的价格下的行权收益
func (p PricingParameters) Payoff(s float64) float64 {
	if p.Kind == OptionCall {
		return math.Max(s-p.Strike, 0)
	}
	return math.Max(p.Strike-s, 0)
}

// Intrinsic 当前内在价值
func (p PricingParameters) Intrinsic() float64 {
	return p.Payoff(p.Spot)
}

// WithSpot 返回替换现价后的副本（Greeks 扰动使用）
func (p PricingParameters) WithSpot(spot float64) PricingParameters {
	p.Spot = spot
	return p
}

// WithVolatility 返回替换波动率后的副本
func (p PricingParameters) WithVolatility(volatility float64) PricingParameters {
	p.Volatility = volatility
	return p
}

// WithMaturity 返回替换到期时间后的副本
func (p PricingParameters) WithMaturity(maturity float64) PricingParameters {
	p.Maturity = maturity
	return p
}

// WithRate 返回替换利率后的副本
func (p PricingParameters) WithRate(rate float64) PricingParameters {
	p.Rate = rate
	return p
}

// WithStyle 返回替换行权方式后的副本
func (p PricingParameters) WithStyle(style ExerciseStyle) PricingParameters {
	p.Style = style
	return p
}
