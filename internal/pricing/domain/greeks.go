package domain

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PricerFunc Greeks 引擎对定价模型的唯一依赖。
// 任何满足该签名的定价器（二叉树、闭式解、Monte Carlo）都可接入。
type PricerFunc func(params PricingParameters) (float64, error)

// BumpConfig 有限差分的扰动幅度
type BumpConfig struct {
	SpotRel float64 // 现价相对扰动，h_S = SpotRel·S₀
	Vol     float64 // 波动率绝对扰动
	Time    float64 // 到期时间扰动（年），实际取 min(Time, T/2)
	Rate    float64 // 利率绝对扰动
}

// DefaultBumpConfig 默认扰动幅度
func DefaultBumpConfig() BumpConfig {
	return BumpConfig{SpotRel: 0.01, Vol: 0.01, Time: 0.01, Rate: 0.0001}
}

// GreeksReport 有限差分 Greeks 结果。
// 扰动字段记录实际生效的幅度，发生自动收缩时与默认值不同。
type GreeksReport struct {
	Price float64 `json:"price"` // 未扰动基准价

	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"` // 每年时间衰减，通常为负
	Rho   float64 `json:"rho"`

	SpotBump float64 `json:"spot_bump"`
	VolBump  float64 `json:"vol_bump"`
	TimeBump float64 `json:"time_bump"`
	RateBump float64 `json:"rate_bump"`
}

// ComputeGreeks 用有限差分计算 Greeks
//
// Delta/Gamma/Vega/Rho 取中心差分；Theta 取单侧差分
// (V(T-h) - V(T))/h，避免扰动越过到期日。
// 扰动会使参数越界时自动收缩：S-h ≤ 0 时 h 收缩为 S/2，
// σ-h < 0 时收缩为 σ/2（σ = 0 退化为单侧差分）。
// 各扰动点的定价并行执行，任一失败则整体失败。
func ComputeGreeks(ctx context.Context, params PricingParameters, pricer PricerFunc, bumps BumpConfig) (*GreeksReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if pricer == nil {
		return nil, fmt.Errorf("%w: pricer must not be nil", ErrInvalidParameters)
	}
	if bumps.SpotRel <= 0 || bumps.Vol <= 0 || bumps.Time <= 0 || bumps.Rate <= 0 {
		return nil, fmt.Errorf("%w: bump sizes must be positive", ErrInvalidParameters)
	}

	hS := bumps.SpotRel * params.Spot
	if params.Spot-hS <= 0 {
		hS = params.Spot / 2
	}
	hV := bumps.Vol
	volCentral := true
	if params.Volatility-hV < 0 {
		if params.Volatility > 0 {
			hV = params.Volatility / 2
		} else {
			volCentral = false
		}
	}
	hT := bumps.Time
	if hT > params.Maturity/2 {
		hT = params.Maturity / 2
	}
	hR := bumps.Rate

	var base, sUp, sDown, vUp, vDown, tDown, rUp, rDown float64

	g, _ := errgroup.WithContext(ctx)
	eval := func(dst *float64, p PricingParameters) {
		g.Go(func() error {
			v, err := pricer(p)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}

	eval(&base, params)
	eval(&sUp, params.WithSpot(params.Spot+hS))
	eval(&sDown, params.WithSpot(params.Spot-hS))
	eval(&vUp, params.WithVolatility(params.Volatility+hV))
	if volCentral {
		eval(&vDown, params.WithVolatility(params.Volatility-hV))
	}
	eval(&tDown, params.WithMaturity(params.Maturity-hT))
	eval(&rUp, params.WithRate(params.Rate+hR))
	eval(&rDown, params.WithRate(params.Rate-hR))

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &GreeksReport{
		Price:    base,
		Delta:    (sUp - sDown) / (2 * hS),
		Gamma:    (sUp - 2*base + sDown) / (hS * hS),
		Theta:    (tDown - base) / hT,
		Rho:      (rUp - rDown) / (2 * hR),
		SpotBump: hS,
		VolBump:  hV,
		TimeBump: hT,
		RateBump: hR,
	}
	if volCentral {
		report.Vega = (vUp - vDown) / (2 * hV)
	} else {
		report.Vega = (vUp - base) / hV
	}
	return report, nil
}
