package domain

import (
	"fmt"
	"math"
)

// 风险中性概率允许的数值容差
const probabilityTolerance = 1e-9

// LatticeConfig 二叉树定价配置
type LatticeConfig struct {
	Steps        int  // 时间步数 N
	WithBoundary bool // 是否输出美式期权的行权边界
}

// BoundaryPoint 行权边界上的一个点：时刻 t 处行权最优的临界标的价格
type BoundaryPoint struct {
	Time float64 `json:"time"`
	Spot float64 `json:"spot"`
}

// LatticeReport 二叉树定价结果
type LatticeReport struct {
	Price float64 `json:"price"`
	Steps int     `json:"steps"`
	// ExerciseBoundary 按时间升序排列；欧式期权或全程不行权时为空
	ExerciseBoundary []BoundaryPoint `json:"exercise_boundary,omitempty"`
}

// PriceLattice 用 Cox-Ross-Rubinstein 二叉树定价
//
// u = exp(σ√Δt)，d = 1/u，q = (exp(rΔt)-d)/(u-d)。
// 美式期权在每个节点取 max(继续持有价值, 内在价值)。
// 回溯只保留相邻两层节点，空间复杂度 O(N)；
// σ = 0 时树退化为单条确定性路径，走单独分支。
func PriceLattice(params PricingParameters, cfg LatticeConfig) (*LatticeReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if cfg.Steps < 1 {
		return nil, fmt.Errorf("%w: lattice steps must be >= 1, got %d", ErrInvalidParameters, cfg.Steps)
	}
	if params.Volatility == 0 {
		return priceDeterministic(params, cfg)
	}

	n := cfg.Steps
	dt := params.Maturity / float64(n)
	u := math.Exp(params.Volatility * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp(params.Rate * dt)
	q := (growth - d) / (u - d)
	if q < -probabilityTolerance || q > 1+probabilityTolerance {
		return nil, fmt.Errorf("%w: q=%v with u=%v d=%v (reduce dt or check rate/volatility)",
			ErrInvalidRiskNeutralProbability, q, u, d)
	}
	q = math.Min(math.Max(q, 0), 1)
	disc := math.Exp(-params.Rate * dt)

	// 节点 (i, j) 的标的价格为 S₀·u^(2j-i)，j 为上行次数
	nodeSpot := func(i, j int) float64 {
		return params.Spot * math.Pow(u, float64(2*j-i))
	}

	values := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		values[j] = params.Payoff(nodeSpot(n, j))
	}

	american := params.Style == ExerciseAmerican
	var boundary []BoundaryPoint

	for i := n - 1; i >= 0; i-- {
		// 行权区域紧邻持有区域的边缘节点：
		// 看涨的行权区在边界之上，取最小行权节点；看跌相反
		edge := -1
		for j := 0; j <= i; j++ {
			cont := disc * (q*values[j+1] + (1-q)*values[j])
			if american {
				intrinsic := params.Payoff(nodeSpot(i, j))
				if intrinsic >= cont && intrinsic > 0 {
					cont = intrinsic
					if params.Kind == OptionPut || edge < 0 {
						edge = j
					}
				}
			}
			values[j] = cont
		}
		if cfg.WithBoundary && american && edge >= 0 {
			boundary = append(boundary, BoundaryPoint{
				Time: float64(i) * dt,
				Spot: nodeSpot(i, edge),
			})
		}
	}

	// 回溯自到期向现在推进，边界反转为时间升序
	for l, r := 0, len(boundary)-1; l < r; l, r = l+1, r-1 {
		boundary[l], boundary[r] = boundary[r], boundary[l]
	}

	return &LatticeReport{Price: values[0], Steps: n, ExerciseBoundary: boundary}, nil
}

// priceDeterministic σ = 0 的退化情形：标的沿 S₀·exp(rt) 确定性增长。
// 欧式价值为折现后的到期收益；美式价值为各网格时刻折现内在价值的最大值。
func priceDeterministic(params PricingParameters, cfg LatticeConfig) (*LatticeReport, error) {
	n := cfg.Steps
	dt := params.Maturity / float64(n)

	if params.Style == ExerciseEuropean {
		forward := params.Spot * math.Exp(params.Rate*params.Maturity)
		price := math.Exp(-params.Rate*params.Maturity) * params.Payoff(forward)
		return &LatticeReport{Price: price, Steps: n}, nil
	}

	best := 0.0
	bestStep := -1
	for i := 0; i <= n; i++ {
		t := float64(i) * dt
		spot := params.Spot * math.Exp(params.Rate*t)
		v := math.Exp(-params.Rate*t) * params.Payoff(spot)
		if v > best {
			best = v
			bestStep = i
		}
	}

	var boundary []BoundaryPoint
	if cfg.WithBoundary && bestStep >= 0 {
		t := float64(bestStep) * dt
		boundary = []BoundaryPoint{{Time: t, Spot: params.Spot * math.Exp(params.Rate*t)}}
	}
	return &LatticeReport{Price: best, Steps: n, ExerciseBoundary: boundary}, nil
}
