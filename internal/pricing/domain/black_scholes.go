package domain

import (
	"fmt"
	"math"
)

// BlackScholesResult Black-Scholes 闭式解结果，含解析 Greeks
type BlackScholesResult struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// BlackScholes 欧式期权 Black-Scholes 定价
//
// 仅对欧式行权有效，美式参数返回 ErrInvalidParameters。
// σ = 0 时退化为折现远期收益。
func BlackScholes(params PricingParameters) (*BlackScholesResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Style != ExerciseEuropean {
		return nil, fmt.Errorf("%w: Black-Scholes only prices European exercise", ErrInvalidParameters)
	}

	s, k, t, r, v := params.Spot, params.Strike, params.Maturity, params.Rate, params.Volatility
	discK := k * math.Exp(-r*t)

	if v == 0 {
		res := &BlackScholesResult{}
		if params.Kind == OptionCall {
			res.Price = math.Max(s-discK, 0)
			if s > discK {
				res.Delta = 1
				res.Theta = -r * discK
				res.Rho = t * discK
			}
		} else {
			res.Price = math.Max(discK-s, 0)
			if s < discK {
				res.Delta = -1
				res.Theta = r * discK
				res.Rho = -t * discK
			}
		}
		return res, nil
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*v*v)*t) / (v * sqrtT)
	d2 := d1 - v*sqrtT

	nd1 := normCdf(d1)
	nd2 := normCdf(d2)
	pdf1 := normPdf(d1)

	res := &BlackScholesResult{
		Gamma: pdf1 / (s * v * sqrtT),
		Vega:  s * pdf1 * sqrtT,
	}
	if params.Kind == OptionCall {
		res.Price = s*nd1 - discK*nd2
		res.Delta = nd1
		res.Theta = -(s*pdf1*v)/(2*sqrtT) - r*discK*nd2
		res.Rho = t * discK * nd2
	} else {
		res.Price = discK*(1-nd2) - s*(1-nd1)
		res.Delta = nd1 - 1
		res.Theta = -(s*pdf1*v)/(2*sqrtT) + r*discK*(1-nd2)
		res.Rho = -t * discK * (1 - nd2)
	}
	return res, nil
}

// normCdf 标准正态分布函数
func normCdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPdf 标准正态密度函数
func normPdf(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
