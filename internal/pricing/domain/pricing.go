package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingModel 定价模型标识
type PricingModel string

const (
	ModelBinomial          PricingModel = "Binomial"          // CRR 二叉树
	ModelBlackScholes      PricingModel = "BlackScholes"      // 闭式解
	ModelMonteCarlo        PricingModel = "MonteCarlo"        // GBM 终值模拟
	ModelLongstaffSchwartz PricingModel = "LongstaffSchwartz" // 最小二乘 Monte Carlo
)

// Greeks 风险敏感度指标（持久化表示）
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Vega  decimal.Decimal `json:"vega"`
	Theta decimal.Decimal `json:"theta"`
	Rho   decimal.Decimal `json:"rho"`
}

// PricingResult 定价结果实体
type PricingResult struct {
	ID              uint64          `json:"id"`
	Symbol          string          `json:"symbol"`
	OptionKind      OptionKind      `json:"option_kind"`
	ExerciseStyle   ExerciseStyle   `json:"exercise_style"`
	OptionPrice     decimal.Decimal `json:"option_price"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price"`
	StrikePrice     decimal.Decimal `json:"strike_price"`
	Volatility      decimal.Decimal `json:"volatility"`
	RiskFreeRate    decimal.Decimal `json:"risk_free_rate"`
	Maturity        decimal.Decimal `json:"maturity"` // 年
	Greeks          Greeks          `json:"greeks"`
	PricingModel    PricingModel    `json:"pricing_model"`
	// StdError Monte Carlo 估计的标准误，其他模型为零
	StdError     decimal.Decimal `json:"std_error"`
	CalculatedAt time.Time       `json:"calculated_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewPricingResult 创建定价结果实体
func NewPricingResult(symbol string, params PricingParameters, model PricingModel, price float64) *PricingResult {
	now := time.Now()
	return &PricingResult{
		Symbol:          symbol,
		OptionKind:      params.Kind,
		ExerciseStyle:   params.Style,
		OptionPrice:     decimal.NewFromFloat(price),
		UnderlyingPrice: decimal.NewFromFloat(params.Spot),
		StrikePrice:     decimal.NewFromFloat(params.Strike),
		Volatility:      decimal.NewFromFloat(params.Volatility),
		RiskFreeRate:    decimal.NewFromFloat(params.Rate),
		Maturity:        decimal.NewFromFloat(params.Maturity),
		PricingModel:    model,
		CalculatedAt:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SetGreeks 回填有限差分 Greeks
func (r *PricingResult) SetGreeks(g *GreeksReport) {
	r.Greeks = Greeks{
		Delta: decimal.NewFromFloat(g.Delta),
		Gamma: decimal.NewFromFloat(g.Gamma),
		Vega:  decimal.NewFromFloat(g.Vega),
		Theta: decimal.NewFromFloat(g.Theta),
		Rho:   decimal.NewFromFloat(g.Rho),
	}
}
