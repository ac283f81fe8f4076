package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/energypricing/internal/pricing/domain"
)

// Defaults 定价服务的缺省算法参数
type Defaults struct {
	LatticeSteps    int     // 二叉树步数
	MonteCarloPaths int     // Monte Carlo 路径数
	Workers         int     // 并行 worker 数，0 为 GOMAXPROCS
	RiskFreeRate    float64 // 无风险利率，命令未给出时使用
}

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	Symbol          string  `json:"symbol"`
	OptionKind      string  `json:"option_kind"`    // CALL / PUT
	ExerciseStyle   string  `json:"exercise_style"` // EUROPEAN / AMERICAN
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	Maturity        float64 `json:"maturity"` // 年
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"` // 0 取配置缺省值
	PricingModel    string  `json:"pricing_model"`  // 缺省 Binomial

	// UseLatestPrice 为 true 时忽略 UnderlyingPrice，取最新行情报价
	UseLatestPrice bool `json:"use_latest_price"`
	// CalibrateVolatility 为 true 时忽略 Volatility，由历史报价标定
	CalibrateVolatility bool `json:"calibrate_volatility"`

	LatticeSteps    int    `json:"lattice_steps"`     // 0 取缺省
	MonteCarloPaths int    `json:"monte_carlo_paths"` // 0 取缺省
	Seed            uint64 `json:"seed"`              // 0 随机取种
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string               `json:"batch_id"`
	Contracts []PriceOptionCommand `json:"contracts"`
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	AverageTime  float64                 `json:"average_time_seconds"`
}

// ValidatePricingCommand 模型交叉验证命令：二叉树对 Monte Carlo
type ValidatePricingCommand struct {
	Symbol          string  `json:"symbol"`
	OptionKind      string  `json:"option_kind"`
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	Maturity        float64 `json:"maturity"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	LatticeSteps    int     `json:"lattice_steps"`
	MonteCarloPaths int     `json:"monte_carlo_paths"`
	Seed            uint64  `json:"seed"`
}

// ValidationReport 交叉验证结果
type ValidationReport struct {
	Symbol             string  `json:"symbol"`
	LatticePrice       float64 `json:"lattice_price"`
	MonteCarloEstimate float64 `json:"monte_carlo_estimate"`
	StdError           float64 `json:"std_error"`
	ConfidenceLow      float64 `json:"confidence_low"`
	ConfidenceHigh     float64 `json:"confidence_high"`
	WithinInterval     bool    `json:"within_interval"`
	Paths              int     `json:"paths"`
	Seed               uint64  `json:"seed"`
	EuropeanEquivalent bool    `json:"european_equivalent"`
}

// RecordSpotPriceCommand 行情报价落库命令
type RecordSpotPriceCommand struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// GreeksQuery Greeks 查询
type GreeksQuery struct {
	OptionKind      string  `json:"option_kind"`
	ExerciseStyle   string  `json:"exercise_style"`
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	Maturity        float64 `json:"maturity"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	LatticeSteps    int     `json:"lattice_steps"`
}

// BoundaryQuery 行权边界查询
type BoundaryQuery struct {
	OptionKind      string  `json:"option_kind"`
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	Maturity        float64 `json:"maturity"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	LatticeSteps    int     `json:"lattice_steps"`
}

// VolatilityQuery 历史波动率标定查询
type VolatilityQuery struct {
	Symbol string `json:"symbol"`
	Window int    `json:"window"` // 收盘样本数，0 取 252
}
