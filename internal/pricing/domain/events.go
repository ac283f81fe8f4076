package domain

import "time"

// 领域事件类型，同时作为 Kafka topic
const (
	OptionPricedEventType          = "pricing.option.priced"
	GreeksCalculatedEventType      = "pricing.greeks.calculated"
	PricingValidatedEventType      = "pricing.validation.completed"
	BatchPricingCompletedEventType = "pricing.batch.completed"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Symbol          string    `json:"symbol"`
	OptionKind      string    `json:"option_kind"`
	ExerciseStyle   string    `json:"exercise_style"`
	OptionPrice     string    `json:"option_price"`
	UnderlyingPrice string    `json:"underlying_price"`
	StrikePrice     string    `json:"strike_price"`
	PricingModel    string    `json:"pricing_model"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

// GreeksCalculatedEvent Greeks 计算完成事件
type GreeksCalculatedEvent struct {
	Symbol       string    `json:"symbol"`
	Delta        string    `json:"delta"`
	Gamma        string    `json:"gamma"`
	Vega         string    `json:"vega"`
	Theta        string    `json:"theta"`
	Rho          string    `json:"rho"`
	PricingModel string    `json:"pricing_model"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// PricingValidatedEvent 模型交叉验证完成事件
type PricingValidatedEvent struct {
	Symbol         string    `json:"symbol"`
	LatticePrice   float64   `json:"lattice_price"`
	MonteCarloMean float64   `json:"monte_carlo_mean"`
	StdError       float64   `json:"std_error"`
	WithinInterval bool      `json:"within_interval"`
	ValidatedAt    time.Time `json:"validated_at"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	Symbols     []string  `json:"symbols"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CompletedAt time.Time `json:"completed_at"`
}
