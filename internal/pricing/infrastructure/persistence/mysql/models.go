package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/energypricing/internal/pricing/domain"
)

// PriceModel 现货报价表
type PriceModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol    string    `gorm:"type:varchar(32);index:idx_prices_symbol_ts"`
	Value     string    `gorm:"type:decimal(32,16)"`
	Timestamp time.Time `gorm:"index:idx_prices_symbol_ts"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (PriceModel) TableName() string {
	return "spot_prices"
}

// PricingResultModel 定价结果表
type PricingResultModel struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol          string    `gorm:"type:varchar(32);index:idx_results_symbol_calc"`
	OptionKind      string    `gorm:"type:varchar(8)"`
	ExerciseStyle   string    `gorm:"type:varchar(16)"`
	OptionPrice     string    `gorm:"type:decimal(32,16)"`
	UnderlyingPrice string    `gorm:"type:decimal(32,16)"`
	StrikePrice     string    `gorm:"type:decimal(32,16)"`
	Volatility      string    `gorm:"type:decimal(32,16)"`
	RiskFreeRate    string    `gorm:"type:decimal(32,16)"`
	Maturity        string    `gorm:"type:decimal(32,16)"`
	Delta           string    `gorm:"type:decimal(32,16)"`
	Gamma           string    `gorm:"type:decimal(32,16)"`
	Vega            string    `gorm:"type:decimal(32,16)"`
	Theta           string    `gorm:"type:decimal(32,16)"`
	Rho             string    `gorm:"type:decimal(32,16)"`
	StdError        string    `gorm:"type:decimal(32,16)"`
	PricingModel    string    `gorm:"type:varchar(32);index"`
	CalculatedAt    time.Time `gorm:"index:idx_results_symbol_calc"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName 指定表名
func (PricingResultModel) TableName() string {
	return "pricing_results"
}

func toPriceModel(p *domain.Price) *PriceModel {
	if p == nil {
		return nil
	}
	return &PriceModel{
		ID:        p.ID,
		Symbol:    p.Symbol,
		Value:     p.Value.String(),
		Timestamp: p.Timestamp,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toPrice(m *PriceModel) *domain.Price {
	if m == nil {
		return nil
	}
	return &domain.Price{
		ID:        m.ID,
		Symbol:    m.Symbol,
		Value:     parseDecimal(m.Value),
		Timestamp: m.Timestamp,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toPricingResultModel(r *domain.PricingResult) *PricingResultModel {
	if r == nil {
		return nil
	}
	return &PricingResultModel{
		ID:              r.ID,
		Symbol:          r.Symbol,
		OptionKind:      string(r.OptionKind),
		ExerciseStyle:   string(r.ExerciseStyle),
		OptionPrice:     r.OptionPrice.String(),
		UnderlyingPrice: r.UnderlyingPrice.String(),
		StrikePrice:     r.StrikePrice.String(),
		Volatility:      r.Volatility.String(),
		RiskFreeRate:    r.RiskFreeRate.String(),
		Maturity:        r.Maturity.String(),
		Delta:           r.Greeks.Delta.String(),
		Gamma:           r.Greeks.Gamma.String(),
		Vega:            r.Greeks.Vega.String(),
		Theta:           r.Greeks.Theta.String(),
		Rho:             r.Greeks.Rho.String(),
		StdError:        r.StdError.String(),
		PricingModel:    string(r.PricingModel),
		CalculatedAt:    r.CalculatedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toPricingResult(m *PricingResultModel) *domain.PricingResult {
	if m == nil {
		return nil
	}
	return &domain.PricingResult{
		ID:              m.ID,
		Symbol:          m.Symbol,
		OptionKind:      domain.OptionKind(m.OptionKind),
		ExerciseStyle:   domain.ExerciseStyle(m.ExerciseStyle),
		OptionPrice:     parseDecimal(m.OptionPrice),
		UnderlyingPrice: parseDecimal(m.UnderlyingPrice),
		StrikePrice:     parseDecimal(m.StrikePrice),
		Volatility:      parseDecimal(m.Volatility),
		RiskFreeRate:    parseDecimal(m.RiskFreeRate),
		Maturity:        parseDecimal(m.Maturity),
		Greeks: domain.Greeks{
			Delta: parseDecimal(m.Delta),
			Gamma: parseDecimal(m.Gamma),
			Vega:  parseDecimal(m.Vega),
			Theta: parseDecimal(m.Theta),
			Rho:   parseDecimal(m.Rho),
		},
		StdError:     parseDecimal(m.StdError),
		PricingModel: domain.PricingModel(m.PricingModel),
		CalculatedAt: m.CalculatedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
