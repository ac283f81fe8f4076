// 包 波动率标定：由历史收盘序列估计年化波动率
package domain

import (
	"errors"
	"fmt"
	"math"
)

// TradingPeriodsPerYear 日频收盘序列的默认年化因子
const TradingPeriodsPerYear = 252

var (
	// ErrInsufficientData 序列太短，无法计算样本标准差
	ErrInsufficientData = errors.New("insufficient price history")
	// ErrInvalidSeries 序列中存在非正价格
	ErrInvalidSeries = errors.New("invalid price series")
)

// VolatilityEstimate 波动率估计结果
type VolatilityEstimate struct {
	Volatility float64 `json:"volatility"` // 年化波动率
	Drift      float64 `json:"drift"`      // 年化平均对数收益
	Samples    int     `json:"samples"`    // 参与估计的收益样本数
}

// EstimateVolatility 按日频年化估计历史波动率
func EstimateVolatility(closes []float64) (*VolatilityEstimate, error) {
	return EstimateVolatilityWithPeriods(closes, TradingPeriodsPerYear)
}

// EstimateVolatilityWithPeriods 对数收益样本标准差乘以 √periodsPerYear。
// closes 按时间升序，至少 3 个点（2 个收益样本）。
func EstimateVolatilityWithPeriods(closes []float64, periodsPerYear float64) (*VolatilityEstimate, error) {
	if periodsPerYear <= 0 {
		return nil, fmt.Errorf("%w: periods per year must be positive", ErrInvalidSeries)
	}
	if len(closes) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 closes, got %d", ErrInsufficientData, len(closes))
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return nil, fmt.Errorf("%w: non-positive close at index %d", ErrInvalidSeries, i)
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	variance := ss / float64(len(returns)-1)

	return &VolatilityEstimate{
		Volatility: math.Sqrt(variance * periodsPerYear),
		Drift:      mean * periodsPerYear,
		Samples:    len(returns),
	}, nil
}
