package domain

import (
	"errors"
	"math"
	"testing"
)

func TestEstimateVolatilityConstantSeries(t *testing.T) {
	est, err := EstimateVolatility([]float64{50, 50, 50, 50})
	if err != nil {
		t.Fatal(err)
	}
	if est.Volatility != 0 {
		t.Errorf("constant series volatility %v, want 0", est.Volatility)
	}
	if est.Samples != 3 {
		t.Errorf("samples %d, want 3", est.Samples)
	}
}

func TestEstimateVolatilityKnownSeries(t *testing.T) {
	// 交替 +1%/-1% 对数收益：样本标准差约等于 0.01
	series := []float64{100}
	for i := 0; i < 20; i++ {
		prev := series[len(series)-1]
		if i%2 == 0 {
			series = append(series, prev*math.Exp(0.01))
		} else {
			series = append(series, prev*math.Exp(-0.01))
		}
	}

	est, err := EstimateVolatility(series)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.01 * math.Sqrt(252) * math.Sqrt(20.0/19.0)
	if math.Abs(est.Volatility-want) > 1e-9 {
		t.Errorf("volatility %v, want %v", est.Volatility, want)
	}
}

func TestEstimateVolatilityErrors(t *testing.T) {
	if _, err := EstimateVolatility([]float64{100, 101}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("short series: got %v, want ErrInsufficientData", err)
	}
	if _, err := EstimateVolatility([]float64{100, -5, 101}); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("negative close: got %v, want ErrInvalidSeries", err)
	}
	if _, err := EstimateVolatilityWithPeriods([]float64{100, 101, 102}, 0); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("zero periods: got %v, want ErrInvalidSeries", err)
	}
}
