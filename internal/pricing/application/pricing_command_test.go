package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/energypricing/internal/pricing/domain"
)

type fakeRepo struct {
	results []*domain.PricingResult
	prices  []*domain.Price
	txCount int
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCount++
	return fn(ctx)
}

func (f *fakeRepo) SavePricingResult(_ context.Context, r *domain.PricingResult) error {
	r.ID = uint64(len(f.results) + 1)
	f.results = append(f.results, r)
	return nil
}

func (f *fakeRepo) GetLatestPricingResult(_ context.Context, symbol string) (*domain.PricingResult, error) {
	for i := len(f.results) - 1; i >= 0; i-- {
		if f.results[i].Symbol == symbol {
			return f.results[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListPricingResults(_ context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var out []*domain.PricingResult
	for i := len(f.results) - 1; i >= 0 && len(out) < limit; i-- {
		if f.results[i].Symbol == symbol {
			out = append(out, f.results[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) SavePrice(_ context.Context, p *domain.Price) error {
	p.ID = uint64(len(f.prices) + 1)
	f.prices = append(f.prices, p)
	return nil
}

func (f *fakeRepo) GetLatestPrice(_ context.Context, symbol string) (*domain.Price, error) {
	for i := len(f.prices) - 1; i >= 0; i-- {
		if f.prices[i].Symbol == symbol {
			return f.prices[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListPrices(_ context.Context, symbol string, limit int) ([]*domain.Price, error) {
	var out []*domain.Price
	for _, p := range f.prices {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakePublisher struct {
	published []string
	inTx      []string
}

func (f *fakePublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	f.published = append(f.published, topic)
	return nil
}

func (f *fakePublisher) PublishInTx(_ context.Context, topic, _ string, _ any) error {
	f.inTx = append(f.inTx, topic)
	return nil
}

func newService() (*PricingCommandService, *fakeRepo, *fakePublisher) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewPricingCommandService(repo, nil, pub, nil, Defaults{
		LatticeSteps:    100,
		MonteCarloPaths: 10000,
		RiskFreeRate:    0.03,
	})
	return svc, repo, pub
}

func TestPriceOptionFallsBackToDefaultRate(t *testing.T) {
	svc, _, _ := newService()

	// 命令未给出利率时取配置缺省值
	result, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Symbol:          "NG-HH",
		OptionKind:      "CALL",
		ExerciseStyle:   "EUROPEAN",
		UnderlyingPrice: 100,
		StrikePrice:     100,
		Maturity:        1,
		Volatility:      0.2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := result.RiskFreeRate.InexactFloat64(); got != 0.03 {
		t.Errorf("risk-free rate %v, want default 0.03", got)
	}

	// 显式给出的利率不被覆盖
	result, err = svc.PriceOption(context.Background(), PriceOptionCommand{
		Symbol:          "NG-HH",
		OptionKind:      "CALL",
		ExerciseStyle:   "EUROPEAN",
		UnderlyingPrice: 100,
		StrikePrice:     100,
		Maturity:        1,
		Volatility:      0.2,
		RiskFreeRate:    0.08,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := result.RiskFreeRate.InexactFloat64(); got != 0.08 {
		t.Errorf("risk-free rate %v, want explicit 0.08", got)
	}
}

func TestPriceOptionBinomialDefault(t *testing.T) {
	svc, repo, pub := newService()

	result, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Symbol:          "PJM-CAL26",
		OptionKind:      "CALL",
		ExerciseStyle:   "AMERICAN",
		UnderlyingPrice: 1,
		StrikePrice:     1,
		Maturity:        1,
		Volatility:      0.45,
		RiskFreeRate:    0.05,
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.PricingModel != domain.ModelBinomial {
		t.Errorf("model %v, want Binomial default", result.PricingModel)
	}
	// 闭式解参考值约 0.1991，100 步树在 0.005 以内
	price := result.OptionPrice.InexactFloat64()
	if price < 0.194 || price > 0.204 {
		t.Errorf("price %v, want ~0.199", price)
	}
	delta := result.Greeks.Delta.InexactFloat64()
	if delta < 0.4 || delta > 0.75 {
		t.Errorf("delta %v outside [0.4, 0.75]", delta)
	}
	if len(repo.results) != 1 {
		t.Errorf("saved %d results, want 1", len(repo.results))
	}
	if repo.txCount != 1 {
		t.Errorf("tx count %d, want 1", repo.txCount)
	}
	if len(pub.inTx) != 2 {
		t.Fatalf("published %d events in tx, want 2", len(pub.inTx))
	}
	if pub.inTx[0] != domain.OptionPricedEventType || pub.inTx[1] != domain.GreeksCalculatedEventType {
		t.Errorf("unexpected event topics %v", pub.inTx)
	}
}

func TestPriceOptionBlackScholesMatchesReference(t *testing.T) {
	svc, _, _ := newService()

	result, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Symbol:          "NG-HH",
		OptionKind:      "CALL",
		ExerciseStyle:   "EUROPEAN",
		UnderlyingPrice: 100,
		StrikePrice:     100,
		Maturity:        1,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
		PricingModel:    "BlackScholes",
	})
	if err != nil {
		t.Fatal(err)
	}
	price := result.OptionPrice.InexactFloat64()
	if price < 10.45 || price > 10.46 {
		t.Errorf("price %v, want ~10.4506", price)
	}
}

func TestPriceOptionInvalidInput(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	if _, err := svc.PriceOption(ctx, PriceOptionCommand{}); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("empty command: got %v, want ErrInvalidParameters", err)
	}
	if _, err := svc.PriceOption(ctx, PriceOptionCommand{
		Symbol: "X", OptionKind: "CALL", UnderlyingPrice: 100, StrikePrice: 100,
		Maturity: 1, Volatility: 0.2, PricingModel: "Quantum",
	}); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("bad model: got %v, want ErrInvalidParameters", err)
	}
	if len(repo.results) != 0 {
		t.Errorf("invalid commands must not persist results, got %d", len(repo.results))
	}
}

func TestPriceOptionUsesLatestQuote(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	if err := svc.RecordSpotPrice(ctx, RecordSpotPriceCommand{
		Symbol:    "PJM-CAL26",
		Price:     decimal.NewFromFloat(42.5),
		Timestamp: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if len(repo.prices) != 1 {
		t.Fatalf("saved %d prices, want 1", len(repo.prices))
	}

	result, err := svc.PriceOption(ctx, PriceOptionCommand{
		Symbol:         "PJM-CAL26",
		OptionKind:     "PUT",
		ExerciseStyle:  "EUROPEAN",
		UseLatestPrice: true,
		StrikePrice:    40,
		Maturity:       0.5,
		Volatility:     0.3,
		RiskFreeRate:   0.04,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := result.UnderlyingPrice.InexactFloat64(); got != 42.5 {
		t.Errorf("underlying %v, want recorded quote 42.5", got)
	}

	// 无报价时报错
	if _, err := svc.PriceOption(ctx, PriceOptionCommand{
		Symbol: "UNKNOWN", OptionKind: "CALL", UseLatestPrice: true,
		StrikePrice: 1, Maturity: 1, Volatility: 0.2,
	}); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("missing quote: got %v, want ErrInvalidParameters", err)
	}
}

func TestValidatePricingAgreement(t *testing.T) {
	svc, _, pub := newService()

	report, err := svc.ValidatePricing(context.Background(), ValidatePricingCommand{
		Symbol:          "NG-HH",
		OptionKind:      "CALL",
		UnderlyingPrice: 100,
		StrikePrice:     100,
		Maturity:        1,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
		LatticeSteps:    500,
		MonteCarloPaths: 100000,
		Seed:            42,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !report.EuropeanEquivalent {
		t.Error("validation must flag european-equivalent comparison")
	}
	if report.StdError <= 0 {
		t.Errorf("std error %v, want > 0", report.StdError)
	}
	diff := report.LatticePrice - report.MonteCarloEstimate
	if diff < 0 {
		diff = -diff
	}
	// 两个模型应在模拟噪声加离散化误差的范围内吻合
	if diff > 4*report.StdError+0.01*report.LatticePrice {
		t.Errorf("lattice %v vs monte carlo %v diverge beyond tolerance (se=%v)",
			report.LatticePrice, report.MonteCarloEstimate, report.StdError)
	}
	if len(pub.published) != 1 || pub.published[0] != domain.PricingValidatedEventType {
		t.Errorf("expected one validation event, got %v", pub.published)
	}
}

func TestBatchPriceOptionsPartialFailure(t *testing.T) {
	svc, repo, pub := newService()

	good := PriceOptionCommand{
		Symbol: "A", OptionKind: "CALL", ExerciseStyle: "EUROPEAN",
		UnderlyingPrice: 100, StrikePrice: 100, Maturity: 1,
		Volatility: 0.2, RiskFreeRate: 0.05,
	}
	bad := good
	bad.Symbol = "B"
	bad.StrikePrice = -5

	result, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		BatchID:   "batch-1",
		Contracts: []PriceOptionCommand{good, bad},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("success=%d failure=%d, want 1/1", result.SuccessCount, result.FailureCount)
	}
	if len(repo.results) != 1 {
		t.Errorf("saved %d results, want 1", len(repo.results))
	}
	if len(pub.published) != 1 || pub.published[0] != domain.BatchPricingCompletedEventType {
		t.Errorf("expected batch completion event, got %v", pub.published)
	}
}

func TestCalibrateVolatilityFromHistory(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	// 恒定报价序列标定出零波动率，σ=0 走退化分支
	base := time.Now().Add(-10 * 24 * time.Hour)
	for i := 0; i < 10; i++ {
		if err := svc.RecordSpotPrice(ctx, RecordSpotPriceCommand{
			Symbol:    "FLAT",
			Price:     decimal.NewFromFloat(50),
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}

	result, err := svc.PriceOption(ctx, PriceOptionCommand{
		Symbol:              "FLAT",
		OptionKind:          "CALL",
		ExerciseStyle:       "EUROPEAN",
		UnderlyingPrice:     50,
		StrikePrice:         45,
		Maturity:            1,
		RiskFreeRate:        0.05,
		CalibrateVolatility: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Volatility.IsZero() {
		t.Errorf("calibrated volatility %v, want 0", result.Volatility)
	}
}
