package domain

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func mustParams(t *testing.T, spot, strike, maturity, rate, vol float64, kind OptionKind, style ExerciseStyle) PricingParameters {
	t.Helper()
	p, err := NewPricingParameters(spot, strike, maturity, rate, vol, kind, style)
	if err != nil {
		t.Fatalf("NewPricingParameters: %v", err)
	}
	return p
}

func TestLatticeConvergesToBlackScholes(t *testing.T) {
	// 标准场景 S=100 K=100 r=5% σ=20% T=1，BS 闭式解 10.450583572185565
	const bsPrice = 10.450583572185565
	params := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)

	coarse, err := PriceLattice(params, LatticeConfig{Steps: 100})
	if err != nil {
		t.Fatalf("PriceLattice(100): %v", err)
	}
	fine, err := PriceLattice(params, LatticeConfig{Steps: 1000})
	if err != nil {
		t.Fatalf("PriceLattice(1000): %v", err)
	}

	if !almostEqual(coarse.Price, bsPrice, 0.1) {
		t.Errorf("100 steps: got %v, want %v +- 0.1", coarse.Price, bsPrice)
	}
	if !almostEqual(fine.Price, bsPrice, 0.02) {
		t.Errorf("1000 steps: got %v, want %v +- 0.02", fine.Price, bsPrice)
	}
	// 误差随步数增加而收敛
	if math.Abs(fine.Price-bsPrice) >= math.Abs(coarse.Price-bsPrice) {
		t.Errorf("no convergence: |err(1000)|=%v >= |err(100)|=%v",
			math.Abs(fine.Price-bsPrice), math.Abs(coarse.Price-bsPrice))
	}
}

func TestLatticePutCallParity(t *testing.T) {
	// 欧式期权的平价关系 C - P = S - K·exp(-rT) 在树上精确成立
	call := mustParams(t, 100, 95, 0.75, 0.03, 0.3, OptionCall, ExerciseEuropean)
	put := call
	put.Kind = OptionPut

	c, err := PriceLattice(call, LatticeConfig{Steps: 500})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	p, err := PriceLattice(put, LatticeConfig{Steps: 500})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	want := call.Spot - call.Strike*math.Exp(-call.Rate*call.Maturity)
	if !almostEqual(c.Price-p.Price, want, 1e-8) {
		t.Errorf("parity: C-P = %v, want %v", c.Price-p.Price, want)
	}
}

func TestAmericanDominatesEuropean(t *testing.T) {
	cases := []struct {
		name                                string
		spot, strike, maturity, rate, sigma float64
		kind                                OptionKind
	}{
		{"itm put", 80, 100, 1, 0.05, 0.2, OptionPut},
		{"atm put", 100, 100, 1, 0.05, 0.3, OptionPut},
		{"otm put", 120, 100, 0.5, 0.08, 0.25, OptionPut},
		{"atm call", 100, 100, 1, 0.05, 0.45, OptionCall},
		{"itm call negative rate", 110, 100, 2, -0.01, 0.2, OptionCall},
		{"deep itm put short", 50, 100, 0.25, 0.1, 0.4, OptionPut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eu := mustParams(t, tc.spot, tc.strike, tc.maturity, tc.rate, tc.sigma, tc.kind, ExerciseEuropean)
			am := eu.WithStyle(ExerciseAmerican)

			euRep, err := PriceLattice(eu, LatticeConfig{Steps: 300})
			if err != nil {
				t.Fatalf("european: %v", err)
			}
			amRep, err := PriceLattice(am, LatticeConfig{Steps: 300})
			if err != nil {
				t.Fatalf("american: %v", err)
			}

			if amRep.Price < euRep.Price-1e-12 {
				t.Errorf("american %v < european %v", amRep.Price, euRep.Price)
			}
			if amRep.Price < am.Intrinsic()-1e-12 {
				t.Errorf("american %v < intrinsic %v", amRep.Price, am.Intrinsic())
			}
		})
	}
}

func TestAmericanCallEqualsEuropeanWithoutDividends(t *testing.T) {
	eu := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)
	am := eu.WithStyle(ExerciseAmerican)

	euRep, err := PriceLattice(eu, LatticeConfig{Steps: 400})
	if err != nil {
		t.Fatal(err)
	}
	amRep, err := PriceLattice(am, LatticeConfig{Steps: 400})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(euRep.Price, amRep.Price, 1e-9) {
		t.Errorf("american call %v != european call %v", amRep.Price, euRep.Price)
	}
}

func TestLatticeShortMaturityApproachesIntrinsic(t *testing.T) {
	params := mustParams(t, 80, 100, 1e-6, 0.05, 0.3, OptionPut, ExerciseAmerican)
	rep, err := PriceLattice(params, LatticeConfig{Steps: 10})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.Price, 20, 1e-3) {
		t.Errorf("got %v, want ~20", rep.Price)
	}
}

func TestLatticeZeroVolatility(t *testing.T) {
	// σ=0：欧式价值为折现远期收益
	eu := mustParams(t, 100, 90, 1, 0.05, 0, OptionCall, ExerciseEuropean)
	rep, err := PriceLattice(eu, LatticeConfig{Steps: 100})
	if err != nil {
		t.Fatal(err)
	}
	want := 100 - 90*math.Exp(-0.05)
	if !almostEqual(rep.Price, want, 1e-12) {
		t.Errorf("european: got %v, want %v", rep.Price, want)
	}

	// σ=0 且 r>0 的美式看跌：立即行权最优
	am := mustParams(t, 80, 100, 1, 0.05, 0, OptionPut, ExerciseAmerican)
	rep, err = PriceLattice(am, LatticeConfig{Steps: 100})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.Price, 20, 1e-12) {
		t.Errorf("american put: got %v, want 20", rep.Price)
	}
}

func TestLatticeHighVolatilityScenario(t *testing.T) {
	// 无股息美式看涨等于欧式，价格收敛于闭式解
	params := mustParams(t, 1, 1, 1, 0.05, 0.45, OptionCall, ExerciseAmerican)
	rep, err := PriceLattice(params, LatticeConfig{Steps: 100})
	if err != nil {
		t.Fatal(err)
	}

	ref, err := BlackScholes(params.WithStyle(ExerciseEuropean))
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.Price, ref.Price, 0.005) {
		t.Errorf("price %v, want %v +- 0.005", rep.Price, ref.Price)
	}
	if rep.Price < params.Intrinsic() {
		t.Errorf("price %v below intrinsic %v", rep.Price, params.Intrinsic())
	}
}

func TestLatticeInvalidParameters(t *testing.T) {
	valid := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)

	if _, err := PriceLattice(valid, LatticeConfig{Steps: 0}); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("steps=0: got %v, want ErrInvalidParameters", err)
	}

	bad := valid
	bad.Spot = -1
	if _, err := PriceLattice(bad, LatticeConfig{Steps: 100}); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("negative spot: got %v, want ErrInvalidParameters", err)
	}

	bad = valid
	bad.Volatility = -0.2
	if _, err := PriceLattice(bad, LatticeConfig{Steps: 100}); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("negative vol: got %v, want ErrInvalidParameters", err)
	}

	if _, err := NewPricingParameters(100, 100, 0, 0.05, 0.2, OptionCall, ExerciseEuropean); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero maturity: got %v, want ErrInvalidParameters", err)
	}
	if _, err := NewPricingParameters(100, 100, 1, 0.05, 0.2, "STRADDLE", ExerciseEuropean); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("bad kind: got %v, want ErrInvalidParameters", err)
	}
}

func TestLatticeInvalidRiskNeutralProbability(t *testing.T) {
	// 步长过大使 exp(r·Δt) > u，q 超出 (0,1)
	params := mustParams(t, 100, 100, 1, 1.0, 0.01, OptionCall, ExerciseEuropean)
	_, err := PriceLattice(params, LatticeConfig{Steps: 1})
	if !errors.Is(err, ErrInvalidRiskNeutralProbability) {
		t.Errorf("got %v, want ErrInvalidRiskNeutralProbability", err)
	}
}

func TestLatticeExerciseBoundary(t *testing.T) {
	params := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionPut, ExerciseAmerican)
	rep, err := PriceLattice(params, LatticeConfig{Steps: 200, WithBoundary: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.ExerciseBoundary) == 0 {
		t.Fatal("expected non-empty exercise boundary for american put")
	}

	prev := -1.0
	for _, bp := range rep.ExerciseBoundary {
		if bp.Time <= prev {
			t.Fatalf("boundary times not ascending: %v after %v", bp.Time, prev)
		}
		prev = bp.Time
		if bp.Spot >= params.Strike {
			t.Errorf("put boundary spot %v >= strike at t=%v", bp.Spot, bp.Time)
		}
	}

	// 临近到期时边界逼近行权价
	last := rep.ExerciseBoundary[len(rep.ExerciseBoundary)-1]
	if last.Spot < 90 {
		t.Errorf("boundary near expiry %v, expected close to strike", last.Spot)
	}

	// 欧式不输出边界
	euRep, err := PriceLattice(params.WithStyle(ExerciseEuropean), LatticeConfig{Steps: 200, WithBoundary: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(euRep.ExerciseBoundary) != 0 {
		t.Errorf("european boundary should be empty, got %d points", len(euRep.ExerciseBoundary))
	}
}

func TestLatticeBoundaryDoesNotChangePrice(t *testing.T) {
	params := mustParams(t, 100, 110, 1, 0.04, 0.25, OptionPut, ExerciseAmerican)
	plain, err := PriceLattice(params, LatticeConfig{Steps: 250})
	if err != nil {
		t.Fatal(err)
	}
	withB, err := PriceLattice(params, LatticeConfig{Steps: 250, WithBoundary: true})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Price != withB.Price {
		t.Errorf("boundary request changed price: %v vs %v", plain.Price, withB.Price)
	}
}
