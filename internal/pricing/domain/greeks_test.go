package domain

import (
	"context"
	"errors"
	"testing"
)

func bsPricer(params PricingParameters) (float64, error) {
	res, err := BlackScholes(params)
	if err != nil {
		return 0, err
	}
	return res.Price, nil
}

func latticePricer(steps int) PricerFunc {
	return func(params PricingParameters) (float64, error) {
		rep, err := PriceLattice(params, LatticeConfig{Steps: steps})
		if err != nil {
			return 0, err
		}
		return rep.Price, nil
	}
}

func TestGreeksDeltaBoundsAcrossMoneyness(t *testing.T) {
	ctx := context.Background()
	for _, moneyness := range []float64{0.5, 0.8, 1.0, 1.25, 2.0} {
		spot := 100 * moneyness

		call := mustParams(t, spot, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)
		rep, err := ComputeGreeks(ctx, call, bsPricer, DefaultBumpConfig())
		if err != nil {
			t.Fatalf("moneyness %v: %v", moneyness, err)
		}
		if rep.Delta <= 0 || rep.Delta >= 1 {
			t.Errorf("call delta %v at moneyness %v outside (0,1)", rep.Delta, moneyness)
		}
		if rep.Gamma <= 0 {
			t.Errorf("gamma %v at moneyness %v, want > 0", rep.Gamma, moneyness)
		}
		if rep.Vega <= 0 {
			t.Errorf("vega %v at moneyness %v, want > 0", rep.Vega, moneyness)
		}

		put := call
		put.Kind = OptionPut
		rep, err = ComputeGreeks(ctx, put, bsPricer, DefaultBumpConfig())
		if err != nil {
			t.Fatal(err)
		}
		if rep.Delta >= 0 || rep.Delta <= -1 {
			t.Errorf("put delta %v at moneyness %v outside (-1,0)", rep.Delta, moneyness)
		}
	}
}

func TestGreeksMatchAnalytic(t *testing.T) {
	params := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)
	analytic, err := BlackScholes(params)
	if err != nil {
		t.Fatal(err)
	}

	rep, err := ComputeGreeks(context.Background(), params, bsPricer, DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(rep.Price, analytic.Price, 1e-12) {
		t.Errorf("base price %v != analytic %v", rep.Price, analytic.Price)
	}
	if !almostEqual(rep.Delta, analytic.Delta, 1e-3) {
		t.Errorf("delta %v vs analytic %v", rep.Delta, analytic.Delta)
	}
	if !almostEqual(rep.Gamma, analytic.Gamma, 1e-3) {
		t.Errorf("gamma %v vs analytic %v", rep.Gamma, analytic.Gamma)
	}
	if !almostEqual(rep.Vega, analytic.Vega, 0.05) {
		t.Errorf("vega %v vs analytic %v", rep.Vega, analytic.Vega)
	}
	if !almostEqual(rep.Rho, analytic.Rho, 0.05) {
		t.Errorf("rho %v vs analytic %v", rep.Rho, analytic.Rho)
	}
	if rep.Theta >= 0 {
		t.Errorf("atm call theta %v, want < 0", rep.Theta)
	}
}

func TestGreeksRhoSigns(t *testing.T) {
	ctx := context.Background()
	call := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)
	rep, err := ComputeGreeks(ctx, call, bsPricer, DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Rho <= 0 {
		t.Errorf("call rho %v, want > 0", rep.Rho)
	}

	put := call
	put.Kind = OptionPut
	rep, err = ComputeGreeks(ctx, put, bsPricer, DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Rho >= 0 {
		t.Errorf("put rho %v, want < 0", rep.Rho)
	}
}

func TestGreeksLatticeScenario(t *testing.T) {
	params := mustParams(t, 1, 1, 1, 0.05, 0.45, OptionCall, ExerciseAmerican)
	rep, err := ComputeGreeks(context.Background(), params, latticePricer(100), DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Delta < 0.4 || rep.Delta > 0.75 {
		t.Errorf("delta %v outside [0.4, 0.75]", rep.Delta)
	}
	if rep.Gamma <= 0 {
		t.Errorf("gamma %v, want > 0", rep.Gamma)
	}
	if rep.Theta >= 0 {
		t.Errorf("theta %v, want < 0", rep.Theta)
	}
}

func TestGreeksDegenerateBumpShrinks(t *testing.T) {
	ctx := context.Background()

	// T 小于默认时间扰动的两倍，扰动收缩为 T/2
	short := mustParams(t, 100, 100, 0.005, 0.05, 0.2, OptionCall, ExerciseEuropean)
	rep, err := ComputeGreeks(ctx, short, bsPricer, DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.TimeBump, 0.0025, 1e-15) {
		t.Errorf("time bump %v, want 0.0025", rep.TimeBump)
	}

	// σ 小于默认波动率扰动，扰动收缩为 σ/2
	lowVol := mustParams(t, 100, 100, 1, 0.05, 0.005, OptionCall, ExerciseEuropean)
	rep, err = ComputeGreeks(ctx, lowVol, bsPricer, DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.VolBump, 0.0025, 1e-15) {
		t.Errorf("vol bump %v, want 0.0025", rep.VolBump)
	}

	// 正常参数下生效扰动等于默认值
	normal := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)
	rep, err = ComputeGreeks(ctx, normal, bsPricer, DefaultBumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultBumpConfig()
	if rep.SpotBump != def.SpotRel*normal.Spot || rep.VolBump != def.Vol ||
		rep.TimeBump != def.Time || rep.RateBump != def.Rate {
		t.Errorf("effective bumps %+v differ from defaults", rep)
	}
}

func TestGreeksInvalidInput(t *testing.T) {
	ctx := context.Background()
	params := mustParams(t, 100, 100, 1, 0.05, 0.2, OptionCall, ExerciseEuropean)

	if _, err := ComputeGreeks(ctx, params, nil, DefaultBumpConfig()); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("nil pricer: got %v, want ErrInvalidParameters", err)
	}
	if _, err := ComputeGreeks(ctx, params, bsPricer, BumpConfig{}); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero bumps: got %v, want ErrInvalidParameters", err)
	}

	failing := func(PricingParameters) (float64, error) {
		return 0, errors.New("pricer exploded")
	}
	if _, err := ComputeGreeks(ctx, params, failing, DefaultBumpConfig()); err == nil {
		t.Error("expected error from failing pricer")
	}
}
