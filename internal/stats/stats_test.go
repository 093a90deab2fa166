package stats

import (
	"math"
	"testing"

	"github.com/TimurManjosov/abconsole/internal/model"
)

func TestWilsonInterval(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		trials    int
		wantLower float64
		wantUpper float64
		tolerance float64
	}{
		{name: "no trials", successes: 0, trials: 0, wantLower: 0, wantUpper: 0, tolerance: 0},
		{name: "5 of 100", successes: 5, trials: 100, wantLower: 0.0215, wantUpper: 0.1118, tolerance: 0.001},
		{name: "all successes clamps to 1", successes: 10, trials: 10, wantLower: 0.7225, wantUpper: 1, tolerance: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lower, upper := WilsonInterval(tt.successes, tt.trials, 0.95)
			if math.Abs(lower-tt.wantLower) > tt.tolerance || math.Abs(upper-tt.wantUpper) > tt.tolerance {
				t.Errorf("WilsonInterval(%d, %d) = [%.4f, %.4f], want [%.4f, %.4f]",
					tt.successes, tt.trials, lower, upper, tt.wantLower, tt.wantUpper)
			}
		})
	}
}

func TestSignificanceTest(t *testing.T) {
	if got := SignificanceTest(0, 0, 0, 0); got != 0.5 {
		t.Errorf("Expected 0.5 without data, got %v", got)
	}
	if got := SignificanceTest(50, 1000, 50, 1000); math.Abs(got-0.5) > 0.001 {
		t.Errorf("Expected ~0.5 for equal rates, got %v", got)
	}
	if got := SignificanceTest(150, 1000, 100, 1000); got < 0.99 {
		t.Errorf("Expected >0.99 for 15%% vs 10%% on 1000 views, got %v", got)
	}
}

func TestAnalyze_LeadingChallenger(t *testing.T) {
	st := &model.ExperimentStats{
		Variants: []model.VariantStats{
			{VariantKey: "control", Views: 1000, Conversions: 100},
			{VariantKey: "bold", VariantName: "Bold", Views: 1000, Conversions: 150},
		},
	}

	res := Analyze(st)
	if res.LeadingVariant != 1 {
		t.Errorf("Expected variant 1 leading, got %d", res.LeadingVariant)
	}
	if !res.Confident {
		t.Errorf("Expected confident result, got %v", res.ConfidenceLevel)
	}
	if res.Variants[0].Name != "control" {
		t.Errorf("Expected key as fallback name, got %s", res.Variants[0].Name)
	}
	if res.Variants[1].Rate != 0.15 {
		t.Errorf("Expected rate 0.15, got %v", res.Variants[1].Rate)
	}
}

func TestAnalyze_SingleVariant(t *testing.T) {
	res := Analyze(&model.ExperimentStats{
		Variants: []model.VariantStats{{VariantKey: "a", Views: 100, Conversions: 5}},
	})
	if res.Confident || res.ConfidenceLevel != 0 {
		t.Errorf("Expected no confidence with one variant, got %+v", res)
	}
	if res.Variants[0].Rate != 0.05 {
		t.Errorf("Expected rate 0.05, got %v", res.Variants[0].Rate)
	}
}

func TestAnalyze_Nil(t *testing.T) {
	if res := Analyze(nil); len(res.Variants) != 0 {
		t.Errorf("Expected empty result, got %+v", res)
	}
}
