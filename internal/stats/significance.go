// Package stats analyses experiment results: conversion rates, Wilson
// confidence intervals and a two-proportion z-test against the control.
package stats

import (
	"math"

	"github.com/TimurManjosov/abconsole/internal/model"
)

// ConfidentLevel is the confidence at which a leader is declared the winner.
const ConfidentLevel = 0.95

// Result represents statistical analysis of an experiment.
// The first variant is treated as the control.
type Result struct {
	Variants        []VariantResult
	Confident       bool    // >= 95% confidence
	ConfidenceLevel float64 // 0-1
	LeadingVariant  int
}

// VariantResult contains statistics for a single variant
type VariantResult struct {
	Index       int
	Key         string
	Name        string
	Views       int
	Clicks      int
	Conversions int
	Rate        float64
	CILower     float64
	CIUpper     float64
}

// SignificanceTest performs a two-proportion z-test.
// Returns confidence level (0-1) that variant A beats variant B.
func SignificanceTest(aConv, aViews, bConv, bViews int) float64 {
	if aViews == 0 || bViews == 0 {
		return 0.5 // need data from both variants
	}

	pA := float64(aConv) / float64(aViews)
	pB := float64(bConv) / float64(bViews)

	// pooled proportion under the null hypothesis pA = pB
	pooled := float64(aConv+bConv) / float64(aViews+bViews)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aViews) + 1/float64(bViews)))

	if se == 0 {
		switch {
		case pA > pB:
			return 1.0
		case pA < pB:
			return 0.0
		default:
			return 0.5
		}
	}

	return normalCDF((pA - pB) / se)
}

// normalCDF approximates the standard normal CDF
// (Abramowitz and Stegun, formula 7.1.26).
func normalCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// Analyze calculates full statistics for an experiment's stats payload.
func Analyze(st *model.ExperimentStats) *Result {
	if st == nil {
		return &Result{}
	}

	variants := make([]VariantResult, len(st.Variants))
	maxRate := 0.0
	leading := 0

	for i, v := range st.Variants {
		rate := model.ConversionRate(v.Conversions, v.Views)
		lower, upper := WilsonInterval(v.Conversions, v.Views, ConfidentLevel)
		name := v.VariantName
		if name == "" {
			name = v.VariantKey
		}

		variants[i] = VariantResult{
			Index:       i,
			Key:         v.VariantKey,
			Name:        name,
			Views:       v.Views,
			Clicks:      v.Clicks,
			Conversions: v.Conversions,
			Rate:        rate,
			CILower:     lower,
			CIUpper:     upper,
		}

		if rate > maxRate {
			maxRate = rate
			leading = i
		}
	}

	var confidence float64
	if len(variants) >= 2 {
		if leading == 0 {
			// control leads, compare against the best challenger
			best := 1
			for i := 2; i < len(variants); i++ {
				if variants[i].Rate > variants[best].Rate {
					best = i
				}
			}
			confidence = SignificanceTest(
				variants[0].Conversions, variants[0].Views,
				variants[best].Conversions, variants[best].Views,
			)
		} else {
			confidence = SignificanceTest(
				variants[leading].Conversions, variants[leading].Views,
				variants[0].Conversions, variants[0].Views,
			)
		}
	}

	return &Result{
		Variants:        variants,
		Confident:       confidence >= ConfidentLevel,
		ConfidenceLevel: confidence,
		LeadingVariant:  leading,
	}
}
