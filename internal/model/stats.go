package model

// VariantStats holds the event counts for one variant.
type VariantStats struct {
	VariantKey     string  `json:"variantKey"`
	VariantName    string  `json:"variantName,omitempty"`
	Views          int     `json:"views"`
	Clicks         int     `json:"clicks"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"`
}

// StatsTotals aggregates counts over all variants.
type StatsTotals struct {
	Views          int     `json:"views"`
	Clicks         int     `json:"clicks"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"`
}

// ExperimentStats is the payload of GET /experiments/:id/stats.
type ExperimentStats struct {
	ExperimentID   string         `json:"experimentId"`
	ExperimentName string         `json:"experimentName,omitempty"`
	Variants       []VariantStats `json:"variants"`
	Totals         StatsTotals    `json:"totals"`
}

// ConversionRate returns conversions/views, or 0 when there are no views.
func ConversionRate(conversions, views int) float64 {
	if views <= 0 {
		return 0
	}
	return float64(conversions) / float64(views)
}

// Normalize fills in conversion rates the backend omitted and, when the
// backend sent no totals, sums them from the variants. A rate the backend
// did send is kept as is.
func (s *ExperimentStats) Normalize() {
	var sum StatsTotals
	for i := range s.Variants {
		v := &s.Variants[i]
		if v.ConversionRate == 0 {
			v.ConversionRate = ConversionRate(v.Conversions, v.Views)
		}
		sum.Views += v.Views
		sum.Clicks += v.Clicks
		sum.Conversions += v.Conversions
	}
	if s.Totals.Views == 0 && s.Totals.Clicks == 0 && s.Totals.Conversions == 0 {
		s.Totals = sum
	}
	if s.Totals.ConversionRate == 0 {
		s.Totals.ConversionRate = ConversionRate(s.Totals.Conversions, s.Totals.Views)
	}
}
