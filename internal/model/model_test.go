package model

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"draft", "active", "paused", "completed"} {
		if got, err := ParseStatus(s); err != nil || string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	for _, s := range []string{"", "running", "Active"} {
		if _, err := ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error", s)
		}
	}
}

func TestEvent_UnmarshalLegacyVariantID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"key only", `{"id":"1","variantKey":"blue"}`, "blue"},
		{"legacy id only", `{"id":"1","variantId":"blue"}`, "blue"},
		{"key wins over legacy id", `{"id":"1","variantKey":"blue","variantId":"v-9"}`, "blue"},
		{"neither", `{"id":"1"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev Event
			if err := json.Unmarshal([]byte(tt.body), &ev); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if ev.VariantKey != tt.want {
				t.Errorf("VariantKey = %q, want %q", ev.VariantKey, tt.want)
			}
			if ev.ID != "1" {
				t.Errorf("ID = %q, other fields must still decode", ev.ID)
			}
		})
	}
}

func TestConversionRate(t *testing.T) {
	tests := []struct {
		conversions, views int
		want               float64
	}{
		{5, 100, 0.05},
		{0, 100, 0},
		{3, 0, 0},
		{10, 10, 1},
	}

	for _, tt := range tests {
		if got := ConversionRate(tt.conversions, tt.views); got != tt.want {
			t.Errorf("ConversionRate(%d, %d) = %v, want %v", tt.conversions, tt.views, got, tt.want)
		}
	}
}

func TestExperimentStats_Normalize(t *testing.T) {
	st := ExperimentStats{
		Variants: []VariantStats{
			{VariantKey: "a", Views: 100, Clicks: 20, Conversions: 5},
			{VariantKey: "b", Views: 0},
		},
	}
	st.Normalize()

	if st.Variants[0].ConversionRate != 0.05 {
		t.Errorf("variant rate = %v, want 0.05", st.Variants[0].ConversionRate)
	}
	if st.Variants[1].ConversionRate != 0 {
		t.Errorf("zero-view rate = %v, want 0", st.Variants[1].ConversionRate)
	}
	if st.Totals.Views != 100 || st.Totals.Clicks != 20 || st.Totals.Conversions != 5 {
		t.Errorf("unexpected totals: %+v", st.Totals)
	}
	if st.Totals.ConversionRate != 0.05 {
		t.Errorf("total rate = %v, want 0.05", st.Totals.ConversionRate)
	}
}

func TestExperimentStats_NormalizeKeepsBackendTotals(t *testing.T) {
	st := ExperimentStats{
		Variants: []VariantStats{{VariantKey: "a", Views: 10, Conversions: 1}},
		Totals:   StatsTotals{Views: 200, Conversions: 20},
	}
	st.Normalize()

	if st.Totals.Views != 200 {
		t.Errorf("backend totals overwritten: %+v", st.Totals)
	}
	if st.Totals.ConversionRate != 0.1 {
		t.Errorf("total rate = %v, want 0.1", st.Totals.ConversionRate)
	}
}

func TestExperimentStats_NormalizeKeepsBackendRates(t *testing.T) {
	st := ExperimentStats{
		Variants: []VariantStats{
			{VariantKey: "a", Views: 100, Conversions: 5, ConversionRate: 0.07},
			{VariantKey: "b", Views: 100, Conversions: 10},
		},
		Totals: StatsTotals{Views: 200, Conversions: 15, ConversionRate: 0.08},
	}
	st.Normalize()

	if st.Variants[0].ConversionRate != 0.07 {
		t.Errorf("backend variant rate overwritten: %v", st.Variants[0].ConversionRate)
	}
	if st.Variants[1].ConversionRate != 0.1 {
		t.Errorf("missing variant rate = %v, want 0.1", st.Variants[1].ConversionRate)
	}
	if st.Totals.ConversionRate != 0.08 {
		t.Errorf("backend total rate overwritten: %v", st.Totals.ConversionRate)
	}
}
