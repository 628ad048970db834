package sizing_test

import (
	"math"
	"testing"

	"github.com/jerseyhouse/storefront/internal/domain/sizing"
	"github.com/jerseyhouse/storefront/internal/validation"
)

func TestRecommendAdult(t *testing.T) {
	cases := []struct {
		name    string
		in      sizing.Input
		size    string
		tighter string
		looser  string
	}{
		{"regular build", sizing.Input{Age: 30, HeightCm: 170, WeightKg: 65, Fit: sizing.FitRegular}, "L", "M", "XL"},
		{"empty fit is regular", sizing.Input{Age: 30, HeightCm: 170, WeightKg: 65}, "L", "M", "XL"},
		{"heavy is 3XL", sizing.Input{Age: 40, HeightCm: 175, WeightKg: 95}, "3XL", "2XL", ""},
		{"very heavy clamps", sizing.Input{Age: 40, HeightCm: 190, WeightKg: 130, Fit: sizing.FitLoose}, "3XL", "2XL", ""},
		{"light is S", sizing.Input{Age: 20, HeightCm: 170, WeightKg: 50}, "S", "", "M"},
		{"light and short clamps to S", sizing.Input{Age: 20, HeightCm: 150, WeightKg: 45, Fit: sizing.FitSlim}, "S", "", "M"},
		{"short goes down", sizing.Input{Age: 25, HeightCm: 160, WeightKg: 70}, "M", "S", "L"},
		{"tall goes up", sizing.Input{Age: 25, HeightCm: 190, WeightKg: 70}, "XL", "L", "2XL"},
		{"boundary heights stay", sizing.Input{Age: 25, HeightCm: 185, WeightKg: 70}, "L", "M", "XL"},
		{"slim goes down", sizing.Input{Age: 25, HeightCm: 175, WeightKg: 80, Fit: sizing.FitSlim}, "L", "M", "XL"},
		{"loose goes up", sizing.Input{Age: 25, HeightCm: 175, WeightKg: 80, Fit: sizing.FitLoose}, "2XL", "XL", "3XL"},
		{"tall and loose stack", sizing.Input{Age: 25, HeightCm: 190, WeightKg: 60, Fit: sizing.FitLoose}, "XL", "L", "2XL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := sizing.RecommendAdult(tc.in)
			if err != nil {
				t.Fatalf("recommend failed: %v", err)
			}
			if rec.Size != tc.size {
				t.Fatalf("expected %s, got %s", tc.size, rec.Size)
			}
			if rec.Tighter != tc.tighter || rec.Looser != tc.looser {
				t.Fatalf("unexpected neighbours: tighter=%q looser=%q", rec.Tighter, rec.Looser)
			}
			if rec.Chart.Size != rec.Size {
				t.Fatalf("chart row %s does not match size %s", rec.Chart.Size, rec.Size)
			}
			if rec.Kids {
				t.Fatalf("adult recommendation flagged as kids")
			}
		})
	}
}

func TestRecommendAdultValidation(t *testing.T) {
	cases := []sizing.Input{
		{Age: 10, HeightCm: 170, WeightKg: 65},
		{Age: 30, HeightCm: 20, WeightKg: 65},
		{Age: 30, HeightCm: 170, WeightKg: 500},
		{Age: 30, HeightCm: 170, WeightKg: 65, Fit: "Baggy"},
		{Age: 30, HeightCm: math.NaN(), WeightKg: 65},
		{Age: 30, HeightCm: 170, WeightKg: math.Inf(1)},
	}
	for _, in := range cases {
		if _, err := sizing.RecommendAdult(in); !validation.Is(err) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
	if _, err := sizing.RecommendKids(sizing.Input{Age: 8, HeightCm: 130, WeightKg: math.NaN()}); !validation.Is(err) {
		t.Fatalf("expected validation error for NaN kids weight, got %v", err)
	}
}

func TestRecommendKids(t *testing.T) {
	cases := []struct {
		name string
		in   sizing.Input
		size string
	}{
		{"toddler", sizing.Input{Age: 3, HeightCm: 100, WeightKg: 15}, "16"},
		{"six year old", sizing.Input{Age: 6, HeightCm: 120, WeightKg: 22}, "20"},
		{"tall for age", sizing.Input{Age: 6, HeightCm: 130, WeightKg: 25}, "22"},
		{"short for age", sizing.Input{Age: 8, HeightCm: 125, WeightKg: 25}, "22"},
		{"loose twelve", sizing.Input{Age: 12, HeightCm: 160, WeightKg: 40, Fit: sizing.FitLoose}, "28"},
		{"slim toddler clamps", sizing.Input{Age: 2, HeightCm: 90, WeightKg: 12, Fit: sizing.FitSlim}, "16"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := sizing.RecommendKids(tc.in)
			if err != nil {
				t.Fatalf("recommend failed: %v", err)
			}
			if rec.Size != tc.size {
				t.Fatalf("expected %s, got %s", tc.size, rec.Size)
			}
			if !rec.Kids {
				t.Fatalf("expected kids recommendation")
			}
		})
	}
}

func TestRecommendDispatchesByAge(t *testing.T) {
	rec, err := sizing.Recommend(sizing.Input{Age: 9, HeightCm: 140, WeightKg: 30})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if !rec.Kids || rec.Size != "24" {
		t.Fatalf("expected kids size 24, got %+v", rec)
	}

	rec, err = sizing.Recommend(sizing.Input{Age: 14, HeightCm: 170, WeightKg: 65})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if rec.Kids || rec.Size != "L" {
		t.Fatalf("expected adult L, got %+v", rec)
	}
}

func TestChartsAndRows(t *testing.T) {
	c := sizing.Charts()
	if len(c.Adult) != 6 || len(c.Kids) != 7 {
		t.Fatalf("unexpected chart sizes: adult=%d kids=%d", len(c.Adult), len(c.Kids))
	}
	c.Adult[0].Size = "mutated"
	if sizing.AdultSizes()[0] != "S" {
		t.Fatalf("Charts must return a copy")
	}

	if !sizing.IsKnownSize("2xl") || !sizing.IsKnownSize("24") || sizing.IsKnownSize("5XL") {
		t.Fatalf("IsKnownSize returned unexpected results")
	}
	row, err := sizing.Row("XL")
	if err != nil || row.ChestCm != 57 {
		t.Fatalf("unexpected row for XL: %+v err=%v", row, err)
	}
	if _, err := sizing.Row("XS"); err == nil {
		t.Fatalf("expected error for unknown size")
	}
}
