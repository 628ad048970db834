// Package sizing recommends adult and kids jersey sizes from body measurements.
package sizing

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jerseyhouse/storefront/internal/validation"
)

// KidsMaxAge is the oldest age served by the kids chart.
const KidsMaxAge = 13

const (
	adultHeightShort = 165.0
	adultHeightTall  = 185.0
)

var ErrUnknownSize = errors.New("unknown size")

// Fit is the customer's preferred cut.
type Fit string

const (
	FitSlim    Fit = "Slim"
	FitRegular Fit = "Regular"
	FitLoose   Fit = "Loose"
)

// ParseFit accepts fit names case-insensitively. Empty input means Regular.
func ParseFit(s string) (Fit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regular":
		return FitRegular, nil
	case "slim":
		return FitSlim, nil
	case "loose":
		return FitLoose, nil
	default:
		return "", validation.Invalid("fit", "must be Slim, Regular or Loose")
	}
}

func (f Fit) step() int {
	switch f {
	case FitSlim:
		return -1
	case FitLoose:
		return 1
	default:
		return 0
	}
}

// ChartRow is one line of a size chart.
type ChartRow struct {
	Size        string  `yaml:"size" json:"size"`
	ChestCm     float64 `yaml:"chest_cm" json:"chest_cm"`
	LengthCm    float64 `yaml:"length_cm" json:"length_cm"`
	MaxWeightKg float64 `yaml:"max_weight_kg" json:"max_weight_kg,omitempty"`
	AgeMax      int     `yaml:"age_max" json:"age_max,omitempty"`
	HeightMinCm float64 `yaml:"height_min_cm" json:"height_min_cm,omitempty"`
	HeightMaxCm float64 `yaml:"height_max_cm" json:"height_max_cm,omitempty"`
}

// Chart groups the adult and kids tables.
type Chart struct {
	Adult []ChartRow `yaml:"adult" json:"adult"`
	Kids  []ChartRow `yaml:"kids" json:"kids"`
}

// Input describes the wearer.
type Input struct {
	Age      int     `json:"age"`
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
	Fit      Fit     `json:"fit"`
}

// Recommendation is the chosen size with its neighbours.
type Recommendation struct {
	Size        string   `json:"size"`
	Tighter     string   `json:"tighter,omitempty"`
	Looser      string   `json:"looser,omitempty"`
	Chart       ChartRow `json:"chart"`
	Kids        bool     `json:"kids"`
	Adjustments []string `json:"adjustments,omitempty"`
}

//go:embed charts.yaml
var chartsYAML []byte

var charts = mustLoad(chartsYAML)

func mustLoad(raw []byte) Chart {
	c, err := parseChart(raw)
	if err != nil {
		panic(fmt.Sprintf("sizing: %v", err))
	}
	return c
}

func parseChart(raw []byte) (Chart, error) {
	var c Chart
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Chart{}, fmt.Errorf("decode size charts: %w", err)
	}
	if len(c.Adult) == 0 || len(c.Kids) == 0 {
		return Chart{}, errors.New("size charts must define adult and kids rows")
	}
	return c, nil
}

// Charts returns a copy of the embedded size charts.
func Charts() Chart {
	return Chart{
		Adult: append([]ChartRow(nil), charts.Adult...),
		Kids:  append([]ChartRow(nil), charts.Kids...),
	}
}

// AdultSizes lists adult sizes from smallest to largest.
func AdultSizes() []string { return sizesOf(charts.Adult) }

// KidsSizes lists kids sizes from smallest to largest.
func KidsSizes() []string { return sizesOf(charts.Kids) }

// IsKnownSize reports whether size appears in either chart.
func IsKnownSize(size string) bool {
	return indexOf(charts.Adult, size) >= 0 || indexOf(charts.Kids, size) >= 0
}

// Row returns the chart row for an adult or kids size.
func Row(size string) (ChartRow, error) {
	if i := indexOf(charts.Adult, size); i >= 0 {
		return charts.Adult[i], nil
	}
	if i := indexOf(charts.Kids, size); i >= 0 {
		return charts.Kids[i], nil
	}
	return ChartRow{}, fmt.Errorf("%w: %s", ErrUnknownSize, size)
}

// Recommend picks the kids chart below KidsMaxAge+1 and the adult chart otherwise.
func Recommend(in Input) (Recommendation, error) {
	if in.Age > 0 && in.Age <= KidsMaxAge {
		return RecommendKids(in)
	}
	return RecommendAdult(in)
}

// RecommendAdult applies the weight bracket table, then height and fit
// adjustments, and clamps to the chart.
func RecommendAdult(in Input) (Recommendation, error) {
	fit, err := validate(in, 14, 100, 100, 250, 30, 250)
	if err != nil {
		return Recommendation{}, err
	}

	rows := charts.Adult
	idx := len(rows) - 1
	for i, row := range rows {
		if row.MaxWeightKg > 0 && in.WeightKg < row.MaxWeightKg {
			idx = i
			break
		}
	}

	var notes []string
	switch {
	case in.HeightCm < adultHeightShort:
		idx--
		notes = append(notes, "height below 165 cm: one size down")
	case in.HeightCm > adultHeightTall:
		idx++
		notes = append(notes, "height above 185 cm: one size up")
	}
	idx, notes = applyFit(idx, fit, notes)

	return build(rows, idx, false, notes), nil
}

// RecommendKids starts from the age row, then applies height and fit adjustments.
func RecommendKids(in Input) (Recommendation, error) {
	fit, err := validate(in, 2, KidsMaxAge, 80, 180, 10, 80)
	if err != nil {
		return Recommendation{}, err
	}

	rows := charts.Kids
	idx := len(rows) - 1
	for i, row := range rows {
		if in.Age <= row.AgeMax {
			idx = i
			break
		}
	}

	var notes []string
	base := rows[idx]
	switch {
	case in.HeightCm > base.HeightMaxCm:
		idx++
		notes = append(notes, fmt.Sprintf("taller than %.0f cm: one size up", base.HeightMaxCm))
	case in.HeightCm < base.HeightMinCm:
		idx--
		notes = append(notes, fmt.Sprintf("shorter than %.0f cm: one size down", base.HeightMinCm))
	}
	idx, notes = applyFit(idx, fit, notes)

	return build(rows, idx, true, notes), nil
}

func applyFit(idx int, fit Fit, notes []string) (int, []string) {
	switch fit {
	case FitSlim:
		notes = append(notes, "slim fit: one size down")
	case FitLoose:
		notes = append(notes, "loose fit: one size up")
	}
	return idx + fit.step(), notes
}

func build(rows []ChartRow, idx int, kids bool, notes []string) Recommendation {
	if idx < 0 {
		idx = 0
	}
	if idx > len(rows)-1 {
		idx = len(rows) - 1
	}
	rec := Recommendation{
		Size:        rows[idx].Size,
		Chart:       rows[idx],
		Kids:        kids,
		Adjustments: notes,
	}
	if idx > 0 {
		rec.Tighter = rows[idx-1].Size
	}
	if idx < len(rows)-1 {
		rec.Looser = rows[idx+1].Size
	}
	return rec
}

func validate(in Input, minAge, maxAge int, minHeight, maxHeight, minWeight, maxWeight float64) (Fit, error) {
	if in.Age < minAge || in.Age > maxAge {
		return "", validation.Invalid("age", fmt.Sprintf("must be between %d and %d", minAge, maxAge))
	}
	if !inRange(in.HeightCm, minHeight, maxHeight) {
		return "", validation.Invalid("height_cm", fmt.Sprintf("must be between %.0f and %.0f", minHeight, maxHeight))
	}
	if !inRange(in.WeightKg, minWeight, maxWeight) {
		return "", validation.Invalid("weight_kg", fmt.Sprintf("must be between %.0f and %.0f", minWeight, maxWeight))
	}
	return ParseFit(string(in.Fit))
}

// inRange rejects NaN and infinities, which fail no ordered comparison.
func inRange(v, lo, hi float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= lo && v <= hi
}

func sizesOf(rows []ChartRow) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.Size
	}
	return out
}

func indexOf(rows []ChartRow, size string) int {
	for i, row := range rows {
		if strings.EqualFold(row.Size, size) {
			return i
		}
	}
	return -1
}
