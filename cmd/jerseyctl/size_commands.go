package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jerseyhouse/storefront/internal/domain/sizing"
)

func newSizeCommand() *cobra.Command {
	var input sizing.Input
	var fit string

	cmd := &cobra.Command{
		Use:   "size",
		Short: "Recommend a jersey size from body measurements",
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Fit = sizing.Fit(fit)
			rec, err := sizing.Recommend(input)
			if err != nil {
				return err
			}

			chart := "adult"
			if rec.Kids {
				chart = "kids"
			}
			rows := [][]string{
				{"Size", rec.Size},
				{"Chart", chart},
				{"Chest (cm)", formatCm(rec.Chart.ChestCm)},
				{"Length (cm)", formatCm(rec.Chart.LengthCm)},
				{"Tighter", dash(rec.Tighter)},
				{"Looser", dash(rec.Looser)},
			}
			if len(rec.Adjustments) > 0 {
				rows = append(rows, []string{"Adjustments", strings.Join(rec.Adjustments, "; ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVar(&input.Age, "age", 0, "Wearer age in years")
	cmd.Flags().Float64Var(&input.HeightCm, "height", 0, "Height in centimetres")
	cmd.Flags().Float64Var(&input.WeightKg, "weight", 0, "Weight in kilograms")
	cmd.Flags().StringVar(&fit, "fit", "Regular", "Preferred fit: Slim, Regular or Loose")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("height")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func newSizeChartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size-chart",
		Short: "Print the adult and kids size charts",
		RunE: func(cmd *cobra.Command, args []string) error {
			charts := sizing.Charts()
			out := cmd.OutOrStdout()

			adult := make([][]string, 0, len(charts.Adult))
			for _, row := range charts.Adult {
				maxWeight := "-"
				if row.MaxWeightKg > 0 {
					maxWeight = "< " + formatCm(row.MaxWeightKg)
				}
				adult = append(adult, []string{row.Size, formatCm(row.ChestCm), formatCm(row.LengthCm), maxWeight})
			}
			fmt.Fprintln(out, renderTable("Adult",
				[]string{"Size", "Chest (cm)", "Length (cm)", "Weight (kg)"},
				adult,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))

			kids := make([][]string, 0, len(charts.Kids))
			for _, row := range charts.Kids {
				height := formatCm(row.HeightMinCm) + "-" + formatCm(row.HeightMaxCm)
				kids = append(kids, []string{row.Size, strconv.Itoa(row.AgeMax), height, formatCm(row.ChestCm), formatCm(row.LengthCm)})
			}
			fmt.Fprintln(out, renderTable("Kids",
				[]string{"Size", "Max age", "Height (cm)", "Chest (cm)", "Length (cm)"},
				kids,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
}

func formatCm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
