package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clusterfit/vikhlinin"
	"github.com/clusterfit/vikhlinin/internal/store"
	"github.com/clusterfit/vikhlinin/units"
)

var (
	fitRadii       string
	fitDensity     string
	fitRadiusUnit  string
	fitDensityUnit string
	fitPreset      string
	fitStart       string
	fitSave        bool
	fitDataDir     string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit a density profile and print the result",
	Long: `Fits the Vikhlinin model to a radial density profile given as
comma-separated values and prints the fitted parameters.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVar(&fitRadii, "radii", "", "Comma-separated radii (required)")
	fitCmd.Flags().StringVar(&fitDensity, "density", "", "Comma-separated densities (required)")
	fitCmd.Flags().StringVar(&fitRadiusUnit, "radius-unit", "kpc", "Unit of the radii")
	fitCmd.Flags().StringVar(&fitDensityUnit, "density-unit", "cm**-3", "Unit of the densities")
	fitCmd.Flags().StringVar(&fitPreset, "preset", "", "Bound preset: default or macsis")
	fitCmd.Flags().StringVar(&fitStart, "start", "", "Comma-separated initial guess (six values)")
	fitCmd.Flags().BoolVar(&fitSave, "save", false, "Persist the result to the data directory")
	fitCmd.Flags().StringVar(&fitDataDir, "data-dir", "./data", "Base directory for stored results")

	fitCmd.MarkFlagRequired("radii")
	fitCmd.MarkFlagRequired("density")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	radii, err := parseFloats(fitRadii)
	if err != nil {
		return fmt.Errorf("invalid --radii: %w", err)
	}
	density, err := parseFloats(fitDensity)
	if err != nil {
		return fmt.Errorf("invalid --density: %w", err)
	}

	radiusUnit, err := units.Parse(fitRadiusUnit)
	if err != nil {
		return fmt.Errorf("invalid --radius-unit: %w", err)
	}
	densityUnit, err := units.Parse(fitDensityUnit)
	if err != nil {
		return fmt.Errorf("invalid --density-unit: %w", err)
	}

	opts, err := fitOptionsFromFlags()
	if err != nil {
		return err
	}

	slog.Info("Fitting density profile", "points", len(radii), "preset", fitPreset)

	profile, err := vikhlinin.NewProfile(
		units.NewSeries(radii, radiusUnit),
		units.NewSeries(density, densityUnit),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("fit failed: %w", err)
	}

	profile.PrintFitParameters()

	if fitSave {
		st, err := store.NewFSStore(fitDataDir)
		if err != nil {
			return fmt.Errorf("failed to create result store: %w", err)
		}

		id := uuid.New().String()
		result := store.NewResult(id, profile)
		if err := st.SaveResult(result); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		if err := st.SaveTrace(id, storeTrace(profile.History)); err != nil {
			slog.Warn("Failed to save trace", "id", id, "error", err)
		}

		fmt.Printf("\nSaved result %s\n", id)
	}

	return nil
}

func fitOptionsFromFlags() ([]vikhlinin.Option, error) {
	var opts []vikhlinin.Option

	switch fitPreset {
	case "", "default":
	case "macsis":
		opts = append(opts, vikhlinin.WithBounds(vikhlinin.MACSISBounds()))
	default:
		return nil, fmt.Errorf("unknown --preset: %q", fitPreset)
	}

	if fitStart != "" {
		values, err := parseFloats(fitStart)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		start, err := vikhlinin.ParamsFromVector(values)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		opts = append(opts, vikhlinin.WithStart(start))
	}

	return opts, nil
}

func storeTrace(history []vikhlinin.CostSample) []store.TraceEntry {
	entries := make([]store.TraceEntry, len(history))
	for i, sample := range history {
		entries[i] = store.TraceEntry{Eval: sample.Eval, Cost: sample.Cost}
	}
	return entries
}

// parseFloats parses a comma-separated list of numbers. Blank entries
// are skipped so trailing commas are harmless.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
