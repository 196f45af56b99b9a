package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List filter presets and build filter expressions",
	Args:  cobra.NoArgs,
	RunE:  runFiltersList,
}

var filtersBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Print the filter expression for a preset and manual adjustments",
	Args:  cobra.NoArgs,
	RunE:  runFiltersBuild,
}

var filtersApplyCmd = &cobra.Command{
	Use:   "apply <image>",
	Short: "Apply a filter expression to an image and write a PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiltersApply,
}

func init() {
	rootCmd.AddCommand(filtersCmd)
	filtersCmd.AddCommand(filtersBuildCmd, filtersApplyCmd)

	addAdjustmentFlags(filtersBuildCmd)

	filtersApplyCmd.Flags().StringP("expr", "e", "", "Filter expression (e.g. \"sepia(0.4) contrast(1.1)\")")
	filtersApplyCmd.Flags().StringP("output", "o", "filtered.png", "Output PNG file")
	addAdjustmentFlags(filtersApplyCmd)
}

func addAdjustmentFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", filter.PresetNone, "Filter preset")
	cmd.Flags().Float64("brightness", 1, "Brightness multiplier (0..3)")
	cmd.Flags().Float64("contrast", 1, "Contrast multiplier (0..3)")
	cmd.Flags().Float64("saturation", 1, "Saturation multiplier (0..3)")
	cmd.Flags().Float64("temperature", 0, "Colour temperature (-100 cool .. 100 warm)")
	cmd.Flags().Float64("blur", 0, "Blur radius in pixels (0..100)")
}

// adjustments reads the adjustment flags of cmd into clamped settings.
func adjustments(cmd *cobra.Command) (filter.Settings, error) {
	f := cmd.Flags()
	s := filter.DefaultSettings()
	s.Preset, _ = f.GetString("preset")
	s.Brightness, _ = f.GetFloat64("brightness")
	s.Contrast, _ = f.GetFloat64("contrast")
	s.Saturation, _ = f.GetFloat64("saturation")
	s.Temperature, _ = f.GetFloat64("temperature")
	s.Blur, _ = f.GetFloat64("blur")

	if _, ok := filter.Presets[s.Preset]; !ok {
		return filter.Settings{}, fmt.Errorf("unknown filter preset %q", s.Preset)
	}
	return s.Clamped(), nil
}

func runFiltersList(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRESET\tEXPRESSION")
	for _, name := range filter.PresetNames() {
		expr := filter.Presets[name]
		if expr == "" {
			expr = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, expr)
	}
	return tw.Flush()
}

func runFiltersBuild(cmd *cobra.Command, args []string) error {
	s, err := adjustments(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.String())
	return nil
}

func runFiltersApply(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	expr, _ := cmd.Flags().GetString("expr")
	if expr == "" {
		s, err := adjustments(cmd)
		if err != nil {
			return err
		}
		expr = s.String()
	}
	output, _ := cmd.Flags().GetString("output")

	src, err := imageio.FileLoader{}.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out, err := filter.Apply(src, expr)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	enc, _ := pngEncoder("default")
	if err := enc.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("Filter applied", "source", args[0], "expression", expr, "file", output)
	return nil
}
