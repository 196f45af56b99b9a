package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the saved watermark settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved watermark settings as YAML",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Merge watermark settings from a YAML or JSON file",
	Long: `Merge watermark settings from a YAML or JSON file over the saved ones.
Fields the file leaves out keep their saved values; out-of-range values are
clamped. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default watermark settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsReset,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, found, err := db.Settings().LoadWatermark(cmd.Context())
	if err != nil {
		return err
	}
	if !found {
		logger.Debug("No saved watermark settings, showing defaults")
		cfg = watermark.DefaultConfig()
	}
	return writeYAML(cmd.OutOrStdout(), cfg)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	settings := db.Settings()
	cfg, found, err := settings.LoadWatermark(cmd.Context())
	if err != nil {
		return err
	}
	if !found {
		cfg = watermark.DefaultConfig()
	}
	cfg, err = mergeWatermark(cfg, data)
	if err != nil {
		return err
	}
	if err := settings.SaveWatermark(cmd.Context(), cfg); err != nil {
		return err
	}

	logger.Info("Watermark settings saved", "type", cfg.Type, "opacity", cfg.Opacity, "repeat", cfg.Repeat)
	return writeYAML(cmd.OutOrStdout(), cfg)
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Settings().SaveWatermark(cmd.Context(), watermark.DefaultConfig()); err != nil {
		return err
	}
	logger.Info("Watermark settings reset")
	return nil
}

// mergeWatermark decodes data over base and clamps the result.
func mergeWatermark(base watermark.Config, data []byte) (watermark.Config, error) {
	if err := yaml.Unmarshal(data, &base); err != nil {
		return watermark.Config{}, fmt.Errorf("failed to parse watermark settings: %w", err)
	}
	return base.Clamped(), nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
