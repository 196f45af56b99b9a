package cmd

import (
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pressroom/assets"
	"github.com/MeKo-Tech/pressroom/internal/fonts"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/scene"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates"},
	Short:   "Manage design templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

var templateImportCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Import templates from JSON documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTemplateImport,
}

var templateExportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Write a template as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateExport,
}

var templateRenderCmd = &cobra.Command{
	Use:   "render <slug>",
	Short: "Render a template to PNG",
	Long: `Render a stored template to PNG. Image slots can be filled from local files
or URLs with --slot <element-id>=<ref>.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateRender,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a stored template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

var templateSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store the bundled starter templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateSeed,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd, templateImportCmd, templateExportCmd,
		templateRenderCmd, templateDeleteCmd, templateSeedCmd)

	templateExportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	templateRenderCmd.Flags().StringP("output", "o", "", "Output PNG file (default: <slug>.png)")
	templateRenderCmd.Flags().StringArray("slot", nil, "Fill an image slot: <element-id>=<path or URL>")
	templateRenderCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	templateSeedCmd.Flags().Bool("force", false, "Overwrite templates that already exist")

	mustBind := func(key string, cmd *cobra.Command, name string) {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("template.png_compression", templateRenderCmd, "png-compression")
	mustBind("template.seed_force", templateSeedCmd, "force")
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := db.Templates().List(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tSIZE")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\n", m.Slug, m.Name, m.Width, m.Height)
	}
	return tw.Flush()
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := db.Templates()
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		tpl, err := scene.DecodeTemplate(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := repo.Save(cmd.Context(), tpl); err != nil {
			return fmt.Errorf("failed to store %s: %w", path, err)
		}
		logger.Info("Template imported", "slug", tpl.Slug, "file", path, "elements", len(tpl.Elements))
	}
	return nil
}

func runTemplateExport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tpl, err := db.Templates().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	data = append(data, '\n')

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	logger.Info("Template exported", "slug", tpl.Slug, "file", output)
	return nil
}

func runTemplateRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	encoder, err := pngEncoder(viper.GetString("template.png_compression"))
	if err != nil {
		return err
	}
	slots, _ := cmd.Flags().GetStringArray("slot")
	fills, err := parseSlots(slots)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = args[0] + ".png"
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	tpl, err := db.Templates().Get(ctx, args[0])
	if err != nil {
		return err
	}
	if err := fillSlots(&tpl, fills); err != nil {
		return err
	}

	renderer := scene.NewRenderer(fonts.NewRegistry(), imageio.MultiLoader{HTTP: imageio.HTTPLoader{}}, logger)
	img, err := renderer.Render(ctx, tpl)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := encoder.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("Template rendered", "slug", tpl.Slug, "file", output, "width", tpl.Width, "height", tpl.Height)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Templates().Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	logger.Info("Template deleted", "slug", args[0])
	return nil
}

func runTemplateSeed(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	force := viper.GetBool("template.seed_force")

	starters, err := assets.Templates()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := db.Templates()
	existing, err := repo.List(cmd.Context())
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[m.Slug] = true
	}

	var stored int
	for _, tpl := range starters {
		if have[tpl.Slug] && !force {
			logger.Debug("Template exists, skipping", "slug", tpl.Slug)
			continue
		}
		if err := repo.Save(cmd.Context(), tpl); err != nil {
			return fmt.Errorf("failed to store %s: %w", tpl.Slug, err)
		}
		stored++
	}
	logger.Info("Starter templates seeded", "stored", stored, "available", len(starters))
	return nil
}

// parseSlots parses repeated <element-id>=<ref> flags.
func parseSlots(values []string) (map[string]string, error) {
	fills := make(map[string]string, len(values))
	for _, v := range values {
		id, ref, ok := strings.Cut(v, "=")
		id, ref = strings.TrimSpace(id), strings.TrimSpace(ref)
		if !ok || id == "" || ref == "" {
			return nil, fmt.Errorf("invalid slot %q: want <element-id>=<ref>", v)
		}
		fills[id] = ref
	}
	return fills, nil
}

// fillSlots points the named image slots at new images.
func fillSlots(tpl *scene.Template, fills map[string]string) error {
	for id, ref := range fills {
		i := tpl.Elements.Index(id)
		if i < 0 {
			return fmt.Errorf("template %s has no element %q", tpl.Slug, id)
		}
		slot, ok := tpl.Elements[i].(*scene.ImageSlotElement)
		if !ok {
			return fmt.Errorf("element %q is a %s, not an image slot", id, tpl.Elements[i].Kind())
		}
		slot.ImageURL = ref
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			slot.SourceType = scene.SourceURL
		} else {
			slot.SourceType = scene.SourceUpload
		}
	}
	return nil
}

func pngEncoder(compression string) (*png.Encoder, error) {
	switch strings.ToLower(compression) {
	case "", "default":
		return &png.Encoder{CompressionLevel: png.DefaultCompression}, nil
	case "speed":
		return &png.Encoder{CompressionLevel: png.BestSpeed}, nil
	case "best":
		return &png.Encoder{CompressionLevel: png.BestCompression}, nil
	case "none":
		return &png.Encoder{CompressionLevel: png.NoCompression}, nil
	default:
		return nil, fmt.Errorf("invalid png compression %q: must be default, speed, best or none", compression)
	}
}
