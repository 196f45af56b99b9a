package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/pipeline"
)

var editCmd = &cobra.Command{
	Use:   "edit <image>",
	Short: "Edit one image and store the result",
	Long: `Run one image through the edit pipeline and store the result in the media
library, or write it to --output.

Parameters come from a YAML or JSON file (--params) in the same shape the
HTTP API accepts. Without a watermark section the saved watermark settings
apply.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringP("params", "p", "", "Edit parameter file (YAML or JSON)")
	editCmd.Flags().StringP("quality", "q", encode.DefaultQuality, "Output quality (low, medium, high, original)")
	editCmd.Flags().String("preset", "", "Filter preset applied on top of the parameter file")
	editCmd.Flags().String("folder", "", "Media library folder")
	editCmd.Flags().String("filename", "", "Output filename (defaults to the source name)")
	editCmd.Flags().String("alt", "", "Alt text stored with the image")
	editCmd.Flags().StringP("output", "o", "", "Write the result to this file instead of the media library")
	editCmd.Flags().Bool("apply-crop", false, "Bake the crop into the working image before rendering")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, editCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("edit.params", "params")
	mustBind("edit.quality", "quality")
	mustBind("edit.preset", "preset")
	mustBind("edit.folder", "folder")
	mustBind("edit.filename", "filename")
	mustBind("edit.alt", "alt")
	mustBind("edit.output", "output")
	mustBind("edit.apply_crop", "apply-crop")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	source := args[0]
	paramsFile := viper.GetString("edit.params")
	quality := viper.GetString("edit.quality")
	preset := viper.GetString("edit.preset")
	output := viper.GetString("edit.output")

	if _, err := encode.ResolveQuality(quality); err != nil {
		return err
	}
	if preset != "" {
		if _, ok := filter.Presets[preset]; !ok {
			return fmt.Errorf("unknown filter preset %q", preset)
		}
	}

	params, hasWatermark, err := loadParams(paramsFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg := editor.Config{
		Loader:     imageio.MultiLoader{HTTP: imageio.HTTPLoader{}},
		Compositor: pipeline.NewCompositor(pipeline.Options{Logger: logger}),
		Logger:     logger,
	}
	if output != "" {
		cfg.Uploader = fileUploader{path: output}
	} else {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		cfg.Settings = db.Settings()
		cfg.Uploader = media(db)
	}
	params = withSavedWatermark(ctx, params, hasWatermark, cfg.Settings)

	logger.Info("Starting edit",
		"source", source,
		"params", paramsFile,
		"quality", quality,
		"preset", preset,
		"output", output,
	)

	obj, err := editImage(ctx, cfg, source, params, editOptions{
		preset:    preset,
		applyCrop: viper.GetBool("edit.apply_crop"),
		save: editor.SaveOptions{
			Quality:  quality,
			Filename: viper.GetString("edit.filename"),
			Folder:   viper.GetString("edit.folder"),
			AltText:  viper.GetString("edit.alt"),
		},
	})
	if err != nil {
		return err
	}

	logger.Info("Image stored", "url", obj.URL, "width", obj.Width, "height", obj.Height)
	fmt.Fprintln(cmd.OutOrStdout(), obj.URL)
	return nil
}

type editOptions struct {
	preset    string
	applyCrop bool
	save      editor.SaveOptions
}

// editImage runs one image through a fresh session.
func editImage(ctx context.Context, cfg editor.Config, source string, params editor.Params, opts editOptions) (editor.StoredObject, error) {
	sess := editor.NewSession(cfg)
	defer sess.Close()

	if err := sess.Open(ctx, editor.OpenOptions{
		Source:  source,
		Name:    filepath.Base(source),
		Initial: &params,
	}); err != nil {
		return editor.StoredObject{}, err
	}
	if opts.preset != "" {
		sess.Commit(ctx, func(st *editor.Store) { st.SetFilterPreset(opts.preset) })
	}
	if opts.applyCrop {
		if err := sess.ApplyCrop(ctx); err != nil {
			return editor.StoredObject{}, fmt.Errorf("failed to apply crop: %w", err)
		}
	}
	return sess.Save(ctx, opts.save)
}

// fileUploader writes the encoded image to a fixed path.
type fileUploader struct {
	path string
}

func (u fileUploader) Upload(ctx context.Context, blob *encode.Blob, meta editor.UploadMeta) (editor.StoredObject, error) {
	if dir := filepath.Dir(u.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return editor.StoredObject{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(u.path, blob.Data, 0o644); err != nil {
		return editor.StoredObject{}, fmt.Errorf("failed to write %s: %w", u.path, err)
	}
	return editor.StoredObject{
		ID:     u.path,
		URL:    u.path,
		Width:  blob.Width,
		Height: blob.Height,
	}, nil
}
