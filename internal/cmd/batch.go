package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/pipeline"
	"github.com/MeKo-Tech/pressroom/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Edit every image in a directory",
	Long: `Apply one set of edit parameters to every image in a directory and store the
results in the media library. Images are edited in parallel; each edit runs in
its own session.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// imageExtensions are the source formats the decoder registers.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("params", "p", "", "Edit parameter file (YAML or JSON)")
	batchCmd.Flags().StringP("quality", "q", encode.DefaultQuality, "Output quality (low, medium, high, original)")
	batchCmd.Flags().String("preset", "", "Filter preset applied on top of the parameter file")
	batchCmd.Flags().String("folder", "", "Media library folder (subdirectories are kept below it)")
	batchCmd.Flags().BoolP("recursive", "r", false, "Include images in subdirectories")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some images fail")
	batchCmd.Flags().String("manifest", "", "Write a YAML report of stored and failed images to this file")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"batch.params", "params"},
		{"batch.quality", "quality"},
		{"batch.preset", "preset"},
		{"batch.folder", "folder"},
		{"batch.recursive", "recursive"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.manifest", "manifest"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, batchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	dir := args[0]
	paramsFile := viper.GetString("batch.params")
	quality := viper.GetString("batch.quality")
	preset := viper.GetString("batch.preset")
	folder := viper.GetString("batch.folder")
	recursive := viper.GetBool("batch.recursive")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	manifest := viper.GetString("batch.manifest")

	if _, err := encode.ResolveQuality(quality); err != nil {
		return err
	}
	if preset != "" {
		if _, ok := filter.Presets[preset]; !ok {
			return fmt.Errorf("unknown filter preset %q", preset)
		}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	params, hasWatermark, err := loadParams(paramsFile)
	if err != nil {
		return err
	}

	tasks, err := collectTasks(dir, folder, recursive)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		logger.Warn("No images found", "dir", dir)
		return nil
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	cfg := editor.Config{
		Loader:     imageio.MultiLoader{HTTP: imageio.HTTPLoader{}},
		Settings:   db.Settings(),
		Uploader:   media(db),
		Compositor: pipeline.NewCompositor(pipeline.Options{Logger: logger}),
		Logger:     logger,
	}
	params = withSavedWatermark(ctx, params, hasWatermark, cfg.Settings)

	logger.Info("Starting batch edit",
		"dir", dir,
		"images", len(tasks),
		"workers", workers,
		"quality", quality,
		"preset", preset,
		"folder", folder,
	)

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers: workers,
		Processor: worker.ProcessorFunc(func(ctx context.Context, task worker.Task) (string, error) {
			obj, err := editImage(ctx, cfg, task.Source, params, editOptions{
				preset: preset,
				save:   editor.SaveOptions{Quality: quality, Folder: task.Folder},
			})
			if err != nil {
				return "", err
			}
			return obj.URL, nil
		}),
		OnProgress: progress.Callback(),
	})

	pool.Run(ctx, tasks)
	progress.Done()

	report := progress.Report()
	for _, s := range report.Stored {
		logger.Debug("Image stored", "source", s.Source, "url", s.URL, "elapsed", s.Elapsed)
	}
	for _, f := range report.Failed {
		logger.Error("Image edit failed", "source", f.Source, "error", f.Error)
	}
	logger.Info(progress.Summary())

	if manifest != "" {
		if err := writeManifest(manifest, report); err != nil {
			return err
		}
		logger.Info("Wrote batch manifest", "path", manifest)
	}

	failedCount := len(report.Failed)

	if failedCount > 0 {
		if allowFailures {
			logger.Warn("Some images failed, but continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d images failed to edit", failedCount)
	}
	return ctx.Err()
}

// collectTasks lists the images below dir in a stable order. Images in
// subdirectories keep their relative directory below folder.
func collectTasks(dir, folder string, recursive bool) ([]worker.Task, error) {
	var tasks []worker.Task
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}

		rel, err := filepath.Rel(dir, filepath.Dir(p))
		if err != nil {
			return err
		}
		target := folder
		if rel != "." {
			target = path.Join(folder, filepath.ToSlash(rel))
		}
		tasks = append(tasks, worker.Task{Source: p, Folder: target})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Source < tasks[j].Source })
	return tasks, nil
}

// writeManifest stores the batch report as YAML.
func writeManifest(path string, report worker.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
