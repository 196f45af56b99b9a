package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/store"
)

// openStore opens the configured database.
func openStore() (*store.DB, error) {
	path := viper.GetString("database")
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	logger.Debug("Database opened", "path", path)
	return db, nil
}

// media returns the media library of db as configured.
func media(db *store.DB) *store.Media {
	return db.Media(viper.GetString("media-dir"), viper.GetString("media-url"))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadParams reads an edit parameter file (YAML or JSON) over the
// defaults. hasWatermark reports whether the file set the watermark
// section itself.
func loadParams(path string) (params editor.Params, hasWatermark bool, err error) {
	params = editor.DefaultParams()
	if path == "" {
		return params, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params, false, fmt.Errorf("failed to read params: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, false, fmt.Errorf("failed to parse params %s: %w", path, err)
	}

	var sections map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return params, false, fmt.Errorf("failed to parse params %s: %w", path, err)
	}
	_, hasWatermark = sections["watermark"]
	return params, hasWatermark, nil
}

// withSavedWatermark fills in the stored watermark settings unless the
// parameter file chose its own.
func withSavedWatermark(ctx context.Context, params editor.Params, hasWatermark bool, settings editor.SettingsRepository) editor.Params {
	if hasWatermark || settings == nil {
		return params
	}
	saved, found, err := settings.LoadWatermark(ctx)
	if err != nil {
		logger.Warn("Failed to load watermark settings", "error", err)
		return params
	}
	if found {
		params.Watermark = saved
	}
	return params
}
