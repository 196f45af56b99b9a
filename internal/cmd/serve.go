package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/pipeline"
	"github.com/MeKo-Tech/pressroom/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editing, template and media HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("max-concurrent-renders", runtime.NumCPU(), "Max concurrent renders (default: number of CPUs)")
	serveCmd.Flags().Int64("max-upload-mb", server.DefaultMaxUploadBytes>>20, "Max request body size in MiB")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for rendered images")
	serveCmd.Flags().Int("max-output-width", 0, "Downscale stored images wider than this (0: keep size)")
	serveCmd.Flags().Int("max-output-height", 0, "Downscale stored images taller than this (0: keep size)")
	serveCmd.Flags().Duration("shutdown-timeout", 15*time.Second, "Grace period for in-flight requests on shutdown")
	serveCmd.Flags().StringSlice("allowed-image-hosts", nil, "Hosts remote watermark and slot images may come from (empty: no remote images)")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.max_concurrent_renders", "max-concurrent-renders")
	mustBind("serve.max_upload_mb", "max-upload-mb")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.max_output_width", "max-output-width")
	mustBind("serve.max_output_height", "max-output-height")
	mustBind("serve.shutdown_timeout", "shutdown-timeout")
	mustBind("serve.allowed_image_hosts", "allowed-image-hosts")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	maxConc := viper.GetInt("serve.max_concurrent_renders")
	maxUpload := viper.GetInt64("serve.max_upload_mb") << 20
	cacheControl := viper.GetString("serve.cache_control")
	shutdownTimeout := viper.GetDuration("serve.shutdown_timeout")
	mediaDir := viper.GetString("media-dir")
	mediaURL := viper.GetString("media-url")
	loader := imageLoader(mediaDir, viper.GetStringSlice("serve.allowed_image_hosts"))

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	compositor := pipeline.NewCompositor(pipeline.Options{
		Logger:    logger,
		MaxWidth:  viper.GetInt("serve.max_output_width"),
		MaxHeight: viper.GetInt("serve.max_output_height"),
	})

	handler := server.New(server.Config{
		Compositor:           compositor,
		Templates:            db.Templates(),
		Settings:             db.Settings(),
		Uploader:             media(db),
		Loader:               loader,
		MediaDir:             mediaDir,
		MediaURL:             mediaURL,
		MaxUploadBytes:       maxUpload,
		MaxConcurrentRenders: maxConc,
		CacheControl:         cacheControl,
	}, logger)

	logger.Info("server listening",
		"addr", addr,
		"database", db.Path(),
		"media_dir", mediaDir,
		"media_url", mediaURL,
		"max_concurrent_renders", maxConc,
	)

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// imageLoader resolves request-supplied image references. Files must live
// under mediaDir; remote images are only fetched from the allowed hosts.
func imageLoader(mediaDir string, hosts []string) imageio.MultiLoader {
	l := imageio.MultiLoader{File: imageio.FileLoader{Root: mediaDir}}
	if len(hosts) > 0 {
		allowed := make([]string, 0, len(hosts))
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				allowed = append(allowed, h)
			}
		}
		if len(allowed) > 0 {
			l.HTTP = imageio.HTTPLoader{AllowedHosts: allowed}
		}
	}
	return l
}
