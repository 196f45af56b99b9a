// Package server exposes the editing pipeline, templates and settings over
// HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
	"github.com/MeKo-Tech/pressroom/internal/pipeline"
	"github.com/MeKo-Tech/pressroom/internal/scene"
)

// DefaultMaxUploadBytes caps multipart request bodies.
const DefaultMaxUploadBytes = 32 << 20

// Config wires the server to its collaborators.
type Config struct {
	Compositor *pipeline.Compositor
	Renderer   *scene.Renderer
	Templates  scene.TemplateRepository
	Settings   editor.SettingsRepository
	Uploader   editor.Uploader
	// Loader resolves custom watermark references.
	Loader imageio.Loader

	// MediaDir is served read-only below MediaURL when set.
	MediaDir string
	MediaURL string

	MaxUploadBytes       int64
	MaxConcurrentRenders int
	CacheControl         string
}

// Server is the pressroom HTTP API.
type Server struct {
	cfg    Config
	logger *slog.Logger
	sem    chan struct{}
	router chi.Router
}

// New builds the router.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.Compositor == nil {
		cfg.Compositor = pipeline.NewCompositor(pipeline.Options{Logger: logger})
	}
	if cfg.Renderer == nil {
		cfg.Renderer = scene.NewRenderer(cfg.Compositor.Fonts(), cfg.Loader, logger)
	}
	if cfg.Settings == nil {
		cfg.Settings = &editor.MemorySettings{}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxConcurrentRenders <= 0 {
		cfg.MaxConcurrentRenders = 4
	}
	if cfg.MediaURL == "" {
		cfg.MediaURL = "/media"
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentRenders),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(withCORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/filters", s.handleFilters)

	r.Route("/api/images", func(r chi.Router) {
		r.Post("/", s.handleSave)
		r.Post("/render", s.handleRender)
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/watermark", s.handleGetWatermark)
		r.Put("/watermark", s.handlePutWatermark)
	})

	if s.cfg.Templates != nil {
		r.Route("/api/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Get("/{slug}", s.handleGetTemplate)
			r.Put("/{slug}", s.handlePutTemplate)
			r.Delete("/{slug}", s.handleDeleteTemplate)
			r.Get("/{slug}/render", s.handleRenderTemplate)
		})
	}

	if s.cfg.MediaDir != "" {
		prefix := s.cfg.MediaURL + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.MediaDir))))
	}

	return r
}

type filterPreset struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	presets := make([]filterPreset, 0, len(filter.Presets))
	for _, name := range filter.PresetNames() {
		presets = append(presets, filterPreset{Name: name, Expression: filter.Presets[name]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"presets":   presets,
		"qualities": encode.QualityNames(),
	})
}

// requestLog logs one line per request at info level.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log().Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
