package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MeKo-Tech/pressroom/internal/scene"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.Templates.List(r.Context())
	if err != nil {
		s.log().Error("Failed to list templates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	if list == nil {
		list = []scene.Meta{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// handlePutTemplate stores the body under the slug from the path.
func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !scene.ValidSlug(slug) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid slug %q", slug))
		return
	}

	var tpl scene.Template
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(&tpl); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid template: %v", err))
		return
	}
	tpl.Slug = slug
	tpl.Meta = tpl.Meta.Clamped()

	if err := s.cfg.Templates.Save(r.Context(), tpl); err != nil {
		s.log().Error("Failed to save template", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save template")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	err := s.cfg.Templates.Delete(r.Context(), slug)
	if errors.Is(err, scene.ErrTemplateNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.log().Error("Failed to delete template", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRenderTemplate rasterizes a stored template as PNG.
func (s *Server) handleRenderTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}

	if !s.acquire(w, r) {
		return
	}
	defer s.release()

	img, err := s.cfg.Renderer.Render(r.Context(), tpl)
	if err != nil {
		s.log().Error("Failed to render template", "slug", tpl.Slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render template")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	if err := png.Encode(w, img); err != nil {
		s.log().Error("Failed to write response", "error", err)
	}
}

func (s *Server) loadTemplate(w http.ResponseWriter, r *http.Request) (scene.Template, bool) {
	slug := chi.URLParam(r, "slug")
	tpl, err := s.cfg.Templates.Get(r.Context(), slug)
	if errors.Is(err, scene.ErrTemplateNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return scene.Template{}, false
	}
	if err != nil {
		s.log().Error("Failed to load template", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load template")
		return scene.Template{}, false
	}
	return tpl, true
}
