package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

func (s *Server) handleGetWatermark(w http.ResponseWriter, r *http.Request) {
	cfg, ok, err := s.cfg.Settings.LoadWatermark(r.Context())
	if err != nil {
		s.log().Error("Failed to load watermark settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if !ok {
		cfg = watermark.DefaultConfig()
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handlePutWatermark merges the body over the defaults, clamps and stores
// it, and echoes the stored value.
func (s *Server) handlePutWatermark(w http.ResponseWriter, r *http.Request) {
	cfg := watermark.DefaultConfig()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid watermark settings: %v", err))
		return
	}
	cfg = cfg.Clamped()

	if err := s.cfg.Settings.SaveWatermark(r.Context(), cfg); err != nil {
		s.log().Error("Failed to save watermark settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
