package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/imageio"
)

// editRequest is a decoded multipart edit request: the "image" file part
// plus an optional "params" JSON part.
type editRequest struct {
	image    image.Image
	filename string
	params   editor.Params
	form     func(string) string
}

func (s *Server) readEditRequest(w http.ResponseWriter, r *http.Request) (*editRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart body: %v", err))
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image part")
		return nil, false
	}
	defer file.Close()

	img, _, err := imageio.Decode(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}

	params := editor.DefaultParams()
	var sections map[string]json.RawMessage
	if raw := r.FormValue("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid params: %v", err))
			return nil, false
		}
		_ = json.Unmarshal([]byte(raw), &sections)
	}
	// Requests without a watermark section get the saved settings.
	if _, ok := sections["watermark"]; !ok {
		saved, found, err := s.cfg.Settings.LoadWatermark(r.Context())
		if err != nil {
			s.log().Warn("Failed to load watermark settings", "error", err)
		} else if found {
			params.Watermark = saved
		}
	}

	return &editRequest{image: img, filename: header.Filename, params: params, form: r.FormValue}, true
}

// session opens a throwaway editing session over the request image.
func (s *Server) session(ctx context.Context, req *editRequest) (*editor.Session, error) {
	sess := editor.NewSession(editor.Config{
		Loader:     s.cfg.Loader,
		Uploader:   s.cfg.Uploader,
		Compositor: s.cfg.Compositor,
		Logger:     s.logger,
	})
	err := sess.Open(ctx, editor.OpenOptions{
		Image:   req.image,
		Source:  req.filename,
		Name:    req.filename,
		Initial: &req.params,
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// acquire waits for a render slot. It reports false when the request gave
// up first.
func (s *Server) acquire(w http.ResponseWriter, r *http.Request) bool {
	select {
	case s.sem <- struct{}{}:
		return true
	case <-r.Context().Done():
		writeError(w, http.StatusRequestTimeout, "request cancelled")
		return false
	}
}

func (s *Server) release() { <-s.sem }

// handleRender returns the edited image as JPEG without storing it.
// Optional form fields: quality, maxWidth (preview resolution).
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readEditRequest(w, r)
	if !ok {
		return
	}
	quality, err := encode.ResolveQuality(req.form("quality"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxWidth := 0
	if v := req.form("maxWidth"); v != "" {
		maxWidth, err = strconv.Atoi(v)
		if err != nil || maxWidth < 0 {
			writeError(w, http.StatusBadRequest, "invalid maxWidth")
			return
		}
	}

	if !s.acquire(w, r) {
		return
	}
	defer s.release()

	sess, err := s.session(r.Context(), req)
	if err != nil {
		s.writeEditError(w, err)
		return
	}
	defer sess.Close()

	var out image.Image
	if maxWidth > 0 {
		out, err = sess.Preview(r.Context(), maxWidth)
	} else {
		out, err = s.cfg.Compositor.Render(r.Context(), sess.Input(), sess.Request())
	}
	if err != nil {
		s.writeEditError(w, err)
		return
	}
	blob, err := encode.Encode(nil, out, quality)
	if err != nil {
		s.writeEditError(w, err)
		return
	}

	w.Header().Set("Content-Type", blob.MimeType)
	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	w.Header().Set("X-Image-Width", strconv.Itoa(blob.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(blob.Height))
	if _, err := w.Write(blob.Data); err != nil {
		s.log().Error("Failed to write response", "error", err)
	}
}

// handleSave renders, encodes and stores the edited image. Optional form
// fields: quality, filename, folder, altText.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Uploader == nil {
		writeError(w, http.StatusNotImplemented, "no media store configured")
		return
	}
	req, ok := s.readEditRequest(w, r)
	if !ok {
		return
	}
	if _, err := encode.ResolveQuality(req.form("quality")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.acquire(w, r) {
		return
	}
	defer s.release()

	sess, err := s.session(r.Context(), req)
	if err != nil {
		s.writeEditError(w, err)
		return
	}
	defer sess.Close()

	obj, err := sess.Save(r.Context(), editor.SaveOptions{
		Quality:  req.form("quality"),
		Filename: req.form("filename"),
		Folder:   req.form("folder"),
		AltText:  req.form("altText"),
	})
	if err != nil {
		s.writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) writeEditError(w http.ResponseWriter, err error) {
	var encErr *encode.EncodeError
	switch {
	case imageio.IsDecodeError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &encErr):
		s.log().Error("Encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, editor.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		s.log().Error("Edit failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
