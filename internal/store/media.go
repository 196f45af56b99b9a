package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/encode"
)

// MediaObject is one stored upload.
type MediaObject struct {
	editor.StoredObject
	Folder    string `json:"folder"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	Size      int    `json:"size"`
	AltText   string `json:"altText"`
	CreatedAt string `json:"createdAt"`
}

// Media writes encoded images below a directory and indexes them.
type Media struct {
	db      *sql.DB
	dir     string
	baseURL string
	newID   func() string
}

var _ editor.Uploader = (*Media)(nil)

func newMedia(db *sql.DB, dir, baseURL string) *Media {
	return &Media{
		db:      db,
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Dir is the directory files are written to.
func (m *Media) Dir() string { return m.dir }

// Upload stores blob as folder/filename. An existing file of the same name
// is never overwritten; the new one gets an id suffix instead.
func (m *Media) Upload(ctx context.Context, blob *encode.Blob, meta editor.UploadMeta) (editor.StoredObject, error) {
	if blob == nil || len(blob.Data) == 0 {
		return editor.StoredObject{}, fmt.Errorf("refusing to store empty upload")
	}
	folder, err := cleanFolder(meta.Folder)
	if err != nil {
		return editor.StoredObject{}, err
	}
	name := filepath.Base(strings.ReplaceAll(meta.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return editor.StoredObject{}, fmt.Errorf("invalid filename %q", meta.Filename)
	}

	id := m.newID()
	dir := filepath.Join(m.dir, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return editor.StoredObject{}, fmt.Errorf("failed to create media directory: %w", err)
	}

	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), id[len(id)-8:], ext)
		target = filepath.Join(dir, name)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return editor.StoredObject{}, fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := f.Write(blob.Data); err != nil {
		f.Close()
		os.Remove(target)
		return editor.StoredObject{}, fmt.Errorf("failed to write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return editor.StoredObject{}, fmt.Errorf("failed to write media file: %w", err)
	}

	rel := path.Join(folder, name)
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO media (id, folder, filename, path, mime_type, width, height, size, alt_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, folder, name, rel, blob.MimeType, blob.Width, blob.Height, len(blob.Data), meta.AltText, now())
	if err != nil {
		os.Remove(target)
		return editor.StoredObject{}, fmt.Errorf("failed to index media %s: %w", rel, err)
	}

	return editor.StoredObject{ID: id, URL: m.url(rel), Width: blob.Width, Height: blob.Height}, nil
}

// List returns stored media, newest first. An empty folder lists all.
func (m *Media) List(ctx context.Context, folder string) ([]MediaObject, error) {
	query := "SELECT id, folder, filename, path, mime_type, width, height, size, alt_text, created_at FROM media"
	var args []any
	if folder != "" {
		clean, err := cleanFolder(folder)
		if err != nil {
			return nil, err
		}
		query += " WHERE folder = ?"
		args = append(args, clean)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var out []MediaObject
	for rows.Next() {
		var o MediaObject
		var rel string
		if err := rows.Scan(&o.ID, &o.Folder, &o.Filename, &rel, &o.MimeType, &o.Width, &o.Height, &o.Size, &o.AltText, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		o.URL = m.url(rel)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return out, nil
}

func (m *Media) url(rel string) string {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return m.baseURL + "/" + strings.Join(parts, "/")
}

var errBadFolder = errors.New("folder must be a relative path without '..'")

func cleanFolder(folder string) (string, error) {
	folder = strings.Trim(strings.ReplaceAll(folder, "\\", "/"), "/")
	if folder == "" {
		return "", nil
	}
	clean := path.Clean(folder)
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", errBadFolder, folder)
	}
	return clean, nil
}
