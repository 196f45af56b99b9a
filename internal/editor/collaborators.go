package editor

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/pressroom/internal/encode"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

// SettingsRepository persists the watermark settings across sessions.
type SettingsRepository interface {
	// LoadWatermark reports false when nothing has been saved yet.
	LoadWatermark(ctx context.Context) (watermark.Config, bool, error)
	SaveWatermark(ctx context.Context, cfg watermark.Config) error
}

// UploadMeta describes an encoded image handed to an Uploader.
type UploadMeta struct {
	Filename string `json:"filename"`
	Folder   string `json:"folder,omitempty"`
	AltText  string `json:"altText,omitempty"`
}

// StoredObject is what the media backend reports for a stored upload.
type StoredObject struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Uploader stores encoded images.
type Uploader interface {
	Upload(ctx context.Context, blob *encode.Blob, meta UploadMeta) (StoredObject, error)
}

// MemorySettings keeps watermark settings in memory.
type MemorySettings struct {
	mu  sync.Mutex
	cfg *watermark.Config
}

func (m *MemorySettings) LoadWatermark(context.Context) (watermark.Config, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return watermark.Config{}, false, nil
	}
	return *m.cfg, true, nil
}

func (m *MemorySettings) SaveWatermark(_ context.Context, cfg watermark.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	return nil
}
