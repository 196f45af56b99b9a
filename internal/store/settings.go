package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/pressroom/internal/editor"
	"github.com/MeKo-Tech/pressroom/internal/watermark"
)

// KeyWatermark stores the persisted watermark settings.
const KeyWatermark = "watermark"

// Settings is a key/value table of JSON documents.
type Settings struct {
	db *sql.DB
}

var _ editor.SettingsRepository = (*Settings)(nil)

// Get returns the raw value for key; ok is false when unset.
func (s *Settings) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now())
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// LoadWatermark reads the saved watermark settings, clamped.
func (s *Settings) LoadWatermark(ctx context.Context) (watermark.Config, bool, error) {
	raw, ok, err := s.Get(ctx, KeyWatermark)
	if err != nil || !ok {
		return watermark.Config{}, false, err
	}
	cfg := watermark.DefaultConfig()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return watermark.Config{}, false, fmt.Errorf("failed to decode watermark settings: %w", err)
	}
	return cfg.Clamped(), true, nil
}

// SaveWatermark stores cfg.
func (s *Settings) SaveWatermark(ctx context.Context, cfg watermark.Config) error {
	data, err := json.Marshal(cfg.Clamped())
	if err != nil {
		return fmt.Errorf("failed to encode watermark settings: %w", err)
	}
	return s.Set(ctx, KeyWatermark, string(data))
}
