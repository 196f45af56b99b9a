package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/pressroom/internal/scene"
)

// Templates implements scene.TemplateRepository.
type Templates struct {
	db *sql.DB
}

var _ scene.TemplateRepository = (*Templates)(nil)

// List returns template metadata ordered by name.
func (t *Templates) List(ctx context.Context) ([]scene.Meta, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT document FROM templates ORDER BY name, slug")
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var out []scene.Meta
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		var meta scene.Meta
		if err := json.Unmarshal([]byte(doc), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode template metadata: %w", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return out, nil
}

// Get loads the template with slug.
func (t *Templates) Get(ctx context.Context, slug string) (scene.Template, error) {
	var doc string
	err := t.db.QueryRowContext(ctx, "SELECT document FROM templates WHERE slug = ?", slug).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return scene.Template{}, fmt.Errorf("%w: %s", scene.ErrTemplateNotFound, slug)
	}
	if err != nil {
		return scene.Template{}, fmt.Errorf("failed to query template %s: %w", slug, err)
	}
	return scene.DecodeTemplate([]byte(doc))
}

// Save inserts or replaces a template by slug.
func (t *Templates) Save(ctx context.Context, tpl scene.Template) error {
	tpl.Meta = tpl.Meta.Clamped()
	if !scene.ValidSlug(tpl.Slug) {
		return fmt.Errorf("invalid template slug %q", tpl.Slug)
	}
	doc, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("failed to encode template %s: %w", tpl.Slug, err)
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO templates (slug, name, description, width, height, document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			width = excluded.width,
			height = excluded.height,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		tpl.Slug, tpl.Name, tpl.Description, tpl.Width, tpl.Height, string(doc), now())
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", tpl.Slug, err)
	}
	return nil
}

// Delete removes the template with slug.
func (t *Templates) Delete(ctx context.Context, slug string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM templates WHERE slug = ?", slug)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", slug, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", scene.ErrTemplateNotFound, slug)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
