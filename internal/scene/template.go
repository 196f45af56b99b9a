package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.jetify.com/typeid/v2"
)

// ErrTemplateNotFound is returned by repositories for unknown slugs.
var ErrTemplateNotFound = errors.New("template not found")

// Default template canvas.
const (
	DefaultWidth      = 1080
	DefaultHeight     = 1080
	DefaultBackground = "#ffffff"
	// MaxSide bounds template width and height.
	MaxSide = 8192
)

// IDPrefix prefixes element ids.
const IDPrefix = "el"

// IDGenerator issues unique element ids.
type IDGenerator func() string

// NewID returns a sortable, prefixed element id ("el_01h...").
func NewID() string {
	return typeid.MustGenerate(IDPrefix).String()
}

// Meta describes a template without its elements.
type Meta struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	BackgroundColor string `json:"backgroundColor"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

// DefaultMeta is an untitled blank canvas.
func DefaultMeta() Meta {
	return Meta{
		Name:            "Untitled",
		Slug:            "untitled",
		BackgroundColor: DefaultBackground,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
	}
}

// Clamped fills in defaults and bounds the canvas size.
func (m Meta) Clamped() Meta {
	if m.Width <= 0 {
		m.Width = DefaultWidth
	}
	if m.Height <= 0 {
		m.Height = DefaultHeight
	}
	m.Width = min(m.Width, MaxSide)
	m.Height = min(m.Height, MaxSide)
	if strings.TrimSpace(m.BackgroundColor) == "" {
		m.BackgroundColor = DefaultBackground
	}
	if m.Slug == "" {
		m.Slug = Slugify(m.Name)
	}
	return m
}

// Template is the persisted unit of the design canvas.
type Template struct {
	Meta
	Elements Elements `json:"elements"`
}

// Clone deep-copies t.
func (t Template) Clone() Template {
	t.Elements = t.Elements.Clone()
	return t
}

// DecodeTemplate parses a JSON template document.
func DecodeTemplate(data []byte) (Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("failed to decode template: %w", err)
	}
	t.Meta = t.Meta.Clamped()
	if t.Slug == "" {
		return Template{}, fmt.Errorf("template has neither slug nor name")
	}
	return t, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a url-safe slug.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

// ValidSlug reports whether s is already in slug form.
func ValidSlug(s string) bool {
	return s != "" && Slugify(s) == s
}

// TemplateRepository stores templates by slug.
type TemplateRepository interface {
	List(ctx context.Context) ([]Meta, error)
	Get(ctx context.Context, slug string) (Template, error)
	Save(ctx context.Context, t Template) error
	Delete(ctx context.Context, slug string) error
}
