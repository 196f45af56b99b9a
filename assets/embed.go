package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/MeKo-Tech/pressroom/internal/scene"
)

// TemplatesFS embeds the starter design templates.
//
// NOTE: go:embed patterns must not use ".." and must be relative to this file.
//
//go:embed templates/*.json
var TemplatesFS embed.FS

// Templates decodes every starter template, ordered by slug.
func Templates() ([]scene.Template, error) {
	names, err := fs.Glob(TemplatesFS, "templates/*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]scene.Template, 0, len(names))
	for _, name := range names {
		data, err := TemplatesFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		tpl, err := scene.DecodeTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		out = append(out, tpl)
	}
	return out, nil
}
