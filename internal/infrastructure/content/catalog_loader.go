// Package content loads world and achievement definitions from YAML content
// files. Content is authored by the curriculum team and shipped alongside the
// binary; the loaders validate it at startup so a broken file fails fast
// instead of surfacing mid-session.
package content

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// WORLD CATALOG LOADER
// ══════════════════════════════════════════════════════════════════════════════

// catalogFile mirrors the YAML layout of a world catalog content file.
type catalogFile struct {
	Worlds []worldEntry `yaml:"worlds"`
}

type worldEntry struct {
	Index             int               `yaml:"index"`
	Prerequisites     []int             `yaml:"prerequisites"`
	Title             map[string]string `yaml:"title"`
	Description       map[string]string `yaml:"description"`
	Difficulty        int               `yaml:"difficulty"`
	EstimatedDuration string            `yaml:"estimated_duration"`
}

// LoadCatalog parses a world catalog from a YAML file and validates it.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError("content", "LoadCatalog", shared.ErrCatalogInvalid,
			fmt.Sprintf("reading catalog file %s", path), err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a world catalog from YAML bytes and validates it.
func ParseCatalog(data []byte) (*catalog.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("content", "ParseCatalog", shared.ErrCatalogInvalid,
			"parsing catalog yaml", err)
	}
	if len(file.Worlds) == 0 {
		return nil, shared.WrapError("content", "ParseCatalog", shared.ErrCatalogInvalid,
			"catalog file defines no worlds", nil)
	}

	defs := make([]catalog.WorldDefinition, 0, len(file.Worlds))
	for _, entry := range file.Worlds {
		def, err := entry.toDefinition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return catalog.New(defs)
}

func (e worldEntry) toDefinition() (catalog.WorldDefinition, error) {
	prereqs := make([]catalog.WorldIndex, 0, len(e.Prerequisites))
	for _, p := range e.Prerequisites {
		prereqs = append(prereqs, catalog.WorldIndex(p))
	}

	var duration time.Duration
	if e.EstimatedDuration != "" {
		parsed, err := time.ParseDuration(e.EstimatedDuration)
		if err != nil {
			return catalog.WorldDefinition{}, shared.WrapError("content", "ParseCatalog", shared.ErrCatalogInvalid,
				fmt.Sprintf("world %d has invalid estimated_duration %q", e.Index, e.EstimatedDuration), err)
		}
		duration = parsed
	}

	return catalog.WorldDefinition{
		Index:             catalog.WorldIndex(e.Index),
		Prerequisites:     prereqs,
		Title:             toLocalizedText(e.Title),
		Description:       toLocalizedText(e.Description),
		Difficulty:        catalog.Difficulty(e.Difficulty),
		EstimatedDuration: duration,
	}, nil
}

func toLocalizedText(m map[string]string) shared.LocalizedText {
	if len(m) == 0 {
		return nil
	}
	text := make(shared.LocalizedText, len(m))
	for locale, value := range m {
		text[shared.Locale(locale)] = value
	}
	return text
}
