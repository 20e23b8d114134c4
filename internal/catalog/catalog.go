// Package catalog loads the issue categories and fixed reply texts.
//
// The default catalog is embedded in the binary. CATALOG_FILE may point at
// a replacement YAML file with the same shape, e.g. to localise the texts.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nagarbot/internal/complaint"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Entry describes one issue category.
type Entry struct {
	Key      complaint.Category `yaml:"key" json:"key"`
	Emoji    string             `yaml:"emoji" json:"emoji"`
	Name     string             `yaml:"name" json:"name"`
	Examples string             `yaml:"examples" json:"examples"`
}

// Texts are the replies that take no parameters.
type Texts struct {
	Welcome           string `yaml:"welcome"`
	Menu              string `yaml:"menu"`
	Guidance          string `yaml:"guidance"`
	NoComplaints      string `yaml:"no_complaints"`
	ClarifyResolution string `yaml:"clarify_resolution"`
}

// Catalog is the parsed catalog file.
type Catalog struct {
	Categories []Entry `yaml:"categories"`
	Texts      Texts   `yaml:"texts"`

	byKey map[complaint.Category]Entry
}

// Default returns the embedded catalog. It panics if the embedded file is
// broken, which only a bad build can cause.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
//
// Validation rules:
//   - every known category has exactly one entry
//   - no unknown category keys
//   - every fixed text is non-empty
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c.byKey = make(map[complaint.Category]Entry, len(c.Categories))
	for _, e := range c.Categories {
		if _, ok := complaint.ParseCategory(string(e.Key)); !ok {
			return nil, fmt.Errorf("unknown category %q", e.Key)
		}
		if _, dup := c.byKey[e.Key]; dup {
			return nil, fmt.Errorf("duplicate category %q", e.Key)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("category %q has no name", e.Key)
		}
		c.byKey[e.Key] = e
	}
	for _, cat := range complaint.Categories() {
		if _, ok := c.byKey[cat]; !ok {
			return nil, fmt.Errorf("missing category %q", cat)
		}
	}

	texts := map[string]string{
		"welcome":            c.Texts.Welcome,
		"menu":               c.Texts.Menu,
		"guidance":           c.Texts.Guidance,
		"no_complaints":      c.Texts.NoComplaints,
		"clarify_resolution": c.Texts.ClarifyResolution,
	}
	for name, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %q is empty", name)
		}
	}

	return &c, nil
}

// Lookup returns the entry for a category. Every known category is present
// after Parse.
func (c *Catalog) Lookup(cat complaint.Category) (Entry, bool) {
	e, ok := c.byKey[cat]
	return e, ok
}

// Emoji returns the category emoji, or 📝 for anything unknown.
func (c *Catalog) Emoji(cat complaint.Category) string {
	if e, ok := c.byKey[cat]; ok {
		return e.Emoji
	}
	return "📝"
}
