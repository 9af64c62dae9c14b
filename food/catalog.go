// Package food loads the food catalog and matches free-form queries against it.
package food

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one food item from the catalog.
type Entry struct {
	Name     string `yaml:"name" json:"name"`
	Calories int    `yaml:"calories" json:"calories"`
}

// Catalog is an immutable, ordered collection of food entries. Matching never
// mutates it, so a single catalog is safe to share across front-ends.
type Catalog struct {
	entries []Entry
}

// LoadCatalog reads a YAML catalog file: a top-level list of {name, calories}.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	c, err := NewCatalog(entries)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// NewCatalog validates entries and builds a catalog. Names must survive
// canonicalization and calories cannot be negative. Entries whose names
// collide after canonicalization (annotation variants of the same dish) are
// allowed; the matcher's tie-break chooses between them.
func NewCatalog(entries []Entry) (*Catalog, error) {
	for i, e := range entries {
		if Canonicalize(e.Name) == "" {
			return nil, fmt.Errorf("entry %d: name %q is empty after canonicalization", i, e.Name)
		}
		if e.Calories < 0 {
			return nil, fmt.Errorf("entry %q: negative calories %d", e.Name, e.Calories)
		}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Catalog{entries: cp}, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the catalog in file order.
func (c *Catalog) Entries() []Entry {
	cp := make([]Entry, len(c.entries))
	copy(cp, c.entries)
	return cp
}
