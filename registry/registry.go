// Package registry provides the static template catalog containers are
// scaffolded from. The catalog is read-only configuration data compiled
// into the binary; there is no mutation contract.
package registry

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cortex-ai/cortex/model"
)

// Category names, in display order.
const (
	CategoryTemplates = "TEMPLATES"
	CategoryUI        = "UI"
	CategoryDatastore = "DATASTORE"
)

//go:embed templates.yaml
var templatesYAML []byte

// Registry is a read-only lookup over the template catalog.
type Registry struct {
	categories map[string]map[string]model.Template
}

// Load parses the embedded catalog. It fails only if the compiled-in
// data is malformed, which is a build defect rather than a runtime
// condition.
func Load() (*Registry, error) {
	var categories map[string]map[string]model.Template
	if err := yaml.Unmarshal(templatesYAML, &categories); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	for _, name := range []string{CategoryTemplates, CategoryUI, CategoryDatastore} {
		if len(categories[name]) == 0 {
			return nil, fmt.Errorf("template catalog missing category %q", name)
		}
	}
	return &Registry{categories: categories}, nil
}

// Categories returns the category names in display order.
func (r *Registry) Categories() []string {
	return []string{CategoryTemplates, CategoryUI, CategoryDatastore}
}

// Templates returns the keys of a category, sorted. Unknown categories
// yield an empty slice.
func (r *Registry) Templates(category string) []string {
	keys := make([]string, 0, len(r.categories[category]))
	for k := range r.categories[category] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get looks up a template by category and key.
func (r *Registry) Get(category, key string) (model.Template, bool) {
	t, ok := r.categories[category][key]
	return t, ok
}

// Catalog returns the full category map for serialization.
func (r *Registry) Catalog() map[string]map[string]model.Template {
	return r.categories
}
