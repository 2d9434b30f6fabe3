package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// manifestModule is the YAML shape of a module entry. Route and icon are
// raw strings here; they pass through NewRoute/ParseIconKey during catalog
// construction so invalid entries fail the whole load.
type manifestModule struct {
	ID           string `yaml:"id"`
	FeatureKey   string `yaml:"feature_key"`
	Route        string `yaml:"route"`
	Icon         string `yaml:"icon"`
	Category     string `yaml:"category"`
	DisplayOrder int    `yaml:"display_order"`
	Disabled     bool   `yaml:"disabled"`
}

type manifestTemplate struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	FeatureKeys []string `yaml:"feature_keys"`
	Modules     []string `yaml:"modules"`
}

// Manifest is the platform-curated catalog file. It is the single source
// of truth for modules and templates; tenants reference it by id only.
type Manifest struct {
	Modules   []manifestModule   `yaml:"modules"`
	Templates []manifestTemplate `yaml:"templates"`
}

// Catalog is an immutable, validated snapshot of the manifest. A new
// Catalog replaces the old one wholesale on reload; consumers never see a
// partially-applied manifest.
type Catalog struct {
	modules      []Module
	modulesByID  map[ModuleID]Module
	modulesByKey map[string]ModuleID
	templates    map[TemplateID]Template
}

// ParseManifest decodes and validates manifest bytes into a Catalog.
func ParseManifest(data []byte) (*Catalog, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return buildCatalog(&m)
}

// LoadManifest reads and parses the manifest file at path.
func LoadManifest(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

func buildCatalog(m *Manifest) (*Catalog, error) {
	if len(m.Modules) == 0 {
		return nil, fmt.Errorf("manifest declares no modules")
	}

	c := &Catalog{
		modulesByID:  make(map[ModuleID]Module, len(m.Modules)),
		modulesByKey: make(map[string]ModuleID),
		templates:    make(map[TemplateID]Template, len(m.Templates)),
	}

	for _, raw := range m.Modules {
		if raw.ID == "" {
			return nil, fmt.Errorf("module with empty id in manifest")
		}
		id := ModuleID(raw.ID)
		if _, dup := c.modulesByID[id]; dup {
			return nil, fmt.Errorf("duplicate module id %q", raw.ID)
		}

		route, err := NewRoute(raw.Route)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", raw.ID, err)
		}
		icon, err := ParseIconKey(raw.Icon)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", raw.ID, err)
		}
		if raw.Category == "" {
			return nil, fmt.Errorf("module %q: category is required", raw.ID)
		}

		mod := Module{
			ID:           id,
			FeatureKey:   raw.FeatureKey,
			Route:        route,
			Icon:         icon,
			Category:     raw.Category,
			DisplayOrder: raw.DisplayOrder,
			Disabled:     raw.Disabled,
		}

		if raw.FeatureKey != "" {
			if prev, dup := c.modulesByKey[raw.FeatureKey]; dup {
				return nil, fmt.Errorf("feature key %q claimed by both %q and %q", raw.FeatureKey, prev, raw.ID)
			}
			c.modulesByKey[raw.FeatureKey] = id
		}

		c.modulesByID[id] = mod
		c.modules = append(c.modules, mod)
	}

	sort.Slice(c.modules, func(i, j int) bool {
		a, b := c.modules[i], c.modules[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})

	for _, raw := range m.Templates {
		if raw.ID == "" {
			return nil, fmt.Errorf("template with empty id in manifest")
		}
		tid := TemplateID(raw.ID)
		if _, dup := c.templates[tid]; dup {
			return nil, fmt.Errorf("duplicate template id %q", raw.ID)
		}

		tpl := Template{
			ID:          tid,
			Name:        raw.Name,
			FeatureKeys: raw.FeatureKeys,
		}
		for _, mid := range raw.Modules {
			if _, ok := c.modulesByID[ModuleID(mid)]; !ok {
				return nil, fmt.Errorf("template %q links unknown module %q", raw.ID, mid)
			}
			tpl.ModuleIDs = append(tpl.ModuleIDs, ModuleID(mid))
		}

		c.templates[tid] = tpl
	}

	return c, nil
}
