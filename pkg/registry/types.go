package registry

import "fmt"

// ModuleID uniquely identifies an installable application module.
type ModuleID string

// ParseModuleID validates raw module id syntax: non-empty, lowercase
// letters, digits, and separators. Unknown-but-well-formed ids are
// accepted; the enablement ceiling makes them inert.
func ParseModuleID(raw string) (ModuleID, error) {
	if raw == "" {
		return "", fmt.Errorf("empty module id")
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return "", fmt.Errorf("invalid module id %q", raw)
		}
	}
	return ModuleID(raw), nil
}

// TemplateID uniquely identifies a curated module bundle.
type TemplateID string

// Module is an installable application feature/page, addressable by route.
// Modules are platform-owned reference data: they are registered once at
// startup from the platform manifest and never mutated afterwards. Disabled
// modules stay in the catalog so historical references keep resolving, but
// they are excluded from listings and tenant enablement.
type Module struct {
	ID ModuleID `json:"id" yaml:"id"`

	// FeatureKey is the legacy string identifier used to match modules
	// before template curation existed. Optional; only consulted on the
	// feature-key fallback path of tenant enablement.
	FeatureKey string `json:"feature_key,omitempty" yaml:"feature_key"`

	Route        Route   `json:"route" yaml:"-"`
	Icon         IconKey `json:"icon" yaml:"-"`
	Category     string  `json:"category" yaml:"category"`
	DisplayOrder int     `json:"display_order" yaml:"display_order"`
	Disabled     bool    `json:"disabled,omitempty" yaml:"disabled"`
}

// Template is a platform-curated bundle of modules assignable to a tenant.
// ModuleIDs is the authoritative curated membership; FeatureKeys is the
// pre-curation fallback grant set carried for tenants provisioned before
// explicit links existed.
type Template struct {
	ID          TemplateID `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	FeatureKeys []string   `json:"feature_keys,omitempty" yaml:"feature_keys"`
	ModuleIDs   []ModuleID `json:"module_ids,omitempty" yaml:"modules"`
}

// HasLinks reports whether the template carries curated module links.
func (t Template) HasLinks() bool {
	return len(t.ModuleIDs) > 0
}

// ModuleSet is a set of module ids.
type ModuleSet map[ModuleID]struct{}

// NewModuleSet builds a set from the given ids.
func NewModuleSet(ids ...ModuleID) ModuleSet {
	s := make(ModuleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a member of the set.
func (s ModuleSet) Contains(id ModuleID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s ModuleSet) Add(id ModuleID) {
	s[id] = struct{}{}
}

// Remove deletes id from the set.
func (s ModuleSet) Remove(id ModuleID) {
	delete(s, id)
}

// IDs returns the members in unspecified order.
func (s ModuleSet) IDs() []ModuleID {
	ids := make([]ModuleID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Clone returns an independent copy of the set.
func (s ModuleSet) Clone() ModuleSet {
	c := make(ModuleSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}
