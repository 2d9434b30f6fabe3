package navigation

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/registry"
)

// Link is one rendered sidebar entry.
type Link struct {
	ModuleID     registry.ModuleID `json:"module_id"`
	Label        string            `json:"label"`
	Href         string            `json:"href"`
	Icon         string            `json:"icon"`
	DisplayOrder int               `json:"display_order"`
	Placeholder  bool              `json:"placeholder,omitempty"`
}

// Group is a category of links, already sorted for rendering.
type Group struct {
	Category string `json:"category"`
	Links    []Link `json:"links"`
}

// State distinguishes a resolved navigation from one still loading. The
// UI must be able to tell "resolved to zero modules" apart from "not
// resolved yet", so loading is a first-class state, not an empty list.
type State string

const (
	StateReady   State = "ready"
	StateLoading State = "loading"
)

// Navigation is the full sidebar payload.
type Navigation struct {
	State  State   `json:"state"`
	Groups []Group `json:"groups"`
}

// Builder renders effective module sets into grouped navigation.
type Builder struct {
	registry *registry.Registry
}

// NewBuilder creates a navigation builder over the module catalog.
func NewBuilder(reg *registry.Registry) *Builder {
	return &Builder{registry: reg}
}

// placeholderRows is the fixed number of skeleton entries the UI renders
// while resolution is in flight.
const placeholderRows = 5

// Build renders the effective set. Groups are ordered by their smallest
// member display order, ties broken by category name; links within a group
// by display order, ties broken by module id. Every href carries the
// active tenant id as a query parameter so navigation stays correct when
// the tenant is not implicit from session state.
func (b *Builder) Build(effective registry.ModuleSet, tenantID uuid.UUID) (Navigation, error) {
	byCategory := make(map[string][]registry.Module)
	for _, mod := range b.registry.Modules() {
		if !effective.Contains(mod.ID) {
			continue
		}
		byCategory[mod.Category] = append(byCategory[mod.Category], mod)
	}

	groups := make([]Group, 0, len(byCategory))
	for category, mods := range byCategory {
		sort.Slice(mods, func(i, j int) bool {
			if mods[i].DisplayOrder != mods[j].DisplayOrder {
				return mods[i].DisplayOrder < mods[j].DisplayOrder
			}
			return mods[i].ID < mods[j].ID
		})

		links := make([]Link, 0, len(mods))
		for _, mod := range mods {
			href, err := tenantHref(mod.Route, tenantID)
			if err != nil {
				return Navigation{}, fmt.Errorf("failed to render link for module %s: %w", mod.ID, err)
			}
			links = append(links, Link{
				ModuleID:     mod.ID,
				Label:        labelFor(mod.ID),
				Href:         href,
				Icon:         mod.Icon.String(),
				DisplayOrder: mod.DisplayOrder,
			})
		}
		groups = append(groups, Group{Category: category, Links: links})
	}

	sort.Slice(groups, func(i, j int) bool {
		oi, oj := groups[i].Links[0].DisplayOrder, groups[j].Links[0].DisplayOrder
		if oi != oj {
			return oi < oj
		}
		return groups[i].Category < groups[j].Category
	})

	return Navigation{State: StateReady, Groups: groups}, nil
}

// Loading returns the placeholder payload rendered while the effective set
// is still being resolved.
func (b *Builder) Loading() Navigation {
	links := make([]Link, placeholderRows)
	for i := range links {
		links[i] = Link{Placeholder: true, DisplayOrder: i + 1}
	}
	return Navigation{
		State:  StateLoading,
		Groups: []Group{{Category: "", Links: links}},
	}
}

// tenantHref merges the active tenant id onto the route's existing query
// parameters. Routes are already workspace-rooted at registration, so this
// is pure query manipulation.
func tenantHref(route registry.Route, tenantID uuid.UUID) (string, error) {
	u, err := url.Parse(route.String())
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("tenant", tenantID.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// labelFor derives a display label from the module id: separators become
// spaces and each word is capitalized.
func labelFor(id registry.ModuleID) string {
	words := strings.FieldsFunc(string(id), func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
