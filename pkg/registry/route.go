package registry

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// WorkspaceRoot is the path prefix under which all tenant-facing module
// pages are served.
const WorkspaceRoot = "/app"

// Route is a workspace-rooted module path. The invariant "always rooted
// under WorkspaceRoot" is established exactly once, when the module is
// registered from the manifest; rendering layers never re-derive it.
type Route struct {
	path string
}

// NewRoute validates and normalizes a raw manifest route. Raw routes may
// be either workspace-rooted already ("/app/leads") or bare root-relative
// paths ("/leads"); both normalize to the same rooted value. A route may
// carry query parameters, which are preserved.
func NewRoute(raw string) (Route, error) {
	if raw == "" {
		return Route{}, fmt.Errorf("route must not be empty")
	}
	if !strings.HasPrefix(raw, "/") {
		return Route{}, fmt.Errorf("route %q must be root-relative", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Route{}, fmt.Errorf("invalid route %q: %w", raw, err)
	}
	if u.Scheme != "" || u.Host != "" {
		return Route{}, fmt.Errorf("route %q must not be absolute", raw)
	}

	if u.Path != WorkspaceRoot && !strings.HasPrefix(u.Path, WorkspaceRoot+"/") {
		u.Path = WorkspaceRoot + u.Path
	}

	return Route{path: u.String()}, nil
}

// String returns the normalized, workspace-rooted path.
func (r Route) String() string {
	return r.path
}

// IsZero reports whether the route was never initialized through NewRoute.
func (r Route) IsZero() bool {
	return r.path == ""
}

// MarshalJSON renders the route as its normalized string form.
func (r Route) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.path)
}
