package registry

import (
	"testing"
)

func testCatalog(t *testing.T, manifest string) *Catalog {
	t.Helper()
	catalog, err := ParseManifest([]byte(manifest))
	if err != nil {
		t.Fatalf("Failed to parse manifest: %v", err)
	}
	return catalog
}

func TestRegistry_DisabledModulesExcluded(t *testing.T) {
	reg := New(testCatalog(t, validManifest))

	modules := reg.Modules()
	for _, m := range modules {
		if m.ID == "tickets" {
			t.Error("Expected disabled module excluded from listing")
		}
	}
	if len(modules) != 2 {
		t.Errorf("Expected 2 active modules, got %d", len(modules))
	}

	ids := reg.ModuleIDs()
	if ids.Contains("tickets") {
		t.Error("Expected disabled module excluded from id set")
	}

	// Direct lookup still resolves so stale references report precisely.
	m, ok := reg.Module("tickets")
	if !ok || !m.Disabled {
		t.Errorf("Expected disabled module to resolve by id, got %v %v", m, ok)
	}
}

func TestRegistry_ModuleByFeatureKey(t *testing.T) {
	reg := New(testCatalog(t, validManifest))

	m, ok := reg.ModuleByFeatureKey("feature.crm")
	if !ok || m.ID != "crm" {
		t.Errorf("Expected feature.crm to resolve to crm, got %v %v", m, ok)
	}

	if _, ok := reg.ModuleByFeatureKey("feature.ghost"); ok {
		t.Error("Expected unknown feature key to miss")
	}
}

func TestRegistry_SwapReplacesCatalogWholesale(t *testing.T) {
	reg := New(testCatalog(t, validManifest))

	if _, ok := reg.Module("crm"); !ok {
		t.Fatal("Expected crm before swap")
	}

	reg.Swap(testCatalog(t, `
modules:
  - {id: billing, route: /billing, icon: payments, category: Finance}
`))

	if _, ok := reg.Module("crm"); ok {
		t.Error("Expected crm gone after swap")
	}
	if _, ok := reg.Module("billing"); !ok {
		t.Error("Expected billing visible after swap")
	}
}

func TestParseModuleID(t *testing.T) {
	valid := []string{"crm", "help-desk", "sales_ops", "v2.reports", "a1"}
	for _, raw := range valid {
		if _, err := ParseModuleID(raw); err != nil {
			t.Errorf("Expected %q to parse, got %v", raw, err)
		}
	}

	invalid := []string{"", "CRM", "with space", "emoji✨", "semi;colon"}
	for _, raw := range invalid {
		if _, err := ParseModuleID(raw); err == nil {
			t.Errorf("Expected %q to be rejected", raw)
		}
	}
}

func TestModuleSet(t *testing.T) {
	s := NewModuleSet("a", "b")
	if !s.Contains("a") || s.Contains("c") {
		t.Errorf("Unexpected membership: %v", s)
	}

	c := s.Clone()
	c.Add("c")
	c.Remove("a")
	if s.Contains("c") || !s.Contains("a") {
		t.Error("Expected clone to be independent of the original")
	}
	if len(c.IDs()) != 2 {
		t.Errorf("Expected 2 ids in clone, got %v", c.IDs())
	}
}
