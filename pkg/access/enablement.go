package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// EnablementResolver computes the set of modules a tenant has enabled.
// The set is the ceiling for every per-role and per-user decision made
// downstream: nothing outside it is ever effective for anyone in the tenant.
type EnablementResolver struct {
	tenants  *tenants.Store
	registry *registry.Registry
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewEnablementResolver creates an enablement resolver.
func NewEnablementResolver(store *tenants.Store, reg *registry.Registry, logger *observability.Logger, metrics *observability.Metrics) *EnablementResolver {
	return &EnablementResolver{
		tenants:  store,
		registry: reg,
		logger:   logger,
		metrics:  metrics,
	}
}

// EnabledModules resolves the tenant's enabled module set.
//
// Resolution runs three steps in order and stops at the first that produces
// a set:
//
//  1. If the tenant's template links modules directly, the enabled set is
//     exactly those linked modules.
//  2. Otherwise, if the tenant or its template carries feature keys, the
//     enabled set is exactly the modules those keys match. Keys that match
//     nothing shrink the set, possibly to empty, never widen it.
//  3. Otherwise every registered module is enabled. A tenant with no
//     provisioning data sees everything rather than nothing.
//
// Disabled modules never enter the set on any path.
//
// A missing tenant returns tenants.ErrTenantNotFound, never an empty set.
func (r *EnablementResolver) EnabledModules(ctx context.Context, tenantID uuid.UUID) (registry.ModuleSet, error) {
	tenant, err := r.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var tmpl registry.Template
	var haveTemplate bool
	if tenant.TemplateID != "" {
		tmpl, haveTemplate = r.registry.Template(tenant.TemplateID)
		if !haveTemplate {
			r.logger.WithField("tenant_id", tenantID.String()).
				WithField("template_id", string(tenant.TemplateID)).
				Warn("Tenant references unknown template")
		}
	}

	if haveTemplate && tmpl.HasLinks() {
		set := registry.NewModuleSet()
		for _, id := range tmpl.ModuleIDs {
			if mod, ok := r.registry.Module(id); ok && !mod.Disabled {
				set.Add(id)
			}
		}
		if len(set) > 0 {
			return set, nil
		}
		// Every link pointed at a module the manifest no longer carries
		// or has since disabled.
		r.logger.WithField("tenant_id", tenantID.String()).
			WithField("template_id", string(tmpl.ID)).
			Warn("Template links resolve to no known modules")
	}

	keys := tenant.FeatureKeys
	if haveTemplate {
		keys = append(append([]string{}, keys...), tmpl.FeatureKeys...)
	}
	if len(keys) > 0 {
		set := registry.NewModuleSet()
		for _, key := range keys {
			mod, ok := r.registry.ModuleByFeatureKey(key)
			if !ok {
				r.logger.WithField("tenant_id", tenantID.String()).
					WithField("feature_key", key).
					Debug("Feature key matches no module")
				continue
			}
			if mod.Disabled {
				continue
			}
			set.Add(mod.ID)
		}
		// The tenant was provisioned with feature keys, so the keys decide
		// the set even when none of them match anymore. Falling through to
		// the permissive default here would widen access on stale data.
		return set, nil
	}

	// No template links and no matching feature keys: the tenant gets the
	// full catalog. Counted so a provisioning gap shows up in dashboards
	// before it shows up as a support ticket.
	r.metrics.PermissiveDefaultTotal.Inc()
	r.logger.WithField("tenant_id", tenantID.String()).
		Debug("No enablement data for tenant, defaulting to all modules")

	set := r.registry.ModuleIDs()
	if len(set) == 0 {
		return nil, fmt.Errorf("module catalog is empty")
	}
	return set, nil
}
