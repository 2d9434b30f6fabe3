package access

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
)

// Service resolves module access. Callers hold a Service so the cached and
// direct resolvers are interchangeable.
type Service interface {
	// EnabledModules returns the tenant-wide enabled set (the ceiling).
	EnabledModules(ctx context.Context, tenantID uuid.UUID) (registry.ModuleSet, error)

	// EffectiveModules returns the modules the subject can actually use
	// within the tenant.
	EffectiveModules(ctx context.Context, tenantID uuid.UUID, subject Subject) (registry.ModuleSet, error)
}

// Resolver computes effective module access directly from the stores.
type Resolver struct {
	enablement *EnablementResolver
	matrix     *MatrixStore
	overrides  *OverrideStore
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewResolver creates a direct resolver.
func NewResolver(enablement *EnablementResolver, matrix *MatrixStore, overrides *OverrideStore, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		enablement: enablement,
		matrix:     matrix,
		overrides:  overrides,
		logger:     logger,
		metrics:    metrics,
	}
}

// EnabledModules implements Service.
func (r *Resolver) EnabledModules(ctx context.Context, tenantID uuid.UUID) (registry.ModuleSet, error) {
	return r.enablement.EnabledModules(ctx, tenantID)
}

// EffectiveModules resolves the subject's effective set:
//
//	enabled ceiling -> role row (or everything in default mode) -> user overrides
//
// Super admins skip resolution entirely and see every registered module,
// regardless of the tenant's enablement state. Grants never reach past the
// ceiling; revokes always win over grants for the same module. Store
// failures surface as errors, they are never reported as an empty or full
// set.
func (r *Resolver) EffectiveModules(ctx context.Context, tenantID uuid.UUID, subject Subject) (registry.ModuleSet, error) {
	start := time.Now()

	if subject.SuperAdmin {
		r.observe("superadmin", start)
		return r.enablement.registry.ModuleIDs(), nil
	}

	enabled, err := r.enablement.EnabledModules(ctx, tenantID)
	if err != nil {
		r.metrics.ResolutionsTotal.WithLabelValues("enablement", "error").Inc()
		return nil, err
	}

	matrix, customized, err := r.matrix.GetMatrix(ctx, tenantID)
	if err != nil {
		r.metrics.ResolutionsTotal.WithLabelValues("matrix", "error").Inc()
		return nil, err
	}

	var effective registry.ModuleSet
	source := "default"
	if customized {
		source = "custom"
		effective = registry.NewModuleSet()
		for id := range matrix[subject.Role] {
			if enabled.Contains(id) {
				effective.Add(id)
			}
		}
	} else {
		// Default mode: every role gets the full enabled set.
		effective = enabled.Clone()
	}

	overrides, err := r.overrides.GetOverrides(ctx, tenantID, subject.UserID)
	if err != nil {
		r.metrics.ResolutionsTotal.WithLabelValues("overrides", "error").Inc()
		return nil, err
	}

	// Grants first, revokes second, so a revoke wins regardless of the
	// order the rows came back in.
	for _, ov := range overrides {
		if ov.Kind != OverrideGrant {
			continue
		}
		if !enabled.Contains(ov.ModuleID) {
			// The grant is kept in storage but has no effect until the
			// module becomes tenant-enabled.
			r.metrics.OutOfCeilingGrantsTotal.Inc()
			r.logger.WithField("tenant_id", tenantID.String()).
				WithField("user_id", subject.UserID.String()).
				WithField("module_id", string(ov.ModuleID)).
				Debug("Grant override outside enabled set, ignored")
			continue
		}
		effective.Add(ov.ModuleID)
		r.metrics.OverridesAppliedTotal.WithLabelValues(string(OverrideGrant)).Inc()
	}
	for _, ov := range overrides {
		if ov.Kind != OverrideRevoke {
			continue
		}
		if effective.Contains(ov.ModuleID) {
			r.metrics.OverridesAppliedTotal.WithLabelValues(string(OverrideRevoke)).Inc()
		}
		effective.Remove(ov.ModuleID)
	}

	r.observe(source, start)
	return effective, nil
}

func (r *Resolver) observe(source string, start time.Time) {
	r.metrics.ResolutionsTotal.WithLabelValues(source, "ok").Inc()
	r.metrics.ResolutionDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
