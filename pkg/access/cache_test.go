package access

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

func setupCached(t *testing.T) (*testEnv, *CachedService, *miniredis.Miniredis) {
	t.Helper()

	env := setupResolver(t)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	cached := NewCachedService(env.resolver, client, logger, env.metrics)
	return env, cached, mr
}

func TestCachedService_HitAndMiss(t *testing.T) {
	env, cached, _ := setupCached(t)
	ctx := context.Background()

	tenantID := env.seedTenant(t, "starter", nil)
	userID := env.seedMember(t, tenantID, tenants.RoleEmployee)
	subject := Subject{UserID: userID, Role: tenants.RoleEmployee}

	first, err := cached.EffectiveModules(ctx, tenantID, subject)
	if err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}
	second, err := cached.EffectiveModules(ctx, tenantID, subject)
	if err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}

	if len(first) != len(second) {
		t.Errorf("Cached result differs from direct result: %v vs %v", first.IDs(), second.IDs())
	}
	if got := testutil.ToFloat64(env.metrics.CacheHitsTotal.WithLabelValues("resolution")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(env.metrics.CacheMissesTotal.WithLabelValues("resolution")); got != 1 {
		t.Errorf("Expected 1 cache miss, got %v", got)
	}
}

func TestCachedService_UserInvalidation(t *testing.T) {
	env, cached, _ := setupCached(t)
	ctx := context.Background()

	tenantID := env.seedTenant(t, "starter", nil)
	userID := env.seedMember(t, tenantID, tenants.RoleEmployee)
	subject := Subject{UserID: userID, Role: tenants.RoleEmployee}

	before, err := cached.EffectiveModules(ctx, tenantID, subject)
	if err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}
	if !before.Contains("crm") {
		t.Fatalf("Expected crm before revoke, got %v", before.IDs())
	}

	if err := env.override.SaveOverrides(ctx, tenantID, userID, []Override{
		{ModuleID: "crm", Kind: OverrideRevoke},
	}); err != nil {
		t.Fatalf("SaveOverrides failed: %v", err)
	}
	cached.InvalidateUser(ctx, tenantID, userID)

	after, err := cached.EffectiveModules(ctx, tenantID, subject)
	if err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}
	if after.Contains("crm") {
		t.Error("Read after invalidation returned the pre-write state")
	}
}

func TestCachedService_TenantInvalidation(t *testing.T) {
	env, cached, _ := setupCached(t)
	ctx := context.Background()

	tenantID := env.seedTenant(t, "starter", nil)
	a := env.seedMember(t, tenantID, tenants.RoleEmployee)
	b := env.seedMember(t, tenantID, tenants.RoleEmployee)

	if _, err := cached.EffectiveModules(ctx, tenantID, Subject{UserID: a, Role: tenants.RoleEmployee}); err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}
	if _, err := cached.EffectiveModules(ctx, tenantID, Subject{UserID: b, Role: tenants.RoleEmployee}); err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}

	// Matrix save touches every member of the tenant.
	if err := env.matrix.SaveMatrix(ctx, tenantID, map[tenants.Role][]registry.ModuleID{
		tenants.RoleEmployee: {"tickets"},
	}); err != nil {
		t.Fatalf("SaveMatrix failed: %v", err)
	}
	cached.InvalidateTenant(ctx, tenantID)

	got, err := cached.EffectiveModules(ctx, tenantID, Subject{UserID: a, Role: tenants.RoleEmployee})
	if err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}
	if got.Contains("crm") || !got.Contains("tickets") {
		t.Errorf("Expected post-save matrix to apply, got %v", got.IDs())
	}
}

func TestCachedService_DegradesWhenRedisDown(t *testing.T) {
	env, cached, mr := setupCached(t)
	ctx := context.Background()

	tenantID := env.seedTenant(t, "starter", nil)
	userID := env.seedMember(t, tenantID, tenants.RoleEmployee)

	mr.Close()

	got, err := cached.EffectiveModules(ctx, tenantID, Subject{UserID: userID, Role: tenants.RoleEmployee})
	if err != nil {
		t.Fatalf("Expected direct resolution with redis down, got error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected full resolution despite cache outage, got %v", got.IDs())
	}
}

func TestCachedService_SuperAdminNotCached(t *testing.T) {
	env, cached, mr := setupCached(t)
	ctx := context.Background()

	tenantID := env.seedTenant(t, "starter", nil)

	if _, err := cached.EffectiveModules(ctx, tenantID, Subject{SuperAdmin: true}); err != nil {
		t.Fatalf("EffectiveModules failed: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("Super admin resolution must not populate the cache, found keys %v", mr.Keys())
	}
}
