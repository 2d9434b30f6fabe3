package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/api"
	"github.com/opshub-io/opshub/pkg/audit"
	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/navigation"
	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

const manifest = `
modules:
  - id: crm
    feature_key: feature.crm
    route: /crm
    icon: contacts
    category: Sales
    display_order: 1
  - id: tickets
    feature_key: feature.tickets
    route: /tickets
    icon: tickets
    category: Support
    display_order: 1
  - id: invoices
    feature_key: feature.invoices
    route: /invoices
    icon: invoices
    category: Finance
    display_order: 1
templates:
  - id: starter
    name: Starter
    modules: [crm, tickets]
  - id: growth
    name: Growth
    modules: [crm, tickets, invoices]
`

type env struct {
	db      *sql.DB
	server  *api.Server
	tenants *tenants.Store
	tokens  *auth.TokenManager
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("opshub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, run := range []func(context.Context, *sql.DB) error{
		tenants.RunMigrations,
		access.RunMigrations,
		auth.RunMigrations,
		audit.RunMigrations,
	} {
		if err := run(ctx, db); err != nil {
			t.Fatalf("Failed to run migrations: %v", err)
		}
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	catalog, err := registry.ParseManifest([]byte(manifest))
	if err != nil {
		t.Fatalf("Failed to parse manifest: %v", err)
	}
	reg := registry.New(catalog)

	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	tenantStore := tenants.NewStore(db)
	matrixStore := access.NewMatrixStore(db)
	overrideStore := access.NewOverrideStore(db)
	enablement := access.NewEnablementResolver(tenantStore, reg, logger, metrics)
	resolver := access.NewResolver(enablement, matrixStore, overrideStore, logger, metrics)
	cached := access.NewCachedService(resolver, redisClient, logger, metrics)

	tokens := auth.NewTokenManager(auth.NewTokenStore(db))

	auditStore := audit.NewStore(db)
	dbLogger, err := audit.NewDBLogger(auditStore)
	if err != nil {
		t.Fatalf("Failed to create audit logger: %v", err)
	}

	server := api.NewServer(api.Config{
		Registry:      reg,
		Tenants:       tenantStore,
		Matrix:        matrixStore,
		Overrides:     overrideStore,
		Service:       cached,
		Cache:         cached,
		Tokens:        tokens,
		AuditRecorder: audit.NewRecorder(dbLogger, logger),
		AuditStore:    auditStore,
		Logger:        logger,
		Metrics:       metrics,
	})

	return &env{db: db, server: server, tenants: tenantStore, tokens: tokens}
}

func (e *env) seedTenant(t *testing.T, templateID registry.TemplateID) uuid.UUID {
	t.Helper()

	tenant := &tenants.Tenant{
		ID:         uuid.New(),
		Name:       "acme",
		TemplateID: templateID,
		Status:     tenants.StatusActive,
	}
	if err := e.tenants.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}
	return tenant.ID
}

func (e *env) seedMember(t *testing.T, tenantID uuid.UUID, role tenants.Role) (uuid.UUID, string) {
	t.Helper()

	userID := uuid.New()
	err := e.tenants.AddMember(context.Background(), &tenants.Member{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Failed to add member: %v", err)
	}

	_, token, err := e.tokens.CreateToken(context.Background(), userID, "test", false, nil)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	return userID, token
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func (e *env) modulesFor(t *testing.T, tenantID uuid.UUID, token string) []string {
	t.Helper()

	rr := e.do(t, "GET", fmt.Sprintf("/api/v1/modules?tenant=%s", tenantID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Navigation request failed: %d %s", rr.Code, rr.Body.String())
	}

	var nav navigation.Navigation
	if err := json.NewDecoder(rr.Body).Decode(&nav); err != nil {
		t.Fatalf("Failed to decode navigation: %v", err)
	}

	var ids []string
	for _, g := range nav.Groups {
		for _, l := range g.Links {
			ids = append(ids, string(l.ModuleID))
		}
	}
	return ids
}

// The life of a tenant from provisioning through matrix customization
// and per-user exceptions, all through the public HTTP surface against a
// real PostgreSQL instance with the Redis cache in the path.
func TestAccessResolutionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	e := setupEnv(t)
	tenantID := e.seedTenant(t, "starter")
	_, ownerToken := e.seedMember(t, tenantID, tenants.RoleOwner)
	viewerID, viewerToken := e.seedMember(t, tenantID, tenants.RoleViewer)

	// Default mode: every member sees the full enabled set.
	if ids := e.modulesFor(t, tenantID, viewerToken); len(ids) != 2 {
		t.Fatalf("Expected full enabled set in default mode, got %v", ids)
	}

	// A matrix save restricts the viewer and flips the tenant to custom
	// mode; the cached entry is invalidated before the save returns.
	rr := e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/role-matrix", tenantID), ownerToken, map[string]interface{}{
		"matrix": map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Matrix save failed: %d %s", rr.Code, rr.Body.String())
	}
	var matrixResp struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&matrixResp); err != nil {
		t.Fatalf("Failed to decode matrix response: %v", err)
	}
	if matrixResp.Mode != "custom" {
		t.Errorf("Expected custom mode after save, got %q", matrixResp.Mode)
	}
	if ids := e.modulesFor(t, tenantID, viewerToken); len(ids) != 1 || ids[0] != "crm" {
		t.Fatalf("Expected viewer restricted to [crm] immediately after save, got %v", ids)
	}

	// A revoke dominates whatever the matrix allows.
	rr = e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/users/%s/module-overrides", tenantID, viewerID), ownerToken, []map[string]string{
		{"moduleId": "crm", "overrideType": "revoke"},
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Override save failed: %d %s", rr.Code, rr.Body.String())
	}
	if ids := e.modulesFor(t, tenantID, viewerToken); len(ids) != 0 {
		t.Fatalf("Expected revoke to dominate, got %v", ids)
	}

	// Clearing exceptions restores the matrix answer.
	rr = e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/users/%s/module-overrides", tenantID, viewerID), ownerToken, []map[string]string{})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Override clear failed: %d %s", rr.Code, rr.Body.String())
	}
	if ids := e.modulesFor(t, tenantID, viewerToken); len(ids) != 1 || ids[0] != "crm" {
		t.Fatalf("Expected matrix answer restored, got %v", ids)
	}
}

// A grant outside the tenant's enablement ceiling stays stored and inert
// until the ceiling expands to cover it.
func TestOutOfCeilingGrantActivatesWithCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	e := setupEnv(t)
	tenantID := e.seedTenant(t, "starter")
	_, ownerToken := e.seedMember(t, tenantID, tenants.RoleOwner)
	viewerID, viewerToken := e.seedMember(t, tenantID, tenants.RoleViewer)

	// Restrict the viewer, then grant a module the starter template does
	// not enable at all.
	rr := e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/role-matrix", tenantID), ownerToken, map[string]interface{}{
		"matrix": map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Matrix save failed: %d %s", rr.Code, rr.Body.String())
	}
	rr = e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/users/%s/module-overrides", tenantID, viewerID), ownerToken, []map[string]string{
		{"moduleId": "invoices", "overrideType": "grant"},
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Override save failed: %d %s", rr.Code, rr.Body.String())
	}

	if ids := e.modulesFor(t, tenantID, viewerToken); len(ids) != 1 || ids[0] != "crm" {
		t.Fatalf("Expected out-of-ceiling grant inert, got %v", ids)
	}

	// Move the tenant to a template that enables invoices; the stored
	// grant activates with no further writes.
	_, err := e.db.ExecContext(context.Background(),
		`UPDATE tenants SET template_id = $1 WHERE id = $2`,
		"growth", tenantID.String())
	if err != nil {
		t.Fatalf("Failed to update template: %v", err)
	}
	// The enabled-set cache entry still holds the old ceiling; a matrix
	// touch invalidates the tenant wholesale, as template management
	// tooling does.
	rr = e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/role-matrix", tenantID), ownerToken, map[string]interface{}{
		"matrix": map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Matrix save failed: %d %s", rr.Code, rr.Body.String())
	}

	ids := e.modulesFor(t, tenantID, viewerToken)
	found := false
	for _, id := range ids {
		if id == "invoices" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Expected stored grant to activate once enabled, got %v", ids)
	}
}

// Super admins bypass membership, the matrix and the tenant ceiling: they
// see every registered module.
func TestSuperAdminBypass(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	e := setupEnv(t)
	tenantID := e.seedTenant(t, "starter")
	_, ownerToken := e.seedMember(t, tenantID, tenants.RoleOwner)

	_, adminToken, err := e.tokens.CreateToken(context.Background(), uuid.New(), "root", true, nil)
	if err != nil {
		t.Fatalf("Failed to create super admin token: %v", err)
	}

	rr := e.do(t, "PUT", fmt.Sprintf("/api/v1/tenants/%s/role-matrix", tenantID), ownerToken, map[string]interface{}{
		"matrix": map[string][]string{"viewer": {}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Matrix save failed: %d %s", rr.Code, rr.Body.String())
	}

	ids := e.modulesFor(t, tenantID, adminToken)
	if len(ids) != 3 {
		t.Errorf("Expected super admin to see the full catalog regardless of tenant state, got %v", ids)
	}
	found := false
	for _, id := range ids {
		if id == "invoices" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected invoices outside the tenant ceiling for super admins, got %v", ids)
	}
}
