package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"

	"github.com/opshub-io/opshub/pkg/contextkeys"
	"github.com/opshub-io/opshub/pkg/tenants"
)

func setupTenantStore(t *testing.T) *tenants.Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := tenants.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return tenants.NewStore(db)
}

func tenantRouter(store *tenants.Store, next http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(TenantContextMiddleware(store))
	r.Handle("/tenants/{tenant_id}/modules", next)
	r.Handle("/status", next)
	return r
}

func TestTenantContextMiddleware_ResolvesTenant(t *testing.T) {
	store := setupTenantStore(t)
	tenant := &tenants.Tenant{
		ID:     uuid.New(),
		Name:   "Acme",
		Status: tenants.StatusActive,
	}
	if err := store.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	router := tenantRouter(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := contextkeys.GetTenant(r.Context())
		if !ok {
			t.Fatal("expected tenant in request context")
		}
		if got.ID != tenant.ID {
			t.Errorf("expected tenant %s, got %s", tenant.ID, got.ID)
		}
		if got.Name != "Acme" {
			t.Errorf("expected tenant name Acme, got %q", got.Name)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tenants/"+tenant.ID.String()+"/modules", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTenantContextMiddleware_UnknownTenant(t *testing.T) {
	store := setupTenantStore(t)

	router := tenantRouter(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/tenants/"+uuid.NewString()+"/modules", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown tenant, got %d", rec.Code)
	}
}

func TestTenantContextMiddleware_InvalidTenantID(t *testing.T) {
	store := setupTenantStore(t)

	router := tenantRouter(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/tenants/not-a-uuid/modules", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed tenant id, got %d", rec.Code)
	}
}

func TestTenantContextMiddleware_PassthroughWithoutVar(t *testing.T) {
	store := setupTenantStore(t)

	router := tenantRouter(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := contextkeys.GetTenant(r.Context()); ok {
			t.Error("expected no tenant in context for route without tenant_id")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
