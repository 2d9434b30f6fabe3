package tenants

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return NewStore(db)
}

func TestStore_TenantRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tenant := &Tenant{
		ID:          uuid.New(),
		Name:        "acme",
		TemplateID:  "starter",
		FeatureKeys: []string{"feature.crm", "feature.tickets"},
		Status:      StatusActive,
	}
	if err := store.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}
	if tenant.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt set on insert")
	}

	got, err := store.GetTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Failed to get tenant: %v", err)
	}
	if got.Name != "acme" || got.TemplateID != "starter" || got.Status != StatusActive {
		t.Errorf("Round trip mismatch: %+v", got)
	}
	if len(got.FeatureKeys) != 2 || got.FeatureKeys[0] != "feature.crm" {
		t.Errorf("Expected feature keys preserved, got %v", got.FeatureKeys)
	}
}

func TestStore_TenantWithoutTemplate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tenant := &Tenant{
		ID:     uuid.New(),
		Name:   "legacy co",
		Status: StatusActive,
	}
	if err := store.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}

	got, err := store.GetTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Failed to get tenant: %v", err)
	}
	if got.TemplateID != "" {
		t.Errorf("Expected empty template id, got %q", got.TemplateID)
	}
}

func TestStore_GetTenantNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetTenant(context.Background(), uuid.New())
	if !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("Expected ErrTenantNotFound, got %v", err)
	}
}

func seedTenant(t *testing.T, store *Store) uuid.UUID {
	t.Helper()

	tenant := &Tenant{ID: uuid.New(), Name: "acme", Status: StatusActive}
	if err := store.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}
	return tenant.ID
}

func TestStore_Membership(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	tenantID := seedTenant(t, store)

	userID := uuid.New()
	err := store.AddMember(ctx, &Member{TenantID: tenantID, UserID: userID, Role: RoleManager})
	if err != nil {
		t.Fatalf("Failed to add member: %v", err)
	}

	role, err := store.MemberRole(ctx, tenantID, userID)
	if err != nil {
		t.Fatalf("Failed to get member role: %v", err)
	}
	if role != RoleManager {
		t.Errorf("Expected manager role, got %q", role)
	}

	ok, err := store.IsMember(ctx, tenantID, userID)
	if err != nil || !ok {
		t.Errorf("Expected membership, got %v %v", ok, err)
	}

	ok, err = store.IsMember(ctx, tenantID, uuid.New())
	if err != nil || ok {
		t.Errorf("Expected non-membership, got %v %v", ok, err)
	}
}

func TestStore_MemberRoleNotInTenant(t *testing.T) {
	store := setupTestStore(t)
	tenantID := seedTenant(t, store)

	_, err := store.MemberRole(context.Background(), tenantID, uuid.New())
	if !errors.Is(err, ErrUserNotInTenant) {
		t.Errorf("Expected ErrUserNotInTenant, got %v", err)
	}
}

func TestStore_ListMembers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	tenantID := seedTenant(t, store)

	for _, role := range []Role{RoleOwner, RoleViewer} {
		err := store.AddMember(ctx, &Member{TenantID: tenantID, UserID: uuid.New(), Role: role})
		if err != nil {
			t.Fatalf("Failed to add member: %v", err)
		}
	}

	members, err := store.ListMembers(ctx, tenantID)
	if err != nil {
		t.Fatalf("Failed to list members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("Expected 2 members, got %d", len(members))
	}
}

func TestStore_CountTenants(t *testing.T) {
	store := setupTestStore(t)

	n, err := store.CountTenants(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Expected 0 tenants, got %d %v", n, err)
	}

	seedTenant(t, store)
	seedTenant(t, store)

	n, err = store.CountTenants(context.Background())
	if err != nil || n != 2 {
		t.Errorf("Expected 2 tenants, got %d %v", n, err)
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles() {
		if _, err := ParseRole(string(role)); err != nil {
			t.Errorf("Expected %q to parse, got %v", role, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("Expected unknown role to be rejected")
	}
}

func TestRole_CanManageAccess(t *testing.T) {
	managers := map[Role]bool{
		RoleOwner:    true,
		RoleAdmin:    true,
		RoleManager:  false,
		RoleEmployee: false,
		RoleViewer:   false,
	}
	for role, want := range managers {
		if got := role.CanManageAccess(); got != want {
			t.Errorf("CanManageAccess(%q) = %v, want %v", role, got, want)
		}
	}
}
