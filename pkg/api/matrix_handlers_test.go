package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/audit"
	"github.com/opshub-io/opshub/pkg/navigation"
	"github.com/opshub-io/opshub/pkg/tenants"
)

func matrixPath(tenantID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/tenants/%s/role-matrix", tenantID)
}

func TestMatrix_GetDefaultMode(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	ownerID := env.seedMember(t, tenantID, tenants.RoleOwner)
	token := env.mintToken(t, ownerID, false)

	rr := env.request(t, "GET", matrixPath(tenantID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload MatrixPayload
	decodeJSON(t, rr, &payload)

	if payload.Mode != "default" {
		t.Errorf("Expected default mode before any save, got %q", payload.Mode)
	}
	if len(payload.Matrix) != 0 {
		t.Errorf("Expected no rows in default mode, got %v", payload.Matrix)
	}
}

func TestMatrix_PutFlipsModeAndFiltersNavigation(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	ownerID := env.seedMember(t, tenantID, tenants.RoleOwner)
	viewerID := env.seedMember(t, tenantID, tenants.RoleViewer)
	ownerToken := env.mintToken(t, ownerID, false)
	viewerToken := env.mintToken(t, viewerID, false)

	// Default mode: the viewer sees everything the tenant has enabled.
	rr := env.request(t, "GET", fmt.Sprintf("/api/v1/modules?tenant=%s", tenantID), viewerToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var nav navigation.Navigation
	decodeJSON(t, rr, &nav)
	if ids := navModules(nav); len(ids) != 2 {
		t.Fatalf("Expected full enabled set in default mode, got %v", ids)
	}

	rr = env.request(t, "PUT", matrixPath(tenantID), ownerToken, MatrixRequest{
		Matrix: map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload MatrixPayload
	decodeJSON(t, rr, &payload)
	if payload.Mode != "custom" {
		t.Errorf("Expected custom mode after save, got %q", payload.Mode)
	}
	if got := payload.Matrix["viewer"]; len(got) != 1 || string(got[0]) != "crm" {
		t.Errorf("Expected saved viewer row [crm], got %v", got)
	}

	rr = env.request(t, "GET", fmt.Sprintf("/api/v1/modules?tenant=%s", tenantID), viewerToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	decodeJSON(t, rr, &nav)
	if ids := navModules(nav); len(ids) != 1 || ids[0] != "crm" {
		t.Errorf("Expected viewer navigation restricted to [crm], got %v", ids)
	}
}

func TestMatrix_PutEmptyReturnsToDefault(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	ownerID := env.seedMember(t, tenantID, tenants.RoleOwner)
	token := env.mintToken(t, ownerID, false)

	rr := env.request(t, "PUT", matrixPath(tenantID), token, MatrixRequest{
		Matrix: map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.request(t, "PUT", matrixPath(tenantID), token, MatrixRequest{
		Matrix: map[string][]string{},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload MatrixPayload
	decodeJSON(t, rr, &payload)
	if payload.Mode != "default" {
		t.Errorf("Expected empty save to return the tenant to default mode, got %q", payload.Mode)
	}
}

func TestMatrix_PutForbiddenForEmployee(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	employeeID := env.seedMember(t, tenantID, tenants.RoleEmployee)
	token := env.mintToken(t, employeeID, false)

	rr := env.request(t, "PUT", matrixPath(tenantID), token, MatrixRequest{
		Matrix: map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for employee, got %d: %s", rr.Code, rr.Body.String())
	}

	denied, err := env.audit.Search(context.Background(), audit.SearchFilter{
		TenantID:   &tenantID,
		EventTypes: []audit.EventType{audit.EventTypeAccessDenied},
	})
	if err != nil {
		t.Fatalf("Failed to search audit events: %v", err)
	}
	if len(denied) != 1 {
		t.Errorf("Expected one denied audit event, got %d", len(denied))
	}
}

func TestMatrix_PutUnknownRole(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	ownerID := env.seedMember(t, tenantID, tenants.RoleOwner)
	token := env.mintToken(t, ownerID, false)

	rr := env.request(t, "PUT", matrixPath(tenantID), token, MatrixRequest{
		Matrix: map[string][]string{"superuser": {"crm"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown role, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMatrix_PutBadModuleID(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	ownerID := env.seedMember(t, tenantID, tenants.RoleOwner)
	token := env.mintToken(t, ownerID, false)

	rr := env.request(t, "PUT", matrixPath(tenantID), token, MatrixRequest{
		Matrix: map[string][]string{"viewer": {"not a module!"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed module id, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMatrix_UnknownTenant(t *testing.T) {
	env := setupServer(t)
	token := env.mintToken(t, uuid.New(), true)

	rr := env.request(t, "GET", matrixPath(uuid.New()), token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown tenant, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMatrix_SaveRecordsAuditEvent(t *testing.T) {
	env := setupServer(t)
	tenantID := env.seedTenant(t, "starter", nil)
	ownerID := env.seedMember(t, tenantID, tenants.RoleOwner)
	token := env.mintToken(t, ownerID, false)

	rr := env.request(t, "PUT", matrixPath(tenantID), token, MatrixRequest{
		Matrix: map[string][]string{"viewer": {"crm"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	events, err := env.audit.Search(context.Background(), audit.SearchFilter{
		TenantID:   &tenantID,
		EventTypes: []audit.EventType{audit.EventTypeMatrixSave},
	})
	if err != nil {
		t.Fatalf("Failed to search audit events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected one matrix save event, got %d", len(events))
	}
	if events[0].ActorID == nil || *events[0].ActorID != ownerID {
		t.Errorf("Expected actor %s, got %v", ownerID, events[0].ActorID)
	}
}
