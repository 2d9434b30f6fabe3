package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/contextkeys"
)

func setupHandlers(t *testing.T) (*Store, *mux.Router) {
	t.Helper()
	store := setupTestStore(t)
	router := mux.NewRouter()
	NewHandlers(store).RegisterRoutes(router)
	return store, router
}

func asSuperAdmin(req *http.Request) *http.Request {
	identity := auth.Identity{UserID: uuid.New(), SuperAdmin: true}
	return req.WithContext(contextkeys.WithIdentity(req.Context(), identity))
}

func TestListEventsRequiresSuperAdmin(t *testing.T) {
	_, router := setupHandlers(t)

	// No identity at all
	req := httptest.NewRequest("GET", "/audit/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", rec.Code)
	}

	// Regular user
	identity := auth.Identity{UserID: uuid.New()}
	req = httptest.NewRequest("GET", "/audit/events", nil)
	req = req.WithContext(contextkeys.WithIdentity(req.Context(), identity))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for regular user, got %d", rec.Code)
	}
}

func TestListEventsFiltered(t *testing.T) {
	store, router := setupHandlers(t)
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()

	store.Insert(ctx, testEvent(EventTypeMatrixSave, tenantA, time.Now().UTC()))
	store.Insert(ctx, testEvent(EventTypeOverrideSave, tenantB, time.Now().UTC()))

	req := asSuperAdmin(httptest.NewRequest("GET", "/audit/events?tenant="+tenantA.String(), nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Events []*Event `json:"events"`
		Count  int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 event, got %d", resp.Count)
	}
	if resp.Events[0].TenantID == nil || *resp.Events[0].TenantID != tenantA {
		t.Errorf("expected tenant A event, got %v", resp.Events[0].TenantID)
	}
}

func TestGetEvent(t *testing.T) {
	store, router := setupHandlers(t)
	event := testEvent(EventTypeMatrixSave, uuid.New(), time.Now().UTC())
	store.Insert(context.Background(), event)

	req := asSuperAdmin(httptest.NewRequest("GET", "/audit/events/"+event.ID.String(), nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Event
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if got.ID != event.ID {
		t.Errorf("expected event %s, got %s", event.ID, got.ID)
	}
}

func TestGetEventNotFound(t *testing.T) {
	_, router := setupHandlers(t)

	req := asSuperAdmin(httptest.NewRequest("GET", "/audit/events/"+uuid.NewString(), nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExportEventsCSV(t *testing.T) {
	store, router := setupHandlers(t)
	store.Insert(context.Background(), testEvent(EventTypeMatrixSave, uuid.New(), time.Now().UTC()))

	req := asSuperAdmin(httptest.NewRequest("GET", "/audit/export?format=csv", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
}

func TestExportEventsBadTimeFilter(t *testing.T) {
	_, router := setupHandlers(t)

	req := asSuperAdmin(httptest.NewRequest("GET", "/audit/events?start=yesterday", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed time filter, got %d", rec.Code)
	}
}
