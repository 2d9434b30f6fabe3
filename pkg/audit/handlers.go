package audit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opshub-io/opshub/pkg/contextkeys"
	"github.com/opshub-io/opshub/pkg/httputil"
)

// Handlers provides the HTTP API over the audit trail. Every route is
// restricted to super admins: the trail spans tenants and exposes actor
// identities.
type Handlers struct {
	store *Store
}

// NewHandlers creates new audit handlers
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers audit trail routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/events", h.listEvents).Methods("GET")
	router.HandleFunc("/audit/events/{id}", h.getEvent).Methods("GET")
	router.HandleFunc("/audit/export", h.exportEvents).Methods("GET")
}

// requireSuperAdmin rejects callers without the platform flag
func (h *Handlers) requireSuperAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := contextkeys.GetIdentity(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return false
	}
	if !identity.SuperAdmin {
		httputil.WriteForbidden(w, "super admin access required")
		return false
	}
	return true
}

// listEvents handles GET /audit/events
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	if !h.requireSuperAdmin(w, r) {
		return
	}

	filter, err := h.parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// getEvent handles GET /audit/events/{id}
func (h *Handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	if !h.requireSuperAdmin(w, r) {
		return
	}

	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}

	event, err := h.store.GetByID(r.Context(), id)
	if err == ErrEventNotFound {
		httputil.WriteNotFoundError(w, "audit event not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, event)
}

// exportEvents handles GET /audit/export
func (h *Handlers) exportEvents(w http.ResponseWriter, r *http.Request) {
	if !h.requireSuperAdmin(w, r) {
		return
	}

	filter, err := h.parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if filter.Limit == 0 {
		filter.Limit = 10000
	}

	format := ExportFormat(httputil.ParseQueryString(r, "format", string(ExportFormatNDJSON)))

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	body, err := Encode(events, format)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	switch format {
	case ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-export.csv"`)
	case ExportFormatJSON:
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// parseFilter builds a SearchFilter from query parameters
func (h *Handlers) parseFilter(r *http.Request) (SearchFilter, error) {
	var filter SearchFilter

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.StartTime = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.EndTime = &t
	}
	if v := r.URL.Query().Get("tenant"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.TenantID = &id
	}
	if v := r.URL.Query().Get("actor"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.ActorID = &id
	}
	if v := r.URL.Query().Get("event_type"); v != "" {
		filter.EventTypes = []EventType{EventType(v)}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := EventStatus(v)
		filter.Status = &status
	}
	limit, err := httputil.ParseQueryInt(r, "limit", filter.Limit)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		return filter, err
	}
	filter.Offset = offset

	return filter, nil
}
