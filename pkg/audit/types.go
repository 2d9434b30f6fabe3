package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	// Access administration events
	EventTypeMatrixSave   EventType = "access.matrix_save"
	EventTypeOverrideSave EventType = "access.override_save"
	EventTypeAccessDenied EventType = "access.denied"

	// Token lifecycle events
	EventTypeTokenCreate EventType = "auth.token_create"
	EventTypeTokenRevoke EventType = "auth.token_revoke"

	// Tenant administration events
	EventTypeTenantCreate EventType = "tenant.create"
	EventTypeMemberAdd    EventType = "tenant.member_add"

	// Catalog events
	EventTypeManifestReload EventType = "registry.manifest_reload"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being mutated
type ResourceType string

const (
	ResourceTypeMatrix   ResourceType = "role_matrix"
	ResourceTypeOverride ResourceType = "module_overrides"
	ResourceTypeToken    ResourceType = "token"
	ResourceTypeTenant   ResourceType = "tenant"
	ResourceTypeMember   ResourceType = "member"
	ResourceTypeManifest ResourceType = "manifest"
)

// Event represents a single audit trail entry. Only administrative
// writes are recorded; access resolution reads never produce events.
type Event struct {
	// Core fields
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	SuperAdmin bool       `json:"super_admin,omitempty"`

	// Scope information
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	TargetUserID *uuid.UUID `json:"target_user_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	// Changes tracking (before/after for full-replace writes)
	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter represents filters for searching the audit trail
type SearchFilter struct {
	// Time range
	StartTime *time.Time
	EndTime   *time.Time

	// Actor and scope filters
	ActorID  *uuid.UUID
	TenantID *uuid.UUID

	// Event filters
	EventTypes []EventType
	Status     *EventStatus

	// Resource filters
	ResourceType ResourceType
	ResourceID   string

	// Pagination
	Limit  int
	Offset int
}

// ExportFormat represents the format for exporting audit events
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson" // Newline-delimited JSON
)
