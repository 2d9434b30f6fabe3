package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEventNotFound indicates no audit event exists with the given id
var ErrEventNotFound = fmt.Errorf("audit event not found")

// Store persists audit events in the database
type Store struct {
	db *sql.DB
}

// NewStore creates a store over the given database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert writes an event. The event's ID is assigned here.
func (s *Store) Insert(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var metadataJSON, changesJSON []byte
	var err error
	if len(event.Metadata) > 0 {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}
	if event.Changes != nil {
		changesJSON, err = json.Marshal(event.Changes)
		if err != nil {
			return fmt.Errorf("failed to marshal changes: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (
			id, timestamp, event_type, status,
			actor_id, super_admin, tenant_id, target_user_id,
			resource_type, resource_id,
			ip_address, user_agent, request_id,
			message, error_message, metadata, changes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.db.ExecContext(ctx, query,
		event.ID.String(), event.Timestamp, string(event.EventType), string(event.Status),
		uuidPtrString(event.ActorID), event.SuperAdmin,
		uuidPtrString(event.TenantID), uuidPtrString(event.TargetUserID),
		string(event.ResourceType), event.ResourceID,
		event.IPAddress, event.UserAgent, event.RequestID,
		event.Message, event.ErrorMessage, nullableString(metadataJSON), nullableString(changesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// GetByID fetches a single event
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	query := selectColumns + " FROM audit_events WHERE id = $1"
	row := s.db.QueryRowContext(ctx, query, id.String())

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return event, nil
}

// Search returns events matching the filter, newest first
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= "+arg(*filter.StartTime))
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= "+arg(*filter.EndTime))
	}
	if filter.ActorID != nil {
		conditions = append(conditions, "actor_id = "+arg(filter.ActorID.String()))
	}
	if filter.TenantID != nil {
		conditions = append(conditions, "tenant_id = "+arg(filter.TenantID.String()))
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = arg(string(et))
		}
		conditions = append(conditions, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, "resource_type = "+arg(string(filter.ResourceType)))
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, "resource_id = "+arg(filter.ResourceID))
	}

	query := selectColumns + " FROM audit_events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Count returns the total number of stored events
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

// DeleteBefore removes events older than the cutoff and returns how many
// rows were deleted. Used by the retention job.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return result.RowsAffected()
}

const selectColumns = `
	SELECT id, timestamp, event_type, status,
		actor_id, super_admin, tenant_id, target_user_id,
		resource_type, resource_id,
		ip_address, user_agent, request_id,
		message, error_message, metadata, changes`

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(sc scanner) (*Event, error) {
	var event Event
	var id string
	var actorID, tenantID, targetUserID sql.NullString
	var metadataJSON, changesJSON sql.NullString

	err := sc.Scan(
		&id, &event.Timestamp, &event.EventType, &event.Status,
		&actorID, &event.SuperAdmin, &tenantID, &targetUserID,
		&event.ResourceType, &event.ResourceID,
		&event.IPAddress, &event.UserAgent, &event.RequestID,
		&event.Message, &event.ErrorMessage, &metadataJSON, &changesJSON,
	)
	if err != nil {
		return nil, err
	}

	event.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	if event.ActorID, err = parseUUIDPtr(actorID); err != nil {
		return nil, err
	}
	if event.TenantID, err = parseUUIDPtr(tenantID); err != nil {
		return nil, err
	}
	if event.TargetUserID, err = parseUUIDPtr(targetUserID); err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if changesJSON.Valid && changesJSON.String != "" {
		event.Changes = &ChangeDetails{}
		if err := json.Unmarshal([]byte(changesJSON.String), event.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
	}

	return &event, nil
}

func uuidPtrString(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseUUIDPtr(v sql.NullString) (*uuid.UUID, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v.String)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", v.String, err)
	}
	return &id, nil
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
