package audit

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/contextkeys"
	"github.com/opshub-io/opshub/pkg/observability"
)

// Recorder builds and emits the administrative audit events the API
// layer produces. Emission failures are logged but never surfaced to the
// caller: a lost audit entry must not fail the admin action itself.
type Recorder struct {
	logger Logger
	log    *observability.Logger
}

// NewRecorder creates a recorder over the given sink
func NewRecorder(logger Logger, log *observability.Logger) *Recorder {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &Recorder{logger: logger, log: log}
}

// MatrixSaved records a role matrix replacement
func (rec *Recorder) MatrixSaved(ctx context.Context, r *http.Request, actor auth.Identity, tenantID uuid.UUID, mode string, roleCount int) {
	event := rec.base(ctx, r, EventTypeMatrixSave, EventStatusSuccess, actor)
	event.TenantID = &tenantID
	event.ResourceType = ResourceTypeMatrix
	event.ResourceID = tenantID.String()
	event.Message = "role matrix replaced"
	event.Metadata["mode"] = mode
	event.Metadata["role_count"] = roleCount
	rec.emit(ctx, event)
}

// OverridesSaved records a per-user override replacement
func (rec *Recorder) OverridesSaved(ctx context.Context, r *http.Request, actor auth.Identity, tenantID, userID uuid.UUID, overrideCount int) {
	event := rec.base(ctx, r, EventTypeOverrideSave, EventStatusSuccess, actor)
	event.TenantID = &tenantID
	event.TargetUserID = &userID
	event.ResourceType = ResourceTypeOverride
	event.ResourceID = userID.String()
	event.Message = "module overrides replaced"
	event.Metadata["override_count"] = overrideCount
	rec.emit(ctx, event)
}

// AccessDenied records a rejected admin write
func (rec *Recorder) AccessDenied(ctx context.Context, r *http.Request, actor auth.Identity, tenantID uuid.UUID, reason string) {
	event := rec.base(ctx, r, EventTypeAccessDenied, EventStatusDenied, actor)
	event.TenantID = &tenantID
	event.Message = reason
	rec.emit(ctx, event)
}

// TokenCreated records a token mint
func (rec *Recorder) TokenCreated(ctx context.Context, r *http.Request, actor auth.Identity, tokenPrefix, name string) {
	event := rec.base(ctx, r, EventTypeTokenCreate, EventStatusSuccess, actor)
	event.ResourceType = ResourceTypeToken
	event.ResourceID = tokenPrefix
	event.Message = "api token created"
	event.Metadata["token_name"] = name
	rec.emit(ctx, event)
}

// TokenRevoked records a token revocation
func (rec *Recorder) TokenRevoked(ctx context.Context, r *http.Request, actor auth.Identity, tokenPrefix string) {
	event := rec.base(ctx, r, EventTypeTokenRevoke, EventStatusSuccess, actor)
	event.ResourceType = ResourceTypeToken
	event.ResourceID = tokenPrefix
	event.Message = "api token revoked"
	rec.emit(ctx, event)
}

func (rec *Recorder) base(ctx context.Context, r *http.Request, eventType EventType, status EventStatus, actor auth.Identity) *Event {
	event := newEvent(eventType, status)
	if actor.UserID != uuid.Nil {
		actorID := actor.UserID
		event.ActorID = &actorID
	}
	event.SuperAdmin = actor.SuperAdmin

	requestID := contextkeys.GetRequestID(ctx)
	requestContext(event, r, requestID)
	return event
}

func (rec *Recorder) emit(ctx context.Context, event *Event) {
	if err := rec.logger.Log(ctx, event); err != nil && rec.log != nil {
		observability.UpdateLoggerWithTraceContext(ctx, rec.log).
			WithError(err).
			WithFields(map[string]interface{}{
				"event_type": string(event.EventType),
			}).
			Error("Failed to write audit event")
	}
}
