package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileLogger appends audit events to a local file as JSON lines. It is
// meant as a secondary sink next to the database logger, useful for
// shipping the trail to external log collectors.
type FileLogger struct {
	mu   sync.Mutex
	log  *logrus.Logger
	file *os.File
}

// NewFileLogger creates a file-based audit logger at the given path
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	log := logrus.New()
	log.SetOutput(file)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetLevel(logrus.InfoLevel)

	return &FileLogger{log: log, file: file}, nil
}

// Log writes the event as a single JSON line
func (l *FileLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := logrus.Fields{
		"event_id":   event.ID.String(),
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.ActorID != nil {
		fields["actor_id"] = event.ActorID.String()
	}
	if event.SuperAdmin {
		fields["super_admin"] = true
	}
	if event.TenantID != nil {
		fields["tenant_id"] = event.TenantID.String()
	}
	if event.TargetUserID != nil {
		fields["target_user_id"] = event.TargetUserID.String()
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error_message"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	l.log.WithFields(fields).Info(event.Message)
	return nil
}

// Close closes the underlying file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
