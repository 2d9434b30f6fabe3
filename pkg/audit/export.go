package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/config"
)

// Encode serializes events in the requested export format
func Encode(events []*Event, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return exportJSON(events)
	case ExportFormatNDJSON:
		return exportNDJSON(events)
	case ExportFormatCSV:
		return exportCSV(events)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// exportJSON exports audit events as a JSON array
func exportJSON(events []*Event) ([]byte, error) {
	return json.MarshalIndent(events, "", "  ")
}

// exportNDJSON exports audit events as newline-delimited JSON
func exportNDJSON(events []*Event) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)

	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			return nil, fmt.Errorf("failed to encode event: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// exportCSV exports audit events as CSV
func exportCSV(events []*Event) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"ID",
		"Timestamp",
		"EventType",
		"Status",
		"ActorID",
		"SuperAdmin",
		"TenantID",
		"TargetUserID",
		"ResourceType",
		"ResourceID",
		"IPAddress",
		"RequestID",
		"Message",
		"ErrorMessage",
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, event := range events {
		row := []string{
			event.ID.String(),
			event.Timestamp.Format(time.RFC3339),
			string(event.EventType),
			string(event.Status),
			formatUUIDPtr(event.ActorID),
			strconv.FormatBool(event.SuperAdmin),
			formatUUIDPtr(event.TenantID),
			formatUUIDPtr(event.TargetUserID),
			string(event.ResourceType),
			event.ResourceID,
			event.IPAddress,
			event.RequestID,
			event.Message,
			event.ErrorMessage,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// formatUUIDPtr formats a UUID pointer, returning empty string for nil
func formatUUIDPtr(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// S3Exporter ships batches of audit events to object storage. The
// reporter binary runs it on a schedule so the trail survives database
// retention cleanup.
type S3Exporter struct {
	client *s3.Client
	bucket string
	store  *Store
}

// NewS3Exporter creates an exporter from the audit configuration
func NewS3Exporter(ctx context.Context, cfg config.AuditConfig, store *Store) (*S3Exporter, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	var awsConfig aws.Config
	var err error

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		// Static credentials (MinIO or AWS with explicit keys)
		awsConfig, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey,
				cfg.S3SecretKey,
				"",
			)),
		)
	} else {
		// Default credential chain (IAM roles, env vars, etc.)
		awsConfig, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		if cfg.S3UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Exporter{
		client: client,
		bucket: cfg.S3Bucket,
		store:  store,
	}, nil
}

// ExportRange uploads all events in [start, end) as NDJSON and returns
// the object key and the number of events shipped. An empty range
// uploads nothing.
func (e *S3Exporter) ExportRange(ctx context.Context, start, end time.Time) (string, int, error) {
	events, err := e.store.Search(ctx, SearchFilter{
		StartTime: &start,
		EndTime:   &end,
		Limit:     100000,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to load events for export: %w", err)
	}
	if len(events) == 0 {
		return "", 0, nil
	}

	body, err := exportNDJSON(events)
	if err != nil {
		return "", 0, err
	}

	key := fmt.Sprintf("audit/%s/events-%s.ndjson",
		start.UTC().Format("2006/01/02"),
		start.UTC().Format("20060102T150405Z"))

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload audit export: %w", err)
	}

	return key, len(events), nil
}
