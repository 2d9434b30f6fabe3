// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	OPSHUB_HOST="0.0.0.0"
//	OPSHUB_PORT="8080"
//	OPSHUB_HEALTH_PORT="9090"
//	OPSHUB_READ_TIMEOUT="15s"
//	OPSHUB_WRITE_TIMEOUT="15s"
//	OPSHUB_SHUTDOWN_TIMEOUT="30s"
//
// Database settings:
//
//	OPSHUB_POSTGRES_URL="postgres://localhost/opshub"
//	OPSHUB_POSTGRES_MAX_OPEN_CONNS="25"
//	OPSHUB_POSTGRES_MAX_IDLE_CONNS="5"
//
// Redis and resolution cache settings:
//
//	OPSHUB_REDIS_ADDR="localhost:6379"
//	OPSHUB_CACHE_ENABLED="true"
//	OPSHUB_CACHE_TTL="5m"
//
// Module catalog settings:
//
//	OPSHUB_MANIFEST_PATH="modules.yaml"
//	OPSHUB_MANIFEST_WATCH="true"
//
// Audit trail settings:
//
//	OPSHUB_AUDIT_ENABLED="true"
//	OPSHUB_AUDIT_LOG_PATH="/var/log/opshub/audit.log"
//	OPSHUB_AUDIT_S3_EXPORT_ENABLED="false"
//	OPSHUB_AUDIT_S3_BUCKET="opshub-audit"
//
// Observability settings:
//
//	OPSHUB_LOG_LEVEL="info"
//	OPSHUB_METRICS_ENABLED="true"
//	OPSHUB_OTEL_ENABLED="false"
//	OPSHUB_OTEL_ENDPOINT="localhost:4317"
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatalf("failed to load configuration: %v", err)
//	}
//
// LoadConfig validates the assembled configuration and returns an error
// describing the first problem it finds; a process should refuse to start
// on a config error rather than limp along with partial settings.
package config
