package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opshub-io/opshub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Module registry configuration
	Registry RegistryConfig

	// Access resolution cache configuration
	Cache CacheConfig

	// Audit trail configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings for the resolution cache and
// distributed rate limiting
type RedisConfig struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// RegistryConfig holds module catalog settings
type RegistryConfig struct {
	// ManifestPath is the YAML file declaring modules and templates
	ManifestPath string
	// Watch reloads the manifest on file changes
	Watch bool
}

// CacheConfig holds resolution cache settings
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool
	// LogPath is an optional file sink for audit events; empty disables it
	LogPath string

	// S3 export of audit batches
	S3ExportEnabled bool
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Registry:      loadRegistryConfig(),
		Cache:         loadCacheConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("OPSHUB_HOST", "0.0.0.0"),
		Port:            getEnv("OPSHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("OPSHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("OPSHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("OPSHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("OPSHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("OPSHUB_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("OPSHUB_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("OPSHUB_POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("OPSHUB_POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("OPSHUB_POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:    getEnvBool("OPSHUB_REDIS_ENABLED", true),
		Addr:       getEnv("OPSHUB_REDIS_ADDR", "localhost:6379"),
		Password:   getEnv("OPSHUB_REDIS_PASSWORD", ""),
		DB:         getEnvInt("OPSHUB_REDIS_DB", 0),
		MaxRetries: getEnvInt("OPSHUB_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("OPSHUB_REDIS_POOL_SIZE", 10),
	}
}

// loadRegistryConfig loads module catalog configuration from environment
func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{
		ManifestPath: getEnv("OPSHUB_MANIFEST_PATH", "modules.yaml"),
		Watch:        getEnvBool("OPSHUB_MANIFEST_WATCH", true),
	}
}

// loadCacheConfig loads resolution cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getEnvBool("OPSHUB_CACHE_ENABLED", true),
		TTL:     getEnvDuration("OPSHUB_CACHE_TTL", 5*time.Minute),
	}
}

// loadAuditConfig loads audit trail configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:         getEnvBool("OPSHUB_AUDIT_ENABLED", true),
		LogPath:         getEnv("OPSHUB_AUDIT_LOG_PATH", ""),
		S3ExportEnabled: getEnvBool("OPSHUB_AUDIT_S3_EXPORT_ENABLED", false),
		S3Endpoint:      getEnv("OPSHUB_AUDIT_S3_ENDPOINT", ""),
		S3Region:        getEnv("OPSHUB_AUDIT_S3_REGION", "us-east-1"),
		S3Bucket:        getEnv("OPSHUB_AUDIT_S3_BUCKET", ""),
		S3AccessKey:     getEnv("OPSHUB_AUDIT_S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("OPSHUB_AUDIT_S3_SECRET_KEY", ""),
		S3UsePathStyle:  getEnvBool("OPSHUB_AUDIT_S3_USE_PATH_STYLE", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("OPSHUB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("OPSHUB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("OPSHUB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("OPSHUB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("OPSHUB_OTEL_SERVICE_NAME", "opshub"),
		OTelServiceVersion: getEnv("OPSHUB_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("OPSHUB_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("max idle connections cannot exceed max open connections")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Registry.ManifestPath == "" {
		return fmt.Errorf("module manifest path is required")
	}

	if c.Cache.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("resolution cache requires redis to be enabled")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.Audit.S3ExportEnabled {
		if !c.Audit.Enabled {
			return fmt.Errorf("audit S3 export requires the audit trail to be enabled")
		}
		if c.Audit.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required when audit S3 export is enabled")
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
