package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cohorthq/cohort/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Audit         AuditConfig
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

	// Secure controls the Secure attribute on the active-organization
	// cookie. Off only for local development over plain HTTP.
	CookieSecure bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis cache configuration. Redis is optional; with no
// address configured every cached read goes straight to PostgreSQL.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// OIDC issuer for browser sessions; empty disables OIDC verification
	OIDCIssuerURL string
	OIDCClientID  string
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	// Optional JSON-lines file mirror of the database audit log
	FilePath string

	// Rows older than this are pruned by the janitor
	Retention time.Duration

	// Cron expression for janitor runs
	JanitorSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables, then overlays
// the optional YAML file named by COHORT_CONFIG_FILE.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("COHORT_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("COHORT_HOST", "0.0.0.0"),
		Port:            getEnv("COHORT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("COHORT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("COHORT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("COHORT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("COHORT_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("COHORT_HEALTH_PORT", "9090"),
		CookieSecure:    getEnvBool("COHORT_COOKIE_SECURE", true),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("COHORT_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("COHORT_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("COHORT_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("COHORT_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvDuration("COHORT_POSTGRES_CONN_IDLE_TIME", 5*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("COHORT_REDIS_ADDR", ""),
		Password: getEnv("COHORT_REDIS_PASSWORD", ""),
		DB:       getEnvInt("COHORT_REDIS_DB", 0),
		CacheTTL: getEnvDuration("COHORT_REDIS_CACHE_TTL", 5*time.Minute),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		OIDCIssuerURL: getEnv("COHORT_OIDC_ISSUER_URL", ""),
		OIDCClientID:  getEnv("COHORT_OIDC_CLIENT_ID", ""),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		FilePath:        getEnv("COHORT_AUDIT_FILE", ""),
		Retention:       getEnvDuration("COHORT_AUDIT_RETENTION", 90*24*time.Hour),
		JanitorSchedule: getEnv("COHORT_JANITOR_SCHEDULE", "@hourly"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("COHORT_LOG_LEVEL", "info"))),
		MetricsEnabled:     getEnvBool("COHORT_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("COHORT_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("COHORT_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("COHORT_OTEL_SERVICE_NAME", "cohort"),
		OTelServiceVersion: getEnv("COHORT_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("COHORT_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
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

	if c.Auth.OIDCIssuerURL != "" && c.Auth.OIDCClientID == "" {
		return fmt.Errorf("OIDC client ID is required when an issuer is configured")
	}

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
