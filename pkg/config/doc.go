// Package config provides application configuration from environment
// variables with an optional YAML file overlay.
//
// # Configuration Structure
//
// Server settings:
//
//	COHORT_HOST="0.0.0.0"
//	COHORT_PORT="8080"
//	COHORT_HEALTH_PORT="9090"
//	COHORT_COOKIE_SECURE="true"
//
// Database settings:
//
//	COHORT_POSTGRES_URL="postgres://localhost/cohort"
//	COHORT_POSTGRES_MAX_CONNS="25"
//
// Cache settings:
//
//	COHORT_REDIS_ADDR="localhost:6379"
//	COHORT_REDIS_CACHE_TTL="5m"
//
// Auth settings:
//
//	COHORT_OIDC_ISSUER_URL="https://issuer.example.com"
//	COHORT_OIDC_CLIENT_ID="cohort-web"
//
// # File Overlay
//
// COHORT_CONFIG_FILE names a YAML file whose values override the
// environment. Watch re-reads the file on change, so operational knobs can
// move without a restart; a file that fails to parse or validate keeps the
// previous configuration.
package config
