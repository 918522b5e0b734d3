// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/cohorthq/cohort/pkg/contextkeys"
//   ctx = contextkeys.WithPrincipal(ctx, principal)
//   principal := contextkeys.GetPrincipal(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.Principal
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: tenant middleware, all protected API endpoints
	// Type: *auth.Principal
	PrincipalKey Key = "principal"

	// ActiveOrgKey contains the resolved active organization id
	// Set by: middleware.TenantMiddleware (pkg/middleware/tenant.go)
	// Required by: every org-scoped handler. Resolved once per request and
	// threaded through; handlers must never re-resolve mid-request.
	// Type: int64
	ActiveOrgKey Key = "active_organization_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithActiveOrg adds the resolved active organization id to the context
func WithActiveOrg(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, ActiveOrgKey, orgID)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetActiveOrg retrieves the active organization id from the context.
// The second return is false when no tenant has been resolved for the request.
func GetActiveOrg(ctx context.Context) (int64, bool) {
	orgID, ok := ctx.Value(ActiveOrgKey).(int64)
	return orgID, ok
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
