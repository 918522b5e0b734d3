// Package middleware provides HTTP middleware for authentication, tenant
// resolution, and role gating.
//
// # Middleware Components
//
// AuthMiddleware: Bearer-token authentication
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, oidcVerifier)
//	router.Use(authMW.Handler)
//	// API tokens by prefix, OIDC ID tokens otherwise; adds the Principal
//	// to the request context
//
// TenantMiddleware: active-organization resolution
//
//	tenantMW := middleware.NewTenantMiddleware(resolver, metrics, cookieSecure)
//	router.Use(tenantMW.Handler)
//	// Reads the cookie hint, resolves against the session store once per
//	// request, refreshes the cookie, adds the org ID to the context
//
// RequireRole: coarse role gate per route
//
//	router.Handle("/members", middleware.RequireRole(orgService, auth.RoleAdmin)(handler))
//
// Ordering matters: RequestID -> Logging -> Auth -> Tenant -> RequireRole.
package middleware
