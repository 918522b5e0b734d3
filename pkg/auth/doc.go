// Package auth resolves inbound credentials to verified principals.
//
// Two credential types are supported:
//
//   - Opaque API tokens ("cohort_" prefix, SHA-256 hashed at rest),
//     validated against the api_tokens table by TokenManager.
//   - OIDC ID tokens, verified against the configured issuer by
//     OIDCVerifier, with first-login user provisioning.
//
// Both paths yield a Principal (id, email, claims). A principal carries no
// tenant scope of its own: claims may include a cached organization id from
// a previous login, but that value is only ever used as a hint by
// pkg/tenant, which verifies it against the authoritative session store.
package auth
