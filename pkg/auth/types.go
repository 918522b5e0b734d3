package auth

import "time"

// User represents a user account backed by the identity provider
type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Principal is a verified authenticated identity for one request.
//
// Claims carries whatever the credential included. It may contain a cached
// organization id from a previous login; that value is a hint only and is
// never authoritative: tenant resolution always verifies against the
// session store (pkg/tenant).
type Principal struct {
	ID     int64          `json:"id"`
	Email  string         `json:"email"`
	Claims map[string]any `json:"claims,omitempty"`
}

// Role represents organization-level roles, ordered from least to most
// privileged: viewer < editor < admin < owner.
type Role string

const (
	RoleViewer Role = "viewer" // Read-only access
	RoleEditor Role = "editor" // Can create and edit org data
	RoleAdmin  Role = "admin"  // Can manage members below owner
	RoleOwner  Role = "owner"  // Full control, can manage other owners
)

var roleLevels = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of other.
// Unknown roles compare below every valid role.
func (r Role) AtLeast(other Role) bool {
	return roleLevels[r] >= roleLevels[other]
}

// APIToken represents an API token issued to a user
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"` // Never expose hash
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}
