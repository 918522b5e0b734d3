package orgs

import (
	"context"
	"errors"
	"time"

	"github.com/cohorthq/cohort/pkg/auth"
)

// Organization represents a tenant: the isolation boundary all business
// data is scoped to
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrgMember represents an organization member with user details
type OrgMember struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	UserID         int64     `json:"user_id"`
	Role           auth.Role `json:"role"`
	InvitedBy      *int64    `json:"invited_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Email          string    `json:"email,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
}

// OrgInvitation represents an invitation to join an organization
type OrgInvitation struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	Email          string     `json:"email"`
	Role           auth.Role  `json:"role"`
	Token          string     `json:"token,omitempty"`
	InvitedBy      int64      `json:"invited_by"`
	InvitedAt      time.Time  `json:"invited_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy     *int64     `json:"accepted_by,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedBy      *int64     `json:"revoked_by,omitempty"`
}

// CreateOrgRequest represents a request to create an organization
type CreateOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// RoleChangeResult is the structured outcome of a role-change operation.
// Business-rule failures are reported in Error (one of the sentinel error
// messages) so callers across a process boundary can render precise
// messages without exception-style control flow.
type RoleChangeResult struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	OldRole auth.Role `json:"old_role,omitempty"`
	NewRole auth.Role `json:"new_role,omitempty"`
}

// Business-rule failures. Each is distinct so callers can render precise,
// user-actionable messages rather than a generic error.
var (
	// ErrSelfModification: an actor tried to change or remove their own
	// membership
	ErrSelfModification = errors.New("cannot modify your own membership")

	// ErrInsufficientRole: the actor's role does not permit the operation
	ErrInsufficientRole = errors.New("insufficient role for this operation")

	// ErrLastOwnerViolation: the operation would leave the organization
	// with no owner
	ErrLastOwnerViolation = errors.New("cannot demote or remove the last owner")

	// ErrNotAMember: the target of the operation has no membership in the
	// organization
	ErrNotAMember = errors.New("user is not a member of the organization")

	// ErrAlreadyMember: the user already holds a membership in the
	// organization
	ErrAlreadyMember = errors.New("user is already a member of the organization")

	// ErrOrgNotFound: no such organization
	ErrOrgNotFound = errors.New("organization not found")
)

// Invitation validation failures, in the order AcceptInvitation checks them
var (
	// ErrInvalidToken: no invitation matches the token
	ErrInvalidToken = errors.New("invitation not found")

	// ErrInvitationExpired: the invitation's expiry has passed
	ErrInvitationExpired = errors.New("invitation has expired")

	// ErrInvitationAlreadyUsed: the single-use token was already accepted
	ErrInvitationAlreadyUsed = errors.New("invitation has already been used")

	// ErrEmailMismatch: the accepting principal's verified email does not
	// match the invited email
	ErrEmailMismatch = errors.New("invitation was issued to a different email address")
)

// Service defines organization, membership, and invitation management.
// All mutations that matter for authorization (role changes, removals,
// invitation acceptance) run with row-level locking so concurrent requests
// serialize instead of racing past invariant checks.
type Service interface {
	// Organization lifecycle
	CreateOrganization(ctx context.Context, req *CreateOrgRequest, creatorID int64) (*Organization, error)
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	ListOrganizations(ctx context.Context, userID int64) ([]*Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error

	// Membership registry
	ListMembers(ctx context.Context, orgID int64) ([]*OrgMember, error)
	GetMember(ctx context.Context, orgID, userID int64) (*OrgMember, error)

	// Role-change / membership-mutation service
	ChangeRole(ctx context.Context, actorID, orgID, targetID int64, newRole auth.Role) (*RoleChangeResult, error)
	RemoveMember(ctx context.Context, actorID, orgID, targetID int64) error

	// Invitation service
	CreateInvitation(ctx context.Context, actorID, orgID int64, email string, role auth.Role) (*OrgInvitation, error)
	GetInvitation(ctx context.Context, token string) (*OrgInvitation, error)
	ListInvitations(ctx context.Context, orgID int64) ([]*OrgInvitation, error)
	AcceptInvitation(ctx context.Context, principal *auth.Principal, token string) (*OrgInvitation, error)
	RevokeInvitation(ctx context.Context, actorID, invitationID int64) error
	CleanupExpiredInvitations(ctx context.Context) (int64, error)
}
