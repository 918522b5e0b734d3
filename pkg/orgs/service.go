package orgs

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/cohorthq/cohort/pkg/audit"
	"github.com/cohorthq/cohort/pkg/auth"
)

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db      *sql.DB
	auditor audit.Logger
}

// NewPostgresService creates a new PostgresService. The audit logger may be
// nil; audit writes are best-effort either way.
func NewPostgresService(db *sql.DB, auditor audit.Logger) *PostgresService {
	return &PostgresService{db: db, auditor: auditor}
}

// CreateOrganization creates an organization and, in the same transaction,
// an owner membership for the creator. If the creator has no active session
// yet the new organization becomes their active one, matching the tenant
// resolver's first-login bootstrap.
func (s *PostgresService) CreateOrganization(ctx context.Context, req *CreateOrgRequest, creatorID int64) (*Organization, error) {
	slug := req.Slug
	if slug == "" {
		slug = generateSlug(req.Name)
	}
	if slug == "" {
		return nil, fmt.Errorf("organization name produced an empty slug")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	org := &Organization{Name: req.Name, Slug: slug}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, org.Name, org.Slug).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("organization slug %q is already taken", slug)
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`, org.ID, creatorID, auth.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	// First organization becomes the active one; an existing session wins
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_sessions (user_id, organization_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, creatorID, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeOrgCreate, audit.EventStatusSuccess).
			WithActor(creatorID).
			WithOrganization(org.ID).
			WithMetadata(map[string]any{"slug": org.Slug}))

	return org, nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	return s.getOrganization(ctx, `WHERE id = $1`, id)
}

// GetOrganizationBySlug retrieves an organization by slug
func (s *PostgresService) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	return s.getOrganization(ctx, `WHERE slug = $1`, slug)
}

func (s *PostgresService) getOrganization(ctx context.Context, where string, arg any) (*Organization, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM organizations ` + where
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations lists the organizations a user belongs to, oldest
// membership first, the same order the tenant resolver's bootstrap uses,
// so the first entry is the bootstrap default.
func (s *PostgresService) ListOrganizations(ctx context.Context, userID int64) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_members m ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var organizations []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		organizations = append(organizations, org)
	}

	return organizations, nil
}

// DeleteOrganization removes an organization. Memberships, sessions,
// invitations, and scoped rows go with it via ON DELETE CASCADE.
func (s *PostgresService) DeleteOrganization(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrgNotFound
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeOrgDelete, audit.EventStatusSuccess).
			WithOrganization(id))

	return nil
}

// generateSlug derives a URL-safe slug from an organization name
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	return strings.Trim(slug, "-")
}

// generateInvitationToken generates a URL-safe, unguessable single-use token
func generateInvitationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
