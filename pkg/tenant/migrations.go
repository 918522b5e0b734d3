package tenant

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the tenancy schema: identities, organizations,
// memberships, sessions, invitations, the row-scoped companies table, and
// the row-level-security contract every scoped table is bound to.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					full_name VARCHAR(255),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					last_login_at TIMESTAMPTZ
				);
			`,
		},
		{
			Version:     2,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     3,
			Description: "Create organization_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organization_members (
					id BIGSERIAL PRIMARY KEY,
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(20) NOT NULL CHECK (role IN ('viewer', 'editor', 'admin', 'owner')),
					invited_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (organization_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_org_members_user_id ON organization_members(user_id);
				CREATE INDEX IF NOT EXISTS idx_org_members_org_role ON organization_members(organization_id, role);
			`,
		},
		{
			Version:     4,
			Description: "Create user_sessions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_sessions (
					user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					switched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     5,
			Description: "Create org_invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS org_invitations (
					id BIGSERIAL PRIMARY KEY,
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					email VARCHAR(255) NOT NULL,
					role VARCHAR(20) NOT NULL CHECK (role IN ('viewer', 'editor', 'admin', 'owner')),
					token VARCHAR(64) NOT NULL UNIQUE,
					invited_by BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					invited_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMPTZ NOT NULL,
					accepted_at TIMESTAMPTZ,
					accepted_by BIGINT REFERENCES users(id) ON DELETE SET NULL
				);

				CREATE INDEX IF NOT EXISTS idx_org_invitations_org_id ON org_invitations(organization_id);
				CREATE INDEX IF NOT EXISTS idx_org_invitations_email ON org_invitations(email);
			`,
		},
		{
			Version:     6,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(20) NOT NULL,
					name VARCHAR(255) NOT NULL,
					expires_at TIMESTAMPTZ,
					last_used_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					revoked_at TIMESTAMPTZ
				);
			`,
		},
		{
			Version:     7,
			Description: "Create companies table (row-scoped business data)",
			SQL: `
				CREATE TABLE IF NOT EXISTS companies (
					id BIGSERIAL PRIMARY KEY,
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					domain VARCHAR(255),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_companies_org_id ON companies(organization_id);
			`,
		},
		{
			Version:     8,
			Description: "Create get_active_organization_id() policy function",
			SQL: `
				-- The in-database twin of Resolver.ResolveActiveOrganization's
				-- read path. The cookie does not exist here; the session row is
				-- authoritative, verified against a live membership, with the
				-- earliest-membership fallback. STABLE so one statement sees
				-- one consistent tenant boundary.
				CREATE OR REPLACE FUNCTION get_active_organization_id() RETURNS BIGINT
				LANGUAGE sql STABLE AS $fn$
					SELECT COALESCE(
						(
							SELECT s.organization_id
							FROM user_sessions s
							JOIN organization_members m
							  ON m.organization_id = s.organization_id AND m.user_id = s.user_id
							WHERE s.user_id = NULLIF(current_setting('app.principal_id', true), '')::BIGINT
						),
						(
							SELECT m.organization_id
							FROM organization_members m
							WHERE m.user_id = NULLIF(current_setting('app.principal_id', true), '')::BIGINT
							ORDER BY m.created_at ASC, m.id ASC
							LIMIT 1
						)
					);
				$fn$;
			`,
		},
		{
			Version:     9,
			Description: "Enable row-level security on scoped tables",
			SQL: `
				-- The service's own queries scope by organization_id
				-- explicitly; the policy is the backstop for every other
				-- role (reporting, ad-hoc access). The migration owner is
				-- deliberately left exempt, so no FORCE.
				ALTER TABLE companies ENABLE ROW LEVEL SECURITY;

				DROP POLICY IF EXISTS companies_tenant_isolation ON companies;
				CREATE POLICY companies_tenant_isolation ON companies
					USING (organization_id = get_active_organization_id())
					WITH CHECK (organization_id = get_active_organization_id());
			`,
		},
		{
			Version:     10,
			Description: "Add revocation columns to org_invitations",
			SQL: `
				ALTER TABLE org_invitations ADD COLUMN IF NOT EXISTS revoked_at TIMESTAMPTZ;
				ALTER TABLE org_invitations ADD COLUMN IF NOT EXISTS revoked_by BIGINT REFERENCES users(id) ON DELETE SET NULL;
			`,
		},
	}
}

// RunMigrations applies all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tenant_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM tenant_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tenant_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
