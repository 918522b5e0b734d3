package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrCompanyNotFound is returned when a company does not exist in the
// caller's organization. A company that exists in another organization is
// indistinguishable from one that does not exist at all.
var ErrCompanyNotFound = errors.New("company not found")

// Company is a row-scoped business record. Every query against it is
// filtered by organization_id in addition to the database-side row
// security policy, so a miswired connection still cannot leak rows.
type Company struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Domain         string    `json:"domain,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store persists companies in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new company store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a company into the given organization
func (s *Store) Create(ctx context.Context, orgID int64, name, domain string) (*Company, error) {
	company := &Company{OrganizationID: orgID, Name: name, Domain: domain}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO companies (organization_id, name, domain)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at, updated_at
	`, orgID, name, domain).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

// Get retrieves a company by ID within an organization
func (s *Store) Get(ctx context.Context, orgID, companyID int64) (*Company, error) {
	company := &Company{}
	var domain sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, domain, created_at, updated_at
		FROM companies
		WHERE organization_id = $1 AND id = $2
	`, orgID, companyID).Scan(
		&company.ID, &company.OrganizationID, &company.Name, &domain,
		&company.CreatedAt, &company.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	company.Domain = domain.String
	return company, nil
}

// List retrieves all companies in an organization, newest first
func (s *Store) List(ctx context.Context, orgID int64) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, name, domain, created_at, updated_at
		FROM companies
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*Company
	for rows.Next() {
		company := &Company{}
		var domain sql.NullString
		if err := rows.Scan(
			&company.ID, &company.OrganizationID, &company.Name, &domain,
			&company.CreatedAt, &company.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		company.Domain = domain.String
		companies = append(companies, company)
	}

	return companies, nil
}

// Update modifies a company's name and domain within an organization
func (s *Store) Update(ctx context.Context, orgID, companyID int64, name, domain string) (*Company, error) {
	company := &Company{ID: companyID, OrganizationID: orgID, Name: name, Domain: domain}
	err := s.db.QueryRowContext(ctx, `
		UPDATE companies
		SET name = $1, domain = NULLIF($2, ''), updated_at = NOW()
		WHERE organization_id = $3 AND id = $4
		RETURNING created_at, updated_at
	`, name, domain, orgID, companyID).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}

// Delete removes a company within an organization
func (s *Store) Delete(ctx context.Context, orgID, companyID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM companies
		WHERE organization_id = $1 AND id = $2
	`, orgID, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}
