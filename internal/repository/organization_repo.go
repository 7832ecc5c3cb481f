package repository

import (
	"context"
	"database/sql"

	"github.com/roster-import-api/internal/models"
)

// organizationRepo is the concrete implementation of OrganizationRepository
type organizationRepo struct {
	q querier
}

const organizationColumns = `id, name, owner_user_id, status, created_at`

func scanOrganization(row *sql.Row) (*models.Organization, error) {
	var org models.Organization
	var owner sql.NullString
	err := row.Scan(&org.ID, &org.Name, &owner, &org.Status, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	org.OwnerUserID = owner.String
	return &org, nil
}

// FindByName retrieves the active organization with the exact name
func (r *organizationRepo) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE name = $1 AND status = 'active' LIMIT 1`
	return scanOrganization(r.q.QueryRowContext(ctx, query, name))
}

// FindActiveByOwner retrieves the active organization owned by userID
func (r *organizationRepo) FindActiveByOwner(ctx context.Context, userID string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE owner_user_id = $1 AND status = 'active' LIMIT 1`
	return scanOrganization(r.q.QueryRowContext(ctx, query, userID))
}

// Save inserts or updates an organization
func (r *organizationRepo) Save(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, owner_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, owner_user_id = EXCLUDED.owner_user_id, status = EXCLUDED.status
	`
	_, err := r.q.ExecContext(ctx, query, org.ID, org.Name, nullString(org.OwnerUserID), org.Status, org.CreatedAt)
	return mapWriteError(err)
}
