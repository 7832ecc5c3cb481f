package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/roster-import-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	q querier
}

const userColumns = `id, given_name, family_name, email, phone, date_of_birth, gender, status, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s rowScanner) (*models.User, error) {
	var u models.User
	var email, phone, dob, gender sql.NullString
	if err := s.Scan(&u.ID, &u.GivenName, &u.FamilyName, &email, &phone, &dob, &gender, &u.Status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.DateOfBirth = dob.String
	u.Gender = gender.String
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// FindByProfile retrieves active users with matching names and contact
func (r *userRepo) FindByProfile(ctx context.Context, givenName, familyName, email, phone string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE given_name = $1 AND family_name = $2 AND status = 'active'
	`
	args := []interface{}{givenName, familyName}
	if email != "" {
		query += ` AND email = $3`
		args = append(args, email)
	} else {
		query += ` AND phone = $3`
		args = append(args, phone)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Save inserts or updates a user
func (r *userRepo) Save(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, given_name, family_name, email, phone, date_of_birth, gender, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			given_name = EXCLUDED.given_name, family_name = EXCLUDED.family_name,
			email = EXCLUDED.email, phone = EXCLUDED.phone,
			date_of_birth = EXCLUDED.date_of_birth, gender = EXCLUDED.gender, status = EXCLUDED.status
	`
	_, err := r.q.ExecContext(ctx, query,
		u.ID, u.GivenName, u.FamilyName, nullString(u.Email), nullString(u.Phone),
		nullString(u.DateOfBirth), nullString(u.Gender), u.Status, u.CreatedAt,
	)
	return mapWriteError(err)
}

// membershipRepo is the concrete implementation of MembershipRepository
type membershipRepo struct {
	q querier
}

const membershipSelect = `
	SELECT m.user_id, m.organization_id, m.shortcode, m.status, m.created_at,
		ARRAY(SELECT mr.role_id::text FROM membership_roles mr
			WHERE mr.user_id = m.user_id AND mr.organization_id = m.organization_id ORDER BY mr.role_id)
	FROM memberships m`

func scanMembership(row *sql.Row) (*models.Membership, error) {
	var m models.Membership
	var shortcode sql.NullString
	err := row.Scan(&m.UserID, &m.OrganizationID, &shortcode, &m.Status, &m.CreatedAt, pq.Array(&m.RoleIDs))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Shortcode = shortcode.String
	return &m, nil
}

// Get retrieves the membership of userID in organizationID, whatever its status
func (r *membershipRepo) Get(ctx context.Context, organizationID, userID string) (*models.Membership, error) {
	query := membershipSelect + ` WHERE m.organization_id = $1 AND m.user_id = $2`
	return scanMembership(r.q.QueryRowContext(ctx, query, organizationID, userID))
}

// FindByShortcode retrieves the active membership holding shortcode
func (r *membershipRepo) FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.Membership, error) {
	query := membershipSelect + ` WHERE m.organization_id = $1 AND m.shortcode = $2 AND m.status = 'active' LIMIT 1`
	return scanMembership(r.q.QueryRowContext(ctx, query, organizationID, shortcode))
}

// Save upserts a membership and rewrites its roles
func (r *membershipRepo) Save(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (user_id, organization_id, shortcode, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET
			shortcode = EXCLUDED.shortcode, status = EXCLUDED.status
	`
	if _, err := r.q.ExecContext(ctx, query, m.UserID, m.OrganizationID, nullString(m.Shortcode), m.Status, m.CreatedAt); err != nil {
		return mapWriteError(err)
	}

	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM membership_roles WHERE user_id = $1 AND organization_id = $2`,
		m.UserID, m.OrganizationID,
	); err != nil {
		return err
	}
	if len(m.RoleIDs) == 0 {
		return nil
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO membership_roles (user_id, organization_id, role_id) SELECT $1, $2, unnest($3::uuid[])`,
		m.UserID, m.OrganizationID, pq.Array(m.RoleIDs),
	)
	return err
}

// roleRepo is the concrete implementation of RoleRepository
type roleRepo struct {
	q querier
}

// FindByName retrieves an organization role or system role, preferring the former
func (r *roleRepo) FindByName(ctx context.Context, organizationID, name string) (*models.Role, error) {
	query := `
		SELECT id, name, organization_id, system, status FROM roles
		WHERE name = $2 AND status = 'active' AND ` + ownerFilter(OwnedOrSystem, "$1") + ownedFirst

	var role models.Role
	var org sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, name).
		Scan(&role.ID, &role.Name, &org, &role.System, &role.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	role.OrganizationID = org.String
	return &role, nil
}
