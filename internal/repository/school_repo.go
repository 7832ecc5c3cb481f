package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/roster-import-api/internal/models"
)

// schoolRepo is the concrete implementation of SchoolRepository
type schoolRepo struct {
	q querier
}

var schoolSelect = `SELECT s.id, s.organization_id, s.name, s.shortcode, s.status, s.created_at, ` +
	linkedIDs("school_programs", "school_id", "program_id", "s.id") +
	` FROM schools s`

func scanSchool(row *sql.Row) (*models.School, error) {
	var s models.School
	var shortcode sql.NullString
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &shortcode, &s.Status, &s.CreatedAt, pq.Array(&s.ProgramIDs))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Shortcode = shortcode.String
	return &s, nil
}

// FindByName retrieves the active school named name in the organization
func (r *schoolRepo) FindByName(ctx context.Context, organizationID, name string) (*models.School, error) {
	query := schoolSelect + ` WHERE s.organization_id = $1 AND s.name = $2 AND s.status = 'active' LIMIT 1`
	return scanSchool(r.q.QueryRowContext(ctx, query, organizationID, name))
}

// FindByShortcode retrieves the active school holding shortcode in the organization
func (r *schoolRepo) FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.School, error) {
	query := schoolSelect + ` WHERE s.organization_id = $1 AND s.shortcode = $2 AND s.status = 'active' LIMIT 1`
	return scanSchool(r.q.QueryRowContext(ctx, query, organizationID, shortcode))
}

// Save upserts a school and rewrites its programs
func (r *schoolRepo) Save(ctx context.Context, s *models.School) error {
	query := `
		INSERT INTO schools (id, organization_id, name, shortcode, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, shortcode = EXCLUDED.shortcode, status = EXCLUDED.status
	`
	if _, err := r.q.ExecContext(ctx, query, s.ID, s.OrganizationID, s.Name, nullString(s.Shortcode), s.Status, s.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return replaceLinks(ctx, r.q, "school_programs", "school_id", "program_id", s.ID, s.ProgramIDs)
}

// GetMembership retrieves the membership of userID in schoolID
func (r *schoolRepo) GetMembership(ctx context.Context, schoolID, userID string) (*models.SchoolMembership, error) {
	query := `SELECT user_id, school_id, status FROM school_memberships WHERE school_id = $1 AND user_id = $2`

	var m models.SchoolMembership
	err := r.q.QueryRowContext(ctx, query, schoolID, userID).Scan(&m.UserID, &m.SchoolID, &m.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveMembership upserts a school membership
func (r *schoolRepo) SaveMembership(ctx context.Context, m *models.SchoolMembership) error {
	query := `
		INSERT INTO school_memberships (user_id, school_id, status) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, school_id) DO UPDATE SET status = EXCLUDED.status
	`
	_, err := r.q.ExecContext(ctx, query, m.UserID, m.SchoolID, m.Status)
	return mapWriteError(err)
}

// classRepo is the concrete implementation of ClassRepository
type classRepo struct {
	q querier
}

var classSelect = `SELECT c.id, c.organization_id, c.name, c.shortcode, c.status, c.created_at, ` +
	linkedIDs("class_schools", "class_id", "school_id", "c.id") + `, ` +
	linkedIDs("class_programs", "class_id", "program_id", "c.id") + `, ` +
	linkedIDs("class_grades", "class_id", "grade_id", "c.id") + `, ` +
	linkedIDs("class_teachers", "class_id", "user_id", "c.id") + `, ` +
	linkedIDs("class_students", "class_id", "user_id", "c.id") +
	` FROM classes c`

func scanClass(row *sql.Row) (*models.Class, error) {
	var c models.Class
	var shortcode sql.NullString
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &shortcode, &c.Status, &c.CreatedAt,
		pq.Array(&c.SchoolIDs), pq.Array(&c.ProgramIDs), pq.Array(&c.GradeIDs),
		pq.Array(&c.TeacherIDs), pq.Array(&c.StudentIDs),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Shortcode = shortcode.String
	return &c, nil
}

// FindByName retrieves the active class named name in the organization
func (r *classRepo) FindByName(ctx context.Context, organizationID, name string) (*models.Class, error) {
	query := classSelect + ` WHERE c.organization_id = $1 AND c.name = $2 AND c.status = 'active' LIMIT 1`
	return scanClass(r.q.QueryRowContext(ctx, query, organizationID, name))
}

// FindByShortcode retrieves the active class holding shortcode in the organization
func (r *classRepo) FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.Class, error) {
	query := classSelect + ` WHERE c.organization_id = $1 AND c.shortcode = $2 AND c.status = 'active' LIMIT 1`
	return scanClass(r.q.QueryRowContext(ctx, query, organizationID, shortcode))
}

// Save upserts a class and rewrites all of its links
func (r *classRepo) Save(ctx context.Context, c *models.Class) error {
	query := `
		INSERT INTO classes (id, organization_id, name, shortcode, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, shortcode = EXCLUDED.shortcode, status = EXCLUDED.status
	`
	if _, err := r.q.ExecContext(ctx, query, c.ID, c.OrganizationID, c.Name, nullString(c.Shortcode), c.Status, c.CreatedAt); err != nil {
		return mapWriteError(err)
	}

	links := []struct {
		table, col string
		ids        []string
	}{
		{"class_schools", "school_id", c.SchoolIDs},
		{"class_programs", "program_id", c.ProgramIDs},
		{"class_grades", "grade_id", c.GradeIDs},
		{"class_teachers", "user_id", c.TeacherIDs},
		{"class_students", "user_id", c.StudentIDs},
	}
	for _, l := range links {
		if err := replaceLinks(ctx, r.q, l.table, "class_id", l.col, c.ID, l.ids); err != nil {
			return err
		}
	}
	return nil
}

// AddTeacher enrolls userID as a teacher of classID
func (r *classRepo) AddTeacher(ctx context.Context, classID, userID string) error {
	return addLink(ctx, r.q, "class_teachers", "class_id", "user_id", classID, userID)
}

// AddStudent enrolls userID as a student of classID
func (r *classRepo) AddStudent(ctx context.Context, classID, userID string) error {
	return addLink(ctx, r.q, "class_students", "class_id", "user_id", classID, userID)
}
