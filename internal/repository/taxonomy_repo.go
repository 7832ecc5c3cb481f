package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/roster-import-api/internal/models"
)

// gradeRepo is the concrete implementation of GradeRepository
type gradeRepo struct {
	q querier
}

// FindByName retrieves an active grade by name
func (r *gradeRepo) FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Grade, error) {
	query := `
		SELECT id, organization_id, name, system, status, progress_from_grade_id, progress_to_grade_id
		FROM grades WHERE name = $2 AND status = 'active' AND ` + ownerFilter(vis, "$1") + ownedFirst

	var g models.Grade
	var org, from, to sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, name).
		Scan(&g.ID, &org, &g.Name, &g.System, &g.Status, &from, &to)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.OrganizationID = org.String
	g.ProgressFromID = from.String
	g.ProgressToID = to.String
	return &g, nil
}

// Save upserts a grade
func (r *gradeRepo) Save(ctx context.Context, g *models.Grade) error {
	query := `
		INSERT INTO grades (id, organization_id, name, system, status, progress_from_grade_id, progress_to_grade_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, status = EXCLUDED.status,
			progress_from_grade_id = EXCLUDED.progress_from_grade_id,
			progress_to_grade_id = EXCLUDED.progress_to_grade_id
	`
	_, err := r.q.ExecContext(ctx, query,
		g.ID, nullString(g.OrganizationID), g.Name, g.System, g.Status,
		nullString(g.ProgressFromID), nullString(g.ProgressToID),
	)
	return mapWriteError(err)
}

// programRepo is the concrete implementation of ProgramRepository
type programRepo struct {
	q querier
}

// FindByName retrieves an active program by name with its links
func (r *programRepo) FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Program, error) {
	query := `SELECT t.id, t.organization_id, t.name, t.system, t.status, ` +
		linkedIDs("program_age_ranges", "program_id", "age_range_id", "t.id") + `, ` +
		linkedIDs("program_grades", "program_id", "grade_id", "t.id") + `, ` +
		linkedIDs("program_subjects", "program_id", "subject_id", "t.id") +
		` FROM programs t WHERE name = $2 AND status = 'active' AND ` + ownerFilter(vis, "$1") + ownedFirst

	var p models.Program
	var org sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, name).Scan(
		&p.ID, &org, &p.Name, &p.System, &p.Status,
		pq.Array(&p.AgeRangeIDs), pq.Array(&p.GradeIDs), pq.Array(&p.SubjectIDs),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.OrganizationID = org.String
	return &p, nil
}

// Save upserts a program and rewrites its links
func (r *programRepo) Save(ctx context.Context, p *models.Program) error {
	query := `
		INSERT INTO programs (id, organization_id, name, system, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	`
	if _, err := r.q.ExecContext(ctx, query, p.ID, nullString(p.OrganizationID), p.Name, p.System, p.Status); err != nil {
		return mapWriteError(err)
	}
	if err := replaceLinks(ctx, r.q, "program_age_ranges", "program_id", "age_range_id", p.ID, p.AgeRangeIDs); err != nil {
		return err
	}
	if err := replaceLinks(ctx, r.q, "program_grades", "program_id", "grade_id", p.ID, p.GradeIDs); err != nil {
		return err
	}
	return replaceLinks(ctx, r.q, "program_subjects", "program_id", "subject_id", p.ID, p.SubjectIDs)
}

// ageRangeRepo is the concrete implementation of AgeRangeRepository
type ageRangeRepo struct {
	q querier
}

// FindByBounds retrieves an active age range with exactly these bounds
func (r *ageRangeRepo) FindByBounds(ctx context.Context, organizationID string, low, high int, unit string, vis Visibility) (*models.AgeRange, error) {
	query := `
		SELECT id, organization_id, name, low_value, high_value, unit, system, status
		FROM age_ranges
		WHERE low_value = $2 AND high_value = $3 AND unit = $4 AND status = 'active' AND ` +
		ownerFilter(vis, "$1") + ownedFirst

	var a models.AgeRange
	var org sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, low, high, unit).
		Scan(&a.ID, &org, &a.Name, &a.LowValue, &a.HighValue, &a.Unit, &a.System, &a.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.OrganizationID = org.String
	return &a, nil
}

// Save upserts an age range
func (r *ageRangeRepo) Save(ctx context.Context, a *models.AgeRange) error {
	query := `
		INSERT INTO age_ranges (id, organization_id, name, low_value, high_value, unit, system, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	`
	_, err := r.q.ExecContext(ctx, query,
		a.ID, nullString(a.OrganizationID), a.Name, a.LowValue, a.HighValue, a.Unit, a.System, a.Status,
	)
	return mapWriteError(err)
}

// categoryRepo is the concrete implementation of CategoryRepository
type categoryRepo struct {
	q querier
}

// FindByName retrieves an active category by name with its subcategories
func (r *categoryRepo) FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Category, error) {
	query := `SELECT t.id, t.organization_id, t.name, t.system, t.status, ` +
		linkedIDs("category_subcategories", "category_id", "subcategory_id", "t.id") +
		` FROM categories t WHERE name = $2 AND status = 'active' AND ` + ownerFilter(vis, "$1") + ownedFirst

	var c models.Category
	var org sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, name).
		Scan(&c.ID, &org, &c.Name, &c.System, &c.Status, pq.Array(&c.SubcategoryIDs))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.OrganizationID = org.String
	return &c, nil
}

// Save upserts a category and rewrites its subcategories
func (r *categoryRepo) Save(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (id, organization_id, name, system, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	`
	if _, err := r.q.ExecContext(ctx, query, c.ID, nullString(c.OrganizationID), c.Name, c.System, c.Status); err != nil {
		return mapWriteError(err)
	}
	return replaceLinks(ctx, r.q, "category_subcategories", "category_id", "subcategory_id", c.ID, c.SubcategoryIDs)
}

// subcategoryRepo is the concrete implementation of SubcategoryRepository
type subcategoryRepo struct {
	q querier
}

// FindByName retrieves an active subcategory by name
func (r *subcategoryRepo) FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Subcategory, error) {
	query := `
		SELECT id, organization_id, name, system, status FROM subcategories
		WHERE name = $2 AND status = 'active' AND ` + ownerFilter(vis, "$1") + ownedFirst

	var s models.Subcategory
	var org sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, name).Scan(&s.ID, &org, &s.Name, &s.System, &s.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.OrganizationID = org.String
	return &s, nil
}

// Save upserts a subcategory
func (r *subcategoryRepo) Save(ctx context.Context, s *models.Subcategory) error {
	query := `
		INSERT INTO subcategories (id, organization_id, name, system, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	`
	_, err := r.q.ExecContext(ctx, query, s.ID, nullString(s.OrganizationID), s.Name, s.System, s.Status)
	return mapWriteError(err)
}

// subjectRepo is the concrete implementation of SubjectRepository
type subjectRepo struct {
	q querier
}

// FindByName retrieves an active subject by name with its categories
func (r *subjectRepo) FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Subject, error) {
	query := `SELECT t.id, t.organization_id, t.name, t.system, t.status, ` +
		linkedIDs("subject_categories", "subject_id", "category_id", "t.id") +
		` FROM subjects t WHERE name = $2 AND status = 'active' AND ` + ownerFilter(vis, "$1") + ownedFirst

	var s models.Subject
	var org sql.NullString
	err := r.q.QueryRowContext(ctx, query, organizationID, name).
		Scan(&s.ID, &org, &s.Name, &s.System, &s.Status, pq.Array(&s.CategoryIDs))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.OrganizationID = org.String
	return &s, nil
}

// Save upserts a subject and rewrites its categories
func (r *subjectRepo) Save(ctx context.Context, s *models.Subject) error {
	query := `
		INSERT INTO subjects (id, organization_id, name, system, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	`
	if _, err := r.q.ExecContext(ctx, query, s.ID, nullString(s.OrganizationID), s.Name, s.System, s.Status); err != nil {
		return mapWriteError(err)
	}
	return replaceLinks(ctx, r.q, "subject_categories", "subject_id", "category_id", s.ID, s.CategoryIDs)
}
