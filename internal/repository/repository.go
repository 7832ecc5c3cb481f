package repository

import (
	"context"

	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/database"
	"github.com/roster-import-api/internal/models"
)

// Visibility selects which owners a taxonomy lookup considers
type Visibility int

const (
	// OwnedOnly matches records owned by the organization
	OwnedOnly Visibility = iota
	// OwnedOrSystem also matches system records, preferring owned ones
	OwnedOrSystem
)

// Every finder only returns active records and returns (nil, nil) when
// nothing matches.

// OrganizationRepository defines organization data operations
type OrganizationRepository interface {
	FindByName(ctx context.Context, name string) (*models.Organization, error)
	FindActiveByOwner(ctx context.Context, userID string) (*models.Organization, error)
	Save(ctx context.Context, org *models.Organization) error
}

// UserRepository defines user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// FindByProfile matches names plus email or phone, whichever is given
	FindByProfile(ctx context.Context, givenName, familyName, email, phone string) ([]*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// MembershipRepository defines organization membership data operations
type MembershipRepository interface {
	Get(ctx context.Context, organizationID, userID string) (*models.Membership, error)
	FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.Membership, error)
	Save(ctx context.Context, m *models.Membership) error
}

// RoleRepository defines role lookups
type RoleRepository interface {
	FindByName(ctx context.Context, organizationID, name string) (*models.Role, error)
}

// SchoolRepository defines school and school membership data operations
type SchoolRepository interface {
	FindByName(ctx context.Context, organizationID, name string) (*models.School, error)
	FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.School, error)
	Save(ctx context.Context, school *models.School) error
	GetMembership(ctx context.Context, schoolID, userID string) (*models.SchoolMembership, error)
	SaveMembership(ctx context.Context, m *models.SchoolMembership) error
}

// ClassRepository defines class data operations
type ClassRepository interface {
	FindByName(ctx context.Context, organizationID, name string) (*models.Class, error)
	FindByShortcode(ctx context.Context, organizationID, shortcode string) (*models.Class, error)
	Save(ctx context.Context, class *models.Class) error
	// AddTeacher and AddStudent link one user without touching other links
	AddTeacher(ctx context.Context, classID, userID string) error
	AddStudent(ctx context.Context, classID, userID string) error
}

// GradeRepository defines grade data operations
type GradeRepository interface {
	FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Grade, error)
	Save(ctx context.Context, grade *models.Grade) error
}

// ProgramRepository defines program data operations
type ProgramRepository interface {
	FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Program, error)
	Save(ctx context.Context, program *models.Program) error
}

// AgeRangeRepository defines age range data operations
type AgeRangeRepository interface {
	FindByBounds(ctx context.Context, organizationID string, low, high int, unit string, vis Visibility) (*models.AgeRange, error)
	Save(ctx context.Context, ageRange *models.AgeRange) error
}

// CategoryRepository defines category data operations
type CategoryRepository interface {
	FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Category, error)
	Save(ctx context.Context, category *models.Category) error
}

// SubcategoryRepository defines subcategory data operations
type SubcategoryRepository interface {
	FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Subcategory, error)
	Save(ctx context.Context, subcategory *models.Subcategory) error
}

// SubjectRepository defines subject data operations
type SubjectRepository interface {
	FindByName(ctx context.Context, organizationID, name string, vis Visibility) (*models.Subject, error)
	Save(ctx context.Context, subject *models.Subject) error
}

// Tx is one unit of work. Rollback after Commit is a no-op; Release must
// always be called.
type Tx interface {
	Organizations() OrganizationRepository
	Users() UserRepository
	Memberships() MembershipRepository
	Roles() RoleRepository
	Schools() SchoolRepository
	Classes() ClassRepository
	Grades() GradeRepository
	Programs() ProgramRepository
	AgeRanges() AgeRangeRepository
	Categories() CategoryRepository
	Subcategories() SubcategoryRepository
	Subjects() SubjectRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Release() error
}

// Store opens units of work
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// ImportRunRepository defines import run data operations. It works outside
// any import transaction so rejected runs are still recorded.
type ImportRunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	Update(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	AddErrors(ctx context.Context, runID string, errs []csverror.CSVError) error
	GetErrors(ctx context.Context, runID string, limit int) ([]csverror.CSVError, error)
}

// Repositories holds the data access entry points
type Repositories struct {
	Store Store
	Runs  ImportRunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Store: NewStore(db),
		Runs:  NewImportRunRepo(db),
	}
}
