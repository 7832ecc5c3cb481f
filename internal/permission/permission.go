package permission

import (
	"context"
	"errors"
	"fmt"
)

// Upload permissions checked by the entity importers
const (
	UploadOrganizations = "upload_organizations"
	UploadUsers         = "upload_users"
	UploadSchools       = "upload_schools"
	UploadClasses       = "upload_classes"
	UploadGrades        = "upload_grades"
	UploadPrograms      = "upload_programs"
	UploadAgeRanges     = "upload_age_ranges"
	UploadCategories    = "upload_categories"
	UploadSubcategories = "upload_subcategories"
	UploadSubjects      = "upload_subjects"
)

// ErrForbidden is returned by RejectIfNotAllowed on denial
var ErrForbidden = errors.New("forbidden")

// Scope narrows a check to organizations. An empty scope is a global check.
type Scope struct {
	OrganizationIDs []string
}

// Organization returns the scope of a single organization
func Organization(id string) Scope {
	return Scope{OrganizationIDs: []string{id}}
}

// Checker answers permission questions for one acting user
type Checker interface {
	Allowed(ctx context.Context, scope Scope, permission string) (bool, error)
}

// Authorizer hands out a Checker bound to the acting user
type Authorizer interface {
	ForUser(userID string) Checker
}

// RejectIfNotAllowed turns a denial into ErrForbidden
func RejectIfNotAllowed(ctx context.Context, c Checker, scope Scope, permission string) error {
	ok, err := c.Allowed(ctx, scope, permission)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrForbidden, permission)
	}
	return nil
}
