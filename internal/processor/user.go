package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/validation"
)

func userImporter(l config.Limits) Importer {
	schema := validation.UserSchema(l)
	return Importer{
		Entity: EntityUsers,
		Header: headerSpec(schema),
		Batch:  userRows(schema),
	}
}

// userRef holds everything a user row resolved before writing
type userRef struct {
	org    *models.Organization
	role   *models.Role
	school *models.School
	class  *models.Class
	user   *models.User
}

// userRows imports a batch of users. Rows are handled strictly in order:
// later rows rely on the cache entries and in-file keys of earlier ones.
func userRows(schema validation.Schema) BatchFunc {
	return func(ctx context.Context, run *Run, batch []csvreader.Row, firstRow int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		var batchErrs []csverror.CSVError
		for i, row := range batch {
			rowNum := firstRow + i

			ref, rowErrs, err := resolveUserRow(ctx, run, schema, row, rowNum)
			if err != nil {
				return nil, err
			}
			if len(rowErrs) == 0 && len(fileErrs) == 0 && len(batchErrs) == 0 {
				if err := writeUserRow(ctx, run, row, ref); err != nil {
					return nil, err
				}
			}
			batchErrs = append(batchErrs, rowErrs...)
		}
		return batchErrs, nil
	}
}

func resolveUserRow(ctx context.Context, run *Run, schema validation.Schema, row csvreader.Row, rowNum int) (*userRef, []csverror.CSVError, error) {
	org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadUsers, entityUser)
	if err != nil || len(errs) > 0 {
		return nil, errs, err
	}

	ref := &userRef{org: org}
	var rowErrs []csverror.CSVError

	roleName := row.Get(colRoleName)
	role, ok := run.Cache.Role(org.ID, roleName)
	if !ok {
		if role, err = run.Tx.Roles().FindByName(ctx, org.ID, roleName); err != nil {
			return nil, nil, fmt.Errorf("failed to find role: %w", err)
		}
		if role != nil {
			run.Cache.SetRole(org.ID, roleName, role)
		}
	}
	if role == nil {
		rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colRoleName, entityRole, roleName, org))
	}
	ref.role = role

	schoolID := ""
	if name := row.Get(colSchoolName); name != "" {
		school, err := lookupSchool(ctx, run, org, name)
		if err != nil {
			return nil, nil, err
		}
		if school == nil {
			rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colSchoolName, entitySchool, name, org))
		} else {
			schoolID = school.ID
		}
		ref.school = school
	}

	// A class can only be checked against a school that resolved
	if name := row.Get(colClassName); name != "" && (ref.school != nil || !row.Has(colSchoolName)) {
		class, cerr, err := lookupClass(ctx, run, org, ref.school, name, rowNum)
		if err != nil {
			return nil, nil, err
		}
		if cerr != nil {
			rowErrs = append(rowErrs, *cerr)
		} else {
			run.Cache.SetClass(schoolID, class)
		}
		ref.class = class
	}

	user, uerrs, err := resolveUser(ctx, run, org, row, rowNum)
	if err != nil {
		return nil, nil, err
	}
	ref.user = user
	rowErrs = append(rowErrs, uerrs...)

	return ref, rowErrs, nil
}

// lookupSchool resolves a school within org, preferring the cache
func lookupSchool(ctx context.Context, run *Run, org *models.Organization, name string) (*models.School, error) {
	if school, ok := run.Cache.School(org.ID, name); ok {
		return school, nil
	}
	school, err := run.Tx.Schools().FindByName(ctx, org.ID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find school: %w", err)
	}
	if school != nil {
		run.Cache.SetSchool(school)
	}
	return school, nil
}

// lookupClass resolves a class within org and, when given, within school.
// The caller caches the class once the row accepted it.
func lookupClass(ctx context.Context, run *Run, org *models.Organization, school *models.School, name string, rowNum int) (*models.Class, *csverror.CSVError, error) {
	schoolID := ""
	if school != nil {
		schoolID = school.ID
	}
	if class, ok := run.Cache.Class(org.ID, schoolID, name); ok {
		return class, nil, nil
	}

	class, err := run.Tx.Classes().FindByName(ctx, org.ID, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find class: %w", err)
	}
	if class == nil {
		e := run.missingInOrganization(rowNum, colClassName, entityClass, name, org)
		return nil, &e, nil
	}
	if school != nil && !contains(class.SchoolIDs, school.ID) {
		e := run.newError(csverror.CodeNonExistentChildEntity, rowNum, colClassName, csverror.Params{
			"entity":        entityClass,
			"name":          name,
			"parent_entity": entitySchool,
			"parent_name":   school.Name,
		})
		return nil, &e, nil
	}
	return class, nil, nil
}

// resolveUser finds the existing user the row describes, if any, and checks
// the row against users already imported earlier in the file.
func resolveUser(ctx context.Context, run *Run, org *models.Organization, row csvreader.Row, rowNum int) (*models.User, []csverror.CSVError, error) {
	given, family := row.Get(colUserGivenName), row.Get(colUserFamilyName)
	email, phone := row.Get(colUserEmail), row.Get(colUserPhone)
	contactCol := colUserEmail
	if email == "" {
		contactCol = colUserPhone
	}

	var errs []csverror.CSVError
	user := &models.User{GivenName: given, FamilyName: family, Email: email, Phone: phone}

	found, err := run.Tx.Users().FindByProfile(ctx, given, family, email, phone)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if len(found) > 0 {
		user = found[0]
	}

	identity := strings.Join([]string{given, family, user.Contact()}, " ")
	if run.markSeen("user", org.ID, identity) {
		errs = append(errs, run.duplicateInOrganization(rowNum, contactCol, entityUser, user.Contact(), org))
	}

	if shortcode := row.Get(colUserShortcode); shortcode != "" {
		taken := false
		if _, clash := run.claim("membership_shortcode", org.ID, shortcode, identity); clash {
			taken = true
		} else {
			m, err := run.Tx.Memberships().FindByShortcode(ctx, org.ID, shortcode)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to find membership: %w", err)
			}
			taken = m != nil && m.UserID != user.ID
		}
		if taken {
			errs = append(errs, run.duplicateInOrganization(rowNum, colUserShortcode, entityShortcode, shortcode, org))
		}
	}

	return user, errs, nil
}

func writeUserRow(ctx context.Context, run *Run, row csvreader.Row, ref *userRef) error {
	now := time.Now().UTC()
	user := ref.user

	if user.ID == "" {
		id, err := ownerID(ctx, run, user.Contact())
		if err != nil {
			return err
		}
		user.ID = id
		user.Status = models.StatusActive
		user.CreatedAt = now
	}
	if dob := row.Get(colUserDateOfBirth); dob != "" {
		user.DateOfBirth = dob
	}
	user.Gender = strings.ToLower(row.Get(colUserGender))
	if err := run.Tx.Users().Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	membership, err := run.Tx.Memberships().Get(ctx, ref.org.ID, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		membership = &models.Membership{
			UserID:         user.ID,
			OrganizationID: ref.org.ID,
			CreatedAt:      now,
		}
	}
	membership.Status = models.StatusActive
	membership.RoleIDs = models.AddID(membership.RoleIDs, ref.role.ID)
	if shortcode := row.Get(colUserShortcode); shortcode != "" {
		membership.Shortcode = shortcode
	} else if membership.Shortcode == "" {
		membership.Shortcode = newShortcode()
	}
	if err := run.Tx.Memberships().Save(ctx, membership); err != nil {
		return fmt.Errorf("failed to save membership: %w", err)
	}

	if ref.school != nil {
		if err := run.Tx.Schools().SaveMembership(ctx, &models.SchoolMembership{
			UserID:   user.ID,
			SchoolID: ref.school.ID,
			Status:   models.StatusActive,
		}); err != nil {
			return fmt.Errorf("failed to save school membership: %w", err)
		}
	}

	if ref.class != nil {
		// Cached classes are read-only: enrollments go straight to the store
		enroll := run.Tx.Classes().AddStudent
		if strings.Contains(strings.ToLower(ref.role.Name), "teacher") {
			enroll = run.Tx.Classes().AddTeacher
		}
		if err := enroll(ctx, ref.class.ID, user.ID); err != nil {
			return fmt.Errorf("failed to enroll user in class: %w", err)
		}
	}

	return nil
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
