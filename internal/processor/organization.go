package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/validation"
)

func organizationImporter(l config.Limits) Importer {
	schema := validation.OrganizationSchema(l)
	return Importer{
		Entity: EntityOrganizations,
		Header: headerSpec(schema),
		Passes: []RowFunc{organizationRow(schema)},
	}
}

// organizationRow creates an organization together with its owner and the
// owner's admin membership.
func organizationRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		if errs := run.Validator.Validate(row, rowNum, schema); len(errs) > 0 {
			return errs, nil
		}

		// Creating organizations isn't scoped to one
		if errs, err := run.authorize(ctx, nil, permission.UploadOrganizations, entityOrganization, rowNum); err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colOrganizationName)

		existing, err := run.Tx.Organizations().FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to find organization: %w", err)
		}
		if run.markSeen(kindOrganization, name) || existing != nil {
			rowErrs = append(rowErrs, run.newError(csverror.CodeDuplicateEntity, rowNum, colOrganizationName, csverror.Params{
				"entity": entityOrganization,
				"name":   name,
			}))
		}

		owner := &models.User{
			GivenName:  row.Get(colOwnerGivenName),
			FamilyName: row.Get(colOwnerFamilyName),
			Email:      row.Get(colOwnerEmail),
			Phone:      row.Get(colOwnerPhone),
		}
		contactCol := colOwnerEmail
		if owner.Email == "" {
			contactCol = colOwnerPhone
		}

		found, err := run.Tx.Users().FindByProfile(ctx, owner.GivenName, owner.FamilyName, owner.Email, owner.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to find owner: %w", err)
		}
		if len(found) > 0 {
			owner = found[0]
		}

		ownsOne := run.markSeen("owner", owner.GivenName, owner.FamilyName, owner.Contact())
		if !ownsOne && owner.ID != "" {
			owned, err := run.Tx.Organizations().FindActiveByOwner(ctx, owner.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to find owned organization: %w", err)
			}
			ownsOne = owned != nil
		}
		if ownsOne {
			rowErrs = append(rowErrs, run.newError(csverror.CodeOneActiveOrganization, rowNum, contactCol, csverror.Params{
				"entity": entityUser,
				"name":   owner.Contact(),
			}))
		}

		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		now := time.Now().UTC()
		if owner.ID == "" {
			id, err := ownerID(ctx, run, owner.Contact())
			if err != nil {
				return nil, err
			}
			owner.ID = id
			owner.Status = models.StatusActive
			owner.CreatedAt = now
			if err := run.Tx.Users().Save(ctx, owner); err != nil {
				return nil, fmt.Errorf("failed to save owner: %w", err)
			}
		}

		org := &models.Organization{
			ID:          newID(),
			Name:        name,
			OwnerUserID: owner.ID,
			Status:      models.StatusActive,
			CreatedAt:   now,
		}
		if err := run.Tx.Organizations().Save(ctx, org); err != nil {
			return nil, fmt.Errorf("failed to save organization: %w", err)
		}

		admin, err := run.Tx.Roles().FindByName(ctx, org.ID, models.RoleOrganizationAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to find admin role: %w", err)
		}
		if admin == nil {
			return nil, fmt.Errorf("system role %q is missing", models.RoleOrganizationAdmin)
		}

		shortcode := row.Get(colOwnerShortcode)
		if shortcode == "" {
			shortcode = newShortcode()
		}
		membership := &models.Membership{
			UserID:         owner.ID,
			OrganizationID: org.ID,
			Shortcode:      shortcode,
			Status:         models.StatusActive,
			RoleIDs:        []string{admin.ID},
			CreatedAt:      now,
		}
		if err := run.Tx.Memberships().Save(ctx, membership); err != nil {
			return nil, fmt.Errorf("failed to save owner membership: %w", err)
		}

		run.Cache.SetOrganization(org)
		return nil, nil
	}
}

// ownerID derives the account id of a new user from its contact info. The
// derived id is only used when no user holds it yet.
func ownerID(ctx context.Context, run *Run, contact string) (string, error) {
	id := models.AccountUUID(contact)
	taken, err := run.Tx.Users().GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to check account id: %w", err)
	}
	if taken != nil {
		return newID(), nil
	}
	return id, nil
}
