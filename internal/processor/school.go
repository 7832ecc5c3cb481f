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
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/validation"
)

func schoolImporter(l config.Limits) Importer {
	schema := validation.SchoolSchema(l)
	return Importer{
		Entity: EntitySchools,
		Header: headerSpec(schema),
		Passes: []RowFunc{schoolRow(schema)},
	}
}

// schoolRow creates a school. Repeated rows for the same school in one file
// add programs to the school created by the first one.
func schoolRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadSchools, entitySchool)
		if err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colSchoolName)
		repo := run.Tx.Schools()

		existing, err := repo.FindByName(ctx, org.ID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to find school: %w", err)
		}
		staged := run.wasSeen(kindSchool, org.ID, name)
		if existing != nil && !staged {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colSchoolName, entitySchool, name, org))
		}

		if shortcode := row.Get(colSchoolShortcode); shortcode != "" {
			scErrs, err := checkShortcode(run, org, name, shortcode, rowNum, colSchoolShortcode, kindSchool, func() (string, error) {
				s, err := repo.FindByShortcode(ctx, org.ID, shortcode)
				if s == nil || err != nil {
					return "", err
				}
				return s.Name, nil
			})
			if err != nil {
				return nil, err
			}
			rowErrs = append(rowErrs, scErrs...)
		}

		var program *models.Program
		if pname := row.Get(colProgramName); pname != "" {
			if program, err = run.Tx.Programs().FindByName(ctx, org.ID, pname, repository.OwnedOrSystem); err != nil {
				return nil, fmt.Errorf("failed to find program: %w", err)
			}
			if program == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colProgramName, entityProgram, pname, org))
			}
		}

		if len(rowErrs) == 0 {
			run.markSeen(kindSchool, org.ID, name)
		}
		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		school := existing
		if school == nil {
			school = &models.School{
				ID:             newID(),
				OrganizationID: org.ID,
				Name:           name,
				Status:         models.StatusActive,
				CreatedAt:      time.Now().UTC(),
			}
		}
		if shortcode := row.Get(colSchoolShortcode); shortcode != "" {
			school.Shortcode = shortcode
		}
		if program != nil {
			school.ProgramIDs = models.AddID(school.ProgramIDs, program.ID)
		}
		if err := repo.Save(ctx, school); err != nil {
			return nil, fmt.Errorf("failed to save school: %w", err)
		}
		return nil, nil
	}
}

// checkShortcode rejects a shortcode that another entity of the same kind
// already holds, in the database or earlier in the file. holder returns the
// name of the stored entity holding the shortcode, "" when there is none.
func checkShortcode(run *Run, org *models.Organization, name, shortcode string, rowNum int, column, kind string, holder func() (string, error)) ([]csverror.CSVError, error) {
	dup := func() []csverror.CSVError {
		return []csverror.CSVError{run.duplicateInOrganization(rowNum, column, entityShortcode, shortcode, org)}
	}

	if _, clash := run.claim(kind+"_shortcode", org.ID, shortcode, name); clash {
		return dup(), nil
	}
	stored, err := holder()
	if err != nil {
		return nil, fmt.Errorf("failed to find shortcode: %w", err)
	}
	if stored != "" && stored != name {
		return dup(), nil
	}
	return nil, nil
}
