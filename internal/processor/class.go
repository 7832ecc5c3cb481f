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

func classImporter(l config.Limits) Importer {
	schema := validation.ClassSchema(l)
	return Importer{
		Entity: EntityClasses,
		Header: headerSpec(schema),
		Passes: []RowFunc{classRow(schema)},
	}
}

// classRow creates a class and links it to a school, program and grade.
// Repeated rows for the same class in one file add further links.
func classRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadClasses, entityClass)
		if err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colClassName)
		repo := run.Tx.Classes()

		existing, err := repo.FindByName(ctx, org.ID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to find class: %w", err)
		}
		if existing != nil && !run.wasSeen(kindClass, org.ID, name) {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colClassName, entityClass, name, org))
		}

		if shortcode := row.Get(colClassShortcode); shortcode != "" {
			scErrs, err := checkShortcode(run, org, name, shortcode, rowNum, colClassShortcode, kindClass, func() (string, error) {
				c, err := repo.FindByShortcode(ctx, org.ID, shortcode)
				if c == nil || err != nil {
					return "", err
				}
				return c.Name, nil
			})
			if err != nil {
				return nil, err
			}
			rowErrs = append(rowErrs, scErrs...)
		}

		var school *models.School
		if sname := row.Get(colSchoolName); sname != "" {
			if school, err = lookupSchool(ctx, run, org, sname); err != nil {
				return nil, err
			}
			if school == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colSchoolName, entitySchool, sname, org))
			}
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

		var grade *models.Grade
		if gname := row.Get(colGradeName); gname != "" {
			if grade, err = run.Tx.Grades().FindByName(ctx, org.ID, gname, repository.OwnedOrSystem); err != nil {
				return nil, fmt.Errorf("failed to find grade: %w", err)
			}
			if grade == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colGradeName, entityGrade, gname, org))
			}
		}

		if len(rowErrs) == 0 {
			run.markSeen(kindClass, org.ID, name)
		}
		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		class := existing
		if class == nil {
			class = &models.Class{
				ID:             newID(),
				OrganizationID: org.ID,
				Name:           name,
				Status:         models.StatusActive,
				CreatedAt:      time.Now().UTC(),
			}
		}
		if shortcode := row.Get(colClassShortcode); shortcode != "" {
			class.Shortcode = shortcode
		}
		if school != nil {
			class.SchoolIDs = models.AddID(class.SchoolIDs, school.ID)
		}
		if program != nil {
			class.ProgramIDs = models.AddID(class.ProgramIDs, program.ID)
		}
		if grade != nil {
			class.GradeIDs = models.AddID(class.GradeIDs, grade.ID)
		}
		if err := repo.Save(ctx, class); err != nil {
			return nil, fmt.Errorf("failed to save class: %w", err)
		}
		return nil, nil
	}
}
