package processor

import (
	"context"
	"fmt"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/validation"
)

func programImporter(l config.Limits) Importer {
	schema := validation.ProgramSchema(l)
	return Importer{
		Entity: EntityPrograms,
		Header: headerSpec(schema),
		Passes: []RowFunc{programRow(schema)},
	}
}

// programRow creates a program linked to an age range, grade and subject.
// Repeated rows for the same program in one file add further links.
func programRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		errs := run.Validator.Validate(row, rowNum, schema)
		if len(errs) > 0 {
			return errs, nil
		}
		bounds, hasAge, errs := parseAgeBounds(run, row, rowNum)
		if len(errs) > 0 {
			return errs, nil
		}

		org, errs, err := run.organization(ctx, row, rowNum)
		if err != nil || len(errs) > 0 {
			return errs, err
		}
		if errs, err := run.authorize(ctx, org, permission.UploadPrograms, entityProgram, rowNum); err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colProgramName)
		repo := run.Tx.Programs()

		existing, err := repo.FindByName(ctx, org.ID, name, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find program: %w", err)
		}
		if existing != nil && !run.wasSeen("program", org.ID, name) {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colProgramName, entityProgram, name, org))
		}

		var ageRange *models.AgeRange
		if hasAge {
			if ageRange, err = run.Tx.AgeRanges().FindByBounds(ctx, org.ID, bounds.low, bounds.high, bounds.unit, repository.OwnedOrSystem); err != nil {
				return nil, fmt.Errorf("failed to find age range: %w", err)
			}
			if ageRange == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colAgeRangeLow, entityAgeRange, bounds.name(), org))
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

		var subject *models.Subject
		if sname := row.Get(colSubjectName); sname != "" {
			if subject, err = run.Tx.Subjects().FindByName(ctx, org.ID, sname, repository.OwnedOrSystem); err != nil {
				return nil, fmt.Errorf("failed to find subject: %w", err)
			}
			if subject == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colSubjectName, entitySubject, sname, org))
			}
		}

		if len(rowErrs) == 0 {
			run.markSeen("program", org.ID, name)
		}
		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		program := existing
		if program == nil {
			program = &models.Program{
				ID:             newID(),
				OrganizationID: org.ID,
				Name:           name,
				Status:         models.StatusActive,
			}
		}
		if ageRange != nil {
			program.AgeRangeIDs = models.AddID(program.AgeRangeIDs, ageRange.ID)
		}
		if grade != nil {
			program.GradeIDs = models.AddID(program.GradeIDs, grade.ID)
		}
		if subject != nil {
			program.SubjectIDs = models.AddID(program.SubjectIDs, subject.ID)
		}
		if err := repo.Save(ctx, program); err != nil {
			return nil, fmt.Errorf("failed to save program: %w", err)
		}
		return nil, nil
	}
}
