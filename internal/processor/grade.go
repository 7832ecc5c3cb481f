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

const kindGrade = "grade"

// Grades take two passes: the first creates every grade of the file, the
// second links progressions, which may name grades created further down.
func gradeImporter(l config.Limits) Importer {
	schema := validation.GradeSchema(l)
	return Importer{
		Entity: EntityGrades,
		Header: headerSpec(schema),
		Passes: []RowFunc{gradeRow(schema), gradeProgressionRow()},
	}
}

func gradeRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadGrades, entityGrade)
		if err != nil || len(errs) > 0 {
			return errs, err
		}

		name := row.Get(colGradeName)
		from := row.Get(colProgressFromGradeName)
		to := row.Get(colProgressToGradeName)

		rowErrs := differentGrades(run, rowNum, name, from, to)

		existing, err := run.Tx.Grades().FindByName(ctx, org.ID, name, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find grade: %w", err)
		}
		if run.markSeen(kindGrade, org.ID, name) || existing != nil {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colGradeName, entityGrade, name, org))
		}

		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		grade := &models.Grade{
			ID:             newID(),
			OrganizationID: org.ID,
			Name:           name,
			Status:         models.StatusActive,
		}
		if err := run.Tx.Grades().Save(ctx, grade); err != nil {
			return nil, fmt.Errorf("failed to save grade: %w", err)
		}
		return nil, nil
	}
}

// differentGrades requires a grade, the grade it progresses from and the
// one it progresses to to be pairwise different
func differentGrades(run *Run, rowNum int, name, from, to string) []csverror.CSVError {
	var errs []csverror.CSVError
	different := func(col, other string) {
		errs = append(errs, run.newError(csverror.CodeInvalidDifferent, rowNum, col, csverror.Params{
			"entity":          "grade",
			"attribute":       col,
			"other_entity":    "grade",
			"other_attribute": other,
		}))
	}

	if from != "" && from == name {
		different(colProgressFromGradeName, colGradeName)
	}
	if to != "" && to == name {
		different(colProgressToGradeName, colGradeName)
	}
	if from != "" && from == to {
		different(colProgressFromGradeName, colProgressToGradeName)
	}
	return errs
}

// gradeProgressionRow links the grade created by the first pass. Rows the
// first pass rejected are skipped silently, their errors are already
// reported.
func gradeProgressionRow() RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		if run.ErrorsBeforePass > 0 {
			return nil, nil
		}

		org, ok := run.Cache.Organization(row.Get(colOrganizationName))
		if !ok {
			return nil, fmt.Errorf("organization of row %d was not resolved by the first pass", rowNum)
		}

		repo := run.Tx.Grades()
		name := row.Get(colGradeName)
		grade, err := repo.FindByName(ctx, org.ID, name, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find grade: %w", err)
		}
		if grade == nil {
			return nil, fmt.Errorf("grade %q of row %d was not created by the first pass", name, rowNum)
		}

		var rowErrs []csverror.CSVError
		link := func(col string) (string, error) {
			target := row.Get(col)
			if target == "" {
				target = models.NoneSpecified
			}
			g, err := repo.FindByName(ctx, org.ID, target, repository.OwnedOrSystem)
			if err != nil {
				return "", fmt.Errorf("failed to find grade: %w", err)
			}
			if g == nil {
				if row.Has(col) {
					rowErrs = append(rowErrs, run.missingInOrganization(rowNum, col, entityGrade, target, org))
				}
				return "", nil
			}
			return g.ID, nil
		}

		fromID, err := link(colProgressFromGradeName)
		if err != nil {
			return nil, err
		}
		toID, err := link(colProgressToGradeName)
		if err != nil {
			return nil, err
		}

		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		grade.ProgressFromID = fromID
		grade.ProgressToID = toID
		if err := repo.Save(ctx, grade); err != nil {
			return nil, fmt.Errorf("failed to save grade: %w", err)
		}
		return nil, nil
	}
}
