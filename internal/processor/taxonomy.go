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

func subcategoryImporter(l config.Limits) Importer {
	schema := validation.SubcategorySchema(l)
	return Importer{
		Entity: EntitySubcategories,
		Header: headerSpec(schema),
		Passes: []RowFunc{subcategoryRow(schema)},
	}
}

func subcategoryRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadSubcategories, entitySubcategory)
		if err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colSubcategoryName)
		existing, err := run.Tx.Subcategories().FindByName(ctx, org.ID, name, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find subcategory: %w", err)
		}
		if run.markSeen("subcategory", org.ID, name) || existing != nil {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colSubcategoryName, entitySubcategory, name, org))
		}

		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		subcategory := &models.Subcategory{
			ID:             newID(),
			OrganizationID: org.ID,
			Name:           name,
			Status:         models.StatusActive,
		}
		if err := run.Tx.Subcategories().Save(ctx, subcategory); err != nil {
			return nil, fmt.Errorf("failed to save subcategory: %w", err)
		}
		return nil, nil
	}
}

func categoryImporter(l config.Limits) Importer {
	schema := validation.CategorySchema(l)
	return Importer{
		Entity: EntityCategories,
		Header: headerSpec(schema),
		Passes: []RowFunc{categoryRow(schema)},
	}
}

// categoryRow creates a category; repeated rows add subcategories to it
func categoryRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadCategories, entityCategory)
		if err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colCategoryName)
		repo := run.Tx.Categories()

		existing, err := repo.FindByName(ctx, org.ID, name, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find category: %w", err)
		}
		if existing != nil && !run.wasSeen("category", org.ID, name) {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colCategoryName, entityCategory, name, org))
		}

		var subcategory *models.Subcategory
		if sname := row.Get(colSubcategoryName); sname != "" {
			if subcategory, err = run.Tx.Subcategories().FindByName(ctx, org.ID, sname, repository.OwnedOrSystem); err != nil {
				return nil, fmt.Errorf("failed to find subcategory: %w", err)
			}
			if subcategory == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colSubcategoryName, entitySubcategory, sname, org))
			}
		}

		if len(rowErrs) == 0 {
			run.markSeen("category", org.ID, name)
		}
		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		category := existing
		if category == nil {
			category = &models.Category{
				ID:             newID(),
				OrganizationID: org.ID,
				Name:           name,
				Status:         models.StatusActive,
			}
		}
		if subcategory != nil {
			category.SubcategoryIDs = models.AddID(category.SubcategoryIDs, subcategory.ID)
		}
		if err := repo.Save(ctx, category); err != nil {
			return nil, fmt.Errorf("failed to save category: %w", err)
		}
		return nil, nil
	}
}

func subjectImporter(l config.Limits) Importer {
	schema := validation.SubjectSchema(l)
	return Importer{
		Entity: EntitySubjects,
		Header: headerSpec(schema),
		Passes: []RowFunc{subjectRow(schema)},
	}
}

// subjectRow creates a subject; repeated rows add categories to it
func subjectRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		org, errs, err := run.checkParent(ctx, row, rowNum, schema, permission.UploadSubjects, entitySubject)
		if err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		name := row.Get(colSubjectName)
		repo := run.Tx.Subjects()

		existing, err := repo.FindByName(ctx, org.ID, name, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find subject: %w", err)
		}
		if existing != nil && !run.wasSeen("subject", org.ID, name) {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colSubjectName, entitySubject, name, org))
		}

		var category *models.Category
		if cname := row.Get(colCategoryName); cname != "" {
			if category, err = run.Tx.Categories().FindByName(ctx, org.ID, cname, repository.OwnedOrSystem); err != nil {
				return nil, fmt.Errorf("failed to find category: %w", err)
			}
			if category == nil {
				rowErrs = append(rowErrs, run.missingInOrganization(rowNum, colCategoryName, entityCategory, cname, org))
			}
		}

		if len(rowErrs) == 0 {
			run.markSeen("subject", org.ID, name)
		}
		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		subject := existing
		if subject == nil {
			subject = &models.Subject{
				ID:             newID(),
				OrganizationID: org.ID,
				Name:           name,
				Status:         models.StatusActive,
			}
		}
		if category != nil {
			subject.CategoryIDs = models.AddID(subject.CategoryIDs, category.ID)
		}
		if err := repo.Save(ctx, subject); err != nil {
			return nil, fmt.Errorf("failed to save subject: %w", err)
		}
		return nil, nil
	}
}
