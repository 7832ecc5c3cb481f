package processor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/validation"
)

func ageRangeImporter(l config.Limits) Importer {
	schema := validation.AgeRangeSchema(l)
	return Importer{
		Entity: EntityAgeRanges,
		Header: headerSpec(schema),
		Passes: []RowFunc{ageRangeRow(schema)},
	}
}

// ageBounds is a parsed age range triple
type ageBounds struct {
	low, high int
	unit      string
}

func (b ageBounds) name() string {
	return models.AgeRangeName(b.low, b.high, b.unit)
}

var ageColumns = []string{colAgeRangeLow, colAgeRangeHigh, colAgeRangeUnit}

// parseAgeBounds checks the age range triple of a row. The triple must be
// complete or entirely empty; ok is false when it is empty or invalid.
func parseAgeBounds(run *Run, row csvreader.Row, rowNum int) (ageBounds, bool, []csverror.CSVError) {
	var present, missing []string
	for _, col := range ageColumns {
		if row.Has(col) {
			present = append(present, col)
		} else {
			missing = append(missing, col)
		}
	}
	if len(present) == 0 {
		return ageBounds{}, false, nil
	}

	var errs []csverror.CSVError
	for _, col := range missing {
		errs = append(errs, run.newError(csverror.CodeRequiredAllOrNone, rowNum, col, csverror.Params{
			"entity":           "age range",
			"attribute":        col,
			"other_attributes": strings.Join(present, ", "),
		}))
	}
	if len(errs) > 0 {
		return ageBounds{}, false, errs
	}

	// Numbers and unit were checked by the row schema
	low, _ := strconv.Atoi(row.Get(colAgeRangeLow))
	high, _ := strconv.Atoi(row.Get(colAgeRangeHigh))
	b := ageBounds{low: low, high: high, unit: row.Get(colAgeRangeUnit)}

	cfg := run.Config
	between := func(col string, v, min, max int) {
		if v < min || v > max {
			errs = append(errs, run.newError(csverror.CodeInvalidBetween, rowNum, col, csverror.Params{
				"entity":    "age range",
				"attribute": col,
				"min":       strconv.Itoa(min),
				"max":       strconv.Itoa(max),
			}))
		}
	}
	between(colAgeRangeLow, b.low, cfg.AgeRangeLowMin, cfg.AgeRangeHighMax-1)
	between(colAgeRangeHigh, b.high, cfg.AgeRangeLowMin+1, cfg.AgeRangeHighMax)

	if b.low >= b.high {
		errs = append(errs, run.newError(csverror.CodeInvalidGreaterThanOther, rowNum, colAgeRangeHigh, csverror.Params{
			"entity":          "age range",
			"attribute":       colAgeRangeHigh,
			"other_entity":    "age range",
			"other_attribute": colAgeRangeLow,
		}))
	}
	return b, len(errs) == 0, errs
}

func ageRangeRow(schema validation.Schema) RowFunc {
	return func(ctx context.Context, run *Run, row csvreader.Row, rowNum int, fileErrs []csverror.CSVError) ([]csverror.CSVError, error) {
		if errs := run.Validator.Validate(row, rowNum, schema); len(errs) > 0 {
			return errs, nil
		}
		bounds, _, errs := parseAgeBounds(run, row, rowNum)
		if len(errs) > 0 {
			return errs, nil
		}

		org, errs, err := run.organization(ctx, row, rowNum)
		if err != nil || len(errs) > 0 {
			return errs, err
		}
		if errs, err := run.authorize(ctx, org, permission.UploadAgeRanges, entityAgeRange, rowNum); err != nil || len(errs) > 0 {
			return errs, err
		}

		var rowErrs []csverror.CSVError
		existing, err := run.Tx.AgeRanges().FindByBounds(ctx, org.ID, bounds.low, bounds.high, bounds.unit, repository.OwnedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to find age range: %w", err)
		}
		if run.markSeen("age_range", org.ID, bounds.name()) || existing != nil {
			rowErrs = append(rowErrs, run.duplicateInOrganization(rowNum, colAgeRangeLow, entityAgeRange, bounds.name(), org))
		}

		if !mayWrite(fileErrs, rowErrs) {
			return rowErrs, nil
		}

		ageRange := &models.AgeRange{
			ID:             newID(),
			OrganizationID: org.ID,
			Name:           bounds.name(),
			LowValue:       bounds.low,
			HighValue:      bounds.high,
			Unit:           bounds.unit,
			Status:         models.StatusActive,
		}
		if err := run.Tx.AgeRanges().Save(ctx, ageRange); err != nil {
			return nil, fmt.Errorf("failed to save age range: %w", err)
		}
		return nil, nil
	}
}
