package validation

import (
	"strings"

	"github.com/roster-import-api/internal/csverror"
)

// HeaderSpec declares which columns a file must, may only once, or must at
// least partially carry.
type HeaderSpec struct {
	Required       []string
	Unique         []string
	EitherRequired [][]string
}

// ValidateHeader checks the literal column list against spec. Every problem
// is reported at row 0; an empty result means the header is acceptable.
func ValidateHeader(header []string, spec HeaderSpec, catalog csverror.Catalog) []csverror.CSVError {
	var errs []csverror.CSVError

	counts := make(map[string]int, len(header))
	for _, h := range header {
		counts[h]++
	}

	for _, col := range spec.Required {
		if counts[col] == 0 {
			errs = append(errs, catalog.New(csverror.CodeMissingRequiredColumn, 0, col, nil))
		}
	}

	for _, col := range spec.Unique {
		if counts[col] > 1 {
			errs = append(errs, catalog.New(csverror.CodeDuplicateColumn, 0, col, nil))
		}
	}

	for _, group := range spec.EitherRequired {
		if len(group) == 0 {
			continue
		}
		present := false
		for _, col := range group {
			if counts[col] > 0 {
				present = true
				break
			}
		}
		if !present {
			errs = append(errs, catalog.New(csverror.CodeMissingEitherColumn, 0, group[0], csverror.Params{
				"columns": strings.Join(group, " or "),
			}))
		}
	}

	return errs
}
