package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Named patterns registered as validator tags. Each one translates to its
// own error code instead of a generic pattern mismatch.
const (
	TagPhone           = "phone"
	TagDateMonthYear   = "date_mmyyyy"
	TagAlphaNumSpecial = "alphanum_special"
	TagShortcode       = "shortcode"
)

var patterns = map[string]*regexp.Regexp{
	TagPhone:           regexp.MustCompile(`^\+?[1-9]\d{7,14}$`),
	TagDateMonthYear:   regexp.MustCompile(`^(0[1-9]|1[0-2])-\d{4}$`),
	TagAlphaNumSpecial: regexp.MustCompile(`^[\p{L}\p{M}\p{N} &/,\-.'()]+$`),
	TagShortcode:       regexp.MustCompile(`^[A-Z0-9]+$`),
}

// Field declares how one column is validated
type Field struct {
	Column    string
	Entity    string
	Attribute string

	// Required columns report a missing value; optional ones skip Tags when empty
	Required bool

	// RequiredUnless makes the column required when none of these sibling
	// columns carry a value
	RequiredUnless []string

	// Tags are validator tags evaluated one by one so every violation surfaces,
	// e.g. "max=35", "email", TagPhone
	Tags []string

	// List splits the value on commas; Tags apply to each item and items
	// must be unique
	List bool

	// Sensitive columns never copy the offending value into the error
	Sensitive bool
}

// Schema is an ordered list of columns, so errors come out deterministically
type Schema []Field

// Lookup returns the field declared for column
func (s Schema) Lookup(column string) (Field, bool) {
	for _, f := range s {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns every declared column name
func (s Schema) Columns() []string {
	cols := make([]string, len(s))
	for i, f := range s {
		cols[i] = f.Column
	}
	return cols
}

func newEngine() *validator.Validate {
	v := validator.New()
	for tag, re := range patterns {
		re := re
		// Registration only fails for an empty tag or nil func.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}
	return v
}
