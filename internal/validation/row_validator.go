package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/rs/zerolog"
)

// RowValidator applies a Schema to single rows
type RowValidator struct {
	engine  *validator.Validate
	catalog csverror.Catalog
	log     zerolog.Logger
}

// NewRowValidator creates a validator with the named patterns registered
func NewRowValidator(catalog csverror.Catalog, log zerolog.Logger) *RowValidator {
	return &RowValidator{
		engine:  newEngine(),
		catalog: catalog,
		log:     log.With().Str("component", "row_validator").Logger(),
	}
}

// violation is one failed constraint before translation
type violation struct {
	tag     string
	param   string
	message string
}

// Validate checks every column of row against schema and returns all
// errors found, in schema order.
func (v *RowValidator) Validate(row csvreader.Row, rowNum int, schema Schema) []csverror.CSVError {
	var errs []csverror.CSVError
	reported := map[string]bool{}

	for _, field := range schema {
		value := row.Get(field.Column)

		if value == "" {
			if field.Required {
				errs = append(errs, v.translate(field, rowNum, value, violation{tag: "required"}))
			} else if len(field.RequiredUnless) > 0 && !anyPresent(row, field.RequiredUnless) && !anyReported(reported, field.RequiredUnless) {
				// one error per alternative group
				errs = append(errs, v.missingEither(field, rowNum, schema))
				reported[field.Column] = true
			}
			continue
		}

		for _, vi := range v.evaluate(field, value) {
			errs = append(errs, v.translate(field, rowNum, value, vi))
		}
	}

	return errs
}

func anyReported(reported map[string]bool, cols []string) bool {
	for _, c := range cols {
		if reported[c] {
			return true
		}
	}
	return false
}

func anyPresent(row csvreader.Row, cols []string) bool {
	for _, c := range cols {
		if row.Has(c) {
			return true
		}
	}
	return false
}

// evaluate runs each tag on its own so simultaneous violations all surface
func (v *RowValidator) evaluate(field Field, value string) []violation {
	if !field.List {
		var out []violation
		for _, tag := range field.Tags {
			out = append(out, v.check(value, tag)...)
		}
		return out
	}

	items := splitList(value)
	out := v.check(items, "unique")
	for _, tag := range field.Tags {
		for _, item := range items {
			if vs := v.check(item, tag); len(vs) > 0 {
				out = append(out, vs...)
				break
			}
		}
	}
	return out
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// check never panics: an unknown tag or engine failure becomes a violation
// carrying the underlying message.
func (v *RowValidator) check(value interface{}, tag string) (out []violation) {
	defer func() {
		if r := recover(); r != nil {
			out = []violation{{tag: tag, message: fmt.Sprint(r)}}
		}
	}()

	err := v.engine.Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			out = append(out, violation{tag: fe.Tag(), param: fe.Param(), message: fe.Error()})
		}
		return out
	}
	return []violation{{tag: tag, message: err.Error()}}
}

func (v *RowValidator) missingEither(field Field, rowNum int, schema Schema) csverror.CSVError {
	other, ok := schema.Lookup(field.RequiredUnless[0])
	if !ok {
		other = Field{Column: field.RequiredUnless[0], Entity: field.Entity, Attribute: field.RequiredUnless[0]}
	}
	return v.catalog.New(csverror.CodeMissingRequiredEither, rowNum, field.Column, csverror.Params{
		"entity":          field.Entity,
		"attribute":       field.Attribute,
		"other_entity":    other.Entity,
		"other_attribute": other.Attribute,
	})
}

// translate maps a constraint kind onto its error code. Unmapped kinds are
// logged and reported as a generic invalid format error.
func (v *RowValidator) translate(field Field, rowNum int, value string, vi violation) csverror.CSVError {
	params := csverror.Params{
		"entity":    field.Entity,
		"attribute": field.Attribute,
	}
	if !field.Sensitive && value != "" {
		params["value"] = value
	}

	code := ""
	switch vi.tag {
	case "required":
		code = csverror.CodeMissingRequired
	case "max":
		code = csverror.CodeInvalidLength
		params["max"] = vi.param
	case "min":
		code = csverror.CodeInvalidMinLength
		params["min"] = vi.param
	case "email":
		code = csverror.CodeInvalidEmail
	case "alphanum":
		code = csverror.CodeInvalidAlphanumeric
	case "number", "numeric":
		code = csverror.CodeInvalidNumber
	case "oneof":
		code = csverror.CodeInvalidEnum
		params["values"] = strings.Join(strings.Fields(vi.param), ", ")
	case "unique":
		code = csverror.CodeDuplicateValue
	case TagPhone:
		code = csverror.CodeInvalidPhone
	case TagDateMonthYear:
		code = csverror.CodeInvalidDateFormat
		params["format"] = "MM-YYYY"
	case TagAlphaNumSpecial:
		code = csverror.CodeInvalidAlphaNumSpecial
	case TagShortcode:
		code = csverror.CodeInvalidShortcode
	default:
		v.log.Warn().
			Str("tag", vi.tag).
			Str("column", field.Column).
			Str("detail", vi.message).
			Msg("Unmapped constraint, reporting invalid format")
		code = csverror.CodeInvalidFormat
		params["detail"] = vi.message
	}

	return v.catalog.New(code, rowNum, field.Column, params)
}
