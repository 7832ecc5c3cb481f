package csverror

import (
	"regexp"
	"strconv"
	"strings"
)

// Error codes shared by header, row and file validation
const (
	CodeMissingRequired         = "ERR_CSV_MISSING_REQUIRED"
	CodeMissingRequiredEither   = "ERR_CSV_MISSING_REQUIRED_EITHER"
	CodeMissingRequiredColumn   = "ERR_CSV_MISSING_REQUIRED_COLUMN"
	CodeMissingEitherColumn     = "ERR_CSV_MISSING_REQUIRED_EITHER_COLUMN"
	CodeDuplicateColumn         = "ERR_CSV_DUPLICATE_COLUMN"
	CodeDuplicateEntity         = "ERR_CSV_DUPLICATE_ENTITY"
	CodeDuplicateChildEntity    = "ERR_CSV_DUPLICATE_CHILD_ENTITY"
	CodeNonExistentEntity       = "ERR_CSV_NONE_EXIST_ENTITY"
	CodeNonExistentChildEntity  = "ERR_CSV_NONE_EXIST_CHILD_ENTITY"
	CodeMultipleExist           = "ERR_CSV_INVALID_MULTIPLE_EXIST"
	CodeInvalidLength           = "ERR_CSV_INVALID_LENGTH"
	CodeInvalidMinLength        = "ERR_CSV_INVALID_MIN_LENGTH"
	CodeInvalidEmail            = "ERR_CSV_INVALID_EMAIL"
	CodeInvalidPhone            = "ERR_CSV_INVALID_PHONE"
	CodeInvalidDateFormat       = "ERR_CSV_INVALID_DATE_FORMAT"
	CodeInvalidAlphanumeric     = "ERR_CSV_INVALID_ALPHA_NUM"
	CodeInvalidAlphaNumSpecial  = "ERR_CSV_INVALID_ALPHA_NUM_SPECIAL_CHARACTERS"
	CodeInvalidShortcode        = "ERR_CSV_INVALID_UPPERCASE_ALPHA_NUM"
	CodeInvalidEnum             = "ERR_CSV_INVALID_ENUM"
	CodeInvalidNumber           = "ERR_CSV_INVALID_NUMBER"
	CodeInvalidBetween          = "ERR_CSV_INVALID_BETWEEN"
	CodeInvalidGreaterThanOther = "ERR_CSV_INVALID_GREATER_THAN_OTHER"
	CodeInvalidDifferent        = "ERR_CSV_INVALID_DIFFERENT"
	CodeInvalidFormat           = "ERR_CSV_INVALID_FORMAT"
	CodeDuplicateValue          = "ERR_CSV_DUPLICATE_VALUE"
	CodeRequiredAllOrNone       = "ERR_CSV_MISSING_REQUIRED_ALL_OR_NONE"
	CodeUnauthorizedUpload      = "ERR_UNAUTHORIZED_UPLOAD_TO_ORGANIZATION"
	CodeUnauthorizedUploadScope = "ERR_UNAUTHORIZED_UPLOAD"
	CodeOneActiveOrganization   = "ERR_ONE_ACTIVE_ORGANIZATION_PER_USER"
)

const rowPrefix = "On row number {row}, "

// Catalog maps an error code to its message template. Templates use
// {name} placeholders filled from the error parameters.
type Catalog map[string]string

var defaultTemplates = Catalog{
	CodeMissingRequired:         rowPrefix + "{entity} {attribute} is required.",
	CodeMissingRequiredEither:   rowPrefix + "{entity} {attribute} or {other_entity} {other_attribute} is required.",
	CodeMissingRequiredColumn:   "On row number {row}, {column} column is required.",
	CodeMissingEitherColumn:     "On row number {row}, either {columns} column is required.",
	CodeDuplicateColumn:         "On row number {row}, {column} column is duplicated.",
	CodeDuplicateEntity:         rowPrefix + "{entity} {name} already exists.",
	CodeDuplicateChildEntity:    rowPrefix + "{entity} {name} already exists for {parent_entity} {parent_name}.",
	CodeNonExistentEntity:       rowPrefix + "{entity} {name} doesn't exist or you don't have permissions to view it.",
	CodeNonExistentChildEntity:  rowPrefix + "{entity} {name} doesn't exist for {parent_entity} {parent_name}.",
	CodeMultipleExist:           rowPrefix + "more than one {entity} named {name} exists for {parent_entity} {parent_name}.",
	CodeInvalidLength:           rowPrefix + "{entity} {attribute} must not be greater than {max} characters.",
	CodeInvalidMinLength:        rowPrefix + "{entity} {attribute} must be at least {min} characters.",
	CodeInvalidEmail:            rowPrefix + "{entity} {attribute} must be a valid email address.",
	CodeInvalidPhone:            rowPrefix + "{entity} {attribute} must be a valid phone number.",
	CodeInvalidDateFormat:       rowPrefix + "{entity} {attribute} must be in the format {format}.",
	CodeInvalidAlphanumeric:     rowPrefix + "{entity} {attribute} must only contain letters and numbers.",
	CodeInvalidAlphaNumSpecial:  rowPrefix + "{entity} {attribute} must only contain letters, numbers, space and & / , - . ' ( )",
	CodeInvalidShortcode:        rowPrefix + "{entity} {attribute} must only contain uppercase letters and numbers.",
	CodeInvalidEnum:             rowPrefix + "{entity} {attribute} must be one of {values}.",
	CodeInvalidNumber:           rowPrefix + "{entity} {attribute} must be a valid number.",
	CodeInvalidBetween:          rowPrefix + "{entity} {attribute} must be between {min} and {max}.",
	CodeInvalidGreaterThanOther: rowPrefix + "{entity} {attribute} must be greater than {other_entity} {other_attribute}.",
	CodeInvalidDifferent:        rowPrefix + "{entity} {attribute} and {other_entity} {other_attribute} must be different.",
	CodeInvalidFormat:           rowPrefix + "{entity} {attribute} is in an invalid format: {detail}",
	CodeDuplicateValue:          rowPrefix + "{entity} {attribute} contains duplicate values.",
	CodeRequiredAllOrNone:       rowPrefix + "{entity} {attribute} must be provided together with {other_attributes}, or all must be empty.",
	CodeUnauthorizedUpload:      rowPrefix + "you don't have permission to upload {entity} to {parent_entity} {parent_name}.",
	CodeUnauthorizedUploadScope: rowPrefix + "you don't have permission to upload {entity}.",
	CodeOneActiveOrganization:   rowPrefix + "{entity} {name} already has an active organization.",
}

// DefaultCatalog returns a copy of the built-in templates
func DefaultCatalog() Catalog {
	c := make(Catalog, len(defaultTemplates))
	for k, v := range defaultTemplates {
		c[k] = v
	}
	return c
}

var placeholderRegex = regexp.MustCompile(`\{([a-z_]+)\}`)

// Render fills every {name} placeholder in template from params.
// Placeholders without a parameter render as an empty string.
func Render(template string, params map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(template, func(m string) string {
		return params[m[1:len(m)-1]]
	})
}

// New builds a rendered error for the given code. Header and file scoped
// errors use row 0.
func (c Catalog) New(code string, row int, column string, params Params) CSVError {
	all := make(map[string]string, len(params)+2)
	for k, v := range params {
		all[k] = v
	}
	all["row"] = strconv.Itoa(row)
	if _, ok := all["column"]; !ok {
		all["column"] = column
	}

	template, ok := c[code]
	if !ok {
		template = rowPrefix + "{column} is invalid."
	}

	return CSVError{
		Code:    code,
		Message: strings.TrimSpace(Render(template, all)),
		Row:     row,
		Column:  column,
		Params:  params,
	}
}
