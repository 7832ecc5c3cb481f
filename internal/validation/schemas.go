package validation

import (
	"strconv"

	"github.com/roster-import-api/internal/config"
)

// Age range units accepted by program and age range imports
const (
	UnitYear  = "year"
	UnitMonth = "month"
)

func maxLen(n int) string {
	return "max=" + strconv.Itoa(n)
}

func organizationName(l config.Limits) Field {
	return Field{
		Column:    "organization_name",
		Entity:    "organization",
		Attribute: "name",
		Required:  true,
		Tags:      []string{maxLen(l.OrganizationName)},
	}
}

func optionalName(column, entity string, max int) Field {
	return Field{Column: column, Entity: entity, Attribute: "name", Tags: []string{maxLen(max)}}
}

func requiredName(column, entity string, max int) Field {
	return Field{Column: column, Entity: entity, Attribute: "name", Required: true, Tags: []string{maxLen(max)}}
}

func ageRangeFields(required bool) []Field {
	return []Field{
		{Column: "age_range_low_value", Entity: "age range", Attribute: "low value", Required: required, Tags: []string{"number"}},
		{Column: "age_range_high_value", Entity: "age range", Attribute: "high value", Required: required, Tags: []string{"number"}},
		{Column: "age_range_unit", Entity: "age range", Attribute: "unit", Required: required, Tags: []string{"oneof=" + UnitYear + " " + UnitMonth}},
	}
}

// OrganizationSchema validates organization rows and their owner
func OrganizationSchema(l config.Limits) Schema {
	return Schema{
		{
			Column:    "organization_name",
			Entity:    "organization",
			Attribute: "name",
			Required:  true,
			Tags:      []string{maxLen(l.OrganizationName), TagAlphaNumSpecial},
		},
		{Column: "owner_given_name", Entity: "owner", Attribute: "given name", Required: true, Sensitive: true, Tags: []string{maxLen(l.GivenName), TagAlphaNumSpecial}},
		{Column: "owner_family_name", Entity: "owner", Attribute: "family name", Required: true, Sensitive: true, Tags: []string{maxLen(l.FamilyName), TagAlphaNumSpecial}},
		{Column: "owner_shortcode", Entity: "owner", Attribute: "shortcode", Tags: []string{maxLen(l.Shortcode), TagShortcode}},
		{Column: "owner_email", Entity: "owner", Attribute: "email", RequiredUnless: []string{"owner_phone"}, Tags: []string{maxLen(l.Email), "email"}},
		{Column: "owner_phone", Entity: "owner", Attribute: "phone", RequiredUnless: []string{"owner_email"}, Tags: []string{TagPhone}},
	}
}

// UserSchema validates user rows
func UserSchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		{Column: "user_given_name", Entity: "user", Attribute: "given name", Required: true, Sensitive: true, Tags: []string{maxLen(l.GivenName), TagAlphaNumSpecial}},
		{Column: "user_family_name", Entity: "user", Attribute: "family name", Required: true, Sensitive: true, Tags: []string{maxLen(l.FamilyName), TagAlphaNumSpecial}},
		{Column: "user_shortcode", Entity: "user", Attribute: "shortcode", Tags: []string{maxLen(l.Shortcode), TagShortcode}},
		{Column: "user_email", Entity: "user", Attribute: "email", RequiredUnless: []string{"user_phone"}, Tags: []string{maxLen(l.Email), "email"}},
		{Column: "user_phone", Entity: "user", Attribute: "phone", RequiredUnless: []string{"user_email"}, Tags: []string{TagPhone}},
		{Column: "user_date_of_birth", Entity: "user", Attribute: "date of birth", Tags: []string{TagDateMonthYear}},
		{Column: "user_gender", Entity: "user", Attribute: "gender", Required: true, Tags: []string{"min=3", maxLen(l.Gender), TagAlphaNumSpecial}},
		requiredName("organization_role_name", "organization role", l.RoleName),
		optionalName("school_name", "school", l.SchoolName),
		optionalName("class_name", "class", l.ClassName),
	}
}

// SchoolSchema validates school rows
func SchoolSchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		{Column: "school_name", Entity: "school", Attribute: "name", Required: true, Tags: []string{maxLen(l.SchoolName), TagAlphaNumSpecial}},
		{Column: "school_shortcode", Entity: "school", Attribute: "shortcode", Tags: []string{maxLen(l.Shortcode), TagShortcode}},
		optionalName("program_name", "program", l.EntityName),
	}
}

// ClassSchema validates class rows
func ClassSchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		{Column: "class_name", Entity: "class", Attribute: "name", Required: true, Tags: []string{maxLen(l.ClassName), TagAlphaNumSpecial}},
		{Column: "class_shortcode", Entity: "class", Attribute: "shortcode", Tags: []string{maxLen(l.Shortcode), TagShortcode}},
		optionalName("school_name", "school", l.SchoolName),
		optionalName("program_name", "program", l.EntityName),
		optionalName("grade_name", "grade", l.EntityName),
	}
}

// GradeSchema validates grade rows
func GradeSchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		requiredName("grade_name", "grade", l.EntityName),
		optionalName("progress_from_grade_name", "progress from grade", l.EntityName),
		optionalName("progress_to_grade_name", "progress to grade", l.EntityName),
	}
}

// ProgramSchema validates program rows. The age range triple is checked
// for completeness by the program processor.
func ProgramSchema(l config.Limits) Schema {
	s := Schema{
		organizationName(l),
		requiredName("program_name", "program", l.EntityName),
	}
	s = append(s, ageRangeFields(false)...)
	return append(s,
		optionalName("grade_name", "grade", l.EntityName),
		optionalName("subject_name", "subject", l.EntityName),
	)
}

// AgeRangeSchema validates age range rows
func AgeRangeSchema(l config.Limits) Schema {
	return append(Schema{organizationName(l)}, ageRangeFields(true)...)
}

// CategorySchema validates category rows
func CategorySchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		requiredName("category_name", "category", l.EntityName),
		optionalName("subcategory_name", "subcategory", l.EntityName),
	}
}

// SubcategorySchema validates subcategory rows
func SubcategorySchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		requiredName("subcategory_name", "subcategory", l.EntityName),
	}
}

// SubjectSchema validates subject rows
func SubjectSchema(l config.Limits) Schema {
	return Schema{
		organizationName(l),
		requiredName("subject_name", "subject", l.EntityName),
		optionalName("category_name", "category", l.EntityName),
	}
}
