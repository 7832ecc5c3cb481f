package processor

// CSV columns read by the importers
const (
	colOrganizationName      = "organization_name"
	colOwnerGivenName        = "owner_given_name"
	colOwnerFamilyName       = "owner_family_name"
	colOwnerShortcode        = "owner_shortcode"
	colOwnerEmail            = "owner_email"
	colOwnerPhone            = "owner_phone"
	colUserGivenName         = "user_given_name"
	colUserFamilyName        = "user_family_name"
	colUserShortcode         = "user_shortcode"
	colUserEmail             = "user_email"
	colUserPhone             = "user_phone"
	colUserDateOfBirth       = "user_date_of_birth"
	colUserGender            = "user_gender"
	colRoleName              = "organization_role_name"
	colSchoolName            = "school_name"
	colSchoolShortcode       = "school_shortcode"
	colClassName             = "class_name"
	colClassShortcode        = "class_shortcode"
	colProgramName           = "program_name"
	colGradeName             = "grade_name"
	colProgressFromGradeName = "progress_from_grade_name"
	colProgressToGradeName   = "progress_to_grade_name"
	colAgeRangeLow           = "age_range_low_value"
	colAgeRangeHigh          = "age_range_high_value"
	colAgeRangeUnit          = "age_range_unit"
	colSubjectName           = "subject_name"
	colCategoryName          = "category_name"
	colSubcategoryName       = "subcategory_name"
)

// Entity names used in error messages
const (
	entityOrganization = "Organization"
	entityUser         = "User"
	entityRole         = "Organization Role"
	entitySchool       = "School"
	entityClass        = "Class"
	entityGrade        = "Grade"
	entityProgram      = "Program"
	entityAgeRange     = "Age Range"
	entityCategory     = "Category"
	entitySubcategory  = "Subcategory"
	entitySubject      = "Subject"
	entityShortcode    = "Shortcode"
)

// Entity keys accepted by Importers
const (
	EntityOrganizations = "organizations"
	EntityUsers         = "users"
	EntitySchools       = "schools"
	EntityClasses       = "classes"
	EntityGrades        = "grades"
	EntityPrograms      = "programs"
	EntityAgeRanges     = "age_ranges"
	EntityCategories    = "categories"
	EntitySubcategories = "subcategories"
	EntitySubjects      = "subjects"
)
