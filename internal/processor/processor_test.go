package processor_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/mocks"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/processor"
	"github.com/roster-import-api/internal/validation"
	"github.com/rs/zerolog"
)

type fixture struct {
	store *mocks.MemStore
	perms *mocks.MockChecker
	cfg   config.ImportConfig
	org   *models.Organization
}

func newFixture() *fixture {
	f := &fixture{
		store: mocks.NewMemStore(),
		perms: mocks.NewMockChecker(),
		cfg:   config.DefaultImportConfig(),
		org:   &models.Organization{ID: "org-1", Name: "Acme Academy", Status: models.StatusActive},
	}
	f.store.SeedOrganization(f.org)
	return f
}

// importRows runs one import the way the service does: commit when the
// file is clean, roll back otherwise
func (f *fixture) importRows(t *testing.T, entity string, rows ...csvreader.Row) ([]csverror.CSVError, *processor.Run) {
	t.Helper()
	ctx := context.Background()

	imp, ok := processor.Importers(f.cfg.Limits)[entity]
	if !ok {
		t.Fatalf("no importer for %q", entity)
	}

	tx, err := f.store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Release()

	catalog := csverror.DefaultCatalog()
	run := processor.NewRun(tx, f.perms, validation.NewRowValidator(catalog, zerolog.Nop()), catalog, f.cfg, zerolog.Nop())

	errs, err := processor.Execute(ctx, run, imp, csvreader.NewRows(nil, rows))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(errs) == 0 {
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	} else if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	return errs, run
}

func codesOf(errs []csverror.CSVError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func userRow(given, email, role string) csvreader.Row {
	return csvreader.Row{
		"organization_name":      "Acme Academy",
		"user_given_name":        given,
		"user_family_name":       "Smith",
		"user_email":             email,
		"user_gender":            "female",
		"organization_role_name": role,
	}
}

func TestEntities(t *testing.T) {
	got := processor.Entities()
	if len(got) != 10 {
		t.Fatalf("Expected 10 entities, got %d: %v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Errorf("Entities not sorted: %v", got)
		}
	}
}

func TestOrganizationImport_CreatesOwnerAndAdminMembership(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityOrganizations, csvreader.Row{
		"organization_name": "Beacon School",
		"owner_given_name":  "Ada",
		"owner_family_name": "Lovelace",
		"owner_email":       "ada@example.com",
		"owner_shortcode":   "ADA1",
	})
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	org := f.store.Organization("Beacon School")
	if org == nil {
		t.Fatal("Organization should be committed")
	}
	owner := f.store.UserByEmail("ada@example.com")
	if owner == nil {
		t.Fatal("Owner should be created")
	}
	if owner.ID != models.AccountUUID("ada@example.com") {
		t.Errorf("Expected owner id derived from contact, got %s", owner.ID)
	}
	if org.OwnerUserID != owner.ID {
		t.Errorf("Expected owner %s, got %s", owner.ID, org.OwnerUserID)
	}

	m := f.store.Membership(org.ID, owner.ID)
	if m == nil {
		t.Fatal("Owner membership should be created")
	}
	if m.Shortcode != "ADA1" {
		t.Errorf("Expected shortcode ADA1, got %s", m.Shortcode)
	}
	if len(m.RoleIDs) != 1 || m.RoleIDs[0] != "role-"+models.RoleOrganizationAdmin {
		t.Errorf("Expected admin role, got %v", m.RoleIDs)
	}
}

func TestOrganizationImport_Duplicates(t *testing.T) {
	tests := []struct {
		name      string
		rows      []csvreader.Row
		wantCodes []string
		wantRows  []int
	}{
		{
			name: "already stored",
			rows: []csvreader.Row{{
				"organization_name": "Acme Academy",
				"owner_given_name":  "Ada",
				"owner_family_name": "Lovelace",
				"owner_email":       "ada@example.com",
			}},
			wantCodes: []string{csverror.CodeDuplicateEntity},
			wantRows:  []int{1},
		},
		{
			name: "repeated in file",
			rows: []csvreader.Row{
				{"organization_name": "Beacon", "owner_given_name": "Ada", "owner_family_name": "Lovelace", "owner_email": "ada@example.com"},
				{"organization_name": "Beacon", "owner_given_name": "Alan", "owner_family_name": "Turing", "owner_email": "alan@example.com"},
			},
			wantCodes: []string{csverror.CodeDuplicateEntity},
			wantRows:  []int{2},
		},
		{
			name: "owner of two organizations",
			rows: []csvreader.Row{
				{"organization_name": "Beacon", "owner_given_name": "Ada", "owner_family_name": "Lovelace", "owner_email": "ada@example.com"},
				{"organization_name": "Harbor", "owner_given_name": "Ada", "owner_family_name": "Lovelace", "owner_email": "ada@example.com"},
			},
			wantCodes: []string{csverror.CodeOneActiveOrganization},
			wantRows:  []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			errs, _ := f.importRows(t, processor.EntityOrganizations, tt.rows...)

			if len(errs) != len(tt.wantCodes) {
				t.Fatalf("Expected codes %v, got %v", tt.wantCodes, codesOf(errs))
			}
			for i, e := range errs {
				if e.Code != tt.wantCodes[i] || e.Row != tt.wantRows[i] {
					t.Errorf("Error %d: expected %s at row %d, got %s at row %d", i, tt.wantCodes[i], tt.wantRows[i], e.Code, e.Row)
				}
			}
			if f.store.Count("organizations") != 1 {
				t.Errorf("Nothing should be committed, have %d organizations", f.store.Count("organizations"))
			}
		})
	}
}

func TestOrganizationImport_Unauthorized(t *testing.T) {
	f := newFixture()
	f.perms.Deny(permission.UploadOrganizations)

	errs, _ := f.importRows(t, processor.EntityOrganizations,
		csvreader.Row{"organization_name": "Beacon", "owner_given_name": "Ada", "owner_family_name": "Lovelace", "owner_email": "ada@example.com"},
		csvreader.Row{"organization_name": "Harbor", "owner_given_name": "Alan", "owner_family_name": "Turing", "owner_email": "alan@example.com"},
	)

	if len(errs) != 2 {
		t.Fatalf("Expected one error per row, got %v", codesOf(errs))
	}
	for i, e := range errs {
		if e.Code != csverror.CodeUnauthorizedUploadScope {
			t.Errorf("Expected %s, got %s", csverror.CodeUnauthorizedUploadScope, e.Code)
		}
		if e.Row != i+1 {
			t.Errorf("Expected row %d, got %d", i+1, e.Row)
		}
	}
}

func TestSchoolImport_UnauthorizedInOrganization(t *testing.T) {
	f := newFixture()
	f.perms.Deny(permission.UploadSchools, f.org.ID)

	errs, _ := f.importRows(t, processor.EntitySchools, csvreader.Row{
		"organization_name": "Acme Academy",
		"school_name":       "North Campus",
	})

	if len(errs) != 1 || errs[0].Code != csverror.CodeUnauthorizedUpload {
		t.Fatalf("Expected %s, got %v", csverror.CodeUnauthorizedUpload, codesOf(errs))
	}
	if errs[0].Params["parent_name"] != "Acme Academy" {
		t.Errorf("Expected parent name in params, got %v", errs[0].Params)
	}
}

func TestSchoolImport_RepeatedRowsAccumulatePrograms(t *testing.T) {
	f := newFixture()
	f.store.SeedProgram(&models.Program{ID: "p-math", OrganizationID: f.org.ID, Name: "Math", Status: models.StatusActive})
	f.store.SeedProgram(&models.Program{ID: "p-art", OrganizationID: f.org.ID, Name: "Art", Status: models.StatusActive})

	errs, _ := f.importRows(t, processor.EntitySchools,
		csvreader.Row{"organization_name": "Acme Academy", "school_name": "North Campus", "school_shortcode": "NC1", "program_name": "Math"},
		csvreader.Row{"organization_name": "Acme Academy", "school_name": "North Campus", "school_shortcode": "NC1", "program_name": "Art"},
	)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	school := f.store.School(f.org.ID, "North Campus")
	if school == nil {
		t.Fatal("School should be committed")
	}
	if f.store.Count("schools") != 1 {
		t.Errorf("Expected one school, got %d", f.store.Count("schools"))
	}
	if len(school.ProgramIDs) != 2 {
		t.Errorf("Expected both programs linked, got %v", school.ProgramIDs)
	}
}

func TestSchoolImport_ShortcodeClash(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntitySchools,
		csvreader.Row{"organization_name": "Acme Academy", "school_name": "North Campus", "school_shortcode": "CAMPUS"},
		csvreader.Row{"organization_name": "Acme Academy", "school_name": "South Campus", "school_shortcode": "CAMPUS"},
	)
	if len(errs) != 1 || errs[0].Code != csverror.CodeDuplicateChildEntity || errs[0].Row != 2 {
		t.Fatalf("Expected duplicate shortcode on row 2, got %v", errs)
	}
	if errs[0].Column != "school_shortcode" {
		t.Errorf("Expected school_shortcode column, got %s", errs[0].Column)
	}
}

func TestUserImport_CacheScopesSchoolsByOrganization(t *testing.T) {
	f := newFixture()
	other := &models.Organization{ID: "org-2", Name: "Beacon", Status: models.StatusActive}
	f.store.SeedOrganization(other)
	f.store.SeedSchool(&models.School{ID: "s-acme", OrganizationID: f.org.ID, Name: "Main", Status: models.StatusActive})
	f.store.SeedSchool(&models.School{ID: "s-beacon", OrganizationID: other.ID, Name: "Main", Status: models.StatusActive})

	first := userRow("Jane", "jane@example.com", models.RoleStudent)
	first["school_name"] = "Main"
	second := userRow("John", "john@example.com", models.RoleStudent)
	second["organization_name"] = "Beacon"
	second["school_name"] = "Main"

	errs, run := f.importRows(t, processor.EntityUsers, first, second)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	a, ok := run.Cache.School(f.org.ID, "Main")
	if !ok || a.ID != "s-acme" {
		t.Errorf("Expected s-acme cached for %s, got %v", f.org.ID, a)
	}
	b, ok := run.Cache.School(other.ID, "Main")
	if !ok || b.ID != "s-beacon" {
		t.Errorf("Expected s-beacon cached for %s, got %v", other.ID, b)
	}
}

func TestUserImport_FailedLookupsAreNotCached(t *testing.T) {
	f := newFixture()
	f.store.SeedSchool(&models.School{ID: "s1", OrganizationID: f.org.ID, Name: "North", Status: models.StatusActive})
	f.store.SeedSchool(&models.School{ID: "s2", OrganizationID: f.org.ID, Name: "South", Status: models.StatusActive})
	f.store.SeedClass(&models.Class{ID: "c1", OrganizationID: f.org.ID, Name: "Year 1", SchoolIDs: []string{"s1"}, Status: models.StatusActive})

	wrongSchool := userRow("Jane", "jane@example.com", models.RoleStudent)
	wrongSchool["school_name"] = "South"
	wrongSchool["class_name"] = "Year 1"
	rightSchool := userRow("John", "john@example.com", models.RoleStudent)
	rightSchool["school_name"] = "North"
	rightSchool["class_name"] = "Year 1"
	missingSchool := userRow("Jim", "jim@example.com", models.RoleStudent)
	missingSchool["school_name"] = "West"

	errs, run := f.importRows(t, processor.EntityUsers, wrongSchool, rightSchool, missingSchool)

	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %v", errs)
	}
	if errs[0].Row != 1 || errs[0].Column != "class_name" || errs[0].Params["parent_name"] != "South" {
		t.Errorf("Expected class outside school on row 1, got %+v", errs[0])
	}
	if errs[1].Row != 3 || errs[1].Column != "school_name" {
		t.Errorf("Expected missing school on row 3, got %+v", errs[1])
	}
	if _, ok := run.Cache.School(f.org.ID, "West"); ok {
		t.Error("Missing school should not be cached")
	}
	if _, ok := run.Cache.Class(f.org.ID, "s2", "Year 1"); ok {
		t.Error("Rejected class should not be cached")
	}
	if _, ok := run.Cache.Class(f.org.ID, "s1", "Year 1"); !ok {
		t.Error("Accepted class should be cached")
	}
}

func TestUserImport_BatchesKeepRowNumbers(t *testing.T) {
	f := newFixture()
	f.cfg.MaxInputArraySize = 50

	rows := make([]csvreader.Row, 60)
	for i := range rows {
		rows[i] = userRow(fmt.Sprintf("User%d", i+1), fmt.Sprintf("user%d@example.com", i+1), models.RoleStudent)
	}
	rows[54]["user_email"] = "not-an-email"

	errs, _ := f.importRows(t, processor.EntityUsers, rows...)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
	if errs[0].Row != 55 || errs[0].Code != csverror.CodeInvalidEmail {
		t.Errorf("Expected %s on row 55, got %s on row %d", csverror.CodeInvalidEmail, errs[0].Code, errs[0].Row)
	}
	if f.store.Count("users") != 0 {
		t.Errorf("Expected nothing committed, got %d users", f.store.Count("users"))
	}
	// Rows 1 to 54 write inside the transaction, later rows must not
	if n := f.store.Calls["users.save"]; n != 54 {
		t.Errorf("Expected 54 saves, got %d", n)
	}
}

func TestUserImport_ResolvesParentsOnce(t *testing.T) {
	f := newFixture()

	rows := make([]csvreader.Row, 20)
	for i := range rows {
		rows[i] = userRow(fmt.Sprintf("User%d", i+1), fmt.Sprintf("user%d@example.com", i+1), models.RoleTeacher)
	}

	errs, run := f.importRows(t, processor.EntityUsers, rows...)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if n := f.store.Calls["organizations.find_by_name"]; n != 1 {
		t.Errorf("Expected one organization lookup, got %d", n)
	}
	if n := f.store.Calls["roles.find_by_name"]; n != 1 {
		t.Errorf("Expected one role lookup, got %d", n)
	}
	if hits, _ := run.Cache.Stats(); hits < 38 {
		t.Errorf("Expected cache hits for every later row, got %d", hits)
	}
	if f.store.Count("users") != 20 {
		t.Errorf("Expected 20 users, got %d", f.store.Count("users"))
	}
}

func TestUserImport_AddsToClass(t *testing.T) {
	f := newFixture()
	f.store.SeedSchool(&models.School{ID: "s1", OrganizationID: f.org.ID, Name: "North", Status: models.StatusActive})
	f.store.SeedClass(&models.Class{ID: "c1", OrganizationID: f.org.ID, Name: "Year 1", SchoolIDs: []string{"s1"}, Status: models.StatusActive})

	teacher := userRow("Tess", "tess@example.com", models.RoleTeacher)
	teacher["school_name"] = "North"
	teacher["class_name"] = "Year 1"
	student := userRow("Sam", "sam@example.com", models.RoleStudent)
	student["school_name"] = "North"
	student["class_name"] = "Year 1"

	errs, _ := f.importRows(t, processor.EntityUsers, teacher, student)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	class := f.store.Class(f.org.ID, "Year 1")
	if len(class.TeacherIDs) != 1 || len(class.StudentIDs) != 1 {
		t.Errorf("Expected one teacher and one student, got %v / %v", class.TeacherIDs, class.StudentIDs)
	}
	if f.store.Count("school_memberships") != 2 {
		t.Errorf("Expected 2 school memberships, got %d", f.store.Count("school_memberships"))
	}
}

func TestUserImport_EnrollmentsKeptAcrossSchoolScopes(t *testing.T) {
	f := newFixture()
	f.store.SeedSchool(&models.School{ID: "s1", OrganizationID: f.org.ID, Name: "North", Status: models.StatusActive})
	f.store.SeedClass(&models.Class{ID: "c1", OrganizationID: f.org.ID, Name: "Year 1", SchoolIDs: []string{"s1"}, Status: models.StatusActive})

	ann := userRow("Ann", "ann@example.com", models.RoleStudent)
	ann["school_name"] = "North"
	ann["class_name"] = "Year 1"
	bob := userRow("Bob", "bob@example.com", models.RoleStudent)
	bob["class_name"] = "Year 1"
	cat := userRow("Cat", "cat@example.com", models.RoleStudent)
	cat["school_name"] = "North"
	cat["class_name"] = "Year 1"

	errs, _ := f.importRows(t, processor.EntityUsers, ann, bob, cat)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	class := f.store.Class(f.org.ID, "Year 1")
	if len(class.StudentIDs) != 3 {
		t.Errorf("Expected 3 students, got %v", class.StudentIDs)
	}
	if len(class.SchoolIDs) != 1 {
		t.Errorf("Enrolling must not touch other links, got schools %v", class.SchoolIDs)
	}
	if n := f.store.Calls["classes.save"]; n != 0 {
		t.Errorf("Expected enrollments without rewriting the class, got %d saves", n)
	}
	if n := f.store.Calls["classes.add_student"]; n != 3 {
		t.Errorf("Expected 3 enrollments, got %d", n)
	}
}

func TestUserImport_DuplicateInFile(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityUsers,
		userRow("Jane", "jane@example.com", models.RoleStudent),
		userRow("Jane", "jane@example.com", models.RoleStudent),
	)
	if len(errs) != 1 || errs[0].Row != 2 || errs[0].Code != csverror.CodeDuplicateChildEntity {
		t.Fatalf("Expected duplicate on row 2, got %v", errs)
	}
	if errs[0].Column != "user_email" {
		t.Errorf("Expected user_email column, got %s", errs[0].Column)
	}
}

func TestUserImport_UnknownRole(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityUsers, userRow("Jane", "jane@example.com", "Janitor"))
	if len(errs) != 1 || errs[0].Code != csverror.CodeNonExistentChildEntity || errs[0].Column != "organization_role_name" {
		t.Fatalf("Expected missing role, got %v", errs)
	}
}

func TestGradeImport_ProgressionMustDiffer(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityGrades, csvreader.Row{
		"organization_name":        "Acme Academy",
		"grade_name":               "Grade 1",
		"progress_from_grade_name": "Grade 1",
	})
	if len(errs) != 1 {
		t.Fatalf("Expected exactly one error, got %v", errs)
	}
	if errs[0].Code != csverror.CodeInvalidDifferent || errs[0].Column != "progress_from_grade_name" {
		t.Errorf("Expected %s on progress_from_grade_name, got %+v", csverror.CodeInvalidDifferent, errs[0])
	}
}

func TestGradeImport_LinksProgressionsInSecondPass(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityGrades,
		csvreader.Row{"organization_name": "Acme Academy", "grade_name": "Grade 1", "progress_to_grade_name": "Grade 2"},
		csvreader.Row{"organization_name": "Acme Academy", "grade_name": "Grade 2", "progress_from_grade_name": "Grade 1"},
	)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	g1 := f.store.Grade(f.org.ID, "Grade 1")
	g2 := f.store.Grade(f.org.ID, "Grade 2")
	if g1 == nil || g2 == nil {
		t.Fatal("Both grades should be committed")
	}
	if g1.ProgressToID != g2.ID || g2.ProgressFromID != g1.ID {
		t.Errorf("Grades not linked: %+v %+v", g1, g2)
	}
	if g1.ProgressFromID != "grade-none" || g2.ProgressToID != "grade-none" {
		t.Errorf("Blank links should use the None Specified grade: %+v %+v", g1, g2)
	}
}

func TestGradeImport_UnknownProgression(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityGrades,
		csvreader.Row{"organization_name": "Acme Academy", "grade_name": "Grade 1", "progress_to_grade_name": "Grade 9"},
	)
	if len(errs) != 1 || errs[0].Code != csverror.CodeNonExistentChildEntity || errs[0].Column != "progress_to_grade_name" {
		t.Fatalf("Expected missing progression grade, got %v", errs)
	}
	if f.store.Grade(f.org.ID, "Grade 1") != nil {
		t.Error("Grade should be rolled back")
	}
}

func TestProgramImport_AgeRange(t *testing.T) {
	tests := []struct {
		name      string
		age       map[string]string
		wantCodes []string
	}{
		{
			name: "linked",
			age:  map[string]string{"age_range_low_value": "3", "age_range_high_value": "5", "age_range_unit": "year"},
		},
		{
			name: "partial triple",
			age:  map[string]string{"age_range_low_value": "3"},
			wantCodes: []string{
				csverror.CodeRequiredAllOrNone,
				csverror.CodeRequiredAllOrNone,
			},
		},
		{
			name:      "low not below high",
			age:       map[string]string{"age_range_low_value": "5", "age_range_high_value": "3", "age_range_unit": "year"},
			wantCodes: []string{csverror.CodeInvalidGreaterThanOther},
		},
		{
			name:      "high out of bounds",
			age:       map[string]string{"age_range_low_value": "3", "age_range_high_value": "100", "age_range_unit": "year"},
			wantCodes: []string{csverror.CodeInvalidBetween},
		},
		{
			name:      "unknown range",
			age:       map[string]string{"age_range_low_value": "6", "age_range_high_value": "7", "age_range_unit": "year"},
			wantCodes: []string{csverror.CodeNonExistentChildEntity},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.store.SeedAgeRange(&models.AgeRange{ID: "ar-3-5", Name: "3 - 5 year(s)", LowValue: 3, HighValue: 5, Unit: "year", System: true, Status: models.StatusActive})

			row := csvreader.Row{"organization_name": "Acme Academy", "program_name": "Early Years"}
			for k, v := range tt.age {
				row[k] = v
			}
			errs, _ := f.importRows(t, processor.EntityPrograms, row)

			got := codesOf(errs)
			if len(got) != len(tt.wantCodes) {
				t.Fatalf("Expected %v, got %v", tt.wantCodes, got)
			}
			for i := range got {
				if got[i] != tt.wantCodes[i] {
					t.Errorf("Expected %v, got %v", tt.wantCodes, got)
				}
			}
			if len(tt.wantCodes) == 0 {
				p := f.store.Program(f.org.ID, "Early Years")
				if p == nil || len(p.AgeRangeIDs) != 1 || p.AgeRangeIDs[0] != "ar-3-5" {
					t.Errorf("Expected program linked to ar-3-5, got %+v", p)
				}
			}
		})
	}
}

func TestAgeRangeImport_Duplicate(t *testing.T) {
	f := newFixture()
	row := csvreader.Row{"organization_name": "Acme Academy", "age_range_low_value": "1", "age_range_high_value": "2", "age_range_unit": "month"}

	errs, _ := f.importRows(t, processor.EntityAgeRanges, row, row)
	if len(errs) != 1 || errs[0].Row != 2 || errs[0].Code != csverror.CodeDuplicateChildEntity {
		t.Fatalf("Expected duplicate on row 2, got %v", errs)
	}
	if errs[0].Params["name"] != "1 - 2 month(s)" {
		t.Errorf("Expected range name in params, got %v", errs[0].Params)
	}
}

func TestCategoryImport_AccumulatesSubcategories(t *testing.T) {
	f := newFixture()
	f.store.SeedSubcategory(&models.Subcategory{ID: "sub-a", OrganizationID: f.org.ID, Name: "Algebra", Status: models.StatusActive})

	errs, _ := f.importRows(t, processor.EntityCategories,
		csvreader.Row{"organization_name": "Acme Academy", "category_name": "Math", "subcategory_name": "Algebra"},
		csvreader.Row{"organization_name": "Acme Academy", "category_name": "Math", "subcategory_name": models.NoneSpecified},
	)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if f.store.Count("categories") != 2 {
		t.Errorf("Expected the system category plus one, got %d", f.store.Count("categories"))
	}
}

func TestSubcategoryImport_DuplicateStored(t *testing.T) {
	f := newFixture()
	f.store.SeedSubcategory(&models.Subcategory{ID: "sub-a", OrganizationID: f.org.ID, Name: "Algebra", Status: models.StatusActive})

	errs, _ := f.importRows(t, processor.EntitySubcategories,
		csvreader.Row{"organization_name": "Acme Academy", "subcategory_name": "Algebra"},
	)
	if len(errs) != 1 || errs[0].Code != csverror.CodeDuplicateChildEntity {
		t.Fatalf("Expected duplicate, got %v", errs)
	}
}

func TestSubjectImport_UnknownCategory(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntitySubjects,
		csvreader.Row{"organization_name": "Acme Academy", "subject_name": "Physics", "category_name": "Science"},
	)
	if len(errs) != 1 || errs[0].Column != "category_name" {
		t.Fatalf("Expected missing category, got %v", errs)
	}
}

func TestImport_UnknownOrganization(t *testing.T) {
	f := newFixture()
	errs, _ := f.importRows(t, processor.EntityClasses,
		csvreader.Row{"organization_name": "Nowhere", "class_name": "Year 1"},
	)
	if len(errs) != 1 || errs[0].Code != csverror.CodeNonExistentEntity || errs[0].Column != "organization_name" {
		t.Fatalf("Expected unknown organization, got %v", errs)
	}
}
