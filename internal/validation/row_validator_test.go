package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/rs/zerolog"
)

func newTestValidator() *RowValidator {
	return NewRowValidator(csverror.DefaultCatalog(), zerolog.Nop())
}

func validUserRow() csvreader.Row {
	return csvreader.Row{
		"organization_name":      "Acme Academy",
		"user_given_name":        "Jane",
		"user_family_name":       "O'Neil",
		"user_email":             "jane@example.com",
		"user_date_of_birth":     "03-2012",
		"user_gender":            "female",
		"organization_role_name": "Student",
	}
}

func codesOf(errs []csverror.CSVError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestRowValidator_UserSchema(t *testing.T) {
	v := newTestValidator()
	schema := UserSchema(config.DefaultLimits())

	tests := []struct {
		name        string
		mutate      func(r csvreader.Row)
		wantCodes   []string
		wantColumns []string
	}{
		{
			name:   "valid row",
			mutate: func(r csvreader.Row) {},
		},
		{
			name:        "blank organization name",
			mutate:      func(r csvreader.Row) { delete(r, "organization_name") },
			wantCodes:   []string{csverror.CodeMissingRequired},
			wantColumns: []string{"organization_name"},
		},
		{
			name: "several violations surface together",
			mutate: func(r csvreader.Row) {
				r["user_given_name"] = strings.Repeat("a", 101)
				r["user_email"] = "not-an-email"
				r["user_date_of_birth"] = "13-2012"
			},
			wantCodes:   []string{csverror.CodeInvalidLength, csverror.CodeInvalidEmail, csverror.CodeInvalidDateFormat},
			wantColumns: []string{"user_given_name", "user_email", "user_date_of_birth"},
		},
		{
			name:        "neither email nor phone",
			mutate:      func(r csvreader.Row) { delete(r, "user_email") },
			wantCodes:   []string{csverror.CodeMissingRequiredEither},
			wantColumns: []string{"user_email"},
		},
		{
			name: "phone instead of email",
			mutate: func(r csvreader.Row) {
				delete(r, "user_email")
				r["user_phone"] = "+447700900123"
			},
		},
		{
			name:        "invalid phone",
			mutate:      func(r csvreader.Row) { r["user_phone"] = "12ab" },
			wantCodes:   []string{csverror.CodeInvalidPhone},
			wantColumns: []string{"user_phone"},
		},
		{
			name:        "lowercase shortcode",
			mutate:      func(r csvreader.Row) { r["user_shortcode"] = "abc1" },
			wantCodes:   []string{csverror.CodeInvalidShortcode},
			wantColumns: []string{"user_shortcode"},
		},
		{
			name:        "gender too short and contains symbols",
			mutate:      func(r csvreader.Row) { r["user_gender"] = "!?" },
			wantCodes:   []string{csverror.CodeInvalidMinLength, csverror.CodeInvalidAlphaNumSpecial},
			wantColumns: []string{"user_gender", "user_gender"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validUserRow()
			tt.mutate(row)

			errs := v.Validate(row, 1, schema)
			if len(errs) != len(tt.wantCodes) {
				t.Fatalf("Expected codes %v, got %v", tt.wantCodes, codesOf(errs))
			}
			for i, e := range errs {
				if e.Code != tt.wantCodes[i] {
					t.Errorf("Error %d: expected code %s, got %s", i, tt.wantCodes[i], e.Code)
				}
				if e.Column != tt.wantColumns[i] {
					t.Errorf("Error %d: expected column %s, got %s", i, tt.wantColumns[i], e.Column)
				}
				if e.Row != 1 {
					t.Errorf("Error %d: expected row 1, got %d", i, e.Row)
				}
				if strings.Contains(e.Message, "{") {
					t.Errorf("Unresolved placeholder in %q", e.Message)
				}
			}
		})
	}
}

func TestRowValidator_RenderedMessages(t *testing.T) {
	v := newTestValidator()
	schema := SchoolSchema(config.DefaultLimits())

	row := csvreader.Row{"organization_name": strings.Repeat("x", 36), "school_name": "North"}
	errs := v.Validate(row, 7, schema)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", codesOf(errs))
	}
	want := "On row number 7, organization name must not be greater than 35 characters."
	if errs[0].Message != want {
		t.Errorf("Expected %q, got %q", want, errs[0].Message)
	}
	if errs[0].Params["max"] != "35" {
		t.Errorf("Expected max param 35, got %q", errs[0].Params["max"])
	}
}

func TestRowValidator_EnumListsAllowedValues(t *testing.T) {
	v := newTestValidator()
	row := csvreader.Row{
		"organization_name":    "Acme",
		"age_range_low_value":  "1",
		"age_range_high_value": "x",
		"age_range_unit":       "week",
	}

	errs := v.Validate(row, 2, AgeRangeSchema(config.DefaultLimits()))
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %v", codesOf(errs))
	}
	if errs[0].Code != csverror.CodeInvalidNumber {
		t.Errorf("Expected invalid number first, got %s", errs[0].Code)
	}
	if errs[1].Code != csverror.CodeInvalidEnum || errs[1].Params["values"] != "year, month" {
		t.Errorf("Unexpected enum error %+v", errs[1])
	}
}

func TestRowValidator_SensitiveColumnOmitsValue(t *testing.T) {
	v := newTestValidator()
	row := validUserRow()
	row["user_given_name"] = "Jo\U0001F600"
	row["user_gender"] = "male\U0001F600"

	errs := v.Validate(row, 1, UserSchema(config.DefaultLimits()))
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %v", codesOf(errs))
	}
	if _, ok := errs[0].Params["value"]; ok {
		t.Error("Sensitive column leaked its value")
	}
	if errs[1].Params["value"] != "male\U0001F600" {
		t.Errorf("Non-sensitive column should carry its value, got %q", errs[1].Params["value"])
	}
}

func TestRowValidator_ListField(t *testing.T) {
	v := newTestValidator()
	schema := Schema{{Column: "subject_names", Entity: "program", Attribute: "subjects", List: true, Tags: []string{"max=5"}}}

	tests := []struct {
		name      string
		value     string
		wantCodes []string
	}{
		{name: "distinct items", value: "Math, Art"},
		{name: "duplicate items", value: "Math,Math", wantCodes: []string{csverror.CodeDuplicateValue}},
		{name: "item too long", value: "Math,Science", wantCodes: []string{csverror.CodeInvalidLength}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(csvreader.Row{"subject_names": tt.value}, 1, schema)
			got := codesOf(errs)
			if strings.Join(got, ",") != strings.Join(tt.wantCodes, ",") {
				t.Errorf("Expected %v, got %v", tt.wantCodes, got)
			}
		})
	}
}

func TestRowValidator_UnmappedConstraintFallsBack(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		tag  string
	}{
		{name: "known but unmapped tag", tag: "uuid4"},
		{name: "undefined tag", tag: "no_such_rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := Schema{{Column: "code", Entity: "thing", Attribute: "code", Tags: []string{tt.tag}}}

			errs := v.Validate(csvreader.Row{"code": "value"}, 3, schema)
			if len(errs) != 1 {
				t.Fatalf("Expected 1 error, got %d", len(errs))
			}
			if errs[0].Code != csverror.CodeInvalidFormat {
				t.Errorf("Expected %s, got %s", csverror.CodeInvalidFormat, errs[0].Code)
			}
			detail := errs[0].Params["detail"]
			if detail == "" {
				t.Fatal("Fallback should carry the underlying message")
			}

			data, err := json.Marshal(errs[0])
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var out map[string]interface{}
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if out["detail"] != detail {
				t.Errorf("Expected detail %q in JSON, got %v", detail, out["detail"])
			}
			if out["message"] != errs[0].Message || !strings.Contains(errs[0].Message, detail) {
				t.Errorf("Expected rendered message containing the detail, got %v", out["message"])
			}
		})
	}
}
