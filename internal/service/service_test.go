package service_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/service"
)

func seedRejectedRun(t *testing.T, h *testHarness, id string, errorCount int) {
	t.Helper()
	now := time.Now()
	run := &models.ImportRun{
		ID:          id,
		Entity:      "users",
		Filename:    "users.csv",
		Status:      models.RunStatusFailed,
		Outcome:     models.OutcomeRejected,
		RowCount:    errorCount,
		ErrorCount:  errorCount,
		CreatedAt:   now.Add(-time.Second),
		CompletedAt: &now,
	}
	if err := h.runs.Create(context.Background(), run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	errs := make([]csverror.CSVError, errorCount)
	for i := range errs {
		errs[i] = csverror.CSVError{
			Code:    csverror.CodeInvalidEmail,
			Message: fmt.Sprintf("On row number %d, user email is not a valid email.", i+1),
			Row:     i + 1,
			Column:  "user_email",
		}
	}
	if err := h.runs.AddErrors(context.Background(), id, errs); err != nil {
		t.Fatalf("AddErrors failed: %v", err)
	}
}

func TestRunService_GetRun(t *testing.T) {
	h := newTestHarness(t)
	seedRejectedRun(t, h, "run-123", 2)

	got, err := h.services.Runs.GetRun(context.Background(), "run-123")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Outcome != models.OutcomeRejected {
		t.Errorf("Expected outcome rejected, got %s", got.Outcome)
	}
	if len(got.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(got.Errors))
	}
}

func TestRunService_GetRunPreviewsErrors(t *testing.T) {
	h := newTestHarness(t)
	seedRejectedRun(t, h, "big-run", 250)

	got, err := h.services.Runs.GetRun(context.Background(), "big-run")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(got.Errors) != 100 {
		t.Errorf("Expected 100 previewed errors, got %d", len(got.Errors))
	}
	if got.ErrorCount != 250 {
		t.Errorf("Expected error_count 250, got %d", got.ErrorCount)
	}

	all, err := h.services.Runs.GetRunErrors(context.Background(), "big-run")
	if err != nil {
		t.Fatalf("GetRunErrors failed: %v", err)
	}
	if len(all) != 250 {
		t.Errorf("Expected 250 errors, got %d", len(all))
	}
}

func TestRunService_CommittedRunHasNoErrors(t *testing.T) {
	h := newTestHarness(t)

	run, err := h.run(t, "grades", fileUpload(t, "grades.csv"), false)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, err := h.services.Runs.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunStatusCompleted || got.Outcome != models.OutcomeCommitted {
		t.Errorf("Expected completed/committed, got %s/%s", got.Status, got.Outcome)
	}
	if got.Errors != nil {
		t.Errorf("Expected no errors, got %v", got.Errors)
	}
	if stored := h.runs.Errors[run.ID]; stored != nil {
		t.Errorf("Expected nothing stored for a committed run, got %v", stored)
	}
}

func TestRunService_NotFound(t *testing.T) {
	h := newTestHarness(t)

	if _, err := h.services.Runs.GetRun(context.Background(), "missing"); !errors.Is(err, service.ErrRunNotFound) {
		t.Errorf("GetRun: expected ErrRunNotFound, got %v", err)
	}
	if _, err := h.services.Runs.GetRunErrors(context.Background(), "missing"); !errors.Is(err, service.ErrRunNotFound) {
		t.Errorf("GetRunErrors: expected ErrRunNotFound, got %v", err)
	}
}

func TestImport_RecordingFailureDoesNotFailImport(t *testing.T) {
	h := newTestHarness(t)
	h.runs.CreateError = errors.New("runs table locked")
	h.runs.UpdateError = errors.New("runs table locked")

	run, err := h.run(t, "grades", fileUpload(t, "grades.csv"), false)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if run.Outcome != models.OutcomeCommitted {
		t.Errorf("Expected committed, got %s", run.Outcome)
	}
	if got := h.store.Count("grades"); got != 4 {
		t.Errorf("Expected 4 grades, got %d", got)
	}
}

func TestExportService_StreamErrorsCSV(t *testing.T) {
	h := newTestHarness(t)
	seedRejectedRun(t, h, "run-csv", 150)

	w := httptest.NewRecorder()
	if err := h.services.Export.StreamErrors(context.Background(), w, "run-csv", "csv"); err != nil {
		t.Fatalf("StreamErrors failed: %v", err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "import-run-csv-errors.csv") {
		t.Errorf("Unexpected Content-Disposition: %s", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Response is not valid CSV: %v", err)
	}
	if len(records) != 151 {
		t.Fatalf("Expected header plus 150 records, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "row,column,code,message" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	if records[150][0] != "150" || records[150][2] != csverror.CodeInvalidEmail {
		t.Errorf("Unexpected last record: %v", records[150])
	}
}

func TestExportService_StreamErrorsJSON(t *testing.T) {
	h := newTestHarness(t)
	seedRejectedRun(t, h, "run-json", 3)

	w := httptest.NewRecorder()
	if err := h.services.Export.StreamErrors(context.Background(), w, "run-json", "json"); err != nil {
		t.Fatalf("StreamErrors failed: %v", err)
	}

	var got []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Response is not valid JSON: %v\n%s", err, w.Body.String())
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 errors, got %d", len(got))
	}
	if got[0]["code"] != csverror.CodeInvalidEmail || got[0]["column"] != "user_email" {
		t.Errorf("Unexpected first error: %v", got[0])
	}
}

func TestExportService_Errors(t *testing.T) {
	h := newTestHarness(t)
	seedRejectedRun(t, h, "run-1", 1)

	tests := []struct {
		name   string
		runID  string
		format string
		want   error
	}{
		{"unsupported format", "run-1", "xml", service.ErrUnsupportedFormat},
		{"unknown run", "missing", "csv", service.ErrRunNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			err := h.services.Export.StreamErrors(context.Background(), w, tt.runID, tt.format)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if w.Body.Len() != 0 {
				t.Errorf("Expected nothing written, got %q", w.Body.String())
			}
		})
	}
}
