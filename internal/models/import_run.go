package models

import (
	"time"

	"github.com/roster-import-api/internal/csverror"
)

// RunStatus represents the status of an import run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// RunOutcome refines a finished run's status
type RunOutcome string

const (
	OutcomeCommitted RunOutcome = "committed"
	OutcomeDryRun    RunOutcome = "dry_run"
	OutcomeRejected  RunOutcome = "rejected"
	OutcomeFailed    RunOutcome = "failed"
)

// ImportRun records one upload, whatever its outcome
type ImportRun struct {
	ID          string     `json:"run_id" db:"id"`
	Entity      string     `json:"entity" db:"entity"`
	Filename    string     `json:"filename" db:"filename"`
	Mimetype    string     `json:"mimetype" db:"mimetype"`
	Encoding    string     `json:"encoding" db:"encoding"`
	DryRun      bool       `json:"dry_run" db:"dry_run"`
	ActingUser  string     `json:"acting_user_id" db:"acting_user_id"`
	Status      RunStatus  `json:"status" db:"status"`
	Outcome     RunOutcome `json:"outcome,omitempty" db:"outcome"`
	Message     string     `json:"message,omitempty" db:"message"`
	RowCount    int        `json:"row_count" db:"row_count"`
	ErrorCount  int        `json:"error_count" db:"error_count"`
	DurationMs  int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ImportRunResponse is the API response for a run's status
type ImportRunResponse struct {
	ImportRun
	Errors []csverror.CSVError `json:"errors,omitempty"`
}
