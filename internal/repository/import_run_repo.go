package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/database"
	"github.com/roster-import-api/internal/models"
)

// importRunRepo is the concrete implementation of ImportRunRepository
type importRunRepo struct {
	db *database.DB
}

// NewImportRunRepo creates a new import run repository
func NewImportRunRepo(db *database.DB) ImportRunRepository {
	return &importRunRepo{db: db}
}

// Create inserts a new run
func (r *importRunRepo) Create(ctx context.Context, run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (id, entity, filename, mimetype, encoding, dry_run, acting_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Entity, run.Filename, run.Mimetype, run.Encoding, run.DryRun,
		nullString(run.ActingUser), run.Status, run.CreatedAt,
	)
	return err
}

// Update stores the run's outcome and counters
func (r *importRunRepo) Update(ctx context.Context, run *models.ImportRun) error {
	query := `
		UPDATE import_runs SET
			status = $1, outcome = $2, message = $3, row_count = $4, error_count = $5,
			duration_ms = $6, completed_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status, nullString(string(run.Outcome)), nullString(run.Message), run.RowCount,
		run.ErrorCount, run.DurationMs, run.CompletedAt, run.ID,
	)
	return err
}

// GetByID retrieves a run by ID
func (r *importRunRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	query := `
		SELECT id, entity, filename, mimetype, encoding, dry_run, acting_user_id, status, outcome,
			message, row_count, error_count, duration_ms, created_at, completed_at
		FROM import_runs WHERE id = $1
	`

	var run models.ImportRun
	var actingUser, outcome, message sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Entity, &run.Filename, &run.Mimetype, &run.Encoding, &run.DryRun,
		&actingUser, &run.Status, &outcome, &message, &run.RowCount, &run.ErrorCount,
		&run.DurationMs, &run.CreatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.ActingUser = actingUser.String
	run.Outcome = models.RunOutcome(outcome.String)
	run.Message = message.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// AddErrors stores structured errors using the COPY protocol. A rejected
// file can carry one error per row, far more than row-by-row INSERTs handle well.
func (r *importRunRepo) AddErrors(ctx context.Context, runID string, errs []csverror.CSVError) error {
	if len(errs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_run_errors",
		"run_id", "position", "row_number", "column_name", "code", "message", "params",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range errs {
		params, err := json.Marshal(e.Params)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, i, e.Row, e.Column, e.Code, e.Message, string(params)); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves a run's errors in their original order
func (r *importRunRepo) GetErrors(ctx context.Context, runID string, limit int) ([]csverror.CSVError, error) {
	query := `SELECT row_number, column_name, code, message, params FROM import_run_errors WHERE run_id = $1 ORDER BY position`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", runID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, runID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []csverror.CSVError
	for rows.Next() {
		var e csverror.CSVError
		var params []byte
		if err := rows.Scan(&e.Row, &e.Column, &e.Code, &e.Message, &params); err != nil {
			return nil, err
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &e.Params); err != nil {
				return nil, err
			}
		}
		errs = append(errs, e)
	}

	return errs, rows.Err()
}
