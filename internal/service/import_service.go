package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/metrics"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/processor"
	"github.com/roster-import-api/internal/repository"
	"github.com/roster-import-api/internal/validation"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	store     repository.Store
	runs      repository.ImportRunRepository
	authz     permission.Authorizer
	importers map[string]processor.Importer
	catalog   csverror.Catalog
	validator *validation.RowValidator
	cfg       config.ImportConfig
	log       zerolog.Logger

	// Semaphore: bounds imports holding a transaction at once
	sem chan struct{}
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, authz permission.Authorizer, cfg config.ImportConfig, log zerolog.Logger) *importService {
	catalog := csverror.DefaultCatalog()
	slots := cfg.MaxConcurrent
	if slots < 1 {
		slots = 1
	}

	log = log.With().Str("service", "import").Logger()
	log.Info().Int("max_concurrent", slots).Msg("Initializing import service")

	return &importService{
		store:     repos.Store,
		runs:      repos.Runs,
		authz:     authz,
		importers: processor.Importers(cfg.Limits),
		catalog:   catalog,
		validator: validation.NewRowValidator(catalog, log),
		cfg:       cfg,
		log:       log,
		sem:       make(chan struct{}, slots),
	}
}

// Entities lists the importable entities
func (s *importService) Entities() []string {
	return processor.Entities()
}

// Import runs one upload end to end and records its outcome
func (s *importService) Import(ctx context.Context, req *ImportRequest) (*models.ImportRun, error) {
	imp, ok := s.importers[req.Entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, req.Entity)
	}

	// Acquire a slot; blocks while MaxConcurrent imports are running
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()
	metrics.ImportStarted()
	defer metrics.ImportFinished()

	start := time.Now()
	run := &models.ImportRun{
		ID:         uuid.New().String(),
		Entity:     req.Entity,
		Filename:   req.Upload.Filename,
		Mimetype:   req.Upload.Mimetype,
		Encoding:   req.Upload.Encoding,
		DryRun:     req.DryRun,
		ActingUser: req.ActingUserID,
		Status:     models.RunStatusProcessing,
		CreatedAt:  start.UTC(),
	}
	// Runs are bookkeeping: a failure to record one never fails the import
	recordCtx := context.WithoutCancel(ctx)
	if err := s.runs.Create(recordCtx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record import run")
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("entity", run.Entity).
		Str("file", run.Filename).
		Bool("dry_run", run.DryRun).
		Msg("Starting import")

	rowCount, err := s.execute(ctx, req, imp)
	s.finish(recordCtx, run, rowCount, err, start)

	return run, err
}

// execute owns the transaction of one import. The transaction is opened
// before anything is read and is always released; it is committed only when
// every row passed and the request isn't a dry run.
func (s *importService) execute(ctx context.Context, req *ImportRequest, imp processor.Importer) (rowCount int, err error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}

	committed := false
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		var cleanup *multierror.Error
		if !committed {
			if rbErr := tx.Rollback(cleanupCtx); rbErr != nil {
				cleanup = multierror.Append(cleanup, fmt.Errorf("rollback failed: %w", rbErr))
			}
		}
		if relErr := tx.Release(); relErr != nil {
			cleanup = multierror.Append(cleanup, fmt.Errorf("release failed: %w", relErr))
		}
		if cleanup == nil {
			return
		}
		if err == nil {
			err = cleanup.ErrorOrNil()
			return
		}
		err = multierror.Append(err, cleanup.Errors...)
	}()

	rows, err := csvreader.Read(ctx, req.Upload, csvreader.Options{MaxFileSize: s.cfg.MaxFileSize})
	if err != nil {
		return 0, err
	}
	if errs := validation.ValidateHeader(rows.Header(), imp.Header, s.catalog); len(errs) > 0 {
		return 0, csverror.NewAggregate(errs)
	}
	if rows.Len() == 0 {
		return 0, &csvreader.FileError{
			Kind:    csvreader.ErrEmptyFile,
			Message: fmt.Sprintf("Empty input file: %s", req.Upload.Filename),
		}
	}

	run := processor.NewRun(tx, s.authz.ForUser(req.ActingUserID), s.validator, s.catalog, s.cfg,
		s.log.With().Str("entity", req.Entity).Logger())

	fileErrs, err := processor.Execute(ctx, run, imp, rows)
	if err != nil {
		return rows.Len(), err
	}
	if len(fileErrs) > 0 {
		return rows.Len(), csverror.NewAggregate(fileErrs)
	}

	hits, misses := run.Cache.Stats()
	s.log.Debug().Int("cache_hits", hits).Int("cache_misses", misses).Msg("Rows processed")

	if req.DryRun {
		return rows.Len(), nil
	}
	if err := tx.Commit(ctx); err != nil {
		return rows.Len(), fmt.Errorf("failed to commit import: %w", err)
	}
	committed = true
	return rows.Len(), nil
}

// finish stores the outcome of a run and reports it
func (s *importService) finish(ctx context.Context, run *models.ImportRun, rowCount int, err error, start time.Time) {
	took := time.Since(start)
	completedAt := time.Now().UTC()
	run.RowCount = rowCount
	run.DurationMs = took.Milliseconds()
	run.CompletedAt = &completedAt

	var fileErr *csvreader.FileError
	agg, isAgg := csverror.AsAggregate(err)
	switch {
	case err == nil && run.DryRun:
		run.Status, run.Outcome = models.RunStatusCompleted, models.OutcomeDryRun
	case err == nil:
		run.Status, run.Outcome = models.RunStatusCompleted, models.OutcomeCommitted
	case isAgg:
		run.Status, run.Outcome = models.RunStatusFailed, models.OutcomeRejected
		run.Message = agg.Error()
		run.ErrorCount = len(agg.Errors)
		for _, e := range agg.Errors {
			metrics.RecordRowError(run.Entity, e.Code)
		}
		if addErr := s.runs.AddErrors(ctx, run.ID, agg.Errors); addErr != nil {
			s.log.Error().Err(addErr).Str("run_id", run.ID).Msg("Failed to record import errors")
		}
	case errors.As(err, &fileErr):
		run.Status, run.Outcome = models.RunStatusFailed, models.OutcomeRejected
		run.Message = fileErr.Message
	default:
		run.Status, run.Outcome = models.RunStatusFailed, models.OutcomeFailed
		run.Message = err.Error()
	}

	if updErr := s.runs.Update(ctx, run); updErr != nil {
		s.log.Error().Err(updErr).Str("run_id", run.ID).Msg("Failed to update import run")
	}
	metrics.RecordRun(run.Entity, string(run.Outcome), rowCount, took)

	event := s.log.Info()
	if run.Outcome == models.OutcomeFailed {
		event = s.log.Error().Err(err)
	}
	event.
		Str("run_id", run.ID).
		Str("entity", run.Entity).
		Str("file", run.Filename).
		Str("outcome", string(run.Outcome)).
		Int("rows", run.RowCount).
		Int("errors", run.ErrorCount).
		Bool("dry_run", run.DryRun).
		Int64("duration_ms", run.DurationMs).
		Msg("Import finished")
}
