package service

import (
	"context"

	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// errorPreviewLimit is how many errors a run lookup includes
const errorPreviewLimit = 100

// runService is the concrete implementation of RunService
type runService struct {
	runs repository.ImportRunRepository
	log  zerolog.Logger
}

// newRunService creates a new RunService
func newRunService(runs repository.ImportRunRepository, log zerolog.Logger) *runService {
	return &runService{
		runs: runs,
		log:  log.With().Str("service", "run").Logger(),
	}
}

// GetRun retrieves a run with its first errors
func (s *runService) GetRun(ctx context.Context, id string) (*models.ImportRunResponse, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	response := &models.ImportRunResponse{ImportRun: *run}
	if run.ErrorCount > 0 {
		errs, err := s.runs.GetErrors(ctx, id, errorPreviewLimit)
		if err != nil {
			s.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run errors")
		}
		response.Errors = errs
	}
	return response, nil
}

// GetRunErrors retrieves every error of a run
func (s *runService) GetRunErrors(ctx context.Context, id string) ([]csverror.CSVError, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return s.runs.GetErrors(ctx, id, 0)
}
