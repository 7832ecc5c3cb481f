package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/permission"
	"github.com/roster-import-api/internal/repository"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownEntity is returned for an entity no importer handles
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrRunNotFound is returned when no import run has the requested id
	ErrRunNotFound = errors.New("import run not found")
	// ErrUnsupportedFormat is returned for an unknown error report format
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ImportRequest is one upload to import
type ImportRequest struct {
	Entity       string
	Upload       csvreader.Upload
	DryRun       bool
	ActingUserID string
}

// ImportService defines the interface for import operations
type ImportService interface {
	// Import runs the upload in a single transaction. The returned run is
	// set whenever the import was recorded, including failed ones; err is a
	// *csverror.Aggregate for row or header problems and a
	// *csvreader.FileError for fatal file problems.
	Import(ctx context.Context, req *ImportRequest) (*models.ImportRun, error)
	Entities() []string
}

// RunService defines the interface for import run lookups
type RunService interface {
	GetRun(ctx context.Context, id string) (*models.ImportRunResponse, error)
	GetRunErrors(ctx context.Context, id string) ([]csverror.CSVError, error)
}

// ExportService defines the interface for error report downloads
type ExportService interface {
	StreamErrors(ctx context.Context, w http.ResponseWriter, runID, format string) error
}

// Services holds all service interfaces
type Services struct {
	Import ImportService
	Runs   RunService
	Export ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, authz permission.Authorizer, cfg *config.Config, log zerolog.Logger) *Services {
	runSvc := newRunService(repos.Runs, log)
	return &Services{
		Import: newImportService(repos, authz, cfg.Import, log),
		Runs:   runSvc,
		Export: newExportService(runSvc, log),
	}
}
