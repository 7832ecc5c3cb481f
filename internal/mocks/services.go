package mocks

import (
	"context"
	"io"
	"net/http"

	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/service"
)

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	ImportFunc func(ctx context.Context, req *service.ImportRequest) (*models.ImportRun, error)
	Requests   []*service.ImportRequest
	// Contents holds the uploaded bytes of each request, read by the mock
	Contents [][]byte
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{}
}

func (m *MockImportService) Import(ctx context.Context, req *service.ImportRequest) (*models.ImportRun, error) {
	m.Requests = append(m.Requests, req)
	if req.Upload.Open != nil {
		if rc, err := req.Upload.Open(); err == nil {
			data, _ := io.ReadAll(rc)
			rc.Close()
			m.Contents = append(m.Contents, data)
		}
	}
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, req)
	}
	return &models.ImportRun{
		ID:       "test-run-id",
		Entity:   req.Entity,
		Filename: req.Upload.Filename,
		Mimetype: req.Upload.Mimetype,
		Encoding: req.Upload.Encoding,
		DryRun:   req.DryRun,
		Status:   models.RunStatusCompleted,
		Outcome:  models.OutcomeCommitted,
	}, nil
}

func (m *MockImportService) Entities() []string {
	return []string{"grades", "organizations", "users"}
}

// MockRunService is a mock implementation of RunService
type MockRunService struct {
	Runs   map[string]*models.ImportRunResponse
	Errors map[string][]csverror.CSVError
}

// Verify interface compliance
var _ service.RunService = (*MockRunService)(nil)

func NewMockRunService() *MockRunService {
	return &MockRunService{
		Runs:   make(map[string]*models.ImportRunResponse),
		Errors: make(map[string][]csverror.CSVError),
	}
}

func (m *MockRunService) GetRun(ctx context.Context, id string) (*models.ImportRunResponse, error) {
	run, ok := m.Runs[id]
	if !ok {
		return nil, service.ErrRunNotFound
	}
	return run, nil
}

func (m *MockRunService) GetRunErrors(ctx context.Context, id string) ([]csverror.CSVError, error) {
	if _, ok := m.Runs[id]; !ok {
		return nil, service.ErrRunNotFound
	}
	return m.Errors[id], nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamErrorsFunc func(ctx context.Context, w http.ResponseWriter, runID, format string) error
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{}
}

func (m *MockExportService) StreamErrors(ctx context.Context, w http.ResponseWriter, runID, format string) error {
	if m.StreamErrorsFunc != nil {
		return m.StreamErrorsFunc(ctx, w, runID, format)
	}
	return nil
}
