package mocks

import (
	"context"
	"sync"

	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/repository"
)

// MockImportRunRepository is a mock implementation of ImportRunRepository
type MockImportRunRepository struct {
	mu     sync.Mutex
	Runs   map[string]*models.ImportRun
	Errors map[string][]csverror.CSVError

	CreateError    error
	UpdateError    error
	AddErrorsError error
}

// Verify interface compliance
var _ repository.ImportRunRepository = (*MockImportRunRepository)(nil)

func NewMockImportRunRepository() *MockImportRunRepository {
	return &MockImportRunRepository{
		Runs:   make(map[string]*models.ImportRun),
		Errors: make(map[string][]csverror.CSVError),
	}
}

func (m *MockImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.Runs[run.ID] = &cp
	return nil
}

func (m *MockImportRunRepository) Update(ctx context.Context, run *models.ImportRun) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.Runs[run.ID] = &cp
	return nil
}

func (m *MockImportRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (m *MockImportRunRepository) AddErrors(ctx context.Context, runID string, errs []csverror.CSVError) error {
	if m.AddErrorsError != nil {
		return m.AddErrorsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[runID] = append(m.Errors[runID], errs...)
	return nil
}

func (m *MockImportRunRepository) GetErrors(ctx context.Context, runID string, limit int) ([]csverror.CSVError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := m.Errors[runID]
	if limit > 0 && len(errs) > limit {
		errs = errs[:limit]
	}
	out := make([]csverror.CSVError, len(errs))
	copy(out, errs)
	return out, nil
}
