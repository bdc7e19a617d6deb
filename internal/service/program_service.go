package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/enginow/enginow-api/internal/models"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
)

type programStore interface {
	ListActive(ctx context.Context, category string) ([]models.Program, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// ProgramService serves the read-only training catalog.
type ProgramService struct {
	store programStore
}

// NewProgramService constructs ProgramService.
func NewProgramService(store programStore) *ProgramService {
	return &ProgramService{store: store}
}

// ListActive returns active programs, optionally filtered by category.
func (s *ProgramService) ListActive(ctx context.Context, category string) ([]models.Program, error) {
	programs, err := s.store.ListActive(ctx, category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	if programs == nil {
		programs = []models.Program{}
	}
	return programs, nil
}

// Get returns one catalog entry.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	return program, nil
}
