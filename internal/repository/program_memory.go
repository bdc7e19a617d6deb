package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/enginow/enginow-api/internal/models"
)

// MemoryProgramRepository holds the catalog in memory, seeded at construction.
type MemoryProgramRepository struct {
	mu       sync.RWMutex
	programs map[string]models.Program
}

// NewMemoryProgramRepository constructs the in-memory catalog.
func NewMemoryProgramRepository(programs []models.Program) *MemoryProgramRepository {
	byID := make(map[string]models.Program, len(programs))
	for _, program := range programs {
		byID[program.ID] = program
	}
	return &MemoryProgramRepository{programs: byID}
}

// ListActive returns active programs, optionally filtered by category.
func (r *MemoryProgramRepository) ListActive(_ context.Context, category string) ([]models.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Program, 0, len(r.programs))
	for _, program := range r.programs {
		if !program.IsActive {
			continue
		}
		if category != "" && program.Category != category {
			continue
		}
		matched = append(matched, program)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })
	return matched, nil
}

// FindByID returns a program by its ID.
func (r *MemoryProgramRepository) FindByID(_ context.Context, id string) (*models.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if program, ok := r.programs[id]; ok {
		return &program, nil
	}
	return nil, sql.ErrNoRows
}

// TitleOf resolves a program title for aggregation rows, empty when unknown.
func (r *MemoryProgramRepository) TitleOf(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if program, ok := r.programs[id]; ok {
		return program.Title
	}
	return ""
}
