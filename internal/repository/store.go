package repository

import (
	"context"
	"time"

	"github.com/enginow/enginow-api/internal/dto"
	"github.com/enginow/enginow-api/internal/models"
)

// EnrollmentStore is the full contract both enrollment backends satisfy.
// Services narrow it to the methods they consume; wiring code selects a
// backend once and shares it.
type EnrollmentStore interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByEmailAndProgram(ctx context.Context, email, programID string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	Update(ctx context.Context, id string, patch models.EnrollmentPatch) error
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) ([]dto.StatusCount, error)
	CountByProgram(ctx context.Context) ([]dto.ProgramCount, error)
	CountByReferralCode(ctx context.Context) ([]dto.ReferralCount, error)
	DailyCounts(ctx context.Context, since time.Time) ([]dto.DailyCount, error)
}

// ProgramStore is the catalog contract shared by both backends.
type ProgramStore interface {
	ListActive(ctx context.Context, category string) ([]models.Program, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

var (
	_ EnrollmentStore = (*EnrollmentRepository)(nil)
	_ EnrollmentStore = (*MemoryEnrollmentRepository)(nil)
	_ ProgramStore    = (*ProgramRepository)(nil)
	_ ProgramStore    = (*MemoryProgramRepository)(nil)
)
