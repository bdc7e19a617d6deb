package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/enginow/enginow-api/internal/models"
)

// ProgramRepository serves read-only catalog listings from PostgreSQL.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = `id, title, category, duration, price, original_price, features, highlights, is_active, created_at`

// ListActive returns active programs, optionally filtered by category.
func (r *ProgramRepository) ListActive(ctx context.Context, category string) ([]models.Program, error) {
	query := fmt.Sprintf("SELECT %s FROM programs WHERE is_active", programColumns)
	var args []interface{}
	if category != "" {
		query += " AND category = $1"
		args = append(args, category)
	}
	query += " ORDER BY title"

	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// FindByID returns a program by its ID.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	query := fmt.Sprintf("SELECT %s FROM programs WHERE id = $1", programColumns)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// Seed upserts the catalog. Called once on boot; user actions never mutate
// program rows.
func (r *ProgramRepository) Seed(ctx context.Context, programs []models.Program) error {
	const query = `INSERT INTO programs (id, title, category, duration, price, original_price, features, highlights, is_active, created_at)
        VALUES (:id, :title, :category, :duration, :price, :original_price, :features, :highlights, :is_active, :created_at)
        ON CONFLICT (id) DO UPDATE SET
        title = EXCLUDED.title,
        category = EXCLUDED.category,
        duration = EXCLUDED.duration,
        price = EXCLUDED.price,
        original_price = EXCLUDED.original_price,
        features = EXCLUDED.features,
        highlights = EXCLUDED.highlights,
        is_active = EXCLUDED.is_active`
	for i := range programs {
		if programs[i].CreatedAt.IsZero() {
			programs[i].CreatedAt = time.Now().UTC()
		}
		if _, err := r.db.NamedExecContext(ctx, query, programs[i]); err != nil {
			return fmt.Errorf("seed program %s: %w", programs[i].ID, err)
		}
	}
	return nil
}
