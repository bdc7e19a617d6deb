package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/enginow/enginow-api/internal/dto"
	"github.com/enginow/enginow-api/internal/models"
)

const pgUniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments in PostgreSQL.
// The enrollments table carries UNIQUE (lower(email), program_id), which is
// the authoritative duplicate guard.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, program_id, first_name, last_name, email, phone, whatsapp, linkedin,
        city, state, education, experience, motivation, referral_code, referral_code_valid,
        discount_applied, agree_terms, agree_marketing, status, payment_status,
        enrollment_date, created_at, updated_at`

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	if enrollment.UpdatedAt.IsZero() {
		enrollment.UpdatedAt = now
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	const query = `INSERT INTO enrollments (id, program_id, first_name, last_name, email, phone, whatsapp, linkedin,
        city, state, education, experience, motivation, referral_code, referral_code_valid,
        discount_applied, agree_terms, agree_marketing, status, payment_status,
        enrollment_date, created_at, updated_at)
        VALUES (:id, :program_id, :first_name, :last_name, :email, :phone, :whatsapp, :linkedin,
        :city, :state, :education, :experience, :motivation, :referral_code, :referral_code_valid,
        :discount_applied, :agree_terms, :agree_marketing, :status, :payment_status,
        :enrollment_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByEmailAndProgram returns the enrollment matching the pair, matching
// email case-insensitively computed at the application boundary too.
func (r *EnrollmentRepository) FindByEmailAndProgram(ctx context.Context, email, programID string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE lower(email) = lower($1) AND program_id = $2", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, email, programID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// List returns enrollments filtered by the provided criteria plus the total count.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("lower(email) = lower($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s FROM enrollments%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		enrollmentColumns, clause, limit, offset)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// Update applies the patch to an enrollment. Enum validation happens in the
// service; here a zero-row update maps to sql.ErrNoRows.
func (r *EnrollmentRepository) Update(ctx context.Context, id string, patch models.EnrollmentPatch) error {
	sets := []string{"updated_at = $2"}
	args := []interface{}{id, time.Now().UTC()}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.PaymentStatus != nil {
		args = append(args, *patch.PaymentStatus)
		sets = append(sets, fmt.Sprintf("payment_status = $%d", len(args)))
	}

	query := fmt.Sprintf("UPDATE enrollments SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an enrollment by ID.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAll returns the total number of enrollments.
func (r *EnrollmentRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments"); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}

// CountByStatus groups enrollments by lifecycle status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context) ([]dto.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM enrollments GROUP BY status ORDER BY status`
	var counts []dto.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return counts, nil
}

// CountByProgram groups enrollments by program, enriched with the catalog title.
func (r *EnrollmentRepository) CountByProgram(ctx context.Context) ([]dto.ProgramCount, error) {
	const query = `SELECT e.program_id, COALESCE(p.title, '') AS title, COUNT(*) AS count
        FROM enrollments e
        LEFT JOIN programs p ON p.id = e.program_id
        GROUP BY e.program_id, p.title
        ORDER BY count DESC`
	var counts []dto.ProgramCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count by program: %w", err)
	}
	return counts, nil
}

// CountByReferralCode groups enrollments by recognised referral code.
func (r *EnrollmentRepository) CountByReferralCode(ctx context.Context) ([]dto.ReferralCount, error) {
	const query = `SELECT referral_code, COUNT(*) AS count FROM enrollments
        WHERE referral_code_valid AND referral_code <> ''
        GROUP BY referral_code
        ORDER BY count DESC`
	var counts []dto.ReferralCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count by referral code: %w", err)
	}
	return counts, nil
}

// DailyCounts buckets enrollments created since the cutoff by calendar day.
func (r *EnrollmentRepository) DailyCounts(ctx context.Context, since time.Time) ([]dto.DailyCount, error) {
	const query = `SELECT date_trunc('day', created_at) AS day, COUNT(*) AS count
        FROM enrollments
        WHERE created_at >= $1
        GROUP BY day
        ORDER BY day`
	var counts []dto.DailyCount
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	return counts, nil
}
