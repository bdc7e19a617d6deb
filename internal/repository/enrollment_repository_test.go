package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginow/enginow-api/internal/models"
)

func newEnrollmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "program_id", "first_name", "last_name", "email", "phone", "whatsapp", "linkedin",
		"city", "state", "education", "experience", "motivation", "referral_code", "referral_code_valid",
		"discount_applied", "agree_terms", "agree_marketing", "status", "payment_status",
		"enrollment_date", "created_at", "updated_at",
	}).AddRow(
		"enr-1", "fullstack-web", "Asha", "Verma", "asha@example.com", "9876543210", "", "",
		"Pune", "Maharashtra", "B.Tech", "fresher", "", "STUDENT50", true,
		10, true, false, "pending", "pending",
		now, now, now,
	)
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		ProgramID: "fullstack-web",
		Email:     "asha@example.com",
		Status:    models.EnrollmentStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_enrollments_email_program"})

	err := repo.Create(context.Background(), &models.Enrollment{Email: "asha@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByEmailAndProgram(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1) AND program_id = $2")).
		WithArgs("asha@example.com", "fullstack-web").
		WillReturnRows(enrollmentRows())

	found, err := repo.FindByEmailAndProgram(context.Background(), "asha@example.com", "fullstack-web")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", found.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT .* FROM enrollments WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1) AND program_id = $2 AND status = $3 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("asha@example.com", "fullstack-web", models.EnrollmentStatusPending).
		WillReturnRows(enrollmentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE lower(email) = lower($1) AND program_id = $2 AND status = $3")).
		WithArgs("asha@example.com", "fullstack-web", models.EnrollmentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		Email:     "asha@example.com",
		ProgramID: "fullstack-web",
		Status:    models.EnrollmentStatusPending,
	})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateNoRows(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := models.EnrollmentStatusConfirmed
	err := repo.Update(context.Background(), "missing", models.EnrollmentPatch{Status: &status})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("DELETE FROM enrollments WHERE id").
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "enr-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAggregates(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("pending", 5).AddRow("confirmed", 2))
	mock.ExpectQuery("SELECT e.program_id").
		WillReturnRows(sqlmock.NewRows([]string{"program_id", "title", "count"}).AddRow("fullstack-web", "Full-Stack Web Development", 7))
	mock.ExpectQuery("SELECT referral_code, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"referral_code", "count"}).AddRow("STUDENT50", 3))
	mock.ExpectQuery("date_trunc").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).AddRow(time.Now().UTC(), 2))

	ctx := context.Background()
	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	byStatus, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byProgram, err := repo.CountByProgram(ctx)
	require.NoError(t, err)
	require.Len(t, byProgram, 1)
	assert.Equal(t, "Full-Stack Web Development", byProgram[0].Title)

	byReferral, err := repo.CountByReferralCode(ctx)
	require.NoError(t, err)
	require.Len(t, byReferral, 1)
	assert.Equal(t, 3, byReferral[0].Count)

	daily, err := repo.DailyCounts(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Len(t, daily, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}
