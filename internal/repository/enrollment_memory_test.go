package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginow/enginow-api/internal/models"
)

func memEnrollment(email, programID string) *models.Enrollment {
	return &models.Enrollment{
		ProgramID:     programID,
		FirstName:     "Asha",
		LastName:      "Verma",
		Email:         email,
		Status:        models.EnrollmentStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestMemoryRepositoryCreateAndFind(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(nil)
	ctx := context.Background()

	created := memEnrollment("asha@example.com", "fullstack-web")
	require.NoError(t, repo.Create(ctx, created))
	assert.NotEmpty(t, created.ID)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", found.Email)

	byPair, err := repo.FindByEmailAndProgram(ctx, "ASHA@EXAMPLE.COM", "fullstack-web")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPair.ID)
}

func TestMemoryRepositoryDuplicatePair(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, memEnrollment("asha@example.com", "fullstack-web")))

	err := repo.Create(ctx, memEnrollment("Asha@Example.com", "fullstack-web"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// Different program is a distinct pair.
	require.NoError(t, repo.Create(ctx, memEnrollment("asha@example.com", "data-science")))
}

func TestMemoryRepositoryListFiltersAndPaginates(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(nil)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		e := memEnrollment(email, "fullstack-web")
		e.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, e))
	}
	confirmed := memEnrollment("d@example.com", "data-science")
	confirmed.Status = models.EnrollmentStatusConfirmed
	require.NoError(t, repo.Create(ctx, confirmed))

	all, total, err := repo.List(ctx, models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)

	byProgram, total, err := repo.List(ctx, models.EnrollmentFilter{ProgramID: "fullstack-web"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, byProgram, 3)

	byStatus, _, err := repo.List(ctx, models.EnrollmentFilter{Status: models.EnrollmentStatusConfirmed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "d@example.com", byStatus[0].Email)

	page2, total, err := repo.List(ctx, models.EnrollmentFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page2, 1)

	beyond, _, err := repo.List(ctx, models.EnrollmentFilter{Page: 9, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryRepositoryListNewestFirst(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(nil)
	ctx := context.Background()

	older := memEnrollment("old@example.com", "fullstack-web")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, older))
	newer := memEnrollment("new@example.com", "fullstack-web")
	require.NoError(t, repo.Create(ctx, newer))

	list, _, err := repo.List(ctx, models.EnrollmentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new@example.com", list[0].Email)
}

func TestMemoryRepositoryUpdateAndDelete(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(nil)
	ctx := context.Background()

	created := memEnrollment("asha@example.com", "fullstack-web")
	require.NoError(t, repo.Create(ctx, created))

	status := models.EnrollmentStatusCancelled
	require.NoError(t, repo.Update(ctx, created.ID, models.EnrollmentPatch{Status: &status}))
	updated, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, updated.Status)

	assert.ErrorIs(t, repo.Update(ctx, "missing", models.EnrollmentPatch{Status: &status}), sql.ErrNoRows)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), sql.ErrNoRows)

	// The pair is free again after deletion.
	require.NoError(t, repo.Create(ctx, memEnrollment("asha@example.com", "fullstack-web")))
}

func TestMemoryRepositoryAggregates(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(func(programID string) string {
		if programID == "fullstack-web" {
			return "Full-Stack Web Development"
		}
		return ""
	})
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		e := memEnrollment(email, "fullstack-web")
		if i == 0 {
			e.ReferralCode = "STUDENT50"
			e.ReferralCodeValid = true
		}
		if i == 1 {
			e.ReferralCode = "BOGUS"
			e.ReferralCodeValid = false
		}
		require.NoError(t, repo.Create(ctx, e))
	}
	confirmed := memEnrollment("d@example.com", "data-science")
	confirmed.Status = models.EnrollmentStatusConfirmed
	require.NoError(t, repo.Create(ctx, confirmed))

	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	byStatus, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	require.Len(t, byStatus, 2)
	assert.Equal(t, "confirmed", byStatus[0].Status)
	assert.Equal(t, 1, byStatus[0].Count)
	assert.Equal(t, "pending", byStatus[1].Status)
	assert.Equal(t, 3, byStatus[1].Count)

	byProgram, err := repo.CountByProgram(ctx)
	require.NoError(t, err)
	require.Len(t, byProgram, 2)
	assert.Equal(t, "fullstack-web", byProgram[0].ProgramID)
	assert.Equal(t, "Full-Stack Web Development", byProgram[0].Title)
	assert.Equal(t, 3, byProgram[0].Count)

	// Invalid codes never show up in referral counts.
	byReferral, err := repo.CountByReferralCode(ctx)
	require.NoError(t, err)
	require.Len(t, byReferral, 1)
	assert.Equal(t, "STUDENT50", byReferral[0].ReferralCode)

	daily, err := repo.DailyCounts(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 4, daily[0].Count)
}

func TestMemoryRepositoryDailyCountsCutoff(t *testing.T) {
	repo := NewMemoryEnrollmentRepository(nil)
	ctx := context.Background()

	recent := memEnrollment("recent@example.com", "fullstack-web")
	require.NoError(t, repo.Create(ctx, recent))
	stale := memEnrollment("stale@example.com", "data-science")
	stale.CreatedAt = time.Now().UTC().AddDate(0, 0, -45)
	require.NoError(t, repo.Create(ctx, stale))

	daily, err := repo.DailyCounts(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 1, daily[0].Count)
}
