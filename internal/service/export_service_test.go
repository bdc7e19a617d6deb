package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginow/enginow-api/internal/dto"
	"github.com/enginow/enginow-api/internal/models"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
	"github.com/enginow/enginow-api/pkg/jobs"
	"github.com/enginow/enginow-api/pkg/storage"
)

func newTestExportService(t *testing.T, store *mockEnrollmentStore, agg *fakeAggregator) *ExportService {
	t.Helper()
	localStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewExportService(ExportServiceParams{
		Enrollments: store,
		Aggregates:  agg,
		Storage:     localStore,
		Signer:      storage.NewSignedURLSigner("test-secret", time.Hour),
		QueueConfig: jobs.QueueConfig{Workers: 1},
	})
}

func seedStore(t *testing.T, store *mockEnrollmentStore, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		e := models.Enrollment{
			ID:              "enr-" + string(rune('a'+i)),
			ProgramID:       "fullstack-web",
			FirstName:       "Asha",
			LastName:        "Verma",
			Email:           "user" + string(rune('a'+i)) + "@example.com",
			Status:          models.EnrollmentStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			ReferralCode:    "STUDENT50",
			DiscountApplied: 10,
			EnrollmentDate:  time.Now().UTC(),
		}
		store.enrollments[e.ID] = e
	}
}

func TestExportRequestValidation(t *testing.T) {
	svc := newTestExportService(t, newMockEnrollmentStore(), &fakeAggregator{})

	_, err := svc.Request(context.Background(), ExportRequest{Type: "everything", Format: models.ExportFormatCSV})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Request(context.Background(), ExportRequest{Type: models.ExportTypeEnrollments, Format: "xlsx"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Request(context.Background(), ExportRequest{
		Type:   models.ExportTypeEnrollments,
		Format: models.ExportFormatCSV,
		Filter: models.ExportFilter{Status: "archived"},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportLifecycle(t *testing.T) {
	store := newMockEnrollmentStore()
	seedStore(t, store, 3)
	svc := newTestExportService(t, store, &fakeAggregator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Request(ctx, ExportRequest{Type: models.ExportTypeEnrollments, Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)

	require.Eventually(t, func() bool {
		current, err := svc.Get(ctx, job.ID)
		return err == nil && current.Status == models.ExportStatusFinished
	}, 5*time.Second, 20*time.Millisecond)

	finished, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, finished.DownloadURL)
	require.NotNil(t, finished.ExpiresAt)
	assert.Contains(t, *finished.DownloadURL, "/admin/exports/download?token=")
}

func awaitFinished(t *testing.T, svc *ExportService, id string) *models.ExportJob {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := svc.Get(context.Background(), id)
		return err == nil && job.Status == models.ExportStatusFinished
	}, 5*time.Second, 20*time.Millisecond)
	job, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestExportDownloadRoundTrip(t *testing.T) {
	store := newMockEnrollmentStore()
	seedStore(t, store, 2)
	svc := newTestExportService(t, store, &fakeAggregator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Request(ctx, ExportRequest{Type: models.ExportTypeEnrollments, Format: models.ExportFormatCSV})
	require.NoError(t, err)

	finished := awaitFinished(t, svc, job.ID)
	require.NotNil(t, finished.DownloadURL)

	token := strings.TrimPrefix(*finished.DownloadURL, "/admin/exports/download?token=")
	file, name, err := svc.OpenSigned(token)
	require.NoError(t, err)
	defer file.Close()
	assert.True(t, strings.HasSuffix(name, ".csv"))

	buf := make([]byte, 4096)
	n, _ := file.Read(buf)
	content := string(buf[:n])
	assert.Contains(t, content, "email")
	assert.Contains(t, content, "usera@example.com")
}

func TestExportSummaryDataset(t *testing.T) {
	agg := &fakeAggregator{
		total:      4,
		byStatus:   []dto.StatusCount{{Status: "pending", Count: 4}},
		byProgram:  []dto.ProgramCount{{ProgramID: "fullstack-web", Count: 4}},
		byReferral: []dto.ReferralCount{{ReferralCode: "STUDENT50", Count: 1}},
	}
	svc := newTestExportService(t, newMockEnrollmentStore(), agg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Request(ctx, ExportRequest{Type: models.ExportTypeSummary, Format: models.ExportFormatCSV})
	require.NoError(t, err)

	finished := awaitFinished(t, svc, job.ID)
	assert.Equal(t, models.ExportStatusFinished, finished.Status)
}

func TestExportTamperedTokenRejected(t *testing.T) {
	store := newMockEnrollmentStore()
	seedStore(t, store, 1)
	svc := newTestExportService(t, store, &fakeAggregator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Request(ctx, ExportRequest{Type: models.ExportTypeEnrollments, Format: models.ExportFormatCSV})
	require.NoError(t, err)

	finished := awaitFinished(t, svc, job.ID)
	token := strings.TrimPrefix(*finished.DownloadURL, "/admin/exports/download?token=")

	_, _, err = svc.OpenSigned(token + "x")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportUnknownJobNotFound(t *testing.T) {
	svc := newTestExportService(t, newMockEnrollmentStore(), &fakeAggregator{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
