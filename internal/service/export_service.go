package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enginow/enginow-api/internal/models"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
	"github.com/enginow/enginow-api/pkg/export"
	"github.com/enginow/enginow-api/pkg/jobs"
	"github.com/enginow/enginow-api/pkg/storage"
)

const jobTypeExport = "admin_export"

const exportPageSize = 100

// ExportRequest describes an admin export.
type ExportRequest struct {
	Type   models.ExportType   `json:"type"`
	Format models.ExportFormat `json:"format"`
	Filter models.ExportFilter `json:"filter"`
}

// ExportService renders admin exports in the background and hands out signed
// download URLs. Job state is process-local: the queue that renders jobs
// lives in the same process, so a restart simply forgets unfinished jobs.
type ExportService struct {
	enrollments  exportLister
	aggregates   enrollmentAggregator
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	store        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	queue        *jobs.Queue
	logger       *zap.Logger
	cleanupEvery time.Duration
	fileTTL      time.Duration

	mu   sync.RWMutex
	jobs map[string]models.ExportJob
}

type exportLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Enrollments  exportLister
	Aggregates   enrollmentAggregator
	Storage      *storage.LocalStorage
	Signer       *storage.SignedURLSigner
	QueueConfig  jobs.QueueConfig
	Logger       *zap.Logger
	CleanupEvery time.Duration
	FileTTL      time.Duration
}

// NewExportService constructs the service and its rendering queue.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cleanupEvery := params.CleanupEvery
	if cleanupEvery <= 0 {
		cleanupEvery = time.Hour
	}
	fileTTL := params.FileTTL
	if fileTTL <= 0 {
		fileTTL = 24 * time.Hour
	}
	s := &ExportService{
		enrollments:  params.Enrollments,
		aggregates:   params.Aggregates,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		store:        params.Storage,
		signer:       params.Signer,
		logger:       logger,
		cleanupEvery: cleanupEvery,
		fileTTL:      fileTTL,
		jobs:         make(map[string]models.ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.handle, params.QueueConfig)
	return s
}

// Start begins queue consumption and the cleanup sweep.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop waits for in-flight renders.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Request validates and queues an export.
func (s *ExportService) Request(_ context.Context, req ExportRequest) (*models.ExportJob, error) {
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid export type %q", req.Type))
	}
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid export format %q", req.Format))
	}
	if req.Filter.Status != "" && !req.Filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", req.Filter.Status))
	}

	job := models.ExportJob{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Format:    req.Format,
		Filter:    req.Filter,
		Status:    models.ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: jobTypeExport}); err != nil {
		s.failJob(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export queue unavailable")
	}
	return &job, nil
}

// Get returns export job state.
func (s *ExportService) Get(_ context.Context, id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if job, ok := s.jobs[id]; ok {
		return &job, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
}

// OpenSigned validates a download token and opens the referenced file.
func (s *ExportService) OpenSigned(token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		s.logger.Warn("signed download missing file", zap.String("job_id", jobID), zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, relPath, nil
}

func (s *ExportService) handle(ctx context.Context, job jobs.Job) error {
	s.transition(job.ID, models.ExportStatusProcessing, nil)

	s.mu.RLock()
	record, ok := s.jobs[job.ID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	dataset, title, err := s.buildDataset(ctx, record)
	if err != nil {
		s.failJob(job.ID, err)
		return err
	}

	var payload []byte
	switch record.Format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.failJob(job.ID, err)
		return err
	}

	filename := fmt.Sprintf("%s-%s.%s", record.Type, record.ID, record.Format)
	if _, err := s.store.Save(filename, payload); err != nil {
		s.failJob(job.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(record.ID, filename)
	if err != nil {
		s.failJob(job.ID, err)
		return err
	}
	url := "/admin/exports/download?token=" + token

	s.mu.Lock()
	record = s.jobs[job.ID]
	now := time.Now().UTC()
	record.Status = models.ExportStatusFinished
	record.FilePath = filename
	record.DownloadURL = &url
	record.ExpiresAt = &expiresAt
	record.FinishedAt = &now
	s.jobs[job.ID] = record
	s.mu.Unlock()

	s.logger.Info("export finished",
		zap.String("job_id", record.ID),
		zap.String("type", string(record.Type)),
		zap.String("format", string(record.Format)),
	)
	return nil
}

func (s *ExportService) buildDataset(ctx context.Context, job models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeSummary:
		return s.summaryDataset(ctx)
	default:
		return s.enrollmentDataset(ctx, job.Filter)
	}
}

func (s *ExportService) enrollmentDataset(ctx context.Context, filter models.ExportFilter) (export.Dataset, string, error) {
	dataset := export.Dataset{Headers: []string{
		"id", "program", "first_name", "last_name", "email", "phone", "city", "state",
		"referral_code", "discount", "status", "payment_status", "enrolled_at",
	}}

	page := 1
	for {
		records, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{
			ProgramID: filter.ProgramID,
			Status:    filter.Status,
			Page:      page,
			Limit:     exportPageSize,
		})
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, e := range records {
			dataset.Append(map[string]string{
				"id":             e.ID,
				"program":        e.ProgramID,
				"first_name":     e.FirstName,
				"last_name":      e.LastName,
				"email":          e.Email,
				"phone":          e.Phone,
				"city":           e.City,
				"state":          e.State,
				"referral_code":  e.ReferralCode,
				"discount":       strconv.Itoa(e.DiscountApplied),
				"status":         string(e.Status),
				"payment_status": string(e.PaymentStatus),
				"enrolled_at":    e.EnrollmentDate.Format(time.RFC3339),
			})
		}
		if len(records) < exportPageSize {
			break
		}
		page++
	}
	return dataset, "Enrollments", nil
}

func (s *ExportService) summaryDataset(ctx context.Context) (export.Dataset, string, error) {
	dataset := export.Dataset{Headers: []string{"metric", "value", "count"}}

	total, err := s.aggregates.CountAll(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset.Append(map[string]string{"metric": "total", "value": "", "count": strconv.Itoa(total)})

	byStatus, err := s.aggregates.CountByStatus(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	for _, row := range byStatus {
		dataset.Append(map[string]string{"metric": "status", "value": row.Status, "count": strconv.Itoa(row.Count)})
	}

	byProgram, err := s.aggregates.CountByProgram(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	for _, row := range byProgram {
		dataset.Append(map[string]string{"metric": "program", "value": row.ProgramID, "count": strconv.Itoa(row.Count)})
	}

	byReferral, err := s.aggregates.CountByReferralCode(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	for _, row := range byReferral {
		dataset.Append(map[string]string{"metric": "referral_code", "value": row.ReferralCode, "count": strconv.Itoa(row.Count)})
	}

	return dataset, "Enrollment Summary", nil
}

func (s *ExportService) transition(id string, status models.ExportStatus, errMsg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.ErrorMessage = errMsg
	s.jobs[id] = job
}

func (s *ExportService) failJob(id string, err error) {
	msg := err.Error()
	s.transition(id, models.ExportStatusFailed, &msg)
	s.logger.Error("export failed", zap.String("job_id", id), zap.Error(err))
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.fileTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("export cleanup", zap.Int("deleted", len(deleted)))
			}
			s.pruneJobs()
		}
	}
}

func (s *ExportService) pruneJobs() {
	cutoff := time.Now().UTC().Add(-s.fileTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
