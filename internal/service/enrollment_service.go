package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/enginow/enginow-api/internal/models"
	"github.com/enginow/enginow-api/internal/repository"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
)

type enrollmentStore interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByEmailAndProgram(ctx context.Context, email, programID string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	Update(ctx context.Context, id string, patch models.EnrollmentPatch) error
	Delete(ctx context.Context, id string) error
}

type programReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// EnrollmentNotifier is told about accepted enrollments. Implementations
// must not block; delivery failures never fail the submission.
type EnrollmentNotifier interface {
	EnrollmentCreated(enrollment models.Enrollment, programTitle string)
}

// SubmitEnrollmentRequest is the application form payload. Anything that
// does not map cleanly onto it is rejected at the boundary.
type SubmitEnrollmentRequest struct {
	ProgramID      string `json:"programId" validate:"required"`
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Whatsapp       string `json:"whatsapp"`
	Linkedin       string `json:"linkedin"`
	City           string `json:"city" validate:"required"`
	State          string `json:"state" validate:"required"`
	Education      string `json:"education" validate:"required"`
	Experience     string `json:"experience" validate:"required"`
	Motivation     string `json:"motivation"`
	ReferralCode   string `json:"referralCode"`
	AgreeTerms     bool   `json:"agreeTerms"`
	AgreeMarketing bool   `json:"agreeMarketing"`
}

// Submission outcome labels for metrics.
const (
	submissionCreated          = "created"
	submissionDuplicate        = "duplicate"
	submissionValidationFailed = "validation_failed"
	submissionError            = "error"
)

// EnrollmentService orchestrates the enrollment workflow: referral
// validation, duplicate guarding, record building and persistence.
type EnrollmentService struct {
	store     enrollmentStore
	programs  programReader
	referrals *ReferralValidator
	notifier  EnrollmentNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// EnrollmentServiceParams groups constructor dependencies.
type EnrollmentServiceParams struct {
	Store     enrollmentStore
	Programs  programReader
	Referrals *ReferralValidator
	Notifier  EnrollmentNotifier
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return field.Name
		}
		return name
	})
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	referrals := params.Referrals
	if referrals == nil {
		referrals = NewReferralValidator(nil, 0)
	}
	return &EnrollmentService{
		store:     params.Store,
		programs:  params.Programs,
		referrals: referrals,
		notifier:  params.Notifier,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit runs the full enrollment workflow and returns the persisted record.
func (s *EnrollmentService) Submit(ctx context.Context, req SubmitEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordSubmission(submissionValidationFailed)
		return nil, validationError(err)
	}
	if !req.AgreeTerms {
		s.metrics.RecordSubmission(submissionValidationFailed)
		return nil, appErrors.Clone(appErrors.ErrValidation, "you must agree to the terms and conditions")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	referral := s.referrals.Validate(req.ReferralCode)

	// Application-level duplicate guard. The unique constraint below is the
	// authoritative one; this check exists to answer with a precise message
	// without relying on driver error parsing.
	if _, err := s.store.FindByEmailAndProgram(ctx, email, req.ProgramID); err == nil {
		s.metrics.RecordSubmission(submissionDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordSubmission(submissionError)
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	now := s.now()
	discount := 0
	if referral.Valid {
		discount = referral.DiscountPercent
	}
	enrollment := &models.Enrollment{
		ProgramID:         req.ProgramID,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Email:             email,
		Phone:             strings.TrimSpace(req.Phone),
		Whatsapp:          strings.TrimSpace(req.Whatsapp),
		Linkedin:          strings.TrimSpace(req.Linkedin),
		City:              strings.TrimSpace(req.City),
		State:             strings.TrimSpace(req.State),
		Education:         strings.TrimSpace(req.Education),
		Experience:        strings.TrimSpace(req.Experience),
		Motivation:        strings.TrimSpace(req.Motivation),
		ReferralCode:      s.referrals.Normalize(req.ReferralCode),
		ReferralCodeValid: referral.Valid,
		DiscountApplied:   discount,
		AgreeTerms:        req.AgreeTerms,
		AgreeMarketing:    req.AgreeMarketing,
		Status:            models.EnrollmentStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		EnrollmentDate:    now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost the check-then-insert race; answer as if the
			// application-level guard had caught it.
			s.metrics.RecordSubmission(submissionDuplicate)
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		}
		s.metrics.RecordSubmission(submissionError)
		s.logger.Error("enrollment create failed", zap.String("email", email), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	s.metrics.RecordSubmission(submissionCreated)
	s.invalidateDashboard(ctx)
	s.notifyCreated(ctx, *enrollment)
	return enrollment, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", filter.Status))
	}
	enrollments, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return enrollments, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a single enrollment by ID.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	return enrollment, nil
}

// Update applies a partial update restricted to the mutable fields.
func (s *EnrollmentService) Update(ctx context.Context, id string, patch models.EnrollmentPatch) (*models.Enrollment, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no mutable fields in patch")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", *patch.Status))
	}
	if patch.PaymentStatus != nil && !patch.PaymentStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid payment status %q", *patch.PaymentStatus))
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	s.invalidateDashboard(ctx)

	enrollment, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	return enrollment, nil
}

// Delete removes an enrollment permanently.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *EnrollmentService) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *EnrollmentService) notifyCreated(ctx context.Context, enrollment models.Enrollment) {
	if s.notifier == nil {
		return
	}
	title := enrollment.ProgramID
	if s.programs != nil {
		// Program references are plain strings, not enforced foreign keys;
		// the catalog lookup only prettifies the confirmation email.
		if program, err := s.programs.FindByID(ctx, enrollment.ProgramID); err == nil {
			title = program.Title
		}
	}
	s.notifier.EnrollmentCreated(enrollment, title)
}

// validationError converts validator failures into a client-facing error
// naming every offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	missing := make([]string, 0, len(verrs))
	var malformed []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		default:
			malformed = append(malformed, fe.Field())
		}
	}
	sort.Strings(missing)
	sort.Strings(malformed)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(malformed) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(malformed, ", "))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.Join(parts, "; "))
}
