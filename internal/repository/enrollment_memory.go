package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enginow/enginow-api/internal/dto"
	"github.com/enginow/enginow-api/internal/models"
)

// MemoryEnrollmentRepository is the fallback backend for environments
// without database connectivity. It honors the same contract and error
// taxonomy as EnrollmentRepository, including the uniqueness guard on
// (lower(email), program_id).
type MemoryEnrollmentRepository struct {
	mu      sync.RWMutex
	records map[string]models.Enrollment
	titles  func(programID string) string
}

// NewMemoryEnrollmentRepository constructs the in-memory backend. The title
// lookup enriches program aggregation rows and may be nil.
func NewMemoryEnrollmentRepository(titles func(programID string) string) *MemoryEnrollmentRepository {
	if titles == nil {
		titles = func(string) string { return "" }
	}
	return &MemoryEnrollmentRepository{
		records: make(map[string]models.Enrollment),
		titles:  titles,
	}
}

func duplicateKeyOf(email, programID string) string {
	return strings.ToLower(email) + "|" + programID
}

// Create stores a new enrollment, rejecting duplicates on the unique pair.
func (r *MemoryEnrollmentRepository) Create(_ context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := duplicateKeyOf(enrollment.Email, enrollment.ProgramID)
	for _, existing := range r.records {
		if duplicateKeyOf(existing.Email, existing.ProgramID) == key {
			return ErrDuplicateKey
		}
	}

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
	r.records[enrollment.ID] = *enrollment
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *MemoryEnrollmentRepository) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if record, ok := r.records[id]; ok {
		return &record, nil
	}
	return nil, sql.ErrNoRows
}

// FindByEmailAndProgram returns the enrollment matching the pair.
func (r *MemoryEnrollmentRepository) FindByEmailAndProgram(_ context.Context, email, programID string) (*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := duplicateKeyOf(email, programID)
	for _, record := range r.records {
		if duplicateKeyOf(record.Email, record.ProgramID) == key {
			match := record
			return &match, nil
		}
	}
	return nil, sql.ErrNoRows
}

// List returns enrollments filtered, newest first, plus the total count.
func (r *MemoryEnrollmentRepository) List(_ context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	r.mu.RLock()
	matched := make([]models.Enrollment, 0, len(r.records))
	for _, record := range r.records {
		if filter.Email != "" && !strings.EqualFold(record.Email, filter.Email) {
			continue
		}
		if filter.ProgramID != "" && record.ProgramID != filter.ProgramID {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		matched = append(matched, record)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []models.Enrollment{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Update applies the patch to the stored record.
func (r *MemoryEnrollmentRepository) Update(_ context.Context, id string, patch models.EnrollmentPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	if patch.Status != nil {
		record.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		record.PaymentStatus = *patch.PaymentStatus
	}
	record.UpdatedAt = time.Now().UTC()
	r.records[id] = record
	return nil
}

// Delete removes an enrollment by ID.
func (r *MemoryEnrollmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.records, id)
	return nil
}

// CountAll returns the total number of enrollments.
func (r *MemoryEnrollmentRepository) CountAll(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

// CountByStatus groups enrollments by lifecycle status.
func (r *MemoryEnrollmentRepository) CountByStatus(_ context.Context) ([]dto.StatusCount, error) {
	r.mu.RLock()
	byStatus := make(map[string]int)
	for _, record := range r.records {
		byStatus[string(record.Status)]++
	}
	r.mu.RUnlock()

	counts := make([]dto.StatusCount, 0, len(byStatus))
	for status, count := range byStatus {
		counts = append(counts, dto.StatusCount{Status: status, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

// CountByProgram groups enrollments by program.
func (r *MemoryEnrollmentRepository) CountByProgram(_ context.Context) ([]dto.ProgramCount, error) {
	r.mu.RLock()
	byProgram := make(map[string]int)
	for _, record := range r.records {
		byProgram[record.ProgramID]++
	}
	r.mu.RUnlock()

	counts := make([]dto.ProgramCount, 0, len(byProgram))
	for programID, count := range byProgram {
		counts = append(counts, dto.ProgramCount{ProgramID: programID, Title: r.titles(programID), Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ProgramID < counts[j].ProgramID
	})
	return counts, nil
}

// CountByReferralCode groups enrollments by recognised referral code.
func (r *MemoryEnrollmentRepository) CountByReferralCode(_ context.Context) ([]dto.ReferralCount, error) {
	r.mu.RLock()
	byCode := make(map[string]int)
	for _, record := range r.records {
		if record.ReferralCodeValid && record.ReferralCode != "" {
			byCode[record.ReferralCode]++
		}
	}
	r.mu.RUnlock()

	counts := make([]dto.ReferralCount, 0, len(byCode))
	for code, count := range byCode {
		counts = append(counts, dto.ReferralCount{ReferralCode: code, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ReferralCode < counts[j].ReferralCode
	})
	return counts, nil
}

// DailyCounts buckets enrollments created since the cutoff by calendar day.
func (r *MemoryEnrollmentRepository) DailyCounts(_ context.Context, since time.Time) ([]dto.DailyCount, error) {
	r.mu.RLock()
	byDay := make(map[time.Time]int)
	for _, record := range r.records {
		if record.CreatedAt.Before(since) {
			continue
		}
		day := record.CreatedAt.UTC().Truncate(24 * time.Hour)
		byDay[day]++
	}
	r.mu.RUnlock()

	counts := make([]dto.DailyCount, 0, len(byDay))
	for day, count := range byDay {
		counts = append(counts, dto.DailyCount{Day: day, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Day.Before(counts[j].Day) })
	return counts, nil
}
