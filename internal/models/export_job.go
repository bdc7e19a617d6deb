package models

import "time"

// ExportType enumerates supported asynchronous export categories.
type ExportType string

const (
	ExportTypeEnrollments ExportType = "enrollments"
	ExportTypeSummary     ExportType = "summary"
)

// Valid reports whether the export type is known.
func (t ExportType) Valid() bool {
	return t == ExportTypeEnrollments || t == ExportTypeSummary
}

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the export format is known.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusFinished   ExportStatus = "finished"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJob tracks one background export request. Jobs are process-local:
// the queue that renders them lives in the same process, so their state dies
// with it.
type ExportJob struct {
	ID           string       `json:"id"`
	Type         ExportType   `json:"type"`
	Format       ExportFormat `json:"format"`
	Filter       ExportFilter `json:"filter"`
	Status       ExportStatus `json:"status"`
	FilePath     string       `json:"-"`
	DownloadURL  *string      `json:"downloadUrl,omitempty"`
	ExpiresAt    *time.Time   `json:"expiresAt,omitempty"`
	ErrorMessage *string      `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}

// ExportFilter narrows the exported record set.
type ExportFilter struct {
	ProgramID string           `json:"programId,omitempty"`
	Status    EnrollmentStatus `json:"status,omitempty"`
}
