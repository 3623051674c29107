package models

import "time"

// ExportType enumerates the rosters that can be exported.
type ExportType string

const (
	ExportTypeUsers       ExportType = "users"
	ExportTypeRequests    ExportType = "requests"
	ExportTypeMentorships ExportType = "mentorships"
)

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob is persisted metadata for an asynchronous export.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	Type         ExportType   `db:"type" json:"type"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	FilePath     *string      `db:"file_path" json:"-"`
	ResultURL    *string      `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string       `db:"created_by" json:"created_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
