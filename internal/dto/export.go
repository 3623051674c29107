package dto

import "github.com/noah-isme/mentorship-api/internal/models"

// ExportRequest queues a roster export.
type ExportRequest struct {
	Type   models.ExportType   `json:"type" validate:"required,oneof=users requests mentorships"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportStatusResponse reports progress and, once finished, the signed
// download URL.
type ExportStatusResponse struct {
	*models.ExportJob
	DownloadURL string `json:"download_url,omitempty"`
}
