package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/service"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type exportService interface {
	Request(ctx context.Context, req dto.ExportRequest, actorID string) (*models.ExportJob, error)
	Status(ctx context.Context, id string) (*dto.ExportStatusResponse, error)
	Download(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler queues roster exports and serves finished files.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Queue a roster export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var req dto.ExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	job, err := h.service.Request(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download a finished export
// @Description The signed token is the credential; no session is needed.
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.service.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, nil)
}
