package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type directoryService interface {
	ListMentors(ctx context.Context, viewerID string, viewerRole models.UserRole, query dto.MentorDirectoryQuery) ([]models.MentorDirectoryEntry, error)
	GetMentor(ctx context.Context, viewerID string, viewerRole models.UserRole, mentorID string) (*models.MentorDirectoryEntry, error)
}

// DirectoryHandler serves the mentor directory.
type DirectoryHandler struct {
	service directoryService
}

// NewDirectoryHandler constructs the handler.
func NewDirectoryHandler(svc directoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// List godoc
// @Summary Browse mentors
// @Tags Directory
// @Produce json
// @Param search query string false "Name, expertise or guidance area"
// @Param mentor_type query string false "senior, alumni or faculty"
// @Param available_only query bool false "Only mentors accepting requests"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /mentors [get]
func (h *DirectoryHandler) List(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var query dto.MentorDirectoryQuery
	if !bindQuery(c, &query) {
		return
	}
	mentors, err := h.service.ListMentors(c.Request.Context(), claims.UserID, claims.Role, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mentors)
}

// Get godoc
// @Summary Mentor detail
// @Tags Directory
// @Produce json
// @Param id path string true "Mentor user ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /mentors/{id} [get]
func (h *DirectoryHandler) Get(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	mentor, err := h.service.GetMentor(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mentor)
}
