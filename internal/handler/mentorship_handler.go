package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type mentorshipService interface {
	SubmitRequest(ctx context.Context, menteeID string, payload dto.SubmitRequestPayload) (*models.MentorshipRequest, error)
	AcceptRequest(ctx context.Context, requestID, mentorID string) (*models.MentorshipRequest, *models.ActiveMentorship, error)
	RejectRequest(ctx context.Context, requestID, mentorID string, payload dto.RejectRequestPayload) (*models.MentorshipRequest, error)
	EndMentorship(ctx context.Context, mentorshipID, actorID string, actorRole models.UserRole) (*models.ActiveMentorship, error)
	ListRequests(ctx context.Context, userID string, role models.UserRole, query dto.RequestListQuery) ([]models.MentorshipRequestView, error)
	ListConnections(ctx context.Context, userID string, role models.UserRole) ([]models.ActiveMentorshipView, error)
}

// MentorshipHandler exposes the request lifecycle and active mentorships.
type MentorshipHandler struct {
	service mentorshipService
}

// NewMentorshipHandler constructs the handler.
func NewMentorshipHandler(svc mentorshipService) *MentorshipHandler {
	return &MentorshipHandler{service: svc}
}

// Submit godoc
// @Summary Send a mentorship request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestPayload true "Request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [post]
func (h *MentorshipHandler) Submit(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.SubmitRequestPayload
	if !bindJSON(c, &payload, "invalid request payload") {
		return
	}
	req, err := h.service.SubmitRequest(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// List godoc
// @Summary List my requests
// @Description Mentees see requests they sent, mentors requests they received.
// @Tags Requests
// @Produce json
// @Param status query string false "pending, accepted or rejected"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *MentorshipHandler) List(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var query dto.RequestListQuery
	if !bindQuery(c, &query) {
		return
	}
	items, err := h.service.ListRequests(c.Request.Context(), claims.UserID, claims.Role, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Accept godoc
// @Summary Accept a pending request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/accept [post]
func (h *MentorshipHandler) Accept(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	req, mentorship, err := h.service.AcceptRequest(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.AcceptRequestResponse{Request: req, Mentorship: mentorship})
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectRequestPayload false "Optional message"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/reject [post]
func (h *MentorshipHandler) Reject(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.RejectRequestPayload
	if c.Request.ContentLength != 0 && !bindJSON(c, &payload, "invalid rejection payload") {
		return
	}
	req, err := h.service.RejectRequest(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req)
}

// Connections godoc
// @Summary List open mentorships
// @Description "My mentors" for mentees, "my mentees" for mentors.
// @Tags Mentorships
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /mentorships [get]
func (h *MentorshipHandler) Connections(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	items, err := h.service.ListConnections(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// End godoc
// @Summary End an open mentorship
// @Tags Mentorships
// @Produce json
// @Param id path string true "Mentorship ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /mentorships/{id}/end [post]
func (h *MentorshipHandler) End(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	mentorship, err := h.service.EndMentorship(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mentorship, nil)
}
