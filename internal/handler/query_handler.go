package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type queryService interface {
	Submit(ctx context.Context, menteeID string, payload dto.SubmitQueryPayload) (*models.MenteeQueryView, error)
	Reply(ctx context.Context, queryID, mentorID string, payload dto.ReplyQueryPayload) (*models.MenteeQuery, error)
	ViewByToken(ctx context.Context, token string) (*models.SharedQuery, error)
	RevokeShare(ctx context.Context, queryID, menteeID string) error
	RotateShare(ctx context.Context, queryID, menteeID string) (*dto.ShareLinkResponse, error)
	List(ctx context.Context, userID string, role models.UserRole) ([]models.MenteeQueryView, error)
}

// QueryHandler exposes the structured query and reply channel.
type QueryHandler struct {
	service queryService
}

// NewQueryHandler constructs the handler.
func NewQueryHandler(svc queryService) *QueryHandler {
	return &QueryHandler{service: svc}
}

// Submit godoc
// @Summary Send a query to a mentor
// @Description Returns the query with a share_url anyone holding the link can open.
// @Tags Queries
// @Accept json
// @Produce json
// @Param payload body dto.SubmitQueryPayload true "Query form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /queries [post]
func (h *QueryHandler) Submit(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.SubmitQueryPayload
	if !bindJSON(c, &payload, "invalid query payload") {
		return
	}
	query, err := h.service.Submit(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, query)
}

// List godoc
// @Summary List my queries
// @Tags Queries
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /queries [get]
func (h *QueryHandler) List(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Reply godoc
// @Summary Reply to a query
// @Description Replaces any earlier reply.
// @Tags Queries
// @Accept json
// @Produce json
// @Param id path string true "Query ID"
// @Param payload body dto.ReplyQueryPayload true "Reply"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /queries/{id}/reply [put]
func (h *QueryHandler) Reply(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.ReplyQueryPayload
	if !bindJSON(c, &payload, "invalid reply payload") {
		return
	}
	query, err := h.service.Reply(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, query)
}

// RotateShare godoc
// @Summary Issue a new share link
// @Description Invalidates the previous link.
// @Tags Queries
// @Produce json
// @Param id path string true "Query ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /queries/{id}/share [post]
func (h *QueryHandler) RotateShare(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	link, err := h.service.RotateShare(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// RevokeShare godoc
// @Summary Revoke the share link
// @Tags Queries
// @Param id path string true "Query ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /queries/{id}/share [delete]
func (h *QueryHandler) RevokeShare(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	if err := h.service.RevokeShare(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ViewShared godoc
// @Summary View a shared query
// @Description Anonymous. Unknown, revoked and expired links all answer 404.
// @Tags Queries
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shared/queries/{token} [get]
func (h *QueryHandler) ViewShared(c *gin.Context) {
	query, err := h.service.ViewByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, query)
}
