package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, payload dto.CreateUserPayload, actorID string, meta models.AuditMeta) (*models.User, error)
	ChangeRole(ctx context.Context, id string, payload dto.ChangeRolePayload, actorID string, meta models.AuditMeta) (*models.User, error)
	Delete(ctx context.Context, id string, actorID string, meta models.AuditMeta) error
}

// UserHandler handles admin user management.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description Admin accounts are never listed.
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "mentee, mentor, hod or dean"
// @Param search query string false "Name or email"
// @Param sort_by query string false "full_name, email, role or created_at"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.UserListQuery
	if !bindQuery(c, &query) {
		return
	}
	users, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Description Admins read any account; other principals only their own.
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateUserPayload true "User"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.CreateUserPayload
	if !bindJSON(c, &payload, "invalid user payload") {
		return
	}
	user, err := h.service.Create(c.Request.Context(), payload, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// ChangeRole godoc
// @Summary Change a user's role
// @Description Refused while the user has open mentorships. Revokes their sessions.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.ChangeRolePayload true "Role"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.ChangeRolePayload
	if !bindJSON(c, &payload, "invalid role payload") {
		return
	}
	user, err := h.service.ChangeRole(c.Request.Context(), c.Param("id"), payload, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
