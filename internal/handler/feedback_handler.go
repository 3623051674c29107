package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type feedbackService interface {
	Submit(ctx context.Context, userID string, payload dto.FeedbackPayload) (*dto.FeedbackResponse, error)
}

// FeedbackHandler accepts portal feedback.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(svc feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: svc}
}

// Submit godoc
// @Summary Send feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body dto.FeedbackPayload true "Rating and comments"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var payload dto.FeedbackPayload
	if !bindJSON(c, &payload, "rating must be between 1 and 5") {
		return
	}
	res, err := h.service.Submit(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
