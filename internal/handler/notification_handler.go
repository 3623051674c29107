package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

const defaultHeartbeat = 25 * time.Second

type notificationService interface {
	Feed(ctx context.Context, userID string, role models.UserRole) (*models.NotificationFeed, error)
	Subscribe(userID string) (<-chan models.Event, func())
}

// NotificationHandler serves the pull feed and the server-sent event stream.
type NotificationHandler struct {
	service   notificationService
	heartbeat time.Duration
}

// NewNotificationHandler constructs the handler. Heartbeats keep idle
// connections open through proxies.
func NewNotificationHandler(svc notificationService, heartbeat time.Duration) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &NotificationHandler{service: svc, heartbeat: heartbeat}
}

// Feed godoc
// @Summary Notification buckets
// @Description Requests grouped into accepted, pending and rejected, newest first.
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) Feed(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	feed, err := h.service.Feed(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, feed)
}

// Stream godoc
// @Summary Live change events
// @Description Server-sent events addressed to the caller. EventSource clients may pass access_token as a query parameter. Delivery is best effort with no replay.
// @Tags Notifications
// @Produce text/event-stream
// @Param access_token query string false "Access token"
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	events, cancel := h.service.Subscribe(claims.UserID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.SSEvent("ready", gin.H{"user_id": claims.UserID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(string(evt.Type), evt)
			return true
		case at := <-ticker.C:
			// SSE comment line; EventSource clients ignore it.
			_, err := fmt.Fprintf(w, ": heartbeat %s\n\n", at.UTC().Format(time.RFC3339))
			return err == nil
		}
	})
}
