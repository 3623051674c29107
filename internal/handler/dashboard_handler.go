package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context) (*models.OverviewStats, bool, error)
	MentorRoster(ctx context.Context, query dto.RosterQuery) ([]models.MentorListing, error)
	MenteeRoster(ctx context.Context, query dto.RosterQuery) ([]models.MenteeListing, error)
	Mentor(ctx context.Context, mentorID string, query dto.ChartQuery) (*models.MentorDashboard, bool, error)
	Mentee(ctx context.Context, menteeID string, query dto.ChartQuery) (*models.MenteeDashboard, bool, error)
	System() models.SystemMetrics
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview godoc
// @Summary Staff overview counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	stats, cacheHit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, stats, cacheHit)
}

// Mentors godoc
// @Summary Mentor roster
// @Tags Dashboard
// @Produce json
// @Param search query string false "Name or email"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/mentors [get]
func (h *DashboardHandler) Mentors(c *gin.Context) {
	var query dto.RosterQuery
	if !bindQuery(c, &query) {
		return
	}
	roster, err := h.service.MentorRoster(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

// Mentees godoc
// @Summary Mentee roster
// @Tags Dashboard
// @Produce json
// @Param search query string false "Name or email"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/mentees [get]
func (h *DashboardHandler) Mentees(c *gin.Context) {
	var query dto.RosterQuery
	if !bindQuery(c, &query) {
		return
	}
	roster, err := h.service.MenteeRoster(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

// Mine godoc
// @Summary My dashboard
// @Description Mentors get request activity per bucket, mentees the cumulative number of mentors.
// @Tags Dashboard
// @Produce json
// @Param filter query string false "day (7 points), month (6) or year (3)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/me [get]
func (h *DashboardHandler) Mine(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var query dto.ChartQuery
	if !bindQuery(c, &query) {
		return
	}
	switch claims.Role {
	case models.RoleMentor:
		dash, hit, err := h.service.Mentor(c.Request.Context(), claims.UserID, query)
		if err != nil {
			response.Error(c, err)
			return
		}
		respondCached(c, dash, hit)
	case models.RoleMentee:
		dash, hit, err := h.service.Mentee(c.Request.Context(), claims.UserID, query)
		if err != nil {
			response.Error(c, err)
			return
		}
		respondCached(c, dash, hit)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "personal dashboards are for mentors and mentees"))
	}
}

// System godoc
// @Summary Process metrics snapshot
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/system [get]
func (h *DashboardHandler) System(c *gin.Context) {
	response.OK(c, h.service.System())
}

func respondCached(c *gin.Context, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, data, nil, middleware.FinalizeMeta(c))
}
