package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type fakeDashboardSrv struct {
	cacheHit   bool
	chartQuery dto.ChartQuery
}

func (f *fakeDashboardSrv) Overview(context.Context) (*models.OverviewStats, bool, error) {
	return &models.OverviewStats{TotalMentors: 12, TotalMentees: 40, PendingRequests: 3}, f.cacheHit, nil
}

func (f *fakeDashboardSrv) MentorRoster(context.Context, dto.RosterQuery) ([]models.MentorListing, error) {
	return []models.MentorListing{}, nil
}

func (f *fakeDashboardSrv) MenteeRoster(context.Context, dto.RosterQuery) ([]models.MenteeListing, error) {
	return []models.MenteeListing{}, nil
}

func (f *fakeDashboardSrv) Mentor(_ context.Context, mentorID string, query dto.ChartQuery) (*models.MentorDashboard, bool, error) {
	f.chartQuery = query
	return &models.MentorDashboard{
		Capacity:      models.MentorCapacity{MentorID: mentorID, MaxMentees: 5, CurrentMentees: 2},
		ActiveMentees: 2,
	}, false, nil
}

func (f *fakeDashboardSrv) Mentee(_ context.Context, _ string, query dto.ChartQuery) (*models.MenteeDashboard, bool, error) {
	f.chartQuery = query
	return &models.MenteeDashboard{ActiveMentors: 1}, true, nil
}

func (f *fakeDashboardSrv) System() models.SystemMetrics {
	return models.SystemMetrics{RealtimeSubscribers: 4}
}

func TestDashboardOverviewReportsCacheHit(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{cacheHit: true})
	c, rec := testContext(http.MethodGet, "/dashboard/overview", nil, "dean-1", models.RoleDean)

	h.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(rec)
	assert.EqualValues(t, 12, envelope.Data["total_mentors"])
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestDashboardMineForMentor(t *testing.T) {
	srv := &fakeDashboardSrv{}
	h := NewDashboardHandler(srv)
	c, rec := testContext(http.MethodGet, "/dashboard/me?filter=month", nil, "mentor-1", models.RoleMentor)

	h.Mine(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "month", srv.chartQuery.Filter)
	envelope := decodeEnvelope(rec)
	assert.EqualValues(t, 2, envelope.Data["active_mentees"])
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestDashboardMineForMentee(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := testContext(http.MethodGet, "/dashboard/me", nil, "mentee-1", models.RoleMentee)

	h.Mine(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeEnvelope(rec).Data["active_mentors"])
}

func TestDashboardMineForbiddenForStaff(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := testContext(http.MethodGet, "/dashboard/me", nil, "hod-1", models.RoleHOD)

	h.Mine(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, decodeEnvelope(rec).Error.Code)
}

func TestDashboardSystem(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := testContext(http.MethodGet, "/dashboard/system", nil, "admin-1", models.RoleAdmin)

	h.System(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decodeEnvelope(rec).Data["realtime_subscribers"])
}
