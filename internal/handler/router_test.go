package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

// headerAuth trusts an "id:role" X-Test-Principal header.
func headerAuth(c *gin.Context) {
	raw := c.GetHeader("X-Test-Principal")
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: parts[0], Role: models.UserRole(parts[1])})
	c.Next()
}

type routerFixture struct {
	engine  *gin.Engine
	audited []string
}

func newRouterFixture() *routerFixture {
	gin.SetMode(gin.TestMode)
	fx := &routerFixture{engine: gin.New()}
	h := Handlers{
		Auth:          NewAuthHandler(nil),
		Mentorships:   NewMentorshipHandler(&fakeMentorshipSrv{}),
		Profiles:      NewProfileHandler(&fakeProfileSrv{}, &fakeCapacitySrv{}),
		Directory:     NewDirectoryHandler(nil),
		Queries:       NewQueryHandler(&fakeQuerySrv{shared: map[string]*models.SharedQuery{"tok-1": {ID: "q-1"}}}),
		Notifications: NewNotificationHandler(&fakeNotificationSrv{}, 0),
		Dashboard:     NewDashboardHandler(&fakeDashboardSrv{}),
		Users:         NewUserHandler(&fakeUserSrv{}),
		Exports:       NewExportHandler(&fakeExportSrv{}),
		Feedback:      NewFeedbackHandler(&fakeFeedbackSrv{}),
	}
	g := Guards{
		Authenticate:       headerAuth,
		AuthenticateStream: headerAuth,
		Audit: func(action, _ string) gin.HandlerFunc {
			return func(c *gin.Context) {
				fx.audited = append(fx.audited, action)
				c.Next()
			}
		},
	}
	RegisterRoutes(fx.engine.Group("/api/v1"), h, g)
	return fx
}

func (fx *routerFixture) do(method, path, principal string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if principal != "" {
		req.Header.Set("X-Test-Principal", principal)
	}
	rec := httptest.NewRecorder()
	fx.engine.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRoleGates(t *testing.T) {
	fx := newRouterFixture()
	submit := map[string]string{"mentor_id": "8a3c2f3e-0d5b-4a51-9b0e-3f0e2b7c9d11", "introduction": "hi", "goals": "grow"}

	cases := []struct {
		name      string
		method    string
		path      string
		principal string
		body      interface{}
		want      int
	}{
		{"anonymous request submit", http.MethodPost, "/api/v1/requests", "", submit, http.StatusUnauthorized},
		{"mentor cannot submit", http.MethodPost, "/api/v1/requests", "mentor-1:mentor", submit, http.StatusForbidden},
		{"mentee submits", http.MethodPost, "/api/v1/requests", "mentee-1:mentee", submit, http.StatusCreated},
		{"mentee cannot accept", http.MethodPost, "/api/v1/requests/req-1/accept", "mentee-1:mentee", nil, http.StatusForbidden},
		{"mentor accepts", http.MethodPost, "/api/v1/requests/req-1/accept", "mentor-1:mentor", nil, http.StatusOK},
		{"shared query is public", http.MethodGet, "/api/v1/shared/queries/tok-1", "", nil, http.StatusOK},
		{"hod cannot manage users", http.MethodGet, "/api/v1/users", "hod-1:hod", nil, http.StatusForbidden},
		{"admin lists users", http.MethodGet, "/api/v1/users", "admin-1:admin", nil, http.StatusOK},
		{"mentee reads own account", http.MethodGet, "/api/v1/users/mentee-1", "mentee-1:mentee", nil, http.StatusOK},
		{"mentee cannot read other accounts", http.MethodGet, "/api/v1/users/mentor-1", "mentee-1:mentee", nil, http.StatusForbidden},
		{"mentee cannot change roles", http.MethodPut, "/api/v1/users/mentee-1/role", "mentee-1:mentee", map[string]string{"role": "mentor"}, http.StatusForbidden},
		{"mentee cannot see overview", http.MethodGet, "/api/v1/dashboard/overview", "mentee-1:mentee", nil, http.StatusForbidden},
		{"dean sees overview", http.MethodGet, "/api/v1/dashboard/overview", "dean-1:dean", nil, http.StatusOK},
		{"staff has no personal dashboard", http.MethodGet, "/api/v1/dashboard/me", "dean-1:dean", nil, http.StatusForbidden},
		{"mentor cannot export", http.MethodPost, "/api/v1/exports", "mentor-1:mentor", map[string]string{"type": "users", "format": "csv"}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := fx.do(tc.method, tc.path, tc.principal, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutesAuditMutations(t *testing.T) {
	fx := newRouterFixture()

	rec := fx.do(http.MethodPut, "/api/v1/profile/mentor/capacity", "mentor-1:mentor", map[string]int{"max_mentees": 6})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(http.MethodPost, "/api/v1/exports", "hod-1:hod", map[string]string{"type": "requests", "format": "pdf"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, []string{models.AuditActionCapacityChange, models.AuditActionExportRequest}, fx.audited)
}

func TestRoutesUnknownPath(t *testing.T) {
	fx := newRouterFixture()

	rec := fx.do(http.MethodGet, "/api/v1/cohorts", "admin-1:admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
