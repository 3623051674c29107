package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type fakeUserSrv struct {
	query      dto.UserListQuery
	lastMeta   models.AuditMeta
	deleted    string
	deleteErr  error
	changeRole *dto.ChangeRolePayload
}

func (f *fakeUserSrv) List(_ context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	f.query = query
	return []models.User{
		{ID: "u-1", FullName: "Ravi", Role: models.RoleMentee},
		{ID: "u-2", FullName: "Dr. Mehta", Role: models.RoleMentor},
	}, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: 42}, nil
}

func (f *fakeUserSrv) Get(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Create(_ context.Context, payload dto.CreateUserPayload, _ string, meta models.AuditMeta) (*models.User, error) {
	f.lastMeta = meta
	return &models.User{ID: "u-3", Email: payload.Email, FullName: payload.FullName, Role: payload.Role}, nil
}

func (f *fakeUserSrv) ChangeRole(_ context.Context, id string, payload dto.ChangeRolePayload, _ string, _ models.AuditMeta) (*models.User, error) {
	f.changeRole = &payload
	return &models.User{ID: id, Role: payload.Role}, nil
}

func (f *fakeUserSrv) Delete(_ context.Context, id string, _ string, _ models.AuditMeta) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = id
	return nil
}

func TestUserListReturnsPagination(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)
	c, rec := testContext(http.MethodGet, "/users?role=mentor&page=2&page_size=20", nil, "admin-1", models.RoleAdmin)

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mentor", srv.query.Role)
	envelope := decodeList(rec)
	assert.Len(t, envelope.Data, 2)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.Page)
	assert.Equal(t, 42, envelope.Pagination.TotalCount)
}

func TestUserCreateCapturesAuditMeta(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)
	c, rec := testContext(http.MethodPost, "/users", jsonBody(map[string]string{
		"email":     "hod.cs@uni.edu",
		"password":  "s3cret!",
		"full_name": "Prof. Rao",
		"role":      "hod",
	}), "admin-1", models.RoleAdmin)
	c.Request.Header.Set("User-Agent", "admin-console")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "admin-console", srv.lastMeta.UserAgent)
	assert.Equal(t, "hod", decodeEnvelope(rec).Data["role"])
}

func TestUserChangeRole(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)
	c, rec := testContext(http.MethodPut, "/users/u-1/role", jsonBody(map[string]string{"role": "mentor"}), "admin-1", models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "u-1"}}

	h.ChangeRole(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.changeRole)
	assert.Equal(t, models.RoleMentor, srv.changeRole.Role)
}

func TestUserDeleteSelfRejected(t *testing.T) {
	h := NewUserHandler(&fakeUserSrv{deleteErr: appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")})
	c, rec := testContext(http.MethodDelete, "/users/admin-1", nil, "admin-1", models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "admin-1"}}

	h.Delete(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
