package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]*models.User
	lastFilter models.UserFilter
	revoked    []string
	deleted    []string
	auditLogs  []*models.AuditLog
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	var users []models.User
	for _, u := range m.users {
		if filter.ExcludeAdmins && u.Role == models.RoleAdmin {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = "new-user"
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) ChangeRole(ctx context.Context, id string, role models.UserRole) (models.UserRole, error) {
	user, ok := m.users[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	previous := user.Role
	user.Role = role
	return previous, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

var testAuditMeta = models.AuditMeta{IP: "10.0.0.1", UserAgent: "go-test"}

func TestUserServiceListExcludesAdmins(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "a1", Email: "root@uni.edu", Role: models.RoleAdmin},
		&models.User{ID: "u1", Email: "ravi@uni.edu", Role: models.RoleMentee},
		&models.User{ID: "u2", Email: "hod@uni.edu", Role: models.RoleHOD},
	)
	svc := NewUserService(repo, fixedOpenCounter(0), nil, nil, nil)

	users, pagination, err := svc.List(context.Background(), dto.UserListQuery{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.True(t, repo.lastFilter.ExcludeAdmins)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), dto.UserListQuery{Role: "admin"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "ravi@uni.edu", Role: models.RoleMentee})
	svc := NewUserService(repo, fixedOpenCounter(0), nil, nil, nil)

	user, err := svc.Create(context.Background(), dto.CreateUserPayload{
		Email:    " Dean@Uni.edu ",
		Password: "secret123",
		FullName: "Dean Iyer",
		Role:     models.RoleDean,
	}, "admin-1", testAuditMeta)
	require.NoError(t, err)
	assert.Equal(t, "dean@uni.edu", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)

	_, err = svc.Create(context.Background(), dto.CreateUserPayload{
		Email:    "ravi@uni.edu",
		Password: "secret123",
		FullName: "Other Ravi",
		Role:     models.RoleMentee,
	}, "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceChangeRole(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "ravi@uni.edu", Role: models.RoleMentee})
	svc := NewUserService(repo, fixedOpenCounter(0), nil, nil, nil)

	user, err := svc.ChangeRole(context.Background(), "u1", dto.ChangeRolePayload{Role: models.RoleMentor}, "admin-1", testAuditMeta)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentor, user.Role)
	assert.Equal(t, []string{"u1"}, repo.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.JSONEq(t, `{"role":"mentee"}`, string(repo.auditLogs[0].OldValues))
	assert.JSONEq(t, `{"role":"mentor"}`, string(repo.auditLogs[0].NewValues))
}

func TestUserServiceChangeRoleGuards(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "rao@uni.edu", Role: models.RoleMentor})
	svc := NewUserService(repo, fixedOpenCounter(1), nil, nil, nil)

	_, err := svc.ChangeRole(context.Background(), "u1", dto.ChangeRolePayload{Role: models.RoleMentee}, "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.RoleMentor, repo.users["u1"].Role)

	_, err = svc.ChangeRole(context.Background(), "admin-1", dto.ChangeRolePayload{Role: models.RoleMentee}, "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.ChangeRole(context.Background(), "u1", dto.ChangeRolePayload{Role: "registrar"}, "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ChangeRole(context.Background(), "missing", dto.ChangeRolePayload{Role: models.RoleDean}, "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDelete(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "ravi@uni.edu", Role: models.RoleMentee})
	svc := NewUserService(repo, fixedOpenCounter(0), nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "u1", "admin-1", testAuditMeta))
	assert.Equal(t, []string{"u1"}, repo.deleted)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)

	err := svc.Delete(context.Background(), "u1", "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "admin-1", "admin-1", testAuditMeta)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
