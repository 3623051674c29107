package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ChangeRole(ctx context.Context, id string, role models.UserRole) (models.UserRole, error)
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles admin account management.
type UserService struct {
	repo        userRepository
	mentorships openMentorshipCounter
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, mentorships openMentorshipCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, mentorships: mentorships, cache: cache, validator: validate, logger: logger}
}

// List returns paginated non-admin users and pagination metadata.
func (s *UserService) List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	query.Search = strings.TrimSpace(query.Search)
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user filter")
	}
	filter := query.Filter()
	filter.ExcludeAdmins = true

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds an account with any role, including staff roles.
func (s *UserService) Create(ctx context.Context, payload dto.CreateUserPayload, actorID string, meta models.AuditMeta) (*models.User, error) {
	payload.Email = normalizeEmail(payload.Email)
	payload.FullName = strings.TrimSpace(payload.FullName)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        payload.Email,
		FullName:     payload.FullName,
		Role:         payload.Role,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, actorID, models.AuditActionUserCreate, user.ID, meta, nil, map[string]interface{}{"email": user.Email, "role": user.Role})
	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)
	return user, nil
}

// ChangeRole moves a user to a different role. Users with open mentorships
// must end them first.
func (s *UserService) ChangeRole(ctx context.Context, id string, payload dto.ChangeRolePayload, actorID string, meta models.AuditMeta) (*models.User, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role")
	}
	if id == actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == payload.Role {
		return user, nil
	}

	open, err := s.mentorships.CountOpenForUser(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mentorships")
	}
	if open > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user has active mentorships; end them before changing role")
	}

	previous, err := s.repo.ChangeRole(ctx, id, payload.Role)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change role")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions after role change", zap.String("user_id", id), zap.Error(err))
	}

	s.audit(ctx, actorID, models.AuditActionRoleChange, id, meta,
		map[string]interface{}{"role": previous},
		map[string]interface{}{"role": payload.Role})
	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)

	user.Role = payload.Role
	return user, nil
}

// Delete removes a user. Their open mentorships end and pending requests
// involving them are rejected; historical requests and queries stay.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.AuditMeta) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.audit(ctx, actorID, models.AuditActionUserDelete, id, meta,
		map[string]interface{}{"email": user.Email, "role": user.Role}, nil)
	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, userID string, meta models.AuditMeta, oldValues, newValues map[string]interface{}) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	// Seeding and other system actions have no actor.
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}
