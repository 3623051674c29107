package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mentorshipRepository interface {
	CreateRequest(ctx context.Context, req *models.MentorshipRequest) error
	ListRequestsForMentee(ctx context.Context, menteeID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error)
	ListRequestsForMentor(ctx context.Context, mentorID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error)
	AcceptRequest(ctx context.Context, requestID, mentorID string) (*models.MentorshipRequest, *models.ActiveMentorship, error)
	RejectRequest(ctx context.Context, requestID, mentorID string, message *string) (*models.MentorshipRequest, error)
	EndMentorship(ctx context.Context, mentorshipID string) (*models.ActiveMentorship, error)
	FindMentorshipByID(ctx context.Context, id string) (*models.ActiveMentorship, error)
	HasOpenMentorship(ctx context.Context, menteeID, mentorID string) (bool, error)
	ListMentorsForMentee(ctx context.Context, menteeID string) ([]models.ActiveMentorshipView, error)
	ListMenteesForMentor(ctx context.Context, mentorID string) ([]models.ActiveMentorshipView, error)
}

type mentorProfileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.MentorProfile, error)
}

type principalReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// MentorshipService runs the request lifecycle: submit, accept, reject and
// ending an active mentorship.
type MentorshipService struct {
	repo      mentorshipRepository
	mentors   mentorProfileReader
	users     principalReader
	notifier  eventNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMentorshipService constructs a MentorshipService.
func NewMentorshipService(repo mentorshipRepository, mentors mentorProfileReader, users principalReader, notifier eventNotifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MentorshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MentorshipService{
		repo:      repo,
		mentors:   mentors,
		users:     users,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// SubmitRequest files a pending request from the mentee to a mentor who is
// available and has a free slot.
func (s *MentorshipService) SubmitRequest(ctx context.Context, menteeID string, payload dto.SubmitRequestPayload) (*models.MentorshipRequest, error) {
	payload.Introduction = strings.TrimSpace(payload.Introduction)
	payload.Goals = strings.TrimSpace(payload.Goals)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if payload.MentorID == menteeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot send a request to yourself")
	}

	mentor, err := s.users.FindByID(ctx, payload.MentorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	if mentor.Role != models.RoleMentor || !mentor.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
	}

	profile, err := s.mentors.FindByUserID(ctx, payload.MentorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor profile")
	}
	if !profile.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "mentor is not accepting requests")
	}
	if !profile.HasCapacity() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "mentor has no remaining capacity")
	}

	connected, err := s.repo.HasOpenMentorship(ctx, menteeID, payload.MentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing mentorship")
	}
	if connected {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already connected with this mentor")
	}

	req := &models.MentorshipRequest{
		MenteeID:     menteeID,
		MentorID:     payload.MentorID,
		Introduction: payload.Introduction,
		Goals:        payload.Goals,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.metrics.RecordRequestTransition(models.RequestStatusPending)
	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)
	s.notify(ctx, models.Event{
		Type:        models.EventRequestCreated,
		RecipientID: req.MentorID,
		ResourceID:  req.ID,
		Message:     fmt.Sprintf("%s has sent you a mentorship request", s.displayName(ctx, menteeID, "A student")),
	})
	return req, nil
}

// AcceptRequest accepts a pending request addressed to mentorID, opening the
// mentorship and taking one unit of capacity.
func (s *MentorshipService) AcceptRequest(ctx context.Context, requestID, mentorID string) (*models.MentorshipRequest, *models.ActiveMentorship, error) {
	req, mentorship, err := s.repo.AcceptRequest(ctx, requestID, mentorID)
	if err != nil {
		return nil, nil, mapTransitionError(err, "failed to accept request")
	}

	s.metrics.RecordRequestTransition(models.RequestStatusAccepted)
	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)
	s.audit(ctx, mentorID, models.AuditActionRequestAccept, "mentorship_requests", req.ID, map[string]interface{}{"status": req.Status, "mentorship_id": mentorship.ID})
	s.notify(ctx, models.Event{
		Type:        models.EventRequestAccepted,
		RecipientID: req.MenteeID,
		ResourceID:  req.ID,
		Message:     fmt.Sprintf("%s accepted your mentorship request", s.displayName(ctx, mentorID, "Your mentor")),
		Data:        map[string]string{"mentorship_id": mentorship.ID},
	})
	return req, mentorship, nil
}

// RejectRequest rejects a pending request with an optional message.
func (s *MentorshipService) RejectRequest(ctx context.Context, requestID, mentorID string, payload dto.RejectRequestPayload) (*models.MentorshipRequest, error) {
	if payload.Message != nil {
		trimmed := strings.TrimSpace(*payload.Message)
		if trimmed == "" {
			payload.Message = nil
		} else {
			payload.Message = &trimmed
		}
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	req, err := s.repo.RejectRequest(ctx, requestID, mentorID, payload.Message)
	if err != nil {
		return nil, mapTransitionError(err, "failed to reject request")
	}

	s.metrics.RecordRequestTransition(models.RequestStatusRejected)
	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)
	s.audit(ctx, mentorID, models.AuditActionRequestReject, "mentorship_requests", req.ID, map[string]interface{}{"status": req.Status})

	evt := models.Event{
		Type:        models.EventRequestRejected,
		RecipientID: req.MenteeID,
		ResourceID:  req.ID,
		Message:     fmt.Sprintf("%s declined your mentorship request", s.displayName(ctx, mentorID, "Your mentor")),
	}
	if req.RejectionMessage != nil {
		evt.Data = map[string]string{"rejection_message": *req.RejectionMessage}
	}
	s.notify(ctx, evt)
	return req, nil
}

// EndMentorship closes an open mentorship. Either participant or an admin may
// end it; the mentor's slot is released.
func (s *MentorshipService) EndMentorship(ctx context.Context, mentorshipID, actorID string, actorRole models.UserRole) (*models.ActiveMentorship, error) {
	current, err := s.repo.FindMentorshipByID(ctx, mentorshipID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship")
	}
	if actorRole != models.RoleAdmin && actorID != current.MentorID && actorID != current.MenteeID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship not found")
	}

	ended, err := s.repo.EndMentorship(ctx, mentorshipID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "mentorship has already ended")
		}
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end mentorship")
	}

	s.cache.Invalidate(ctx, cachePrefixDirectory, cachePrefixDashboard)
	s.audit(ctx, actorID, models.AuditActionMentorshipEnd, "active_mentorships", ended.ID, map[string]interface{}{"ended_at": ended.EndedAt})

	name := s.displayName(ctx, actorID, "Your counterpart")
	for _, recipient := range []string{ended.MentorID, ended.MenteeID} {
		if recipient == actorID {
			continue
		}
		s.notify(ctx, models.Event{
			Type:        models.EventMentorshipEnded,
			RecipientID: recipient,
			ResourceID:  ended.ID,
			Message:     fmt.Sprintf("%s ended your mentorship", name),
		})
	}
	return ended, nil
}

// ListRequests returns the caller's requests: sent ones for mentees, received
// ones for mentors.
func (s *MentorshipService) ListRequests(ctx context.Context, userID string, role models.UserRole, query dto.RequestListQuery) ([]models.MentorshipRequestView, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status filter")
	}
	var (
		views []models.MentorshipRequestView
		err   error
	)
	switch role {
	case models.RoleMentee:
		views, err = s.repo.ListRequestsForMentee(ctx, userID, query.Filter())
	case models.RoleMentor:
		views, err = s.repo.ListRequestsForMentor(ctx, userID, query.Filter())
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only mentees and mentors have requests")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if views == nil {
		views = []models.MentorshipRequestView{}
	}
	return views, nil
}

// ListConnections returns the caller's open mentorships with counterpart
// details: mentors for a mentee, mentees for a mentor.
func (s *MentorshipService) ListConnections(ctx context.Context, userID string, role models.UserRole) ([]models.ActiveMentorshipView, error) {
	var (
		views []models.ActiveMentorshipView
		err   error
	)
	switch role {
	case models.RoleMentee:
		views, err = s.repo.ListMentorsForMentee(ctx, userID)
	case models.RoleMentor:
		views, err = s.repo.ListMenteesForMentor(ctx, userID)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only mentees and mentors have mentorships")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorships")
	}
	if views == nil {
		views = []models.ActiveMentorshipView{}
	}
	return views, nil
}

func mapTransitionError(err error, message string) error {
	switch {
	case repository.IsNotFound(err):
		return appErrors.Clone(appErrors.ErrNotFound, "request not found")
	case errors.Is(err, repository.ErrInvalidTransition):
		return appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
	case errors.Is(err, repository.ErrNoCapacity):
		return appErrors.Clone(appErrors.ErrCapacityReached, "mentor has no remaining capacity")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "mentorship already active for this pair")
	case errors.Is(err, repository.ErrRoleMismatch):
		return appErrors.Clone(appErrors.ErrForbidden, "account is no longer registered as mentor")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *MentorshipService) displayName(ctx context.Context, userID, fallback string) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || strings.TrimSpace(user.FullName) == "" {
		return fallback
	}
	return user.FullName
}

func (s *MentorshipService) audit(ctx context.Context, actorID, action, resource, resourceID string, values map[string]interface{}) {
	payload, _ := json.Marshal(values)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *MentorshipService) notify(ctx context.Context, evt models.Event) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, evt)
	}
}
