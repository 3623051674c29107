package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type queryRepository interface {
	Create(ctx context.Context, query *models.MenteeQuery) error
	FindByID(ctx context.Context, id string) (*models.MenteeQuery, error)
	FindByShareToken(ctx context.Context, token string) (*models.MenteeQueryView, error)
	ListForMentee(ctx context.Context, menteeID string) ([]models.MenteeQueryView, error)
	ListForMentor(ctx context.Context, mentorID string) ([]models.MenteeQueryView, error)
	SaveReply(ctx context.Context, id, mentorID, reply string, repliedAt time.Time) error
	RevokeShareToken(ctx context.Context, id, menteeID string, revokedAt time.Time) error
	RotateShareToken(ctx context.Context, id, menteeID string, expiresAt *time.Time) (string, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// QueryConfig controls share links.
type QueryConfig struct {
	PublicBaseURL string
	ShareTTL      time.Duration
	ExposeEmail   bool
}

// QueryService runs the structured query and reply channel, including the
// anonymous share-link view.
type QueryService struct {
	repo      queryRepository
	users     userFinder
	notifier  eventNotifier
	metrics   *MetricsService
	cfg       QueryConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewQueryService constructs a QueryService.
func NewQueryService(repo queryRepository, users userFinder, notifier eventNotifier, metrics *MetricsService, cfg QueryConfig, validate *validator.Validate, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &QueryService{
		repo:      repo,
		users:     users,
		notifier:  notifier,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit stores a query addressed to an active mentor and returns it with its
// share URL.
func (s *QueryService) Submit(ctx context.Context, menteeID string, payload dto.SubmitQueryPayload) (*models.MenteeQueryView, error) {
	trimQueryPayload(&payload)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	if payload.MentorID == menteeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot send a query to yourself")
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

	query := &models.MenteeQuery{
		MenteeID:           menteeID,
		MentorID:           payload.MentorID,
		FullName:           payload.FullName,
		CourseProgramYear:  payload.CourseProgramYear,
		UniversityName:     payload.UniversityName,
		Email:              strings.ToLower(payload.Email),
		MentorshipType:     payload.MentorshipType,
		DomainGuidance:     payload.DomainGuidance,
		QueryDescription:   payload.QueryDescription,
		ExpectedOutcome:    payload.ExpectedOutcome,
		MentorshipDuration: payload.MentorshipDuration,
		WhyThisMentor:      payload.WhyThisMentor,
		ShareExpiresAt:     s.shareExpiry(),
	}
	if err := s.repo.Create(ctx, query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit query")
	}
	s.metrics.RecordQueryEvent("created")

	if s.notifier != nil {
		s.notifier.Notify(ctx, models.Event{
			Type:        models.EventQueryCreated,
			RecipientID: query.MentorID,
			ResourceID:  query.ID,
			Message:     fmt.Sprintf("New query from %s", query.FullName),
		})
	}

	return &models.MenteeQueryView{
		MenteeQuery:     *query,
		CounterpartName: mentor.FullName,
		StatusLabel:     query.Status(),
		ShareURL:        s.shareURL(query.ShareToken),
	}, nil
}

// Reply overwrites the mentor's reply on a query addressed to them.
func (s *QueryService) Reply(ctx context.Context, queryID, mentorID string, payload dto.ReplyQueryPayload) (*models.MenteeQuery, error) {
	payload.Reply = strings.TrimSpace(payload.Reply)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("reply is required and must be at most %d characters", models.MaxReplyLength))
	}

	query, err := s.repo.FindByID(ctx, queryID)
	if err != nil {
		return nil, s.queryError(err, "failed to load query")
	}
	if query.MentorID != mentorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "query is not addressed to you")
	}

	repliedAt := s.now().UTC()
	if err := s.repo.SaveReply(ctx, queryID, mentorID, payload.Reply, repliedAt); err != nil {
		return nil, s.queryError(err, "failed to save reply")
	}
	query.MentorReply = &payload.Reply
	query.RepliedAt = &repliedAt
	query.UpdatedAt = repliedAt
	s.metrics.RecordQueryEvent("replied")

	if s.notifier != nil {
		mentorName := "Your mentor"
		if mentor, err := s.users.FindByID(ctx, mentorID); err == nil && strings.TrimSpace(mentor.FullName) != "" {
			mentorName = mentor.FullName
		}
		s.notifier.Notify(ctx, models.Event{
			Type:        models.EventQueryReplied,
			RecipientID: query.MenteeID,
			ResourceID:  query.ID,
			Message:     fmt.Sprintf("%s replied to your query", mentorName),
		})
	}
	return query, nil
}

// ViewByToken resolves a share token for anonymous readers. Malformed, unknown,
// revoked and expired tokens are indistinguishable.
func (s *QueryService) ViewByToken(ctx context.Context, token string) (*models.SharedQuery, error) {
	notFound := appErrors.Clone(appErrors.ErrNotFound, "query not found")
	if _, err := uuid.Parse(token); err != nil {
		return nil, notFound
	}
	view, err := s.repo.FindByShareToken(ctx, token)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load query")
	}
	if !view.ShareActive(s.now()) {
		return nil, notFound
	}
	s.metrics.RecordQueryEvent("viewed")

	shared := &models.SharedQuery{
		ID:                 view.ID,
		FullName:           view.FullName,
		CourseProgramYear:  view.CourseProgramYear,
		UniversityName:     view.UniversityName,
		MentorshipType:     view.MentorshipType,
		DomainGuidance:     view.DomainGuidance,
		QueryDescription:   view.QueryDescription,
		ExpectedOutcome:    view.ExpectedOutcome,
		MentorshipDuration: view.MentorshipDuration,
		WhyThisMentor:      view.WhyThisMentor,
		MentorName:         view.CounterpartName,
		MentorReply:        view.MentorReply,
		RepliedAt:          view.RepliedAt,
		Status:             view.Status(),
		CreatedAt:          view.CreatedAt,
	}
	if s.cfg.ExposeEmail {
		shared.Email = view.Email
	}
	return shared, nil
}

// RevokeShare stops the query's share link from resolving.
func (s *QueryService) RevokeShare(ctx context.Context, queryID, menteeID string) error {
	if err := s.repo.RevokeShareToken(ctx, queryID, menteeID, s.now().UTC()); err != nil {
		return s.queryError(err, "failed to revoke share link")
	}
	return nil
}

// RotateShare replaces the share token; the previous link stops resolving.
func (s *QueryService) RotateShare(ctx context.Context, queryID, menteeID string) (*dto.ShareLinkResponse, error) {
	expiresAt := s.shareExpiry()
	token, err := s.repo.RotateShareToken(ctx, queryID, menteeID, expiresAt)
	if err != nil {
		return nil, s.queryError(err, "failed to rotate share link")
	}
	resp := &dto.ShareLinkResponse{QueryID: queryID, ShareURL: s.shareURL(token)}
	if expiresAt != nil {
		formatted := expiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &formatted
	}
	return resp, nil
}

// List returns the principal's queries, newest first.
func (s *QueryService) List(ctx context.Context, userID string, role models.UserRole) ([]models.MenteeQueryView, error) {
	var (
		views []models.MenteeQueryView
		err   error
	)
	switch role {
	case models.RoleMentee:
		views, err = s.repo.ListForMentee(ctx, userID)
	case models.RoleMentor:
		views, err = s.repo.ListForMentor(ctx, userID)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "queries are only available to mentors and mentees")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queries")
	}

	now := s.now()
	for i := range views {
		views[i].StatusLabel = views[i].Status()
		if role == models.RoleMentee && views[i].ShareActive(now) {
			views[i].ShareURL = s.shareURL(views[i].ShareToken)
		}
		if role == models.RoleMentor {
			views[i].ShareToken = ""
		}
	}
	if views == nil {
		views = []models.MenteeQueryView{}
	}
	return views, nil
}

func (s *QueryService) shareURL(token string) string {
	return fmt.Sprintf("%s/query/%s", s.cfg.PublicBaseURL, token)
}

func (s *QueryService) shareExpiry() *time.Time {
	if s.cfg.ShareTTL <= 0 {
		return nil
	}
	expires := s.now().UTC().Add(s.cfg.ShareTTL)
	return &expires
}

func (s *QueryService) queryError(err error, message string) error {
	if repository.IsNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, "query not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func trimQueryPayload(p *dto.SubmitQueryPayload) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.CourseProgramYear = strings.TrimSpace(p.CourseProgramYear)
	p.UniversityName = strings.TrimSpace(p.UniversityName)
	p.Email = strings.TrimSpace(p.Email)
	p.DomainGuidance = strings.TrimSpace(p.DomainGuidance)
	p.QueryDescription = strings.TrimSpace(p.QueryDescription)
	p.ExpectedOutcome = strings.TrimSpace(p.ExpectedOutcome)
	p.WhyThisMentor = strings.TrimSpace(p.WhyThisMentor)
}
