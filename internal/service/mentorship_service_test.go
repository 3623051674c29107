package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

const (
	testMenteeID = "5b1d2c4e-8a8f-4a51-9c4e-0d7c1f2a3b41"
	testMentorID = "9e0f5a7c-1b2d-4e3f-8a9b-c0d1e2f3a4b5"
)

type mockMentorshipRepo struct {
	created       []*models.MentorshipRequest
	createErr     error
	hasOpen       bool
	acceptErr     error
	rejectErr     error
	rejectMessage *string
	endErr        error
	mentorship    *models.ActiveMentorship
	menteeViews   []models.MentorshipRequestView
	mentorViews   []models.MentorshipRequestView
	lastFilter    models.RequestFilter
	connections   []models.ActiveMentorshipView
}

func (m *mockMentorshipRepo) CreateRequest(ctx context.Context, req *models.MentorshipRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	req.ID = "req-1"
	req.Status = models.RequestStatusPending
	m.created = append(m.created, req)
	return nil
}

func (m *mockMentorshipRepo) ListRequestsForMentee(ctx context.Context, menteeID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error) {
	m.lastFilter = filter
	return m.menteeViews, nil
}

func (m *mockMentorshipRepo) ListRequestsForMentor(ctx context.Context, mentorID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error) {
	m.lastFilter = filter
	return m.mentorViews, nil
}

func (m *mockMentorshipRepo) AcceptRequest(ctx context.Context, requestID, mentorID string) (*models.MentorshipRequest, *models.ActiveMentorship, error) {
	if m.acceptErr != nil {
		return nil, nil, m.acceptErr
	}
	req := &models.MentorshipRequest{ID: requestID, MenteeID: testMenteeID, MentorID: mentorID, Status: models.RequestStatusAccepted}
	return req, &models.ActiveMentorship{ID: "am-1", MentorID: mentorID, MenteeID: testMenteeID, RequestID: &req.ID, StartedAt: time.Now()}, nil
}

func (m *mockMentorshipRepo) RejectRequest(ctx context.Context, requestID, mentorID string, message *string) (*models.MentorshipRequest, error) {
	if m.rejectErr != nil {
		return nil, m.rejectErr
	}
	m.rejectMessage = message
	return &models.MentorshipRequest{ID: requestID, MenteeID: testMenteeID, MentorID: mentorID, Status: models.RequestStatusRejected, RejectionMessage: message}, nil
}

func (m *mockMentorshipRepo) EndMentorship(ctx context.Context, mentorshipID string) (*models.ActiveMentorship, error) {
	if m.endErr != nil {
		return nil, m.endErr
	}
	now := time.Now()
	ended := *m.mentorship
	ended.EndedAt = &now
	return &ended, nil
}

func (m *mockMentorshipRepo) FindMentorshipByID(ctx context.Context, id string) (*models.ActiveMentorship, error) {
	if m.mentorship == nil || m.mentorship.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.mentorship, nil
}

func (m *mockMentorshipRepo) HasOpenMentorship(ctx context.Context, menteeID, mentorID string) (bool, error) {
	return m.hasOpen, nil
}

func (m *mockMentorshipRepo) ListMentorsForMentee(ctx context.Context, menteeID string) ([]models.ActiveMentorshipView, error) {
	return m.connections, nil
}

func (m *mockMentorshipRepo) ListMenteesForMentor(ctx context.Context, mentorID string) ([]models.ActiveMentorshipView, error) {
	return m.connections, nil
}

type stubMentorProfiles struct {
	profiles map[string]*models.MentorProfile
}

func (s *stubMentorProfiles) FindByUserID(ctx context.Context, userID string) (*models.MentorProfile, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

type stubPrincipals struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func (s *stubPrincipals) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *stubPrincipals) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

type recordingNotifier struct {
	events []models.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, evt models.Event) {
	r.events = append(r.events, evt)
}

type mentorshipFixture struct {
	repo     *mockMentorshipRepo
	mentors  *stubMentorProfiles
	users    *stubPrincipals
	notifier *recordingNotifier
	svc      *MentorshipService
}

func newMentorshipFixture() *mentorshipFixture {
	f := &mentorshipFixture{
		repo: &mockMentorshipRepo{},
		mentors: &stubMentorProfiles{profiles: map[string]*models.MentorProfile{
			testMentorID: {UserID: testMentorID, IsAvailable: true, MaxMentees: 5, CurrentMentees: 2},
		}},
		users: &stubPrincipals{users: map[string]*models.User{
			testMenteeID: {ID: testMenteeID, FullName: "Ravi Kumar", Role: models.RoleMentee, Active: true},
			testMentorID: {ID: testMentorID, FullName: "Dr. Mehta", Role: models.RoleMentor, Active: true},
		}},
		notifier: &recordingNotifier{},
	}
	f.svc = NewMentorshipService(f.repo, f.mentors, f.users, f.notifier, nil, nil, nil, nil)
	return f
}

func validSubmitPayload() dto.SubmitRequestPayload {
	return dto.SubmitRequestPayload{MentorID: testMentorID, Introduction: "  Second year CSE student  ", Goals: "Learn distributed systems"}
}

func TestSubmitRequestCreatesPendingAndNotifiesMentor(t *testing.T) {
	f := newMentorshipFixture()

	req, err := f.svc.SubmitRequest(context.Background(), testMenteeID, validSubmitPayload())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, "Second year CSE student", req.Introduction)

	require.Len(t, f.notifier.events, 1)
	evt := f.notifier.events[0]
	assert.Equal(t, models.EventRequestCreated, evt.Type)
	assert.Equal(t, testMentorID, evt.RecipientID)
	assert.Equal(t, "Ravi Kumar has sent you a mentorship request", evt.Message)
}

func TestSubmitRequestValidation(t *testing.T) {
	f := newMentorshipFixture()

	payload := validSubmitPayload()
	payload.Introduction = "   "
	_, err := f.svc.SubmitRequest(context.Background(), testMenteeID, payload)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	payload = validSubmitPayload()
	payload.Goals = strings.Repeat("é", 501)
	_, err = f.svc.SubmitRequest(context.Background(), testMenteeID, payload)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	payload = validSubmitPayload()
	payload.Goals = strings.Repeat("é", 500)
	_, err = f.svc.SubmitRequest(context.Background(), testMenteeID, payload)
	assert.NoError(t, err)

	_, err = f.svc.SubmitRequest(context.Background(), testMentorID, validSubmitPayload())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitRequestMentorUnavailableOrFull(t *testing.T) {
	f := newMentorshipFixture()
	f.mentors.profiles[testMentorID].IsAvailable = false

	_, err := f.svc.SubmitRequest(context.Background(), testMenteeID, validSubmitPayload())
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	f.mentors.profiles[testMentorID].IsAvailable = true
	f.mentors.profiles[testMentorID].CurrentMentees = 5
	_, err = f.svc.SubmitRequest(context.Background(), testMenteeID, validSubmitPayload())
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.created)
}

func TestSubmitRequestTargetMustBeMentor(t *testing.T) {
	f := newMentorshipFixture()
	f.users.users[testMentorID].Role = models.RoleDean

	_, err := f.svc.SubmitRequest(context.Background(), testMenteeID, validSubmitPayload())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmitRequestDuplicatePending(t *testing.T) {
	f := newMentorshipFixture()
	f.repo.createErr = repository.ErrDuplicate

	_, err := f.svc.SubmitRequest(context.Background(), testMenteeID, validSubmitPayload())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "request already exists", appErr.Message)
	assert.Empty(t, f.notifier.events)
}

func TestSubmitRequestAlreadyConnected(t *testing.T) {
	f := newMentorshipFixture()
	f.repo.hasOpen = true

	_, err := f.svc.SubmitRequest(context.Background(), testMenteeID, validSubmitPayload())
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAcceptRequestNotifiesMentee(t *testing.T) {
	f := newMentorshipFixture()

	req, mentorship, err := f.svc.AcceptRequest(context.Background(), "req-1", testMentorID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, req.Status)
	assert.Equal(t, "req-1", *mentorship.RequestID)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, models.EventRequestAccepted, f.notifier.events[0].Type)
	assert.Equal(t, testMenteeID, f.notifier.events[0].RecipientID)
	assert.Equal(t, "am-1", f.notifier.events[0].Data["mentorship_id"])
	require.Len(t, f.users.auditLogs, 1)
	assert.Equal(t, models.AuditActionRequestAccept, f.users.auditLogs[0].Action)
}

func TestAcceptRequestErrorMapping(t *testing.T) {
	malformedID := fmt.Errorf("lock mentorship request: %w", &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})
	cases := map[error]string{
		repository.ErrInvalidTransition: appErrors.ErrInvalidState.Code,
		repository.ErrNoCapacity:        appErrors.ErrCapacityReached.Code,
		sql.ErrNoRows:                   appErrors.ErrNotFound.Code,
		repository.ErrDuplicate:         appErrors.ErrConflict.Code,
		repository.ErrRoleMismatch:      appErrors.ErrForbidden.Code,
		malformedID:                     appErrors.ErrNotFound.Code,
	}
	for repoErr, code := range cases {
		f := newMentorshipFixture()
		f.repo.acceptErr = repoErr

		_, _, err := f.svc.AcceptRequest(context.Background(), "req-1", testMentorID)
		assert.Equal(t, code, appErrors.FromError(err).Code, repoErr.Error())
		assert.Empty(t, f.notifier.events)
	}
}

func TestRejectRequestTrimsMessage(t *testing.T) {
	f := newMentorshipFixture()
	message := "  Not my area  "

	req, err := f.svc.RejectRequest(context.Background(), "req-1", testMentorID, dto.RejectRequestPayload{Message: &message})
	require.NoError(t, err)
	require.NotNil(t, req.RejectionMessage)
	assert.Equal(t, "Not my area", *req.RejectionMessage)
	assert.Equal(t, "Not my area", f.notifier.events[0].Data["rejection_message"])

	blank := "   "
	_, err = f.svc.RejectRequest(context.Background(), "req-2", testMentorID, dto.RejectRequestPayload{Message: &blank})
	require.NoError(t, err)
	assert.Nil(t, f.repo.rejectMessage)

	long := strings.Repeat("x", 1001)
	_, err = f.svc.RejectRequest(context.Background(), "req-3", testMentorID, dto.RejectRequestPayload{Message: &long})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRejectRequestAlreadyDecided(t *testing.T) {
	f := newMentorshipFixture()
	f.repo.rejectErr = repository.ErrInvalidTransition

	_, err := f.svc.RejectRequest(context.Background(), "req-1", testMentorID, dto.RejectRequestPayload{})
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestEndMentorshipByMenteeNotifiesMentor(t *testing.T) {
	f := newMentorshipFixture()
	f.repo.mentorship = &models.ActiveMentorship{ID: "am-1", MentorID: testMentorID, MenteeID: testMenteeID}

	ended, err := f.svc.EndMentorship(context.Background(), "am-1", testMenteeID, models.RoleMentee)
	require.NoError(t, err)
	assert.NotNil(t, ended.EndedAt)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, testMentorID, f.notifier.events[0].RecipientID)
	assert.Equal(t, "Ravi Kumar ended your mentorship", f.notifier.events[0].Message)
}

func TestEndMentorshipOutsiderAndAlreadyEnded(t *testing.T) {
	f := newMentorshipFixture()
	f.repo.mentorship = &models.ActiveMentorship{ID: "am-1", MentorID: testMentorID, MenteeID: testMenteeID}

	_, err := f.svc.EndMentorship(context.Background(), "am-1", "someone-else", models.RoleMentee)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	f.repo.endErr = repository.ErrInvalidTransition
	_, err = f.svc.EndMentorship(context.Background(), "am-1", "admin-1", models.RoleAdmin)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestListRequestsByRole(t *testing.T) {
	f := newMentorshipFixture()
	f.repo.mentorViews = []models.MentorshipRequestView{requestView("r1", testMenteeID, testMentorID, models.RequestStatusPending, "Ravi")}

	views, err := f.svc.ListRequests(context.Background(), testMentorID, models.RoleMentor, dto.RequestListQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, views, 1)
	require.NotNil(t, f.repo.lastFilter.Status)
	assert.Equal(t, models.RequestStatusPending, *f.repo.lastFilter.Status)

	views, err = f.svc.ListRequests(context.Background(), testMenteeID, models.RoleMentee, dto.RequestListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)

	_, err = f.svc.ListRequests(context.Background(), "hod-1", models.RoleHOD, dto.RequestListQuery{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.svc.ListRequests(context.Background(), testMentorID, models.RoleMentor, dto.RequestListQuery{Status: "archived"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
