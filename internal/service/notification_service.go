package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/realtime"
)

const unknownCounterpart = "Unknown"

type notificationRequestRepository interface {
	ListRequestsForMentee(ctx context.Context, menteeID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error)
	ListRequestsForMentor(ctx context.Context, mentorID string, filter models.RequestFilter) ([]models.MentorshipRequestView, error)
}

// eventNotifier is what lifecycle services use to push change events.
type eventNotifier interface {
	Notify(ctx context.Context, evt models.Event)
}

// NotificationService serves the pull feed and relays push events through a
// realtime broker.
type NotificationService struct {
	requests notificationRequestRepository
	broker   realtime.Broker
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(requests notificationRequestRepository, broker realtime.Broker, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{requests: requests, broker: broker, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Feed buckets the principal's requests by status. Mentees see requests they
// sent, mentors see requests addressed to them; other roles get an empty feed.
func (s *NotificationService) Feed(ctx context.Context, userID string, role models.UserRole) (*models.NotificationFeed, error) {
	feed := &models.NotificationFeed{
		Accepted: []models.NotificationItem{},
		Pending:  []models.NotificationItem{},
		Rejected: []models.NotificationItem{},
	}

	var (
		views []models.MentorshipRequestView
		err   error
	)
	switch role {
	case models.RoleMentee:
		views, err = s.requests.ListRequestsForMentee(ctx, userID, models.RequestFilter{})
	case models.RoleMentor:
		views, err = s.requests.ListRequestsForMentor(ctx, userID, models.RequestFilter{})
	default:
		return feed, nil
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notifications")
	}

	for _, view := range views {
		name := view.CounterpartName
		if name == "" {
			name = unknownCounterpart
		}
		item := models.NotificationItem{
			RequestID:         view.ID,
			Status:            view.Status,
			CounterpartName:   name,
			CounterpartAvatar: view.CounterpartAvatar,
			CreatedAt:         view.CreatedAt,
			UpdatedAt:         view.UpdatedAt,
		}
		if role == models.RoleMentee {
			item.CounterpartID = view.MentorID
			item.Message = fmt.Sprintf("Request to %s", name)
		} else {
			item.CounterpartID = view.MenteeID
			item.Message = fmt.Sprintf("Request from %s", name)
		}

		switch view.Status {
		case models.RequestStatusAccepted:
			feed.Accepted = append(feed.Accepted, item)
		case models.RequestStatusPending:
			feed.Pending = append(feed.Pending, item)
		case models.RequestStatusRejected:
			feed.Rejected = append(feed.Rejected, item)
		}
	}

	feed.Counts = models.NotificationCounts{
		Accepted: len(feed.Accepted),
		Pending:  len(feed.Pending),
		Rejected: len(feed.Rejected),
		Total:    len(feed.Accepted) + len(feed.Pending) + len(feed.Rejected),
	}
	return feed, nil
}

// Notify publishes evt to its recipient. Delivery is best effort; failures are
// logged and never surface to the caller.
func (s *NotificationService) Notify(ctx context.Context, evt models.Event) {
	if s == nil || s.broker == nil || evt.RecipientID == "" {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = s.now()
	}
	if err := s.broker.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish realtime event",
			zap.String("type", string(evt.Type)),
			zap.String("recipient_id", evt.RecipientID),
			zap.Error(err))
	}
}

// Subscribe opens a push subscription for the principal. The returned cancel
// function must be called when the client goes away.
func (s *NotificationService) Subscribe(userID string) (<-chan models.Event, func()) {
	sub := s.broker.Subscribe(userID)
	s.metrics.AddSubscribers(1)
	return sub.C, func() {
		sub.Close()
		s.metrics.AddSubscribers(-1)
	}
}

// Subscribers reports the number of open local subscriptions.
func (s *NotificationService) Subscribers() int {
	if s == nil || s.broker == nil {
		return 0
	}
	return s.broker.Subscribers()
}
