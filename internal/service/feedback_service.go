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
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/mailer"
)

const feedbackThanks = "Thank you for your valuable feedback!"

// FeedbackConfig names the inbox that receives portal feedback.
type FeedbackConfig struct {
	ToEmail string
	ToName  string
}

// FeedbackService forwards portal ratings to the feedback inbox.
type FeedbackService struct {
	mail      mailer.Mailer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       FeedbackConfig
	now       func() time.Time
}

// NewFeedbackService constructs the service. A nil mailer logs messages instead.
func NewFeedbackService(mail mailer.Mailer, cfg FeedbackConfig, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if mail == nil {
		mail = mailer.NewLogMailer(logger)
	}
	return &FeedbackService{mail: mail, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Submit validates the rating and mails the formatted feedback.
func (s *FeedbackService) Submit(ctx context.Context, userID string, payload dto.FeedbackPayload) (*dto.FeedbackResponse, error) {
	payload.Feedback = strings.TrimSpace(payload.Feedback)
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}

	id := uuid.NewString()
	msg := mailer.Message{
		ToEmail:   s.cfg.ToEmail,
		ToName:    s.cfg.ToName,
		Subject:   fmt.Sprintf("Mentorship portal feedback (%d/5)", payload.Rating),
		PlainText: formatFeedback(id, payload, s.now().UTC()),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Error("feedback delivery failed", zap.String("feedback_id", id), zap.String("user_id", userID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit feedback")
	}
	s.logger.Info("feedback received", zap.String("feedback_id", id), zap.Int("rating", payload.Rating))
	return &dto.FeedbackResponse{Success: true, Message: feedbackThanks, FeedbackID: id}, nil
}

func formatFeedback(id string, payload dto.FeedbackPayload, at time.Time) string {
	comments := payload.Feedback
	if comments == "" {
		comments = "No additional comments"
	}
	var b strings.Builder
	b.WriteString("Mentorship Portal Feedback\n")
	b.WriteString("==========================\n")
	fmt.Fprintf(&b, "Rating: %s (%d/5)\n", strings.Repeat("*", payload.Rating), payload.Rating)
	fmt.Fprintf(&b, "Message: %s\n", comments)
	fmt.Fprintf(&b, "Timestamp: %s\n", at.Format(time.RFC3339))
	fmt.Fprintf(&b, "Reference: %s\n", id)
	return b.String()
}
