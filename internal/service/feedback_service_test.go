package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/dto"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/mailer"
)

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestFeedbackSubmitMailsFormattedMessage(t *testing.T) {
	mail := &captureMailer{}
	svc := NewFeedbackService(mail, FeedbackConfig{ToEmail: "feedback@uni.edu"}, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }

	resp, err := svc.Submit(context.Background(), "mentee-1", dto.FeedbackPayload{Rating: 4, Feedback: "  Great matches  "})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.FeedbackID)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "feedback@uni.edu", mail.sent[0].ToEmail)
	assert.Contains(t, mail.sent[0].PlainText, "Rating: **** (4/5)")
	assert.Contains(t, mail.sent[0].PlainText, "Message: Great matches")
	assert.Contains(t, mail.sent[0].PlainText, "2026-04-01T10:00:00Z")
	assert.Contains(t, mail.sent[0].PlainText, resp.FeedbackID)
}

func TestFeedbackSubmitWithoutComments(t *testing.T) {
	mail := &captureMailer{}
	svc := NewFeedbackService(mail, FeedbackConfig{}, nil, nil)

	_, err := svc.Submit(context.Background(), "mentor-1", dto.FeedbackPayload{Rating: 5})
	require.NoError(t, err)
	assert.Contains(t, mail.sent[0].PlainText, "No additional comments")
}

func TestFeedbackSubmitRejectsRatingOutOfRange(t *testing.T) {
	mail := &captureMailer{}
	svc := NewFeedbackService(mail, FeedbackConfig{}, nil, nil)

	for _, rating := range []int{0, 6} {
		_, err := svc.Submit(context.Background(), "mentee-1", dto.FeedbackPayload{Rating: rating})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, mail.sent)
}

func TestFeedbackSubmitMailFailure(t *testing.T) {
	svc := NewFeedbackService(&captureMailer{err: errors.New("sendgrid error: status 401")}, FeedbackConfig{}, nil, nil)

	_, err := svc.Submit(context.Background(), "mentee-1", dto.FeedbackPayload{Rating: 3})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "failed to submit feedback", appErr.Message)
}

func TestFeedbackLogMailerFallback(t *testing.T) {
	svc := NewFeedbackService(nil, FeedbackConfig{}, nil, nil)

	resp, err := svc.Submit(context.Background(), "mentee-1", dto.FeedbackPayload{Rating: 2, Feedback: "slow replies"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}
