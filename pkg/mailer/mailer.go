package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is a single plain/HTML email.
type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

// NewSendGridMailer constructs a SendGrid backed mailer.
func NewSendGridMailer(apiKey, fromAddr, fromName string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), fromName: fromName, fromAddr: fromAddr}
}

// Send delivers the message, treating any 4xx/5xx response as failure.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a mailer for environments without a mail provider.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email not sent, no provider configured",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.PlainText))
	return nil
}
