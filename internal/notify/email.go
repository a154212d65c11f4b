package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// EmailSender delivers one admin email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single-recipient email. Body is plain text and HTML is optional.
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	HTML     string
	Category string
}

// SendGridSender is the primary admin mailer.
type SendGridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	replyTo *mail.Email
	logger  *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	ReplyTo   string
}

// NewSendGridSender returns nil when no API key is set.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Text2toss"
	}
	s := &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
	if cfg.ReplyTo != "" {
		s.replyTo = mail.NewEmail("", cfg.ReplyTo)
	}
	return s
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	resp, err := s.client.SendWithContext(ctx, s.message(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}

// message builds the v3 payload. SendGrid requires an HTML part, so plain
// bodies are reused for it.
func (s *SendGridSender) message(msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, html)
	if s.replyTo != nil {
		m.SetReplyTo(s.replyTo)
	}
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	return m
}

// StubEmailSender is a no-op sender for testing or when email is disabled.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send logs the email but doesn't actually send it.
func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil
}

// FailoverEmailSender tries each sender in order until one succeeds.
type FailoverEmailSender struct {
	senders []EmailSender
	logger  *logging.Logger
}

// NewFailoverEmailSender skips nil senders; with none left it returns nil.
func NewFailoverEmailSender(logger *logging.Logger, senders ...EmailSender) *FailoverEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	var live []EmailSender
	for _, s := range senders {
		if s == nil || isNilSender(s) {
			continue
		}
		live = append(live, s)
	}
	if len(live) == 0 {
		return nil
	}
	return &FailoverEmailSender{senders: live, logger: logger}
}

func (f *FailoverEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	var lastErr error
	for i, s := range f.senders {
		if err := s.Send(ctx, msg); err != nil {
			lastErr = err
			f.logger.Warn("email sender failed", "index", i, "error", err)
			continue
		}
		return nil
	}
	return lastErr
}

// isNilSender catches typed nils returned by the constructors above.
func isNilSender(s EmailSender) bool {
	switch v := s.(type) {
	case *SendGridSender:
		return v == nil
	case *SESSender:
		return v == nil
	}
	return false
}
