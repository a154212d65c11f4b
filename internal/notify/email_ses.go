package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// sesAPI is the slice of the SES v2 client the sender needs.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender is the fallback admin mailer when SendGrid is down or unset.
type SESSender struct {
	client  sesAPI
	from    string
	replyTo string
	logger  *logging.Logger
}

// SESConfig holds the sender identity. FromEmail must be verified in SES.
type SESConfig struct {
	FromEmail string
	FromName  string
	ReplyTo   string
}

// NewSESSender returns nil without a client or a from address.
func NewSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil || strings.TrimSpace(cfg.FromEmail) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	name := cfg.FromName
	if name == "" {
		name = "Text2toss"
	}
	return &SESSender{
		client:  client,
		from:    (&mail.Address{Name: name, Address: cfg.FromEmail}).String(),
		replyTo: strings.TrimSpace(cfg.ReplyTo),
		logger:  logger,
	}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	in, err := s.input(msg)
	if err != nil {
		return err
	}
	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		s.logger.Error("ses send failed", "error", err, "to", msg.To, "subject", msg.Subject)
		return fmt.Errorf("notify: ses send: %w", err)
	}
	s.logger.Info("email sent via ses", "to", msg.To, "subject", msg.Subject, "message_id", aws.ToString(out.MessageId))
	return nil
}

func (s *SESSender) input(msg EmailMessage) (*sesv2.SendEmailInput, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, fmt.Errorf("notify: ses: recipient required")
	}
	if msg.Body == "" && msg.HTML == "" {
		return nil, fmt.Errorf("notify: ses: empty message to %s", msg.To)
	}
	to := msg.To
	if msg.ToName != "" {
		to = (&mail.Address{Name: msg.ToName, Address: msg.To}).String()
	}

	body := &types.Body{}
	if msg.Body != "" {
		body.Text = utf8Content(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = utf8Content(msg.HTML)
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(msg.Subject), Body: body},
		},
	}
	if s.replyTo != "" {
		in.ReplyToAddresses = []string{s.replyTo}
	}
	return in, nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

var _ EmailSender = (*SESSender)(nil)
