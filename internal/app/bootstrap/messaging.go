package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/text2toss/junk-removal-api/internal/config"
	"github.com/text2toss/junk-removal-api/internal/messaging"
	"github.com/text2toss/junk-removal-api/internal/notify"
	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// BuildSMSDispatcher selects the SMS provider from config. The dispatcher
// simulates sends when no provider has credentials.
func BuildSMSDispatcher(cfg *appconfig.Config, m *metrics.Metrics, logger *logging.Logger) *messaging.Dispatcher {
	if cfg == nil {
		return messaging.NewDispatcher(nil, "", "missing config", logger)
	}
	selection := messaging.ProviderSelectionConfig{
		Preference:       cfg.SMSProvider,
		TelnyxAPIKey:     cfg.TelnyxAPIKey,
		TelnyxProfileID:  cfg.TelnyxMessagingProfileID,
		TelnyxFromNumber: cfg.TelnyxFromNumber,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFromNumber: cfg.TwilioFromNumber,
	}
	return messaging.NewDispatcherFromConfig(selection, logger).WithMetrics(m)
}

// BuildEmailSender chains SendGrid and SES behind failover. With neither
// configured, emails are logged instead of sent.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}

	var senders []notify.EmailSender
	if strings.TrimSpace(cfg.SendGridAPIKey) != "" && strings.TrimSpace(cfg.SendGridFromEmail) != "" {
		senders = append(senders, notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
			ReplyTo:   cfg.AdminEmail,
		}, logger))
	}
	if awsCfg != nil && strings.TrimSpace(cfg.SESFromEmail) != "" {
		senders = append(senders, notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
			ReplyTo:   cfg.AdminEmail,
		}, logger))
	}

	switch len(senders) {
	case 0:
		logger.Warn("no email provider configured; admin emails will be logged only")
		return notify.NewStubEmailSender(logger)
	case 1:
		return senders[0]
	default:
		return notify.NewFailoverEmailSender(logger, senders...)
	}
}
