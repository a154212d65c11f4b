package messaging

import (
	"context"

	"github.com/text2toss/junk-removal-api/internal/observability/metrics"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Dispatcher sends customer texts through the configured provider, or logs
// them as simulated when no provider is available.
type Dispatcher struct {
	sender   Sender
	provider string
	reason   string
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewDispatcher wraps sender. A nil sender puts the dispatcher in simulation mode.
func NewDispatcher(sender Sender, provider, reason string, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		provider = SMSProviderSimulated
	}
	return &Dispatcher{sender: sender, provider: provider, reason: reason, logger: logger}
}

// NewDispatcherFromConfig runs provider selection and logs the outcome.
func NewDispatcherFromConfig(cfg ProviderSelectionConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	sender, provider, reason := BuildSender(cfg, logger)
	if sender == nil {
		logger.Warn("sms disabled; messages will be simulated", "reason", reason)
	} else {
		logger.Info("sms provider selected", "provider", provider)
	}
	return NewDispatcher(sender, provider, reason, logger)
}

func (d *Dispatcher) WithMetrics(m *metrics.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Configured reports whether a real provider is wired.
func (d *Dispatcher) Configured() bool {
	return d != nil && d.sender != nil
}

// Provider names the active provider.
func (d *Dispatcher) Provider() string {
	if d == nil {
		return SMSProviderSimulated
	}
	return d.provider
}

// Reason explains why no provider is configured.
func (d *Dispatcher) Reason() string {
	if d == nil {
		return ErrNotConfigured.Error()
	}
	return d.reason
}

// Send delivers a text. Failures are reported in the Result rather than as
// an error so callers can surface them to admins.
func (d *Dispatcher) Send(ctx context.Context, to, body string, mediaURLs ...string) Result {
	to = NormalizeE164(to)
	if !d.Configured() {
		if d != nil {
			d.logger.Info("simulated sms", "to", MaskPhone(to), "body", body, "media", len(mediaURLs))
			d.metrics.ObserveSMS(SMSProviderSimulated, StatusSimulated)
		}
		return Result{Status: StatusSimulated, Provider: SMSProviderSimulated}
	}
	err := d.sender.Send(ctx, Message{To: to, Body: body, MediaURLs: mediaURLs})
	if err != nil {
		d.logger.Error("sms send failed", "provider", d.provider, "to", MaskPhone(to), "error", err)
		d.metrics.ObserveSMS(d.provider, StatusFailed)
		return Result{Status: StatusFailed, Provider: d.provider, Error: err.Error()}
	}
	d.metrics.ObserveSMS(d.provider, StatusSent)
	return Result{Status: StatusSent, Provider: d.provider}
}
