package messaging

import (
	"context"
	"errors"
)

// Delivery outcomes reported to admins.
const (
	StatusSent      = "sent"
	StatusSimulated = "simulated"
	StatusFailed    = "failed"
)

var (
	// ErrNotConfigured is returned when no SMS provider has credentials.
	ErrNotConfigured = errors.New("messaging: no sms provider configured")

	errToRequired   = errors.New("messaging: to required")
	errFromRequired = errors.New("messaging: from required")
	errBodyRequired = errors.New("messaging: body required")
)

// Message is one outbound SMS, or MMS when MediaURLs is set.
type Message struct {
	To        string
	From      string
	Body      string
	MediaURLs []string
	// Metadata receives provider_message_id and provider_status after a send.
	Metadata map[string]string
}

// Sender delivers a message through a carrier API.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Result describes what happened to a message.
type Result struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
}
