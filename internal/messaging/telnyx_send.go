package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

var telnyxSendTracer = otel.Tracer("text2toss.internal.messaging.telnyx_send")

// TelnyxSender posts messages using Telnyx's V2 API.
type TelnyxSender struct {
	apiKey             string
	messagingProfileID string
	from               string
	baseURL            string
	httpClient         *http.Client
	backoff            func(attempt int) time.Duration
	logger             *logging.Logger
}

// NewTelnyxSender builds a sender for Telnyx V2 API.
func NewTelnyxSender(apiKey, messagingProfileID, defaultFrom string, logger *logging.Logger) *TelnyxSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelnyxSender{
		apiKey:             apiKey,
		messagingProfileID: messagingProfileID,
		from:               defaultFrom,
		baseURL:            "https://api.telnyx.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: jitterBackoff,
		logger:  logger,
	}
}

// WithBaseURL points the sender at a different API host (for testing).
func (s *TelnyxSender) WithBaseURL(baseURL string) *TelnyxSender {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

var _ Sender = (*TelnyxSender)(nil)

// Send dispatches a single message via Telnyx V2 API, retrying transient failures.
func (s *TelnyxSender) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" {
		return fmt.Errorf("messaging: telnyx api key missing")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if err := validate(msg); err != nil {
		return err
	}

	ctx, span := telnyxSendTracer.Start(ctx, "messaging.telnyx.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("text2toss.to", MaskPhone(msg.To)),
		attribute.Int("text2toss.media_count", len(msg.MediaURLs)),
	)

	payload := map[string]any{
		"from": msg.From,
		"to":   msg.To,
		"text": msg.Body,
	}
	if s.messagingProfileID != "" {
		payload["messaging_profile_id"] = s.messagingProfileID
	}
	if len(msg.MediaURLs) > 0 {
		payload["media_urls"] = msg.MediaURLs
		payload["type"] = "MMS"
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("messaging: failed to marshal telnyx payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if msg.Metadata != nil && len(body) > 0 {
					var parsed struct {
						Data struct {
							ID string `json:"id"`
							To []struct {
								Status string `json:"status"`
							} `json:"to"`
						} `json:"data"`
					}
					if err := json.Unmarshal(body, &parsed); err == nil {
						if parsed.Data.ID != "" {
							msg.Metadata["provider_message_id"] = parsed.Data.ID
						}
						if len(parsed.Data.To) > 0 && parsed.Data.To[0].Status != "" {
							msg.Metadata["provider_status"] = parsed.Data.To[0].Status
						}
					}
				}
				s.logger.Info("telnyx sms sent", "to", MaskPhone(msg.To), "mms", len(msg.MediaURLs) > 0)
				return nil
			}
			// Read error response for better debugging
			var errorBody map[string]any
			if len(body) > 0 && json.Unmarshal(body, &errorBody) == nil {
				lastErr = fmt.Errorf("telnyx send failed: status %d, body: %v", resp.StatusCode, errorBody)
			} else {
				lastErr = fmt.Errorf("telnyx send failed: status %d", resp.StatusCode)
			}
			if !retryableStatus(resp.StatusCode) {
				break
			}
		}

		if attempt < maxSendAttempts {
			if err := sleepCtx(ctx, s.backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		s.logger.Error("failed to send telnyx sms", "error", lastErr, "to", MaskPhone(msg.To))
	}
	return lastErr
}
