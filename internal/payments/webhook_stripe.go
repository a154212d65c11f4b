package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

const (
	maxWebhookBytes        = 1 << 16
	stripeProvider         = "stripe"
	stripeSignatureMaxSkew = 5 * time.Minute
)

var (
	errSignatureMissing  = errors.New("signature header missing or malformed")
	errSignatureStale    = errors.New("signature timestamp outside tolerance")
	errSignatureMismatch = errors.New("signature mismatch")
)

// Session events that move a payment forward. Everything else is acknowledged
// and dropped.
var handledStripeEvents = map[string]bool{
	"checkout.session.completed":                true,
	"checkout.session.expired":                  true,
	"checkout.session.async_payment_succeeded": true,
}

type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type sessionEventHandler interface {
	HandleSessionEvent(ctx context.Context, eventID string, obj SessionEvent) error
}

// StripeWebhookHandler serves POST /api/webhook/stripe.
type StripeWebhookHandler struct {
	verifier  stripeVerifier
	sessions  sessionEventHandler
	processed processedTracker
	logger    *logging.Logger
}

// NewStripeWebhookHandler verifies deliveries with webhookSecret. An empty
// secret disables verification for local development.
func NewStripeWebhookHandler(webhookSecret string, sessions sessionEventHandler, processed processedTracker, logger *logging.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		verifier:  stripeVerifier{secret: webhookSecret, tolerance: stripeSignatureMaxSkew, now: time.Now},
		sessions:  sessions,
		processed: processed,
		logger:    logger,
	}
}

func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.verifier.verify(payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.logger.Warn("stripe webhook rejected", "reason", err.Error())
		httpjson.Error(w, http.StatusForbidden, "invalid signature")
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil || evt.ID == "" {
		h.logger.Error("failed to decode stripe event", "error", err)
		httpjson.Error(w, http.StatusBadRequest, "invalid event")
		return
	}
	if !handledStripeEvents[evt.Type] {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	if h.processed != nil {
		seen, err := h.processed.AlreadyProcessed(ctx, stripeProvider, evt.ID)
		if err != nil {
			h.logger.Error("processed lookup failed", "event_id", evt.ID, "error", err)
			httpjson.Error(w, http.StatusInternalServerError, "server error")
			return
		}
		if seen {
			h.logger.Debug("stripe event replayed", "event_id", evt.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	session := evt.Data.Object
	if evt.Type == "checkout.session.expired" && session.Status == "" {
		session.Status = SessionExpired
	}
	if err := h.sessions.HandleSessionEvent(ctx, evt.ID, session); err != nil {
		if errorsIsNotFound(err) {
			// Stripe retries non-2xx for days; a session we never created will not appear later.
			h.logger.Warn("stripe webhook for unknown session", "event_id", evt.ID, "session_id", session.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("stripe session event failed", "event_id", evt.ID, "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "server error")
		return
	}

	if h.processed != nil {
		if _, err := h.processed.MarkProcessed(ctx, stripeProvider, evt.ID); err != nil {
			h.logger.Error("failed to record processed event", "event_id", evt.ID, "error", err)
		}
	}
	h.logger.Info("stripe webhook processed", "event_id", evt.ID, "type", evt.Type, "session_id", session.ID, "payment_status", session.PaymentStatus)
	w.WriteHeader(http.StatusOK)
}

type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object SessionEvent `json:"object"`
	} `json:"data"`
}

// stripeVerifier checks the Stripe-Signature header:
// t=<unix>,v1=<hex hmac-sha256 of "t.payload">[,v1=...].
type stripeVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func (v stripeVerifier) verify(payload []byte, header string) error {
	if v.secret == "" {
		return nil
	}
	ts, sigs := parseStripeSignature(header)
	if ts == "" || len(sigs) == 0 {
		return errSignatureMissing
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errSignatureMissing
	}
	if skew := v.now().Sub(time.Unix(unix, 0)); skew > v.tolerance || skew < -v.tolerance {
		return errSignatureStale
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	expected := []byte(hex.EncodeToString(mac.Sum(nil)))
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), expected) {
			return nil
		}
	}
	return errSignatureMismatch
}

func parseStripeSignature(header string) (timestamp string, v1 []string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			v1 = append(v1, value)
		}
	}
	return timestamp, v1
}
