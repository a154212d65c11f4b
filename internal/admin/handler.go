package admin

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/text2toss/junk-removal-api/internal/audit"
	"github.com/text2toss/junk-removal-api/internal/bookings"
	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/internal/http/middleware"
	"github.com/text2toss/junk-removal-api/internal/photos"
	"github.com/text2toss/junk-removal-api/internal/quotes"
	"github.com/text2toss/junk-removal-api/internal/routing"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// Handler serves /api/admin and the public photo endpoints.
type Handler struct {
	svc    *Service
	auth   *Authenticator
	logger *logging.Logger
}

func NewHandler(svc *Service, auth *Authenticator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, auth: auth, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Warn("admin login failed", "username", req.Username)
		}
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

// Verify handles GET /api/admin/verify. The auth middleware has already
// validated the token by the time it runs.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"valid": true, "username": middleware.AdminSubject(r.Context())}
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (h *Handler) DailySchedule(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Daily(r.Context(), r.URL.Query().Get("date"))
	h.respond(w, out, err)
}

func (h *Handler) WeeklySchedule(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Weekly(r.Context(), r.URL.Query().Get("start_date"))
	h.respond(w, out, err)
}

func (h *Handler) CalendarData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.svc.Calendar(r.Context(), q.Get("start_date"), q.Get("end_date"))
	h.respond(w, out, err)
}

func (h *Handler) Bins(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Bins(r.Context())
	h.respond(w, out, err)
}

// UpdateBooking handles PATCH /api/admin/bookings/{id}.
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookings.UpdateRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.svc.UpdateBooking(r.Context(), chi.URLParam(r, "id"), req)
	h.respond(w, out, err)
}

// CompleteBooking handles POST /api/admin/bookings/{id}/completion.
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	data, contentType, note, err := readUpload(w, r, "photo", false)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.svc.CompleteBooking(r.Context(), chi.URLParam(r, "id"), CompletionUpload{
		Photo:       data,
		ContentType: contentType,
		Note:        note,
	})
	h.respond(w, out, err)
}

func (h *Handler) NotifyCustomer(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.NotifyCustomer(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, out, err)
}

func (h *Handler) RoutePlan(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RoutePlan(r.Context(), r.URL.Query().Get("date"))
	h.respond(w, out, err)
}

// RoutePlanPDF handles GET /api/admin/route-plan/pdf.
func (h *Handler) RoutePlanPDF(w http.ResponseWriter, r *http.Request) {
	plan, pdf, err := h.svc.RouteSheet(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="route-%s.pdf"`, plan.Date))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) PendingQuotes(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.PendingQuotes(r.Context())
	h.respond(w, out, err)
}

// ReviewQuote handles POST /api/admin/quotes/{id}/approve.
func (h *Handler) ReviewQuote(w http.ResponseWriter, r *http.Request) {
	var req quotes.ReviewRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.svc.ReviewQuote(r.Context(), chi.URLParam(r, "id"), req, middleware.AdminSubject(r.Context()))
	h.respond(w, out, err)
}

func (h *Handler) QuoteStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.QuoteStats(r.Context())
	h.respond(w, out, err)
}

func (h *Handler) CompletionPhoto(w http.ResponseWriter, r *http.Request) {
	obj, err := h.svc.CompletionPhoto(r.Context(), chi.URLParam(r, "id"))
	h.writePhoto(w, obj, err, "private")
}

// PublicCompletionPhoto serves the photo to carriers fetching MMS media.
func (h *Handler) PublicCompletionPhoto(w http.ResponseWriter, r *http.Request) {
	obj, err := h.svc.CompletionPhoto(r.Context(), chi.URLParam(r, "booking_id"))
	h.writePhoto(w, obj, err, "public")
}

func (h *Handler) QuoteImage(w http.ResponseWriter, r *http.Request) {
	obj, err := h.svc.QuoteImage(r.Context(), chi.URLParam(r, "id"))
	h.writePhoto(w, obj, err, "private")
}

type testSMSRequest struct {
	Phone string `json:"phone"`
}

// TestSMS handles POST /api/admin/test-sms. The body is optional.
func (h *Handler) TestSMS(w http.ResponseWriter, r *http.Request) {
	var req testSMSRequest
	if r.ContentLength != 0 {
		if err := httpjson.Decode(w, r, &req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	httpjson.Write(w, http.StatusOK, h.svc.TestSMS(r.Context(), req.Phone))
}

// AuditLog handles GET /api/admin/audit-log?action=&target_id=&limit=.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:   audit.Action(strings.TrimSpace(q.Get("action"))),
		TargetID: strings.TrimSpace(q.Get("target_id")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpjson.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	out, err := h.svc.AuditTrail(r.Context(), filter)
	h.respond(w, out, err)
}

func (h *Handler) CleanupTempImages(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.CleanupTempImages(r.Context())
	h.respond(w, out, err)
}

// UploadGalleryPhoto handles POST /api/admin/gallery.
func (h *Handler) UploadGalleryPhoto(w http.ResponseWriter, r *http.Request) {
	data, contentType, caption, err := readUpload(w, r, "file", true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.svc.UploadGalleryPhoto(r.Context(), data, contentType, caption)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, out)
}

func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Gallery(r.Context())
	h.respond(w, out, err)
}

type reelSlotRequest struct {
	SlotIndex *int `json:"slot_index"`
}

// SetReelSlot handles PUT /api/admin/gallery/{id}/reel-slot.
func (h *Handler) SetReelSlot(w http.ResponseWriter, r *http.Request) {
	var req reelSlotRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.svc.SetReelSlot(r.Context(), chi.URLParam(r, "id"), req.SlotIndex)
	h.respond(w, out, err)
}

// Reel handles the public GET /api/gallery/reel.
func (h *Handler) Reel(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Reel(r.Context())
	h.respond(w, out, err)
}

// GalleryImage handles the public GET /api/gallery/photos/{id}.
func (h *Handler) GalleryImage(w http.ResponseWriter, r *http.Request) {
	obj, err := h.svc.GalleryImage(r.Context(), chi.URLParam(r, "id"))
	h.writePhoto(w, obj, err, "public")
}

func (h *Handler) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, payload)
}

func (h *Handler) writePhoto(w http.ResponseWriter, obj *photos.Object, err error, cache string) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(obj.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", cache+", max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpjson.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAuthNotConfigured), errors.Is(err, ErrPhotosUnavailable):
		httpjson.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrInvalidRange), errors.Is(err, errUploadInvalid),
		errors.Is(err, routing.ErrTooFewStops), errors.Is(err, quotes.ErrInvalidReview),
		errors.Is(err, photos.ErrInvalidReelSlot), errors.Is(err, photos.ErrUnsupportedType),
		errors.Is(err, photos.ErrTooLarge):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoPhoto), errors.Is(err, ErrNoImage),
		errors.Is(err, photos.ErrNotFound), errors.Is(err, photos.ErrPhotoNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quotes.ErrAlreadyReviewed):
		httpjson.Error(w, http.StatusConflict, err.Error())
	default:
		bookings.WriteError(w, h.logger, err)
	}
}

var errUploadInvalid = errors.New("invalid image upload")

// readUpload reads one multipart image plus the accompanying text field
// ("note" or "caption"). required controls whether the file may be absent.
func readUpload(w http.ResponseWriter, r *http.Request, field string, required bool) ([]byte, string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, photos.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(photos.MaxUploadBytes); err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", errUploadInvalid, err)
	}
	text := r.FormValue("note")
	if text == "" {
		text = r.FormValue("caption")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, "", text, nil
		}
		return nil, "", "", fmt.Errorf("%w: %s file is required", errUploadInvalid, field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, photos.MaxUploadBytes+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", errUploadInvalid, err)
	}
	if len(data) > photos.MaxUploadBytes {
		return nil, "", "", photos.ErrTooLarge
	}
	return data, imageType(header.Header.Get("Content-Type"), data), text, nil
}

func imageType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	sniffed, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return sniffed
}
