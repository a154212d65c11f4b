package quotes

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/pkg/logging"
)

// MaxImageBytes bounds quote photo uploads.
const MaxImageBytes = 10 << 20

// Handler serves the public quote endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateQuote handles POST /api/quotes.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.svc.CreateFromItems(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, q)
}

// CreateImageQuote handles POST /api/quotes/image.
func (h *Handler) CreateImageQuote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, ErrImageRequired.Error())
		return
	}
	defer file.Close()

	if header.Size > MaxImageBytes {
		httpjson.Error(w, http.StatusBadRequest, "image exceeds 10MB limit")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) > MaxImageBytes {
		httpjson.Error(w, http.StatusBadRequest, "image exceeds 10MB limit")
		return
	}

	q, err := h.svc.CreateFromImage(r.Context(), ImageInput{
		Data:        data,
		MIMEType:    detectImageType(header.Header.Get("Content-Type"), data),
		Description: r.FormValue("description"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, q)
}

// GetQuote handles GET /api/quotes/{id}.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, q)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrQuoteNotFound):
		httpjson.Error(w, http.StatusNotFound, "quote not found")
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrImageRequired), errors.Is(err, ErrUnsupportedImage),
		errors.Is(err, ErrInvalidReview):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyReviewed):
		httpjson.Error(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("quote request failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to process quote")
	}
}

// WriteError maps quote errors for handlers outside this package.
func (h *Handler) WriteError(w http.ResponseWriter, err error) {
	h.writeError(w, err)
}

// detectImageType trusts the part header when it names an image and sniffs otherwise.
// Sniffing cannot identify HEIC, so the header wins for it.
func detectImageType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}
