package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/apperr"
	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/medias"
	"github.com/howjmay/publicator/internal/posts"
	"github.com/howjmay/publicator/internal/publications"
	"github.com/howjmay/publicator/internal/validation"
)

// MetricsInterface defines the interface for metrics recording
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	RecordResourceError(ctx context.Context, resource, kind string)
	RecordRateLimited(ctx context.Context)
	IncrementInFlight(ctx context.Context)
	DecrementInFlight(ctx context.Context)
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation: http.StatusBadRequest,
	apperr.KindConflict:   http.StatusConflict,
	apperr.KindNotFound:   http.StatusNotFound,
	apperr.KindForbidden:  http.StatusForbidden,
}

type Handler struct {
	mediaSvc       *medias.Service
	postSvc        *posts.Service
	publicationSvc *publications.Service
	db             interfaces.Database
	validator      *validation.Validator
	logger         *zap.SugaredLogger
	metrics        MetricsInterface
}

func NewHandler(
	mediaSvc *medias.Service,
	postSvc *posts.Service,
	publicationSvc *publications.Service,
	db interfaces.Database,
	logger *zap.SugaredLogger,
	metrics MetricsInterface,
) *Handler {
	return &Handler{
		mediaSvc:       mediaSvc,
		postSvc:        postSvc,
		publicationSvc: publicationSvc,
		db:             db,
		validator:      validation.New(),
		logger:         logger,
		metrics:        metrics,
	}
}

// Health and ops endpoints
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, http.StatusOK, "App online!")
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, http.StatusOK, "OK")
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.db.IsHealthy(r.Context()) {
		h.writeText(w, http.StatusServiceUnavailable, "DATABASE UNAVAILABLE")
		return
	}
	h.writeText(w, http.StatusOK, "READY")
}

// Utility methods
func (h *Handler) writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError answers with the status of the error's kind. Errors without a
// kind are unexpected and answered with 500 without leaking their text.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, resource string, err error) {
	requestID := middleware.GetReqID(r.Context())

	appErr, ok := apperr.As(err)
	if !ok {
		h.logger.Errorw("Request failed",
			"request_id", requestID,
			"resource", resource,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		})
		return
	}

	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	h.metrics.RecordResourceError(r.Context(), resource, string(appErr.Kind))
	h.logger.Infow("Request rejected",
		"request_id", requestID,
		"resource", resource,
		"code", appErr.Kind,
		"message", appErr.Message,
		"status", status,
	)

	h.writeJSON(w, status, ErrorResponse{
		Code:    string(appErr.Kind),
		Message: appErr.Message,
		Details: appErr.Violations,
	})
}

// pathID reads the {id} route parameter
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid id",
			apperr.Violation{Field: "id", Message: "must be an integer"})
	}
	return id, nil
}

// queryParam returns nil when the parameter is absent
func queryParam(r *http.Request, name string) *string {
	q := r.URL.Query()
	if !q.Has(name) {
		return nil
	}
	v := q.Get(name)
	return &v
}
