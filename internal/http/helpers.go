package http

import (
	"errors"
	"net/http"

	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/taxonomy"
	"finboard/internal/timeline"
)

// statusFor maps domain errors to HTTP status codes. A failed reload is
// reported as 503 since the previous dataset keeps being served.
func statusFor(op string, err error) int {
	switch {
	case errors.Is(err, taxonomy.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, timeline.ErrBucketOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrKeyRejected):
		return http.StatusConflict
	case errors.Is(err, errMissingField):
		return http.StatusBadRequest
	case op == log.OpReload:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err with the request-scoped logger and writes it as JSON.
// Server-side failures keep their detail out of the response body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error, attrs ...any) {
	code := statusFor(op, err)
	logger := log.FromContext(r.Context())
	args := append([]any{log.FieldOperation, op, log.FieldError, err.Error(), log.FieldStatusCode, code}, attrs...)

	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", args...)
		ErrorResponse(code, op+" failed").Write(w)
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", args...)
	ErrorResponse(code, err.Error()).Write(w)
}
