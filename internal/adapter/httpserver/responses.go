// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST API for starting interviews, submitting answers for
// evaluation, reading conversation history and feedback reports, and
// transcribing recorded answers. The package keeps HTTP concerns separate
// from the business logic in internal/usecase.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hiresim/interview-evaluator/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrUnauthenticated):
		code = http.StatusUnauthorized
		codeStr = "UNAUTHENTICATED"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrSchemaInvalid):
		code = http.StatusServiceUnavailable
		codeStr = "SCHEMA_INVALID"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
