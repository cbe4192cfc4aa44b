package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/sefs/internal/apperr"
	"github.com/starford/sefs/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps service errors onto HTTP status codes. Anything unknown is a 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidName):
		return http.StatusBadRequest, "invalid file name"
	case errors.Is(err, apperr.ErrEmptySecret):
		return http.StatusBadRequest, "secret is required"
	case errors.Is(err, apperr.ErrUnsupported):
		return http.StatusBadRequest, "unsupported file type"
	case errors.Is(err, apperr.ErrWrongSecret):
		return http.StatusForbidden, "wrong secret"
	case errors.Is(err, apperr.ErrDenied):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, "file already exists"
	case errors.Is(err, apperr.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, apperr.ErrNotReady):
		return http.StatusServiceUnavailable, "graph not generated yet"
	case errors.Is(err, pipeline.ErrClosed):
		return http.StatusServiceUnavailable, "shutting down"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(msg))
}
