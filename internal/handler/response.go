// Package handler contains the HTTP handlers of the DevTrack API.
//
// Handlers parse the request, call one service method and write the
// response. Every domain error goes through writeError, which is the only
// place that knows how apperror sentinels map onto status codes.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/devtrack/devtrack-server/internal/apperror"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// ErrorResponse is the error body of the auth and GitHub endpoints:
//
//	{"error": "not_found", "message": "user not found with id abc123"}
//
// NeedsReconnect is set when GitHub rejected the stored token.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	NeedsReconnect bool   `json:"needsReconnect,omitempty"`
}

// AIErrorResponse is the error body of the /api/ai endpoints, which wrap
// every payload in a success flag.
type AIErrorResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	Message        string `json:"message"`
	NeedsReconnect bool   `json:"needsReconnect,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// the first write, so the status goes out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all that is left is to log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error to status, machine-readable type and a
// client-safe message. Errors outside the taxonomy become a generic 500 so
// SQL or upstream details never reach the client.
func classify(err error) (status int, errorType, message string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	switch {
	case errors.Is(err, apperror.ErrReconnect):
		return http.StatusConflict, "github_reconnect_required", appErr.Message
	case errors.Is(err, apperror.ErrNotConnected):
		return http.StatusBadRequest, "github_not_connected", appErr.Message
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr.Message
	default:
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}
}

// writeError maps a domain error to its HTTP response. 500s are logged
// through the handler's logger with the real cause.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, errorType, message := classify(err)
	if status == http.StatusInternalServerError {
		loggerOrDefault(logger).Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, ErrorResponse{
		Error:          errorType,
		Message:        message,
		NeedsReconnect: errors.Is(err, apperror.ErrReconnect),
	})
}

// writeAIError is writeError for the /api/ai endpoints.
func writeAIError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, errorType, message := classify(err)
	if status == http.StatusInternalServerError {
		loggerOrDefault(logger).Error("ai request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, AIErrorResponse{
		Success:        false,
		Error:          errorType,
		Message:        message,
		NeedsReconnect: errors.Is(err, apperror.ErrReconnect),
	})
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// decodeJSON reads a size-limited JSON body into dst. Failures are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "Invalid request body")
	}
	return nil
}
