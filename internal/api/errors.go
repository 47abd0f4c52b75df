// Package api provides the HTTP handlers and response envelope for the
// floor-plan service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/export"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/middleware"
	"github.com/expohall/expohall/internal/share"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeAuthFailed indicates authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeForbidden indicates the request is forbidden.
	ErrCodeForbidden = "forbidden"

	// ErrCodeConflict indicates a conflict with the current state
	// (stale revision or master-uniqueness race).
	ErrCodeConflict = "conflict"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeStoreUnavailable indicates a persistence failure.
	ErrCodeStoreUnavailable = "store_unavailable"

	// ErrCodeUnsupportedFormat indicates an unknown export format.
	ErrCodeUnsupportedFormat = "unsupported_format"

	// ErrCodeRenderTimeout indicates the render delegate exceeded its deadline.
	ErrCodeRenderTimeout = "render_timeout"

	// ErrCodeRenderFailure indicates the render delegate failed.
	ErrCodeRenderFailure = "render_failure"

	// ErrCodeUnsupportedType indicates an unsupported content type for upload.
	ErrCodeUnsupportedType = "unsupported_type"

	// ErrCodeFileTooLarge indicates an upload exceeding the size limit.
	ErrCodeFileTooLarge = "file_too_large"
)

// Response is the uniform envelope returned by every endpoint:
// {"success": bool, "data": ..., "error": {...}, "message": "..."}.
type Response struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response.
//
// The error_code will be automatically logged by the logging middleware
// for all 4xx and 5xx responses if you call SetErrorCode on the context
// and pass the updated context to WriteError:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Floor plan not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Update the context in the response writer if supported (for logging middleware)
	middleware.UpdateResponseContext(w, ctx)

	resp := Response{
		Success: false,
		Error:   &ErrorDetail{Code: code, Message: message},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// WriteJSON writes a success envelope with the given payload.
func WriteJSON(w http.ResponseWriter, ctx context.Context, status int, data any) {
	resp := Response{Success: true, Data: data}
	body, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal response", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, ctx context.Context, status int, message string) {
	resp := Response{Success: true, Message: message}
	body, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal response", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// writeDomainError maps domain errors to the envelope. Validation messages
// are surfaced verbatim; store internals never leak past a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code, message string

	switch {
	case errors.Is(err, floorplan.ErrValidation):
		status, code, message = http.StatusBadRequest, ErrCodeValidation, err.Error()
	case errors.Is(err, floorplan.ErrShapeNotFound):
		status, code, message = http.StatusNotFound, ErrCodeNotFound, "Booth not found"
	case errors.Is(err, floorplan.ErrNotFound):
		status, code, message = http.StatusNotFound, ErrCodeNotFound, "Floor plan not found"
	case errors.Is(err, share.ErrTokenNotFound):
		status, code, message = http.StatusNotFound, ErrCodeNotFound, "Share token not found or expired"
	case errors.Is(err, access.ErrForbidden):
		status, code, message = http.StatusForbidden, ErrCodeForbidden, "You do not have access to this floor plan"
	case errors.Is(err, floorplan.ErrStaleRevision):
		status, code, message = http.StatusConflict, ErrCodeConflict, "Floor plan was modified concurrently, retry with the latest revision"
	case errors.Is(err, floorplan.ErrMasterConflict):
		status, code, message = http.StatusConflict, ErrCodeConflict, "A master floor plan already exists"
	case errors.Is(err, export.ErrUnsupportedFormat):
		status, code, message = http.StatusBadRequest, ErrCodeUnsupportedFormat, "Export format must be json, pdf, or png"
	case errors.Is(err, export.ErrRenderTimeout):
		status, code, message = http.StatusGatewayTimeout, ErrCodeRenderTimeout, "Render service timed out"
	case errors.Is(err, export.ErrRenderFailure):
		status, code, message = http.StatusBadGateway, ErrCodeRenderFailure, "Render service failed"
	case errors.Is(err, floorplan.ErrStoreUnavailable):
		status, code, message = http.StatusInternalServerError, ErrCodeStoreUnavailable, "Floor plan store unavailable"
	default:
		status, code, message = http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred"
	}

	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}
