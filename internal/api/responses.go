// Package api provides HTTP handlers and routing for the AgriSense
// classification service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeNoData           = "NoDataAvailable"
	ErrCodeServerError      = "ServerError"
	ErrCodeUpstreamError    = "UpstreamServiceError"
	ErrCodeUpstreamTimeout  = "UpstreamTimeout"

	ErrCodeMethodNotAllowed     = "MethodNotAllowed"
	ErrCodeUnsupportedMediaType = "UnsupportedMediaType"
)

// WriteJSON writes a JSON response with the given status code and value.
// If encoding fails, it logs the error and returns it.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteGeoJSON writes a GeoJSON response with the given status code and value.
// GeoJSON responses use the application/geo+json media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode GeoJSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, ErrorResponse{Code: code, Description: message})
}

func writeError(w http.ResponseWriter, status int, errResp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 Bad Request error for invalid parameters.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteNoData writes a 404 for a date and area without usable pixels.
func WriteNoData(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNoData, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeServerError, message)
}

// WriteInternalErrorWithRequestID writes a 500 that names the request.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeError(w, http.StatusInternalServerError, ErrorResponse{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// WriteUpstreamError writes a 502 Bad Gateway error for upstream service failures.
func WriteUpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, ErrCodeUpstreamError, message)
}

// WriteUpstreamTimeout writes a 504 Gateway Timeout for upstream timeouts.
func WriteUpstreamTimeout(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGatewayTimeout, ErrCodeUpstreamTimeout, message)
}
