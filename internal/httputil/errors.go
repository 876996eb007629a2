// Package httputil writes JSON responses and maps error kinds to HTTP status codes.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/logger"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// StatusForKind maps an error kind to the HTTP status it is reported with.
func StatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidHeaders, apperr.KindMalformedToken, apperr.KindInvalidToken:
		return http.StatusUnauthorized
	case apperr.KindKeySetRetrievalFailure, apperr.KindTimedOut:
		return http.StatusServiceUnavailable
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// bearerErrorCode is the RFC 6750 error code for a rejected credential.
func bearerErrorCode(kind apperr.Kind) string {
	switch kind {
	case apperr.KindInvalidHeaders:
		return "invalid_request"
	default:
		return "invalid_token"
	}
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, status int, message string, logFields ...any) {
	writeError(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})

	// Log the error with additional context
	logFields = append([]any{"status", status, "message", message}, logFields...)
	logger.Error("HTTP error response", logFields...)
}

// WriteAuthError reports err with the status its kind maps to. Messages of
// credential errors are not echoed to the client.
func WriteAuthError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := StatusForKind(kind)
	if status == http.StatusInternalServerError {
		WriteInternalError(w, err, "authorization failed", "kind", kind)
		return
	}

	resp := ErrorResponse{Error: http.StatusText(status), Kind: string(kind)}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="%s"`, bearerErrorCode(kind)))
	} else {
		resp.Message = "authorization is temporarily unavailable"
	}
	writeError(w, status, resp)
}

// WriteInternalError writes a generic internal server error
func WriteInternalError(w http.ResponseWriter, err error, message string, logFields ...any) {
	writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error", Message: message})

	// Log the actual error with context
	logFields = append([]any{"error", err, "message", message}, logFields...)
	logger.Error("Internal server error", logFields...)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

// WriteJSON writes a JSON response with proper error handling
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteSuccess writes a 200 OK response with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}
