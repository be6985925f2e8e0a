package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope returned by every auth endpoint.
type ErrorResponse struct {
	Status         int    `json:"status"`
	ErrorCode      string `json:"error_code"`                // Machine-readable error code
	ActionRequired string `json:"action_required,omitempty"` // Remediation the client should route to
	Message        string `json:"message"`                   // Human-readable message
	SupportEmail   string `json:"support_email,omitempty"`
	Details        string `json:"details,omitempty"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorResponse(w, ErrorResponse{
		Status:    statusCode,
		ErrorCode: errorCode,
		Message:   message,
	})
}

// WriteErrorResponse writes a fully populated envelope.
// A zero Status is treated as 500.
func WriteErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	if resp.Status == 0 {
		resp.Status = http.StatusInternalServerError
	}
	WriteJSON(w, resp.Status, resp)
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(v)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "FORBIDDEN", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "NOT_FOUND", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
