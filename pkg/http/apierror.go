package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the auth backend, parsed once at the
// transport boundary.
type APIError struct {
	StatusCode int
	Envelope   ErrorResponse
}

func (e *APIError) Error() string {
	if e.Envelope.ErrorCode != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Envelope.ErrorCode, e.Envelope.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Envelope.Message)
}

// DecodeError builds an APIError from resp. Empty or non-JSON bodies are
// tolerated (a bare 429 is valid); the status code always wins over the
// envelope's own status field.
func DecodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(strings.TrimSpace(string(body))) > 0 {
		if jsonErr := json.Unmarshal(body, &apiErr.Envelope); jsonErr != nil {
			// Plain-text bodies are kept as the message
			apiErr.Envelope = ErrorResponse{Message: strings.TrimSpace(string(body))}
		}
	}

	apiErr.Envelope.Status = resp.StatusCode
	return apiErr
}
