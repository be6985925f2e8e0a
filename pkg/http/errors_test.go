package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.Status)
	assert.Equal(t, "test_error", resp.ErrorCode)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.SupportEmail)
}

func TestWriteErrorResponse_AccountEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorResponse(w, pkghttp.ErrorResponse{
		Status:         403,
		ErrorCode:      "ACCOUNT_PENDING",
		ActionRequired: "WAIT_FOR_APPROVAL",
		Message:        "Your account is awaiting approval",
		SupportEmail:   "help@example.com",
	})

	assert.Equal(t, 403, w.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, float64(403), raw["status"])
	assert.Equal(t, "ACCOUNT_PENDING", raw["error_code"])
	assert.Equal(t, "WAIT_FOR_APPROVAL", raw["action_required"])
	assert.Equal(t, "help@example.com", raw["support_email"])
}

func TestWriteErrorResponse_ZeroStatusIsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteErrorResponse(w, pkghttp.ErrorResponse{ErrorCode: "X", Message: "boom"})
	assert.Equal(t, 500, w.Code)
}

func TestCommonWriters(t *testing.T) {
	cases := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", pkghttp.WriteBadRequest, 400, "VALIDATION_ERROR"},
		{"unauthorized", pkghttp.WriteUnauthorized, 401, "INVALID_CREDENTIALS"},
		{"forbidden", pkghttp.WriteForbidden, 403, "FORBIDDEN"},
		{"not found", pkghttp.WriteNotFound, 404, "NOT_FOUND"},
		{"too many requests", pkghttp.WriteTooManyRequests, 429, "RATE_LIMIT_EXCEEDED"},
		{"internal", pkghttp.WriteInternalError, 500, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.write(w, "msg")

			assert.Equal(t, tc.status, w.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.ErrorCode)
			assert.Equal(t, "msg", resp.Message)
		})
	}
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDecodeError_Envelope(t *testing.T) {
	apiErr := pkghttp.DecodeError(newResponse(403,
		`{"status":403,"error_code":"ACCOUNT_SUSPENDED","message":"Suspended","support_email":"s@x.io"}`))

	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "ACCOUNT_SUSPENDED", apiErr.Envelope.ErrorCode)
	assert.Equal(t, "s@x.io", apiErr.Envelope.SupportEmail)
	assert.Contains(t, apiErr.Error(), "ACCOUNT_SUSPENDED")
}

func TestDecodeError_EmptyBody(t *testing.T) {
	apiErr := pkghttp.DecodeError(newResponse(429, ""))

	assert.Equal(t, 429, apiErr.StatusCode)
	assert.Equal(t, 429, apiErr.Envelope.Status)
	assert.Empty(t, apiErr.Envelope.ErrorCode)
	assert.Empty(t, apiErr.Envelope.Message)
}

func TestDecodeError_PlainTextBody(t *testing.T) {
	apiErr := pkghttp.DecodeError(newResponse(502, "Bad Gateway\n"))

	assert.Equal(t, 502, apiErr.Envelope.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Envelope.Message)
}

func TestDecodeError_StatusCodeWinsOverEnvelope(t *testing.T) {
	apiErr := pkghttp.DecodeError(newResponse(401, `{"status":200,"message":"nope"}`))
	assert.Equal(t, 401, apiErr.Envelope.Status)
}
