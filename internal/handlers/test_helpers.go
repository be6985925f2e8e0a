package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/internal/services"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks the envelope status and error code and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedStatus, resp.Status, "Envelope status mismatch")
	assert.Equal(t, expectedCode, resp.ErrorCode, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc     func(ctx context.Context, req models.LoginRequest, meta services.RequestMeta) (*models.LoginResponse, error)
	VerifyMFAFunc func(ctx context.Context, req models.VerifyMFARequest, meta services.RequestMeta) (*models.VerifyMFAResponse, error)
	ResendOTPFunc func(ctx context.Context, req models.ResendOTPRequest) error
}

func (m *MockAuthService) Login(ctx context.Context, req models.LoginRequest, meta services.RequestMeta) (*models.LoginResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, req, meta)
}

func (m *MockAuthService) VerifyMFA(ctx context.Context, req models.VerifyMFARequest, meta services.RequestMeta) (*models.VerifyMFAResponse, error) {
	if m.VerifyMFAFunc == nil {
		return nil, models.ErrInvalidOTP
	}
	return m.VerifyMFAFunc(ctx, req, meta)
}

func (m *MockAuthService) ResendOTP(ctx context.Context, req models.ResendOTPRequest) error {
	if m.ResendOTPFunc == nil {
		return nil
	}
	return m.ResendOTPFunc(ctx, req)
}
