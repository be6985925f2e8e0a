package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/client"
	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/models"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthClient_Login(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, client.PathLogin, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get(client.HeaderLoginToken))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		pkghttp.WriteJSON(w, http.StatusOK, models.LoginResponse{
			Success: true, RequiresOTP: true, UserID: "u1", SessionID: "s1",
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL, testLogger(), client.WithUserAgent("test-agent"))
	resp, err := c.Login(context.Background(), models.LoginRequest{
		Email:    "jane@example.com",
		Password: "pw",
		DeviceFingerprint: models.DeviceFingerprint{
			DeviceID: "dev-1", DeviceName: "Chrome on Windows", Fingerprint: "abc",
		},
	})

	require.NoError(t, err)
	assert.True(t, resp.RequiresOTP)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "s1", resp.SessionID)

	// device context is sent inline next to the credentials
	assert.Equal(t, "jane@example.com", got["email"])
	assert.Equal(t, "dev-1", got["device_id"])
	assert.Equal(t, "Chrome on Windows", got["device_name"])
	assert.Equal(t, "abc", got["fingerprint"])
	assert.Contains(t, got, "device_info")
}

func TestAuthClient_VerifyMFA_SendsLoginToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, client.PathVerifyMFA, r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get(client.HeaderLoginToken))

		pkghttp.WriteJSON(w, http.StatusOK, models.VerifyMFAResponse{
			Success: true, UserType: "provider", AccessToken: "a", RefreshToken: "r",
		})
	}))
	defer srv.Close()

	resp, err := client.New(srv.URL, testLogger()).VerifyMFA(context.Background(), "tok-123",
		models.VerifyMFARequest{Email: "jane@example.com", OTPCode: "123456", UserID: "u1", SessionID: "s1"})

	require.NoError(t, err)
	assert.Equal(t, "provider", resp.UserType)
}

func TestAuthClient_ErrorEnvelopeParsedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteErrorResponse(w, pkghttp.ErrorResponse{
			Status:       http.StatusForbidden,
			ErrorCode:    "ACCOUNT_SUSPENDED",
			Message:      "Account suspended",
			SupportEmail: "ops@example.com",
		})
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, testLogger()).Login(context.Background(), models.LoginRequest{})

	var apiErr *pkghttp.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "ACCOUNT_SUSPENDED", apiErr.Envelope.ErrorCode)
	assert.Equal(t, "ops@example.com", apiErr.Envelope.SupportEmail)
}

func TestAuthClient_Bare429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, testLogger()).ResendOTP(context.Background(), "tok",
		models.ResendOTPRequest{Email: "jane@example.com", OTPType: models.OTPTypeLogin})

	var apiErr *pkghttp.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestAuthClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	_, err := client.New(url, testLogger(), client.WithMetrics(m)).Login(context.Background(), models.LoginRequest{})

	assert.ErrorIs(t, err, models.ErrTransport)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("login", "transport_error")))
}

func TestAuthClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteJSON(w, http.StatusOK, models.ResendOTPResponse{Success: true})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.New(srv.URL, testLogger()).ResendOTP(ctx, "tok", models.ResendOTPRequest{})
	assert.ErrorIs(t, err, models.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthClient_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, testLogger()).Login(context.Background(), models.LoginRequest{})
	assert.ErrorIs(t, err, models.ErrTransport)
}
