package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/challenge"
	"github.com/BradenHooton/haulgate/internal/classify"
	"github.com/BradenHooton/haulgate/internal/models"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

type MockBackend struct {
	LoginFunc func(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	calls     int
	last      models.LoginRequest
}

func (m *MockBackend) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.calls++
	m.last = req
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type MockSessions struct {
	EstablishFunc func(ctx context.Context, a models.SessionArtifacts) (string, error)
	got           []models.SessionArtifacts
}

func (m *MockSessions) Establish(ctx context.Context, a models.SessionArtifacts) (string, error) {
	m.got = append(m.got, a)
	if m.EstablishFunc != nil {
		return m.EstablishFunc(ctx, a)
	}
	return "/dashboard", nil
}

type staticDevice models.DeviceFingerprint

func (d staticDevice) GetDeviceInfo() models.DeviceFingerprint {
	return models.DeviceFingerprint(d)
}

type failingContexts struct {
	challenge.MemoryContextStore
}

func (f *failingContexts) Save(models.MFAChallengeContext) error {
	return errors.New("quota exceeded")
}

func testDevice() staticDevice {
	return staticDevice{
		DeviceID:    "dev-1",
		DeviceName:  "Chrome on Windows",
		Fingerprint: "fp",
		DeviceInfo:  models.DeviceInfo{UserAgent: "ua"},
	}
}

func newTestHandler(backend Backend, contexts challenge.ContextStore, sessions SessionStarter, opts ...Option) *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(backend, testDevice(), contexts, sessions, classify.New("support@example.com"), log, opts...)
}

func unauthorized() error {
	return &pkghttp.APIError{
		StatusCode: http.StatusUnauthorized,
		Envelope:   pkghttp.ErrorResponse{ErrorCode: "INVALID_CREDENTIALS", Message: "wrong password for jane"},
	}
}

func TestSubmit_ValidationNeverReachesBackend(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		secret     string
	}{
		{"empty identifier", "", "pw"},
		{"not an email", "jane", "pw"},
		{"empty secret", "jane@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &MockBackend{}
			h := newTestHandler(backend, challenge.NewMemoryContextStore(), &MockSessions{})

			out := h.Submit(context.Background(), tt.identifier, tt.secret)

			assert.Equal(t, OutcomeFailure, out.Kind)
			require.NotNil(t, out.Error)
			assert.Equal(t, classify.KindValidation, out.Error.Kind)
			assert.Zero(t, backend.calls)
			assert.Zero(t, h.Attempts())
		})
	}
}

func TestSubmit_BrakeBlocksSixthAttempt(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return nil, unauthorized()
		},
	}
	h := newTestHandler(backend, challenge.NewMemoryContextStore(), &MockSessions{})

	for i := 0; i < models.MaxLoginAttempts; i++ {
		out := h.Submit(context.Background(), "jane@example.com", "wrong")
		require.Equal(t, OutcomeFailure, out.Kind)
		assert.Equal(t, "Invalid credentials", out.Error.Message)
	}
	require.Equal(t, 5, backend.calls)

	out := h.Submit(context.Background(), "jane@example.com", "wrong")

	assert.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, "Too many login attempts. Please reload the page and try again.", out.Error.Message)
	assert.Equal(t, 5, backend.calls, "blocked attempt must not reach the backend")

	h.Reset()
	h.Submit(context.Background(), "jane@example.com", "wrong")
	assert.Equal(t, 6, backend.calls)
}

func TestSubmit_CustomMaxAttempts(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return nil, unauthorized()
		},
	}
	h := newTestHandler(backend, challenge.NewMemoryContextStore(), &MockSessions{}, WithMaxAttempts(2))

	h.Submit(context.Background(), "jane@example.com", "a")
	h.Submit(context.Background(), "jane@example.com", "b")
	out := h.Submit(context.Background(), "jane@example.com", "c")

	assert.Equal(t, classify.KindRateLimited, out.Error.Kind)
	assert.Equal(t, 2, backend.calls)
}

func TestSubmit_AttachesDeviceContext(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return &models.LoginResponse{Success: true, UserType: "customer", AccessToken: "a"}, nil
		},
	}
	h := newTestHandler(backend, challenge.NewMemoryContextStore(), &MockSessions{})

	h.Submit(context.Background(), "  jane@example.com ", "pw")

	assert.Equal(t, "jane@example.com", backend.last.Email)
	assert.Equal(t, "pw", backend.last.Password)
	assert.Equal(t, "dev-1", backend.last.DeviceID)
	assert.Equal(t, "Chrome on Windows", backend.last.DeviceName)
	assert.Equal(t, "fp", backend.last.Fingerprint)
}

func TestSubmit_DirectSession(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return &models.LoginResponse{
				Success: true, UserID: "u1", UserType: "business", AccessToken: "a", RefreshToken: "r",
			}, nil
		},
	}
	sessions := &MockSessions{
		EstablishFunc: func(context.Context, models.SessionArtifacts) (string, error) {
			return "/operations/dashboard", nil
		},
	}
	contexts := challenge.NewMemoryContextStore()
	h := newTestHandler(backend, contexts, sessions)

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	assert.Equal(t, OutcomeSession, out.Kind)
	assert.Equal(t, "/operations/dashboard", out.Destination)
	require.Len(t, sessions.got, 1)
	assert.Equal(t, "u1", sessions.got[0].UserID)
	assert.Equal(t, "a", sessions.got[0].AccessToken)

	_, err := contexts.Load()
	assert.ErrorIs(t, err, models.ErrMissingChallenge)
}

func TestSubmit_UnsuccessfulBodyIsAFailure(t *testing.T) {
	for _, resp := range []*models.LoginResponse{
		{Success: false},
		{Success: false, RequiresOTP: true, UserID: "u1", SessionID: "s1", Message: "Login could not be completed."},
	} {
		backend := &MockBackend{
			LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
				return resp, nil
			},
		}
		sessions := &MockSessions{}
		contexts := challenge.NewMemoryContextStore()
		h := newTestHandler(backend, contexts, sessions)

		out := h.Submit(context.Background(), "jane@example.com", "pw")

		assert.Equal(t, OutcomeFailure, out.Kind)
		require.NotNil(t, out.Error)
		assert.ErrorIs(t, out.Error, models.ErrUnsuccessful)
		assert.NotEmpty(t, out.Error.Message)
		if resp.Message != "" {
			assert.Contains(t, out.Error.Message, resp.Message)
		}
		assert.Empty(t, out.Destination)
		assert.Empty(t, sessions.got)
		_, err := contexts.Load()
		assert.ErrorIs(t, err, models.ErrMissingChallenge)
	}
}

func TestSubmit_RequiresOTP(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return &models.LoginResponse{Success: true, RequiresOTP: true, UserID: "u1", SessionID: "s1"}, nil
		},
	}
	contexts := challenge.NewMemoryContextStore()
	sessions := &MockSessions{}
	h := newTestHandler(backend, contexts, sessions, WithLoginTokenGenerator(func() string { return "tok" }))

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	require.Equal(t, OutcomeChallenge, out.Kind)
	assert.Equal(t, challenge.RouteVerifyOTP, out.Destination)
	assert.Empty(t, sessions.got)

	stored, err := contexts.Load()
	require.NoError(t, err)
	assert.Equal(t, models.MFAChallengeContext{
		Email: "jane@example.com", LoginToken: "tok", UserID: "u1", SessionID: "s1",
	}, *stored)
	assert.Equal(t, *stored, *out.Challenge)
}

func TestSubmit_RequiresOTPWithoutIDs(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return &models.LoginResponse{Success: true, RequiresOTP: true}, nil
		},
	}
	contexts := challenge.NewMemoryContextStore()
	h := newTestHandler(backend, contexts, &MockSessions{})

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	assert.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, "support@example.com", out.Error.SupportEmail)
	_, err := contexts.Load()
	assert.ErrorIs(t, err, models.ErrMissingChallenge)
}

func TestSubmit_ContextSaveFailure(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return &models.LoginResponse{Success: true, RequiresOTP: true, UserID: "u1", SessionID: "s1"}, nil
		},
	}
	h := newTestHandler(backend, &failingContexts{}, &MockSessions{})

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	assert.Equal(t, OutcomeFailure, out.Kind)
	assert.ErrorIs(t, out.Error, models.ErrStorage)
}

func TestSubmit_VerifyEmailRedirect(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return nil, &pkghttp.APIError{
				StatusCode: http.StatusForbidden,
				Envelope:   pkghttp.ErrorResponse{ErrorCode: "ACCOUNT_NOT_ACTIVATED", ActionRequired: "VERIFY_EMAIL"},
			}
		},
	}
	h := newTestHandler(backend, challenge.NewMemoryContextStore(), &MockSessions{})

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	assert.Equal(t, OutcomeRedirect, out.Kind)
	assert.Equal(t, classify.RouteVerifyEmail, out.Destination)
	assert.Equal(t, classify.SubtypeVerifyEmail, out.Error.Subtype)
}

func TestSubmit_TransportFailure(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return nil, errors.Join(models.ErrTransport, errors.New("connection refused"))
		},
	}
	h := newTestHandler(backend, challenge.NewMemoryContextStore(), &MockSessions{})

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	assert.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, classify.KindTransientNetwork, out.Error.Kind)
	assert.Equal(t, 1, h.Attempts())
}

func TestSubmit_SessionPersistFailure(t *testing.T) {
	backend := &MockBackend{
		LoginFunc: func(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
			return &models.LoginResponse{Success: true, UserType: "customer", AccessToken: "a"}, nil
		},
	}
	sessions := &MockSessions{
		EstablishFunc: func(context.Context, models.SessionArtifacts) (string, error) {
			return "", errors.New("persist session: disk full")
		},
	}
	h := newTestHandler(backend, challenge.NewMemoryContextStore(), sessions)

	out := h.Submit(context.Background(), "jane@example.com", "pw")

	assert.Equal(t, OutcomeFailure, out.Kind)
	assert.Empty(t, out.Destination)
}
