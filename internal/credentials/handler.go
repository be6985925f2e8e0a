// Package credentials handles the identifier/secret step of the login flow.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/BradenHooton/haulgate/internal/challenge"
	"github.com/BradenHooton/haulgate/internal/classify"
	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/internal/session"
	"github.com/BradenHooton/haulgate/pkg/logger"
)

var validate = validator.New()

// Backend is the login endpoint of the auth API.
type Backend interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

// DeviceInfoSource describes the current device.
type DeviceInfoSource interface {
	GetDeviceInfo() models.DeviceFingerprint
}

// SessionStarter finalizes a login that needs no second factor.
type SessionStarter interface {
	Establish(ctx context.Context, a models.SessionArtifacts) (string, error)
}

// OutcomeKind says how a submission ended.
type OutcomeKind int

const (
	OutcomeFailure OutcomeKind = iota
	OutcomeSession
	OutcomeChallenge
	OutcomeRedirect
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSession:
		return "session"
	case OutcomeChallenge:
		return "challenge"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "failure"
	}
}

// Outcome is the result of one Submit.
type Outcome struct {
	Kind        OutcomeKind
	Destination string
	Challenge   *models.MFAChallengeContext
	Error       *classify.UserFacingError
}

// Handler validates credentials, enforces the local attempt brake and
// dispatches the backend's answer. The brake resets only with Reset.
type Handler struct {
	backend    Backend
	devices    DeviceInfoSource
	contexts   challenge.ContextStore
	sessions   SessionStarter
	classifier *classify.Classifier
	logger     *slog.Logger
	audit      *logger.AuditLogger
	metrics    *metrics.Metrics

	maxAttempts int
	newToken    func() string

	mu       sync.Mutex
	attempts int
	inFlight bool
}

type Option func(*Handler)

// WithMaxAttempts overrides models.MaxLoginAttempts.
func WithMaxAttempts(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxAttempts = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLoginTokenGenerator replaces the random challenge correlation token.
func WithLoginTokenGenerator(fn func() string) Option {
	return func(h *Handler) {
		h.newToken = fn
	}
}

func NewHandler(
	backend Backend,
	devices DeviceInfoSource,
	contexts challenge.ContextStore,
	sessions SessionStarter,
	classifier *classify.Classifier,
	log *slog.Logger,
	opts ...Option,
) *Handler {
	h := &Handler{
		backend:     backend,
		devices:     devices,
		contexts:    contexts,
		sessions:    sessions,
		classifier:  classifier,
		logger:      log,
		audit:       logger.NewAuditLogger(log),
		maxAttempts: models.MaxLoginAttempts,
		newToken:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attempts returns how many submissions reached the backend.
func (h *Handler) Attempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Reset clears the attempt counter, as a page reload would.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = 0
}

// Submit runs one login attempt.
func (h *Handler) Submit(ctx context.Context, identifier, secret string) Outcome {
	attempt := models.LoginAttempt{
		Identifier: strings.TrimSpace(identifier),
		Secret:     secret,
	}

	h.mu.Lock()
	attempt.AttemptCount = h.attempts
	if attempt.Blocked(h.maxAttempts) {
		h.mu.Unlock()
		h.metrics.LoginOutcome("blocked")
		h.logger.Warn("login attempt blocked locally", "attempts", attempt.AttemptCount)
		return failure(h.classifier.Classify(models.ErrTooManyAttempts, classify.OpLogin))
	}
	if err := validate.Struct(attempt); err != nil {
		h.mu.Unlock()
		h.metrics.LoginOutcome("invalid")
		return failure(h.classifier.Classify(err, classify.OpLogin))
	}
	if h.inFlight {
		h.mu.Unlock()
		return failure(h.classifier.Validation("A sign-in is already in progress.", nil))
	}
	h.attempts++
	h.inFlight = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.inFlight = false
		h.mu.Unlock()
	}()

	fp := h.devices.GetDeviceInfo()
	resp, err := h.backend.Login(ctx, models.LoginRequest{
		Email:             attempt.Identifier,
		Password:          attempt.Secret,
		DeviceFingerprint: fp,
	})

	event := logger.AuditEvent{
		EventType: logger.EventLoginSubmitted,
		Email:     attempt.Identifier,
		DeviceID:  fp.DeviceID,
		UserAgent: fp.DeviceInfo.UserAgent,
		Success:   err == nil,
	}

	if err != nil {
		ufe := h.classifier.Classify(err, classify.OpLogin)
		event.FailureReason = string(ufe.Kind)
		h.audit.LogAuthAttempt(ctx, event)

		if ufe.Redirect != "" {
			h.metrics.LoginOutcome("redirect")
			return Outcome{Kind: OutcomeRedirect, Destination: ufe.Redirect, Error: ufe}
		}
		h.metrics.LoginOutcome(string(ufe.Kind))
		return failure(ufe)
	}

	event.UserID = resp.UserID
	if !resp.Success {
		ufe := h.classifier.Unsuccessful(classify.OpLogin, resp.Message)
		event.Success = false
		event.FailureReason = string(ufe.Kind)
		h.audit.LogAuthAttempt(ctx, event)
		h.logger.Warn("login response reported success=false", "user_id", resp.UserID)
		h.metrics.LoginOutcome("unsuccessful")
		return failure(ufe)
	}
	h.audit.LogAuthAttempt(ctx, event)

	if !resp.RequiresOTP {
		return h.establish(ctx, resp)
	}
	return h.startChallenge(ctx, attempt.Identifier, resp)
}

func (h *Handler) establish(ctx context.Context, resp *models.LoginResponse) Outcome {
	route, err := h.sessions.Establish(ctx, session.FromLogin(resp))
	if err != nil {
		h.metrics.LoginOutcome("session_error")
		return failure(h.classifier.Classify(err, classify.OpLogin))
	}
	h.metrics.LoginOutcome("session")
	return Outcome{Kind: OutcomeSession, Destination: route}
}

func (h *Handler) startChallenge(ctx context.Context, email string, resp *models.LoginResponse) Outcome {
	mfa := models.MFAChallengeContext{
		Email:      email,
		LoginToken: h.newToken(),
		UserID:     resp.UserID,
		SessionID:  resp.SessionID,
	}
	if !mfa.Valid() {
		h.logger.Error("backend required otp without correlation ids", "user_id", resp.UserID)
		h.metrics.LoginOutcome("malformed_challenge")
		return failure(h.classifier.Classify(errors.New("challenge response missing user or session id"), classify.OpLogin))
	}

	if err := h.contexts.Save(mfa); err != nil {
		h.metrics.LoginOutcome("session_error")
		return failure(h.classifier.Classify(fmt.Errorf("%w: save challenge: %w", models.ErrStorage, err), classify.OpLogin))
	}

	h.audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventChallengeIssued,
		UserID:    mfa.UserID,
		Email:     mfa.Email,
		Success:   true,
	})
	h.metrics.LoginOutcome("challenge")
	return Outcome{Kind: OutcomeChallenge, Destination: challenge.RouteVerifyOTP, Challenge: &mfa}
}

func failure(ufe *classify.UserFacingError) Outcome {
	return Outcome{Kind: OutcomeFailure, Error: ufe}
}
