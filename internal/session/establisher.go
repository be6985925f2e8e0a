package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/pkg/logger"
)

// DefaultRedirectDelay leaves the success acknowledgment on screen before navigating.
const DefaultRedirectDelay = 1500 * time.Millisecond

// SuccessNotice is shown while the redirect is pending.
const SuccessNotice = "Login successful. Redirecting..."

// Navigator performs route changes for whichever front-end hosts the flow.
type Navigator interface {
	Navigate(route, notice string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route, notice string)

func (f NavigatorFunc) Navigate(route, notice string) { f(route, notice) }

// Scheduler runs fn after d and returns a function that cancels it.
type Scheduler func(d time.Duration, fn func()) (cancel func() bool)

func timeScheduler(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Establisher finalizes a login: it stores the issued artifacts and navigates
// to the user's landing route after a short delay. Once closed it still
// stores artifacts but never navigates; each screen owns its own Establisher.
type Establisher struct {
	store    TokenStore
	nav      Navigator
	logger   *slog.Logger
	audit    *logger.AuditLogger
	delay    time.Duration
	schedule Scheduler
	now      func() time.Time

	mu      sync.Mutex
	pending func() bool
	closed  bool
}

type EstablisherOption func(*Establisher)

func WithRedirectDelay(d time.Duration) EstablisherOption {
	return func(e *Establisher) {
		e.delay = d
	}
}

func WithScheduler(s Scheduler) EstablisherOption {
	return func(e *Establisher) {
		e.schedule = s
	}
}

func NewEstablisher(store TokenStore, nav Navigator, log *slog.Logger, opts ...EstablisherOption) *Establisher {
	e := &Establisher{
		store:    store,
		nav:      nav,
		logger:   log,
		audit:    logger.NewAuditLogger(log),
		delay:    DefaultRedirectDelay,
		schedule: timeScheduler,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Establish persists a and schedules navigation to the user's landing route,
// which it returns.
func (e *Establisher) Establish(ctx context.Context, a models.SessionArtifacts) (string, error) {
	if a.IssuedAt.IsZero() {
		a.IssuedAt = e.now().UTC()
	}
	if a.ExpiresAt == nil {
		a.ExpiresAt = tokenExpiry(a.AccessToken)
	}

	if err := e.store.Save(a); err != nil {
		e.logger.Error("failed to persist session", "user_id", a.UserID, "error", err)
		return "", fmt.Errorf("persist session: %w", err)
	}

	route := DestinationFor(a.UserType)
	e.audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventSessionEstablished,
		UserID:    a.UserID,
		Success:   true,
		Metadata: map[string]string{
			"user_type":   a.UserType,
			"destination": route,
			"trusted":     fmt.Sprintf("%t", a.DeviceTrustToken != ""),
		},
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.logger.Debug("session stored after close, skipping redirect", "user_id", a.UserID)
		return route, nil
	}
	if e.pending != nil {
		e.pending()
	}
	e.pending = e.schedule(e.delay, func() {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		e.pending = nil
		e.mu.Unlock()
		e.nav.Navigate(route, SuccessNotice)
	})

	return route, nil
}

// Close cancels a navigation that has not fired yet and suppresses later ones.
func (e *Establisher) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.pending != nil {
		e.pending()
		e.pending = nil
	}
}

// FromVerify builds the artifacts issued by a successful OTP verification.
func FromVerify(resp *models.VerifyMFAResponse, userID string) models.SessionArtifacts {
	if resp.UserID != "" {
		userID = resp.UserID
	}
	return models.SessionArtifacts{
		UserID:           userID,
		UserType:         resp.UserType,
		AccessToken:      resp.AccessToken,
		RefreshToken:     resp.RefreshToken,
		DeviceTrustToken: resp.DeviceTrustToken,
		TrustExpiresAt:   resp.TrustExpiresAt,
	}
}

// FromLogin builds the artifacts issued when no OTP step was required.
func FromLogin(resp *models.LoginResponse) models.SessionArtifacts {
	return models.SessionArtifacts{
		UserID:       resp.UserID,
		UserType:     resp.UserType,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
}

// tokenExpiry reads exp from a JWT without verifying it. The client holds no
// signing key; the value is only used to decide when to re-authenticate.
func tokenExpiry(token string) *time.Time {
	if token == "" {
		return nil
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}
