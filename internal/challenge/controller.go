package challenge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/haulgate/internal/classify"
	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/internal/session"
	"github.com/BradenHooton/haulgate/pkg/logger"
)

const expiredChallengeNotice = "Your verification session has expired. Please sign in again."

// Backend is the part of the auth API the OTP screen calls.
type Backend interface {
	VerifyMFA(ctx context.Context, loginToken string, req models.VerifyMFARequest) (*models.VerifyMFAResponse, error)
	ResendOTP(ctx context.Context, loginToken string, req models.ResendOTPRequest) (*models.ResendOTPResponse, error)
}

// DeviceInfoSource describes the current device.
type DeviceInfoSource interface {
	GetDeviceInfo() models.DeviceFingerprint
}

// SessionStarter stores issued tokens and schedules the landing redirect.
// After Close it must still store tokens but never redirect.
type SessionStarter interface {
	Establish(ctx context.Context, a models.SessionArtifacts) (string, error)
	Close()
}

// Controller runs one OTP challenge. All methods are safe for concurrent use;
// results that arrive after Close are dropped.
type Controller struct {
	backend    Backend
	devices    DeviceInfoSource
	sessions   SessionStarter
	contexts   ContextStore
	nav        session.Navigator
	classifier *classify.Classifier
	logger     *slog.Logger
	audit      *logger.AuditLogger
	metrics    *metrics.Metrics

	cfg             Config
	initialCooldown int
	tickInterval    time.Duration
	newTicker       TickerFactory

	mu         sync.Mutex
	state      State
	challenge  *models.MFAChallengeContext
	open       bool
	closed     bool
	stopTicker context.CancelFunc
	listeners  []func(State)
}

type Option func(*Controller)

func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithInitialCooldown sets the cooldown in seconds applied when the screen opens.
func WithInitialCooldown(seconds int) Option {
	return func(c *Controller) {
		c.initialCooldown = seconds
	}
}

func WithTicker(f TickerFactory, interval time.Duration) Option {
	return func(c *Controller) {
		c.newTicker = f
		c.tickInterval = interval
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func NewController(
	backend Backend,
	devices DeviceInfoSource,
	sessions SessionStarter,
	contexts ContextStore,
	nav session.Navigator,
	classifier *classify.Classifier,
	log *slog.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		backend:         backend,
		devices:         devices,
		sessions:        sessions,
		contexts:        contexts,
		nav:             nav,
		classifier:      classifier,
		logger:          log,
		audit:           logger.NewAuditLogger(log),
		cfg:             DefaultConfig(),
		initialCooldown: models.ResendCooldownSeconds,
		tickInterval:    time.Second,
		newTicker:       newTimeTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads the pending challenge. Without one it redirects to the login
// screen and returns models.ErrMissingChallenge.
func (c *Controller) Open() error {
	ch, err := c.contexts.Load()
	if err != nil || !ch.Valid() {
		c.logger.Warn("otp screen opened without a pending challenge")
		c.metrics.ChallengeEvent("missing_context")
		c.nav.Navigate(classify.RouteLogin, expiredChallengeNotice)
		return models.ErrMissingChallenge
	}

	c.mu.Lock()
	c.challenge = ch
	c.state = NewState(c.cfg, c.initialCooldown)
	c.open = true
	c.closed = false
	if c.state.Resend.CooldownSeconds > 0 {
		c.startCooldownLocked()
	}
	st := c.state
	c.mu.Unlock()

	c.metrics.ChallengeEvent("opened")
	c.notify(st)
	return nil
}

// Opened reports whether the code input is being shown.
func (c *Controller) Opened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && !c.closed
}

// State returns a snapshot of the screen state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Challenge returns the pending challenge, or nil before Open.
func (c *Controller) Challenge() *models.MFAChallengeContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return nil
	}
	ch := *c.challenge
	return &ch
}

// Subscribe registers fn to receive every new state.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Dispatch applies a local input event such as a keystroke or paste.
func (c *Controller) Dispatch(ev Event) State {
	c.mu.Lock()
	if !c.open || c.closed {
		st := c.state
		c.mu.Unlock()
		return st
	}
	st, eff := Reduce(c.state, ev)
	c.state = st
	nav := c.applyLocked(eff)
	c.mu.Unlock()

	c.navigate(nav)
	c.notify(st)
	return st
}

// Submit verifies the entered code. It is a no-op while another verify is
// in flight or the code is incomplete.
func (c *Controller) Submit(ctx context.Context) State {
	c.mu.Lock()
	if !c.open || c.closed {
		st := c.state
		c.mu.Unlock()
		return st
	}
	st, eff := Reduce(c.state, SubmitRequested{})
	c.state = st
	ch := *c.challenge
	c.mu.Unlock()
	c.notify(st)

	if eff.Kind != EffectVerify {
		return st
	}

	fp := c.devices.GetDeviceInfo()
	req := models.VerifyMFARequest{
		Email:       ch.Email,
		OTPCode:     eff.Code,
		TrustDevice: eff.TrustDevice,
		DeviceID:    fp.DeviceID,
		DeviceName:  fp.DeviceName,
		Fingerprint: fp.Fingerprint,
		UserID:      ch.UserID,
		SessionID:   ch.SessionID,
		DeviceInfo:  fp.DeviceInfo,
	}

	resp, err := c.backend.VerifyMFA(ctx, ch.LoginToken, req)

	var ufe *classify.UserFacingError
	switch {
	case err != nil:
		ufe = c.classifier.Classify(err, classify.OpVerify)
	case !resp.Success:
		c.logger.Warn("verify response reported success=false", "user_id", ch.UserID)
		ufe = c.classifier.Unsuccessful(classify.OpVerify, resp.Message)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping verify result after close", "user_id", ch.UserID)
		return st
	}

	if ufe != nil {
		st, eff = Reduce(c.state, VerifyFailed{Err: ufe})
		c.state = st
		nav := c.applyLocked(eff)
		c.mu.Unlock()

		c.metrics.ChallengeEvent("verify_rejected")
		c.audit.LogAuthAttempt(ctx, logger.AuditEvent{
			EventType:     logger.EventOTPVerified,
			UserID:        ch.UserID,
			Email:         ch.Email,
			DeviceID:      fp.DeviceID,
			Success:       false,
			FailureReason: string(ufe.Kind),
		})
		c.navigate(nav)
		c.notify(st)
		return st
	}

	st, eff = Reduce(c.state, VerifySucceeded{})
	c.state = st
	c.applyLocked(eff)
	c.mu.Unlock()

	if err := c.contexts.Clear(); err != nil {
		c.logger.Warn("failed to clear challenge context", "error", err)
	}
	c.metrics.ChallengeEvent("verified")
	c.audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventOTPVerified,
		UserID:    ch.UserID,
		Email:     ch.Email,
		DeviceID:  fp.DeviceID,
		Success:   true,
	})
	if resp.DeviceTrustToken != "" && resp.TrustExpiresAt != nil {
		c.audit.LogDeviceTrust(ctx, ch.UserID, fp.DeviceID, *resp.TrustExpiresAt)
	}

	// Close may land from here on. The code is already spent, so a closed
	// SessionStarter still stores the tokens but does not redirect.
	route, err := c.sessions.Establish(ctx, session.FromVerify(resp, ch.UserID))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("screen closed before the session redirect", "user_id", ch.UserID)
		return st
	}
	if err != nil {
		c.state.Error = c.classifier.Classify(err, classify.OpVerify)
	} else {
		c.state.Destination = route
		c.state.Notice = session.SuccessNotice
	}
	st = c.state
	c.mu.Unlock()

	c.notify(st)
	return st
}

// Resend asks the backend for a fresh code. It is a no-op during the
// cooldown, after a hard lock, or while another resend is in flight.
func (c *Controller) Resend(ctx context.Context) State {
	c.mu.Lock()
	if !c.open || c.closed {
		st := c.state
		c.mu.Unlock()
		return st
	}
	st, eff := Reduce(c.state, ResendRequested{})
	c.state = st
	ch := *c.challenge
	c.mu.Unlock()
	c.notify(st)

	if eff.Kind != EffectResend {
		return st
	}

	_, err := c.backend.ResendOTP(ctx, ch.LoginToken, models.ResendOTPRequest{
		Email:   ch.Email,
		OTPType: models.OTPTypeLogin,
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping resend result after close", "user_id", ch.UserID)
		return st
	}

	var ufe *classify.UserFacingError
	if err != nil {
		ufe = c.classifier.Classify(err, classify.OpResend)
		st, eff = Reduce(c.state, ResendFailed{Err: ufe})
	} else {
		st, eff = Reduce(c.state, ResendSucceeded{})
	}
	c.state = st
	c.applyLocked(eff)
	c.mu.Unlock()

	event := logger.AuditEvent{
		EventType: logger.EventOTPResent,
		UserID:    ch.UserID,
		Email:     ch.Email,
		Success:   err == nil,
	}
	switch {
	case err == nil:
		c.metrics.ChallengeEvent("resent")
	case ufe.LockResend:
		event.FailureReason = string(ufe.Kind)
		c.metrics.ChallengeEvent("resend_locked")
	default:
		event.FailureReason = string(ufe.Kind)
		c.metrics.ChallengeEvent("resend_failed")
	}
	c.audit.LogAuthAttempt(ctx, event)

	c.notify(st)
	return st
}

// StartOver abandons the challenge and returns to the login screen.
func (c *Controller) StartOver() {
	c.Close()
	if err := c.contexts.Clear(); err != nil {
		c.logger.Warn("failed to clear challenge context", "error", err)
	}
	c.nav.Navigate(classify.RouteLogin, "")
}

// Close tears the screen down: the cooldown stops, a pending redirect is
// cancelled, and in-flight results are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopCooldownLocked()
	c.mu.Unlock()

	c.sessions.Close()
}

func (c *Controller) applyLocked(eff Effect) string {
	switch eff.Kind {
	case EffectStartCooldown:
		c.startCooldownLocked()
	case EffectStopCooldown:
		c.stopCooldownLocked()
	case EffectNavigate:
		c.stopCooldownLocked()
		return eff.Route
	}
	return ""
}

func (c *Controller) startCooldownLocked() {
	if c.stopTicker != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopTicker = cancel
	t := c.newTicker(c.tickInterval)

	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				if !c.tick(ctx) {
					return
				}
			}
		}
	}()
}

func (c *Controller) stopCooldownLocked() {
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
}

// tick reports whether the cooldown loop should keep running.
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	st, eff := Reduce(c.state, Tick{})
	c.state = st
	running := eff.Kind != EffectStopCooldown
	if !running {
		c.stopCooldownLocked()
	}
	c.mu.Unlock()

	c.notify(st)
	return running
}

func (c *Controller) navigate(route string) {
	if route == "" {
		return
	}
	if err := c.contexts.Clear(); err != nil && !errors.Is(err, models.ErrMissingChallenge) {
		c.logger.Warn("failed to clear challenge context", "error", err)
	}
	c.nav.Navigate(route, "")
}

func (c *Controller) notify(st State) {
	c.mu.Lock()
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}
