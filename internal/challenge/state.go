// Package challenge drives the OTP verification screen. Reduce is a pure
// transition function over discrete input events; Controller owns the
// network calls and the cooldown ticker around it.
package challenge

import (
	"github.com/BradenHooton/haulgate/internal/classify"
	"github.com/BradenHooton/haulgate/internal/models"
)

// Phase is the coarse state of the screen.
type Phase int

const (
	PhaseCollecting Phase = iota
	PhaseSubmitting
	PhaseResending
	PhaseVerified // terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseSubmitting:
		return "submitting"
	case PhaseResending:
		return "resending"
	case PhaseVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Config holds the tunables the reducer needs.
type Config struct {
	ResendCooldown int  // seconds applied after a successful resend
	ClearOnReject  bool // wipe the buffer when the backend rejects a code
}

// DefaultConfig matches the production screen.
func DefaultConfig() Config {
	return Config{ResendCooldown: models.ResendCooldownSeconds}
}

// State is everything the OTP screen renders.
type State struct {
	Config      Config
	Phase       Phase
	Entry       models.OTPEntry
	Resend      models.ResendState
	TrustDevice bool
	Error       *classify.UserFacingError
	Notice      string
	Destination string // set once the session is established

	// digits as they were when the pending resend was requested
	digitsAtResend [models.OTPLength]string
}

// NewState returns the Collecting state with an optional initial cooldown.
func NewState(cfg Config, initialCooldown int) State {
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = models.ResendCooldownSeconds
	}
	if initialCooldown < 0 {
		initialCooldown = 0
	}
	return State{
		Config: cfg,
		Phase:  PhaseCollecting,
		Resend: models.ResendState{CooldownSeconds: initialCooldown},
	}
}

// CanSubmit reports whether the verify button is enabled.
func (s State) CanSubmit() bool {
	return s.Phase == PhaseCollecting && s.Entry.Complete()
}

// CanResend reports whether the resend button is enabled.
func (s State) CanResend() bool {
	return s.Phase == PhaseCollecting && s.Resend.CanResend()
}

// Event is an input to Reduce.
type Event interface {
	event()
}

type (
	// DigitEntered is a keystroke into one slot.
	DigitEntered struct {
		Slot int
		Char string
	}
	// Backspace acts on the focused slot.
	Backspace struct{}
	ArrowLeft struct{}
	ArrowRight struct{}
	// FocusSlot moves focus without editing, e.g. a click.
	FocusSlot struct{ Slot int }
	// Pasted is clipboard text dropped onto the code input.
	Pasted struct{ Text string }
	TrustToggled struct{}
	SubmitRequested struct{}
	VerifySucceeded struct{}
	VerifyFailed struct{ Err *classify.UserFacingError }
	ResendRequested struct{}
	ResendSucceeded struct{}
	ResendFailed struct{ Err *classify.UserFacingError }
	// Tick is one second of cooldown elapsing.
	Tick struct{}
)

func (DigitEntered) event()    {}
func (Backspace) event()       {}
func (ArrowLeft) event()       {}
func (ArrowRight) event()      {}
func (FocusSlot) event()       {}
func (Pasted) event()          {}
func (TrustToggled) event()    {}
func (SubmitRequested) event() {}
func (VerifySucceeded) event() {}
func (VerifyFailed) event()    {}
func (ResendRequested) event() {}
func (ResendSucceeded) event() {}
func (ResendFailed) event()    {}
func (Tick) event()            {}

// EffectKind tells the controller what to do after a transition.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectVerify
	EffectResend
	EffectStartCooldown
	EffectStopCooldown
	EffectNavigate
)

// Effect is the side effect requested by a transition.
type Effect struct {
	Kind        EffectKind
	Code        string
	TrustDevice bool
	Route       string
}
