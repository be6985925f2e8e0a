package challenge

import (
	"strings"
	"unicode/utf8"

	"github.com/BradenHooton/haulgate/internal/classify"
	"github.com/BradenHooton/haulgate/internal/models"
)

const (
	lastSlot = models.OTPLength - 1

	incompleteCodeMessage = "Please enter the 6-digit code."
	codeResentNotice      = "A new code has been sent to your email."
)

var noEffect = Effect{Kind: EffectNone}

// Reduce applies ev to s. It never performs I/O.
func Reduce(s State, ev Event) (State, Effect) {
	if s.Phase == PhaseVerified {
		return s, noEffect
	}

	switch e := ev.(type) {
	case DigitEntered:
		return enterDigit(s, e), noEffect

	case Backspace:
		i := s.Entry.Focus
		if s.Entry.Digits[i] != "" {
			s.Entry.Digits[i] = ""
		} else if i > 0 {
			s.Entry.Focus = i - 1
		}
		return s, noEffect

	case ArrowLeft:
		if s.Entry.Focus > 0 {
			s.Entry.Focus--
		}
		return s, noEffect

	case ArrowRight:
		if s.Entry.Focus < lastSlot {
			s.Entry.Focus++
		}
		return s, noEffect

	case FocusSlot:
		if validSlot(e.Slot) {
			s.Entry.Focus = e.Slot
		}
		return s, noEffect

	case Pasted:
		return paste(s, e.Text), noEffect

	case TrustToggled:
		s.TrustDevice = !s.TrustDevice
		return s, noEffect

	case SubmitRequested:
		if s.Phase != PhaseCollecting {
			return s, noEffect
		}
		if !s.Entry.Complete() {
			s.Error = &classify.UserFacingError{Kind: classify.KindValidation, Message: incompleteCodeMessage}
			return s, noEffect
		}
		s.Phase = PhaseSubmitting
		s.Error = nil
		s.Notice = ""
		return s, Effect{Kind: EffectVerify, Code: s.Entry.Code(), TrustDevice: s.TrustDevice}

	case VerifySucceeded:
		if s.Phase != PhaseSubmitting {
			return s, noEffect
		}
		s.Phase = PhaseVerified
		s.Error = nil
		return s, Effect{Kind: EffectStopCooldown}

	case VerifyFailed:
		if s.Phase != PhaseSubmitting {
			return s, noEffect
		}
		s.Phase = PhaseCollecting
		s.Error = e.Err
		if s.Config.ClearOnReject {
			s.Entry = models.OTPEntry{}
		}
		if e.Err != nil && e.Err.Redirect != "" {
			return s, Effect{Kind: EffectNavigate, Route: e.Err.Redirect}
		}
		return s, noEffect

	case ResendRequested:
		if !s.CanResend() {
			return s, noEffect
		}
		s.Phase = PhaseResending
		s.Error = nil
		s.Notice = ""
		s.digitsAtResend = s.Entry.Digits
		return s, Effect{Kind: EffectResend}

	case ResendSucceeded:
		if s.Phase != PhaseResending {
			return s, noEffect
		}
		s.Phase = PhaseCollecting
		s.Resend.CooldownSeconds = s.Config.ResendCooldown
		// input typed while the request was in flight is for the new code
		if s.Entry.Digits == s.digitsAtResend {
			s.Entry = models.OTPEntry{}
		}
		s.digitsAtResend = [models.OTPLength]string{}
		s.Notice = codeResentNotice
		return s, Effect{Kind: EffectStartCooldown}

	case ResendFailed:
		if s.Phase != PhaseResending {
			return s, noEffect
		}
		s.Phase = PhaseCollecting
		s.Error = e.Err
		if e.Err != nil && e.Err.LockResend {
			s.Resend.HardLocked = true
		}
		return s, noEffect

	case Tick:
		if s.Resend.CooldownSeconds == 0 {
			return s, Effect{Kind: EffectStopCooldown}
		}
		s.Resend.CooldownSeconds--
		if s.Resend.CooldownSeconds == 0 {
			return s, Effect{Kind: EffectStopCooldown}
		}
		return s, noEffect
	}

	return s, noEffect
}

// enterDigit accepts exactly one ASCII digit; anything else leaves the slot untouched.
func enterDigit(s State, e DigitEntered) State {
	if !validSlot(e.Slot) {
		return s
	}
	if utf8.RuneCountInString(e.Char) != 1 || !isDigit(e.Char[0]) {
		return s
	}

	s.Entry.Digits[e.Slot] = e.Char
	s.Entry.Focus = nextFocus(s.Entry, e.Slot)
	return s
}

// nextFocus picks the first empty slot after slot, else the adjacent one.
func nextFocus(entry models.OTPEntry, slot int) int {
	if slot == lastSlot {
		return lastSlot
	}
	for i := slot + 1; i <= lastSlot; i++ {
		if entry.Digits[i] == "" {
			return i
		}
	}
	return slot + 1
}

func paste(s State, text string) State {
	var digits strings.Builder
	for i := 0; i < len(text) && digits.Len() < models.OTPLength; i++ {
		if isDigit(text[i]) {
			digits.WriteByte(text[i])
		}
	}
	d := digits.String()
	if d == "" {
		return s
	}

	for i := 0; i < len(d); i++ {
		s.Entry.Digits[i] = d[i : i+1]
	}
	s.Entry.Focus = min(len(d), lastSlot)
	return s
}

func validSlot(i int) bool {
	return i >= 0 && i <= lastSlot
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
