package models

import "strings"

// OTPLength is the number of digits in a login passcode.
const OTPLength = 6

// ResendCooldownSeconds is applied after every successful resend.
const ResendCooldownSeconds = 60

// OTPEntry is the code buffer shown on the verification screen.
// Exactly one slot holds focus at a time.
type OTPEntry struct {
	Digits [OTPLength]string
	Focus  int
}

// Code concatenates the filled slots.
func (e OTPEntry) Code() string {
	return strings.Join(e.Digits[:], "")
}

// Complete reports whether all six digits are present.
func (e OTPEntry) Complete() bool {
	return len(e.Code()) == OTPLength
}

// ResendState tracks whether another code may be requested.
type ResendState struct {
	CooldownSeconds int
	HardLocked      bool // set on a rate-limit response, never cleared
}

// CanResend reports whether the resend action is enabled.
func (r ResendState) CanResend() bool {
	return r.CooldownSeconds == 0 && !r.HardLocked
}
