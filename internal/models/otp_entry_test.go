package models

import (
	"testing"
)

func TestOTPEntry_CodeAndComplete(t *testing.T) {
	var e OTPEntry
	if e.Complete() {
		t.Errorf("expected empty entry to be incomplete")
	}

	e.Digits = [OTPLength]string{"1", "2", "3", "", "5", "6"}
	if e.Code() != "12356" {
		t.Errorf("expected code 12356, got %s", e.Code())
	}
	if e.Complete() {
		t.Errorf("expected entry with a gap to be incomplete")
	}

	e.Digits[3] = "4"
	if !e.Complete() {
		t.Errorf("expected full entry to be complete, got %s", e.Code())
	}
}

func TestResendState_CanResend(t *testing.T) {
	cases := []struct {
		name  string
		state ResendState
		want  bool
	}{
		{"idle", ResendState{}, true},
		{"cooling down", ResendState{CooldownSeconds: 12}, false},
		{"hard locked", ResendState{HardLocked: true}, false},
		{"hard locked and cooling", ResendState{CooldownSeconds: 3, HardLocked: true}, false},
	}

	for _, tc := range cases {
		if got := tc.state.CanResend(); got != tc.want {
			t.Errorf("%s: expected CanResend %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestLoginAttempt_Blocked(t *testing.T) {
	a := LoginAttempt{AttemptCount: 4}
	if a.Blocked(MaxLoginAttempts) {
		t.Errorf("expected 4 attempts to be allowed")
	}

	a.AttemptCount = 5
	if !a.Blocked(MaxLoginAttempts) {
		t.Errorf("expected 5 attempts to block")
	}

	// zero falls back to the default brake
	if !a.Blocked(0) {
		t.Errorf("expected default max to block at 5")
	}
}

func TestMFAChallengeContext_Valid(t *testing.T) {
	ctx := &MFAChallengeContext{Email: "a@b.co", LoginToken: "tok", UserID: "u1", SessionID: "s1"}
	if !ctx.Valid() {
		t.Errorf("expected complete context to be valid")
	}

	missing := *ctx
	missing.SessionID = ""
	if missing.Valid() {
		t.Errorf("expected context without session id to be invalid")
	}

	var nilCtx *MFAChallengeContext
	if nilCtx.Valid() {
		t.Errorf("expected nil context to be invalid")
	}
}
