package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrEmailNotVerified     = errors.New("email address not verified")
	ErrAccountPending       = errors.New("account is pending approval")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrAccountSuspended     = errors.New("account is suspended")
	ErrAccountBanned        = errors.New("account is banned")
	ErrAccountDeleted       = errors.New("account is deleted")
	ErrAccountExpired       = errors.New("account has expired")
	ErrAccountUnknownStatus = errors.New("account status is unknown")
	ErrSubscriptionRequired = errors.New("subscription required")

	// Challenge errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidOTP        = errors.New("invalid or expired code")
	ErrOTPAttemptsLocked = errors.New("too many incorrect codes")
	ErrChallengeNotFound = errors.New("login challenge not found")

	// Client-side errors
	ErrTooManyAttempts  = errors.New("too many login attempts")
	ErrMissingChallenge = errors.New("no login challenge in progress")
	ErrTransport        = errors.New("transport failure")
	ErrStorage          = errors.New("storage unavailable")
	ErrUnsuccessful     = errors.New("backend reported an unsuccessful result")
)
