package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/haulgate/internal/models"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// ErrorMapper turns service sentinel errors into the error envelope
type ErrorMapper struct {
	supportEmail string
}

func NewErrorMapper(supportEmail string) *ErrorMapper {
	return &ErrorMapper{supportEmail: supportEmail}
}

type accountError struct {
	err     error
	status  int
	code    string
	action  string
	message string
}

var accountErrors = []accountError{
	{models.ErrEmailNotVerified, http.StatusForbidden, models.CodeNotActivated, models.ActionVerifyEmail,
		"Please verify your email address before signing in."},
	{models.ErrAccountPending, http.StatusForbidden, models.CodeAccountPending, models.ActionWaitForApproval,
		"Your account is awaiting approval."},
	{models.ErrAccountDisabled, http.StatusForbidden, models.CodeAccountDisabled, models.ActionContactSupport,
		"Your account has been disabled."},
	{models.ErrAccountInactive, http.StatusForbidden, models.CodeAccountInactive, models.ActionContactSupport,
		"Your account is inactive."},
	{models.ErrAccountSuspended, http.StatusForbidden, models.CodeAccountSuspended, models.ActionContactSupport,
		"Your account has been suspended."},
	{models.ErrAccountBanned, http.StatusForbidden, models.CodeAccountBanned, models.ActionContactSupport,
		"Your account has been banned."},
	{models.ErrAccountExpired, http.StatusForbidden, models.CodeAccountExpired, models.ActionContactSupport,
		"Your account has expired."},
	{models.ErrAccountUnknownStatus, http.StatusForbidden, models.CodeAccountUnknownStatus, models.ActionContactSupport,
		"Your account cannot sign in right now."},
	{models.ErrAccountDeleted, http.StatusGone, models.CodeAccountDeleted, "",
		"This account has been deleted."},
	{models.ErrSubscriptionRequired, http.StatusPaymentRequired, models.CodePaymentRequired, models.ActionRenew,
		"Your subscription has lapsed."},
}

// Write writes the envelope for err
func (m *ErrorMapper) Write(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteError(w, http.StatusUnauthorized, models.CodeInvalidCredentials, "Invalid email or password")
		return
	case errors.Is(err, models.ErrInvalidOTP), errors.Is(err, models.ErrChallengeNotFound):
		pkghttp.WriteError(w, http.StatusUnauthorized, models.CodeInvalidOTP, "Invalid or expired code")
		return
	case errors.Is(err, models.ErrOTPAttemptsLocked):
		pkghttp.WriteTooManyRequests(w, "Too many incorrect codes. Request a new code later.")
		return
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
		return
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	for _, ae := range accountErrors {
		if errors.Is(err, ae.err) {
			resp := pkghttp.ErrorResponse{
				Status:         ae.status,
				ErrorCode:      ae.code,
				ActionRequired: ae.action,
				Message:        ae.message,
			}
			if ae.status == http.StatusForbidden {
				resp.SupportEmail = m.supportEmail
			}
			pkghttp.WriteErrorResponse(w, resp)
			return
		}
	}

	pkghttp.WriteInternalError(w, "Internal server error")
}
