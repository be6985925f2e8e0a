// Package classify maps failures at the auth backend boundary to the bounded
// set of user-facing remediation states shown by the login screens.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/haulgate/internal/models"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// Operation names the network boundary an error came from.
type Operation int

const (
	OpLogin Operation = iota
	OpVerify
	OpResend
)

func (o Operation) String() string {
	switch o {
	case OpLogin:
		return "login"
	case OpVerify:
		return "verify"
	case OpResend:
		return "resend"
	default:
		return "unknown"
	}
}

// Kind is the top-level error class.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountState       Kind = "account_state"
	KindPaymentRequired    Kind = "payment_required"
	KindAccountGone        Kind = "account_gone"
	KindRateLimited        Kind = "rate_limited"
	KindValidation         Kind = "validation"
	KindTransientNetwork   Kind = "transient_network"
)

// Subtype refines KindAccountState.
type Subtype string

const (
	SubtypeNone            Subtype = ""
	SubtypeVerifyEmail     Subtype = "verify_email"
	SubtypePendingApproval Subtype = "pending_approval"
	SubtypeDisabled        Subtype = "disabled"
	SubtypeInactive        Subtype = "inactive"
	SubtypeSuspended       Subtype = "suspended"
	SubtypeBanned          Subtype = "banned"
	SubtypeDeleted         Subtype = "deleted"
	SubtypeExpired         Subtype = "expired"
	SubtypeUnknownStatus   Subtype = "unknown_status"
	SubtypeAccessDenied    Subtype = "access_denied"
)

// Routes the classifier can send the user to instead of showing an error.
const (
	RouteVerifyEmail = "/verify-email"
	RouteLogin       = "/login"
)

const (
	invalidCredentialsMessage = "Invalid credentials"
	invalidCodeMessage        = "Invalid or expired code"
	genericMessage            = "Something went wrong. Please try again."
	networkMessage            = "Unable to reach the server. Check your connection and try again."
)

// UserFacingError is the single message shown for a failed action.
type UserFacingError struct {
	Kind         Kind
	Subtype      Subtype
	Message      string
	SupportEmail string
	Redirect     string // non-empty when the flow continues on another screen
	LockResend   bool   // resend must stay disabled for the rest of the session
	StatusCode   int
	Code         string
	Err          error
}

func (e *UserFacingError) Error() string {
	return e.Message
}

func (e *UserFacingError) Unwrap() error {
	return e.Err
}

// accountStates maps normalized 403 codes to their remediation.
var accountStates = map[string]struct {
	subtype Subtype
	format  string
}{
	models.CodeAccountDisabled:      {SubtypeDisabled, "Your account has been disabled. Contact %s to restore access."},
	models.CodeAccountInactive:      {SubtypeInactive, "Your account is inactive. Contact %s to reactivate it."},
	models.CodeAccountSuspended:     {SubtypeSuspended, "Your account has been suspended. Contact %s for more information."},
	models.CodeAccountBanned:        {SubtypeBanned, "Your account has been banned. Contact %s if you believe this is a mistake."},
	models.CodeAccountDeleted:       {SubtypeDeleted, "This account has been deleted. Contact %s for help."},
	models.CodeAccountExpired:       {SubtypeExpired, "Your account has expired. Contact %s to renew it."},
	models.CodeAccountUnknownStatus: {SubtypeUnknownStatus, "We could not confirm your account status. Contact %s for help."},
}

// legacyAliases are status words older backends send without the ACCOUNT_ prefix.
var legacyAliases = map[string]bool{
	"PENDING":        true,
	"DISABLED":       true,
	"INACTIVE":       true,
	"SUSPENDED":      true,
	"BANNED":         true,
	"DELETED":        true,
	"EXPIRED":        true,
	"UNKNOWN_STATUS": true,
}

// Classifier turns transport errors into UserFacingErrors.
type Classifier struct {
	supportEmail string
}

// New creates a classifier that falls back to defaultSupportEmail.
func New(defaultSupportEmail string) *Classifier {
	return &Classifier{supportEmail: defaultSupportEmail}
}

// Classify returns nil for a nil error and a populated UserFacingError otherwise.
func (c *Classifier) Classify(err error, op Operation) *UserFacingError {
	if err == nil {
		return nil
	}

	var ufe *UserFacingError
	if errors.As(err, &ufe) {
		return ufe
	}

	var apiErr *pkghttp.APIError
	if errors.As(err, &apiErr) {
		return c.classifyAPI(apiErr, op)
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.Validation(validationMessage(verrs), err)
	case errors.Is(err, models.ErrTooManyAttempts):
		return &UserFacingError{
			Kind:         KindRateLimited,
			Message:      "Too many login attempts. Please reload the page and try again.",
			SupportEmail: c.supportEmail,
			Err:          err,
		}
	case errors.Is(err, models.ErrMissingChallenge):
		return &UserFacingError{
			Kind:         KindValidation,
			Message:      "Your verification session has expired. Please sign in again.",
			SupportEmail: c.supportEmail,
			Redirect:     RouteLogin,
			Err:          err,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, models.ErrTransport):
		return &UserFacingError{
			Kind:         KindTransientNetwork,
			Message:      networkMessage,
			SupportEmail: c.supportEmail,
			Err:          err,
		}
	}

	return c.fallback(err, "", 0, "")
}

// Validation builds a client-side validation error. These never reach the network.
func (c *Classifier) Validation(message string, cause error) *UserFacingError {
	if message == "" {
		message = "Please check your input and try again."
	}
	return &UserFacingError{
		Kind:         KindValidation,
		Message:      message,
		SupportEmail: c.supportEmail,
		Err:          cause,
	}
}

// Unsuccessful classifies a 2xx response whose body reports success=false.
// It is never treated as a login.
func (c *Classifier) Unsuccessful(op Operation, serverMessage string) *UserFacingError {
	return c.fallback(fmt.Errorf("%s: %w", op, models.ErrUnsuccessful), serverMessage, 0, "")
}

func (c *Classifier) classifyAPI(apiErr *pkghttp.APIError, op Operation) *UserFacingError {
	env := apiErr.Envelope
	support := c.supportFor(env)
	code := NormalizeCode(env.ErrorCode)
	action := strings.ToUpper(strings.TrimSpace(env.ActionRequired))

	out := &UserFacingError{
		SupportEmail: support,
		StatusCode:   apiErr.StatusCode,
		Code:         code,
		Err:          apiErr,
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		out.Kind = KindInvalidCredentials
		out.Message = invalidCredentialsMessage
		if op == OpVerify {
			out.Message = firstNonEmpty(env.Message, invalidCodeMessage)
		}

	case http.StatusForbidden:
		out.Kind = KindAccountState
		c.classifyForbidden(out, code, action, support)

	case http.StatusPaymentRequired:
		out.Kind = KindPaymentRequired
		out.Message = withSupport(
			firstNonEmpty(env.Message, "An active subscription is required to sign in."), support)

	case http.StatusGone:
		out.Kind = KindAccountGone
		out.Message = fmt.Sprintf("This account has been permanently deleted. Contact %s if you need help.", support)

	case http.StatusTooManyRequests:
		out.Kind = KindRateLimited
		if op == OpResend {
			out.LockResend = true
			out.Message = fmt.Sprintf("Too many code requests. Resending is disabled for now; contact %s if you still need a code.", support)
		} else {
			out.Message = firstNonEmpty(env.Message, "Too many attempts. Please wait a moment and try again.")
		}

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		out.Kind = KindValidation
		out.Message = firstNonEmpty(env.Message, "Please check your input and try again.")
		if code == models.CodeInvalidOTP {
			out.Message = firstNonEmpty(env.Message, invalidCodeMessage)
		}

	default:
		return c.fallback(apiErr, env.Message, apiErr.StatusCode, code)
	}

	return out
}

func (c *Classifier) classifyForbidden(out *UserFacingError, code, action, support string) {
	switch {
	case action == models.ActionVerifyEmail || code == models.CodeNotActivated:
		out.Subtype = SubtypeVerifyEmail
		out.Redirect = RouteVerifyEmail
		out.Message = "Please verify your email address to continue."

	case action == models.ActionWaitForApproval || code == models.CodeAccountPending:
		out.Subtype = SubtypePendingApproval
		out.Message = fmt.Sprintf("Your account is pending admin approval. Contact %s if this takes longer than expected.", support)

	default:
		if state, ok := accountStates[code]; ok {
			out.Subtype = state.subtype
			out.Message = fmt.Sprintf(state.format, support)
			return
		}
		out.Subtype = SubtypeAccessDenied
		out.Message = fmt.Sprintf("Access denied. Contact %s for help.", support)
	}
}

func (c *Classifier) fallback(err error, serverMessage string, status int, code string) *UserFacingError {
	return &UserFacingError{
		Kind:         KindTransientNetwork,
		Message:      withSupport(firstNonEmpty(serverMessage, genericMessage), c.supportEmail),
		SupportEmail: c.supportEmail,
		StatusCode:   status,
		Code:         code,
		Err:          err,
	}
}

func (c *Classifier) supportFor(env pkghttp.ErrorResponse) string {
	if s := strings.TrimSpace(env.SupportEmail); s != "" {
		return s
	}
	return c.supportEmail
}

// NormalizeCode upper-cases an error code and restores the ACCOUNT_ prefix on
// legacy status aliases, so "suspended" and "account_suspended" both become
// ACCOUNT_SUSPENDED.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.NewReplacer("-", "_", " ", "_").Replace(code)
	if legacyAliases[code] {
		return "ACCOUNT_" + code
	}
	return code
}

func withSupport(message, support string) string {
	if support == "" || strings.Contains(message, support) {
		return message
	}
	return fmt.Sprintf("%s If the problem continues, contact %s.", message, support)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func validationMessage(verrs validator.ValidationErrors) string {
	if len(verrs) == 0 {
		return ""
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", strings.ToLower(fe.Field()))
	case "email":
		return "Please enter a valid email address."
	case "len", "numeric":
		return fmt.Sprintf("Please enter the %d-digit code.", models.OTPLength)
	default:
		return fmt.Sprintf("%s is invalid.", strings.ToLower(fe.Field()))
	}
}
