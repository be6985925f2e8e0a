package models

// Account status values stored on User.Status
const (
	StatusActive       = "active"
	StatusPending      = "pending"
	StatusNotActivated = "not_activated"
	StatusDisabled     = "disabled"
	StatusInactive     = "inactive"
	StatusSuspended    = "suspended"
	StatusBanned       = "banned"
	StatusDeleted      = "deleted"
	StatusExpired      = "expired"
)

// Subscription states stored on User.SubscriptionStatus
const (
	SubscriptionNone   = ""
	SubscriptionActive = "active"
	SubscriptionLapsed = "lapsed"
)

// Error codes carried in the error envelope's error_code field.
const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeNotActivated         = "NOT_ACTIVATED"
	CodeAccountPending       = "ACCOUNT_PENDING"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeAccountInactive      = "ACCOUNT_INACTIVE"
	CodeAccountSuspended     = "ACCOUNT_SUSPENDED"
	CodeAccountBanned        = "ACCOUNT_BANNED"
	CodeAccountDeleted       = "ACCOUNT_DELETED"
	CodeAccountExpired       = "ACCOUNT_EXPIRED"
	CodeAccountUnknownStatus = "ACCOUNT_UNKNOWN_STATUS"
	CodePaymentRequired      = "PAYMENT_REQUIRED"
	CodeRateLimited          = "RATE_LIMIT_EXCEEDED"
	CodeInvalidOTP           = "INVALID_OTP"
	CodeValidation           = "VALIDATION_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
)

// Remediation actions carried in the error envelope's action_required field.
const (
	ActionVerifyEmail     = "VERIFY_EMAIL"
	ActionWaitForApproval = "WAIT_FOR_APPROVAL"
	ActionContactSupport  = "CONTACT_SUPPORT"
	ActionRenew           = "RENEW_SUBSCRIPTION"
)

// User types that land on the operations dashboard.
const (
	UserTypeAdmin         = "admin"
	UserTypeSuperAdmin    = "super_admin"
	UserTypeOperator      = "operator"
	UserTypeProvider      = "provider"
	UserTypeBusiness      = "business"
	UserTypeBusinessOwner = "business_owner"
	UserTypeStaff         = "staff"
	UserTypeCustomer      = "customer"
)
