package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types issued by the auth backend
const (
	TokenTypeAccess      = "access"
	TokenTypeRefresh     = "refresh"
	TokenTypeDeviceTrust = "device_trust"
)

// OTPTypeLogin is the only otp_type accepted by the resend endpoint.
const OTPTypeLogin = "login"

// TokenClaims are the JWT claims shared by every token the backend signs.
type TokenClaims struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	UserType string `json:"user_type,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DeviceFingerprint
}

// LoginResponse is returned by POST /auth/login.
// Tokens are only present when no OTP is required.
type LoginResponse struct {
	Success      bool   `json:"success"`
	RequiresOTP  bool   `json:"requires_otp"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id,omitempty"`
	UserType     string `json:"user_type,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Message      string `json:"message,omitempty"`
}

// VerifyMFARequest is the body of POST /auth/mfa/verify.
type VerifyMFARequest struct {
	Email       string     `json:"email" validate:"required,email"`
	OTPCode     string     `json:"otp_code" validate:"required,otpcode"`
	TrustDevice bool       `json:"trust_device"`
	DeviceID    string     `json:"device_id"`
	DeviceName  string     `json:"device_name"`
	Fingerprint string     `json:"fingerprint"`
	UserID      string     `json:"user_id" validate:"required"`
	SessionID   string     `json:"session_id" validate:"required"`
	DeviceInfo  DeviceInfo `json:"device_info"`
}

// VerifyMFAResponse is returned by POST /auth/mfa/verify.
type VerifyMFAResponse struct {
	Success          bool       `json:"success"`
	UserID           string     `json:"user_id"`
	UserType         string     `json:"user_type"`
	AccessToken      string     `json:"access_token"`
	RefreshToken     string     `json:"refresh_token"`
	DeviceTrustToken string     `json:"device_trust_token,omitempty"`
	TrustExpiresAt   *time.Time `json:"trust_expires_at,omitempty"`
	Message          string     `json:"message,omitempty"`
}

// ResendOTPRequest is the body of POST /auth/otp/resend.
type ResendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTPType string `json:"otp_type" validate:"required,oneof=login"`
}

// ResendOTPResponse is returned by POST /auth/otp/resend.
type ResendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SessionArtifacts are the credentials handed to the session store after login.
type SessionArtifacts struct {
	UserID           string     `json:"user_id"`
	UserType         string     `json:"user_type"`
	AccessToken      string     `json:"access_token"`
	RefreshToken     string     `json:"refresh_token"`
	DeviceTrustToken string     `json:"device_trust_token,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	TrustExpiresAt   *time.Time `json:"trust_expires_at,omitempty"`
	IssuedAt         time.Time  `json:"issued_at"`
}
