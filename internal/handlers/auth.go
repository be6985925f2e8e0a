package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/internal/services"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// maxBodyBytes bounds request bodies on the auth endpoints
const maxBodyBytes = 64 << 10

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, req models.LoginRequest, meta services.RequestMeta) (*models.LoginResponse, error)
	VerifyMFA(ctx context.Context, req models.VerifyMFARequest, meta services.RequestMeta) (*models.VerifyMFAResponse, error)
	ResendOTP(ctx context.Context, req models.ResendOTPRequest) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	errors   *ErrorMapper
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, supportEmail string, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		errors:   NewErrorMapper(supportEmail),
		ipConfig: ipConfig,
	}
}

// Login handles the password step
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := ValidateRequest(req); err != nil {
		writeValidationError(w, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req, h.meta(r))
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// VerifyMFA handles the OTP step
// @Router /auth/mfa/verify [post]
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyMFARequest
	if !decode(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTPCode = strings.TrimSpace(req.OTPCode)
	if err := ValidateRequest(req); err != nil {
		writeValidationError(w, err)
		return
	}

	resp, err := h.service.VerifyMFA(r.Context(), req, h.meta(r))
	if err != nil {
		h.errors.Write(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ResendOTP handles code resend requests
// @Router /auth/otp/resend [post]
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.ResendOTPRequest
	if !decode(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := ValidateRequest(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.ResendOTP(r.Context(), req); err != nil {
		h.errors.Write(w, err)
		return
	}

	// Identical response whether or not a challenge exists for the address
	pkghttp.WriteJSON(w, http.StatusOK, models.ResendOTPResponse{
		Success: true,
		Message: "If a sign-in is in progress, a new code has been sent.",
	})
}

func (h *AuthHandler) meta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}
