// Package client talks to the auth backend. Non-2xx responses are returned as
// *pkghttp.APIError and transport failures wrap models.ErrTransport.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/models"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// Backend routes
const (
	PathLogin     = "/auth/login"
	PathVerifyMFA = "/auth/mfa/verify"
	PathResendOTP = "/auth/otp/resend"
)

// HeaderLoginToken carries the client-generated correlation token for the OTP step.
const HeaderLoginToken = "X-Login-Token"

const tracerName = "github.com/BradenHooton/haulgate/internal/client"

// AuthClient calls the three login endpoints.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	userAgent  string
}

// Option configures an AuthClient.
type Option func(*AuthClient)

// WithHTTPClient replaces the default http.Client. The default sets no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AuthClient) {
		c.httpClient = hc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *AuthClient) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *AuthClient) {
		c.tracer = t
	}
}

func WithUserAgent(ua string) Option {
	return func(c *AuthClient) {
		c.userAgent = ua
	}
}

func New(baseURL string, logger *slog.Logger, opts ...Option) *AuthClient {
	c := &AuthClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
		userAgent:  "haulgate-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Login submits primary credentials and device context.
func (c *AuthClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.post(ctx, "login", PathLogin, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyMFA submits the OTP for the challenge identified by loginToken.
func (c *AuthClient) VerifyMFA(ctx context.Context, loginToken string, req models.VerifyMFARequest) (*models.VerifyMFAResponse, error) {
	var resp models.VerifyMFAResponse
	if err := c.post(ctx, "verify", PathVerifyMFA, loginToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendOTP asks the backend to send a fresh code.
func (c *AuthClient) ResendOTP(ctx context.Context, loginToken string, req models.ResendOTPRequest) (*models.ResendOTPResponse, error) {
	var resp models.ResendOTPResponse
	if err := c.post(ctx, "resend", PathResendOTP, loginToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AuthClient) post(ctx context.Context, op, path, loginToken string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "auth."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.route", path)))
	start := time.Now()
	outcome := "ok"

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.ObserveBackendCall(op, outcome, time.Since(start))
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		outcome = "encode_error"
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		outcome = "encode_error"
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if loginToken != "" {
		req.Header.Set(HeaderLoginToken, loginToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		c.logger.Warn("auth backend unreachable", "operation", op, "error", err)
		return fmt.Errorf("%w: %s: %w", models.ErrTransport, op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
		apiErr := pkghttp.DecodeError(resp)
		c.logger.Debug("auth backend rejected request",
			"operation", op,
			"status", resp.StatusCode,
			"error_code", apiErr.Envelope.ErrorCode)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = "decode_error"
		return fmt.Errorf("%w: decode %s response: %w", models.ErrTransport, op, err)
	}
	return nil
}
