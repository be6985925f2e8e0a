package logger

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Audit event types emitted along the login flow
const (
	EventLoginSubmitted     = "login_submitted"
	EventChallengeIssued    = "otp_challenge_issued"
	EventOTPVerified        = "otp_verified"
	EventOTPResent          = "otp_resent"
	EventSessionEstablished = "session_established"
	EventDeviceTrusted      = "device_trusted"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string // sanitized before logging
	IPAddress     string
	UserAgent     string
	DeviceID      string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes one "audit" record per login step.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger, now: time.Now}
}

// LogAuthAttempt logs a step of the login flow. Failed steps are logged at WARN.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := al.base("auth", event.EventType)
	attrs = append(attrs, slog.Bool("success", event.Success))
	attrs = appendIfSet(attrs, "user_id", event.UserID)
	if event.Email != "" {
		attrs = append(attrs, EmailAttr(event.Email))
	}
	attrs = appendIfSet(attrs, "ip_address", event.IPAddress)
	attrs = appendIfSet(attrs, "user_agent", event.UserAgent)
	attrs = appendIfSet(attrs, "device_id", event.DeviceID)
	attrs = appendIfSet(attrs, "failure_reason", event.FailureReason)
	if len(event.Metadata) > 0 {
		attrs = append(attrs, metadataGroup(event.Metadata))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogDeviceTrust records a device being trusted until expiresAt.
func (al *AuditLogger) LogDeviceTrust(ctx context.Context, userID, deviceID string, expiresAt time.Time) {
	attrs := al.base("device", EventDeviceTrusted)
	attrs = append(attrs,
		slog.String("user_id", userID),
		slog.String("device_id", deviceID),
		slog.String("trust_expires_at", expiresAt.UTC().Format(time.RFC3339)),
	)
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

func (al *AuditLogger) base(auditType, eventType string) []slog.Attr {
	return []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}
}

func appendIfSet(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

// metadataGroup nests free-form metadata under "meta" in key order.
func metadataGroup(meta map[string]string) slog.Attr {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, slog.String(k, meta[k]))
	}
	return slog.Group("meta", args...)
}
