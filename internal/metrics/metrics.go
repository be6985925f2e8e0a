package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for both sides of the login flow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Client
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	LoginOutcomes   *prometheus.CounterVec
	ChallengeEvents *prometheus.CounterVec

	// Server
	OTPIssued          prometheus.Counter
	OTPVerifications   *prometheus.CounterVec
	ResendRequests     *prometheus.CounterVec
	TrustedDeviceLogin prometheus.Counter
	CleanupRemoved     *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BackendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_client_backend_requests_total",
			Help: "Auth backend calls made by the client, labeled by operation and outcome",
		}, []string{"operation", "outcome"}),
		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "haulgate_client_backend_latency_seconds",
			Help:    "Latency of auth backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		LoginOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_client_login_outcomes_total",
			Help: "Credential submissions by outcome (session, challenge, redirect, failure, blocked)",
		}, []string{"outcome"}),
		ChallengeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_client_challenge_events_total",
			Help: "OTP screen events (verified, rejected, resent, resend_failed, hard_locked)",
		}, []string{"event"}),
		OTPIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "haulgate_otp_issued_total",
			Help: "Total number of login passcodes issued",
		}),
		OTPVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_otp_verifications_total",
			Help: "OTP verification attempts labeled by result",
		}, []string{"result"}),
		ResendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_otp_resend_requests_total",
			Help: "OTP resend requests labeled by result",
		}, []string{"result"}),
		TrustedDeviceLogin: factory.NewCounter(prometheus.CounterOpts{
			Name: "haulgate_trusted_device_logins_total",
			Help: "Logins that skipped the OTP step because the device was trusted",
		}),
		CleanupRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haulgate_cleanup_removed_total",
			Help: "Expired records removed by the cleanup job, labeled by kind",
		}, []string{"kind"}),
	}
}

// ObserveBackendCall records one client call to the auth backend.
func (m *Metrics) ObserveBackendCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(operation, outcome).Inc()
	m.BackendLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) LoginOutcome(outcome string) {
	if m == nil {
		return
	}
	m.LoginOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChallengeEvent(event string) {
	if m == nil {
		return
	}
	m.ChallengeEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) OTPIssuedInc() {
	if m == nil {
		return
	}
	m.OTPIssued.Inc()
}

func (m *Metrics) OTPVerification(result string) {
	if m == nil {
		return
	}
	m.OTPVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ResendRequest(result string) {
	if m == nil {
		return
	}
	m.ResendRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) TrustedDeviceLoginInc() {
	if m == nil {
		return
	}
	m.TrustedDeviceLogin.Inc()
}

func (m *Metrics) CleanupRemovedAdd(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CleanupRemoved.WithLabelValues(kind).Add(float64(n))
}
