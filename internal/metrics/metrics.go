// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the credential flows.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and the collectors incremented by handlers.
type Metrics struct {
	registry *prometheus.Registry

	LoginSuccess          prometheus.Counter
	LoginFailure          prometheus.Counter
	RefreshSuccess        prometheus.Counter
	RefreshFailure        prometheus.Counter
	ResetRequested        prometheus.Counter
	ResetCompleted        prometheus.Counter
	ResetFailed           prometheus.Counter
	VerificationCompleted prometheus.Counter
	AuthzDenied           prometheus.Counter

	requestDuration *prometheus.HistogramVec
}

// New creates a Metrics with its own registry (plus the standard Go and
// process collectors).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		LoginSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_login_success_total",
			Help: "Successful logins.",
		}),
		LoginFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_login_failure_total",
			Help: "Logins rejected with invalid credentials.",
		}),
		RefreshSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_success_total",
			Help: "Successful refresh token rotations.",
		}),
		RefreshFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_failure_total",
			Help: "Refresh attempts rejected, including replays of rotated tokens.",
		}),
		ResetRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_password_reset_requested_total",
			Help: "Password reset requests accepted (whether or not a token was issued).",
		}),
		ResetCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_password_reset_completed_total",
			Help: "Password resets redeemed successfully.",
		}),
		ResetFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_password_reset_failed_total",
			Help: "Password reset redemptions rejected.",
		}),
		VerificationCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_email_verification_completed_total",
			Help: "Email verifications redeemed successfully.",
		}),
		AuthzDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Requests denied by the authorization guard.",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route, method, and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	return m
}

// Middleware records request duration per route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}

		route := c.Route().Path
		m.requestDuration.WithLabelValues(c.Method(), route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
