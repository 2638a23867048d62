package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TestsValidated      *prometheus.CounterVec
	CertificatesIssued  prometheus.Counter
	CertificatesRevoked prometheus.Counter
	NumberingRetries    prometheus.Counter
	ExpiryAlertsEmitted prometheus.Counter
	RenderFailures      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TestsValidated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certitrack_tests_validated_total",
			Help: "Total number of test validations, labeled by verdict.",
		}, []string{"result"}),
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certitrack_certificates_issued_total",
			Help: "Total number of certificates issued.",
		}),
		CertificatesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certitrack_certificates_revoked_total",
			Help: "Total number of certificates revoked.",
		}),
		NumberingRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certitrack_numbering_conflict_retries_total",
			Help: "Total number of sequence number conflicts retried.",
		}),
		ExpiryAlertsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certitrack_expiry_alerts_emitted_total",
			Help: "Total number of certificate expiry alerts emitted.",
		}),
		RenderFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certitrack_render_failures_total",
			Help: "Total number of failed certificate document renders.",
		}),
	}
}

// IncTestValidated records a completed validation with its verdict.
func (m *Metrics) IncTestValidated(result string) {
	if m == nil {
		return
	}
	m.TestsValidated.WithLabelValues(result).Inc()
}

// IncCertificateIssued increments the issued counter by 1.
func (m *Metrics) IncCertificateIssued() {
	if m == nil {
		return
	}
	m.CertificatesIssued.Inc()
}

// IncCertificateRevoked increments the revoked counter by 1.
func (m *Metrics) IncCertificateRevoked() {
	if m == nil {
		return
	}
	m.CertificatesRevoked.Inc()
}

// IncNumberingRetry records a numbering conflict retry.
func (m *Metrics) IncNumberingRetry() {
	if m == nil {
		return
	}
	m.NumberingRetries.Inc()
}

// IncExpiryAlert records an emitted expiry alert.
func (m *Metrics) IncExpiryAlert() {
	if m == nil {
		return
	}
	m.ExpiryAlertsEmitted.Inc()
}

// IncRenderFailure records a failed document render.
func (m *Metrics) IncRenderFailure() {
	if m == nil {
		return
	}
	m.RenderFailures.Inc()
}
