// Package alerts scans for certificates approaching expiry and dispatches
// notifications per tenant. Delivery is at-least-once: a rescan may renotify
// assets that are still inside the horizon.
package alerts

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"certitrack/internal/asset/models"
	"certitrack/internal/platform/metrics"
	id "certitrack/pkg/domain"
	dErrors "certitrack/pkg/domain-errors"
)

// DefaultHorizonDays is the lookahead window for expiry alerts.
const DefaultHorizonDays = 30

// Alert is one asset's expiry warning.
type Alert struct {
	AssetID       id.AssetID  `json:"asset_id"`
	AssetCode     string      `json:"asset_code"`
	AssetName     string      `json:"asset_name"`
	TenantID      id.TenantID `json:"tenant_id"`
	ExpiryDate    time.Time   `json:"expiry_date"`
	DaysRemaining int         `json:"days_remaining"`
}

// AssetSource lists assets whose certificates expire inside a window.
// Satisfied by the asset stores.
type AssetSource interface {
	ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Asset, error)
}

// Notifier delivers one tenant's batch of alerts.
type Notifier interface {
	Notify(ctx context.Context, tenantID id.TenantID, alerts []Alert) error
}

// Scanner finds certificates expiring within the horizon.
type Scanner struct {
	assets  AssetSource
	metrics *metrics.Metrics
}

// Option configures the Scanner.
type Option func(*Scanner)

// WithMetrics sets a metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// NewScanner constructs a Scanner.
func NewScanner(assets AssetSource, opts ...Option) *Scanner {
	s := &Scanner{assets: assets}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns expiry alerts grouped by tenant for certificates expiring
// between asOf and asOf+horizonDays inclusive. Already-expired certificates
// are outside the window; the asset's expired status covers those.
func (s *Scanner) Scan(ctx context.Context, asOf time.Time, horizonDays int) (map[id.TenantID][]Alert, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	from := id.Date(asOf)
	to := from.AddDate(0, 0, horizonDays)

	assets, err := s.assets.ListExpiringWithin(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "expiry scan failed")
	}

	grouped := make(map[id.TenantID][]Alert)
	for _, asset := range assets {
		if asset.CertificateExpiryDate == nil {
			continue
		}
		alert := Alert{
			AssetID:       asset.ID,
			AssetCode:     asset.AssetCode,
			AssetName:     asset.Name,
			TenantID:      asset.TenantID,
			ExpiryDate:    *asset.CertificateExpiryDate,
			DaysRemaining: id.DaysBetween(asOf, *asset.CertificateExpiryDate),
		}
		grouped[asset.TenantID] = append(grouped[asset.TenantID], alert)
		s.metrics.IncExpiryAlert()
	}
	for _, alerts := range grouped {
		sort.Slice(alerts, func(i, j int) bool {
			return alerts[i].DaysRemaining < alerts[j].DaysRemaining
		})
	}
	return grouped, nil
}

// SlogNotifier writes alerts to the structured log. The default sink until
// an email or webhook notifier is wired.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier constructs a log-based notifier.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Notify(ctx context.Context, tenantID id.TenantID, alerts []Alert) error {
	for _, alert := range alerts {
		n.logger.WarnContext(ctx, "certificate expiring soon",
			"tenant_id", tenantID.String(),
			"asset_code", alert.AssetCode,
			"asset_name", alert.AssetName,
			"expiry_date", alert.ExpiryDate.Format("2006-01-02"),
			"days_remaining", alert.DaysRemaining,
		)
	}
	return nil
}
