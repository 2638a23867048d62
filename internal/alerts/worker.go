package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"certitrack/internal/audit"
	id "certitrack/pkg/domain"
)

// DefaultScanInterval is how often the worker rescans.
const DefaultScanInterval = 24 * time.Hour

// Auditor records alert deliveries on the tenant's audit trail.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Worker runs periodic expiry scans and fans notifications out per tenant.
type Worker struct {
	scanner     *Scanner
	notifier    Notifier
	auditor     Auditor
	logger      *slog.Logger
	horizonDays int
	interval    time.Duration
}

// WorkerOption configures the Worker.
type WorkerOption func(*Worker)

// WithAuditor sets an audit sink for delivered alerts.
func WithAuditor(a Auditor) WorkerOption {
	return func(w *Worker) { w.auditor = a }
}

// NewWorker constructs a Worker. Zero horizon and interval fall back to the
// defaults.
func NewWorker(scanner *Scanner, notifier Notifier, logger *slog.Logger, horizonDays int, interval time.Duration, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	w := &Worker{
		scanner:     scanner,
		notifier:    notifier,
		logger:      logger,
		horizonDays: horizonDays,
		interval:    interval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run scans immediately, then on every tick until the context ends. A failed
// scan or delivery is logged and retried on the next tick; the worker only
// stops with its context.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.scanOnce(ctx)
		}
	}
}

func (w *Worker) scanOnce(ctx context.Context) {
	grouped, err := w.scanner.Scan(ctx, time.Now().UTC(), w.horizonDays)
	if err != nil {
		w.logger.ErrorContext(ctx, "expiry scan failed", "error", err.Error())
		return
	}
	if len(grouped) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for tenantID, alerts := range grouped {
		tenantID, alerts := tenantID, alerts
		g.Go(func() error {
			if err := w.notifier.Notify(gctx, tenantID, alerts); err != nil {
				w.logger.ErrorContext(gctx, "alert delivery failed",
					"tenant_id", tenantID.String(),
					"alerts", len(alerts),
					"error", err.Error(),
				)
				// delivery failures are retried on the next scan
				return nil
			}
			w.recordDelivery(gctx, tenantID, alerts)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, alerts := range grouped {
		total += len(alerts)
	}
	w.logger.InfoContext(ctx, "expiry scan complete",
		"tenants", len(grouped),
		"alerts", total,
	)
}

func (w *Worker) recordDelivery(ctx context.Context, tenantID id.TenantID, alerts []Alert) {
	if w.auditor == nil {
		return
	}
	for _, alert := range alerts {
		event := audit.Event{
			TenantID:  tenantID,
			ActorName: "system",
			Action:    audit.ActionExpiryAlert,
			EntityID:  alert.AssetCode,
			Detail:    fmt.Sprintf("expires in %d days", alert.DaysRemaining),
		}
		if err := w.auditor.Emit(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "audit emit failed",
				"action", string(event.Action),
				"error", err.Error(),
			)
		}
	}
}
