// Package numbering mints human-readable, time-bucketed sequence numbers for
// tests and certificates.
//
// Formats:
//
//	TST-YYYYMMDD-0001   (daily bucket, 4-digit sequence)
//	CERT-YYYYMM-00001   (monthly bucket, 5-digit sequence)
//
// Uniqueness rests on an atomic per-bucket counter, not on counting existing
// rows: two concurrent mints in the same bucket receive distinct sequence
// values from CounterStore.Incr. For stores that can still report uniqueness
// conflicts on insert, MintWithRetry re-derives a fresh number a bounded
// number of times.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certitrack/internal/platform/metrics"
	dErrors "certitrack/pkg/domain-errors"
	"certitrack/pkg/platform/sentinel"
)

// Kind selects the number family.
type Kind string

const (
	KindTest        Kind = "TST"
	KindCertificate Kind = "CERT"
)

// maxMintAttempts bounds conflict retries before the request fails.
const maxMintAttempts = 3

// CounterStore is an atomic per-key counter. Incr must return the
// post-increment value and be safe under concurrent access.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// Generator mints sequence numbers from a counter store.
type Generator struct {
	counters CounterStore
	metrics  *metrics.Metrics
}

// Option configures the Generator.
type Option func(*Generator)

// WithMetrics records conflict retries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator constructs a Generator.
func NewGenerator(counters CounterStore, opts ...Option) (*Generator, error) {
	if counters == nil {
		return nil, errors.New("counter store is required")
	}
	g := &Generator{counters: counters}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Next mints the next number for the kind's bucket containing at.
func (g *Generator) Next(ctx context.Context, kind Kind, at time.Time) (string, error) {
	bucket, width, err := bucketFor(kind, at)
	if err != nil {
		return "", err
	}
	seq, err := g.counters.Incr(ctx, fmt.Sprintf("%s-%s", kind, bucket))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "sequence counter unavailable")
	}
	return fmt.Sprintf("%s-%s-%0*d", kind, bucket, width, seq), nil
}

// MintWithRetry mints a number and hands it to persist. When persist reports
// sentinel.ErrConflict (the store's uniqueness constraint fired), a fresh
// number is derived and persist runs again, up to maxMintAttempts. Exhausting
// retries is fatal for the request.
func (g *Generator) MintWithRetry(ctx context.Context, kind Kind, at time.Time, persist func(number string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		number, err := g.Next(ctx, kind, at)
		if err != nil {
			return "", err
		}
		err = persist(number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", err
		}
		g.metrics.IncNumberingRetry()
		lastErr = err
	}
	return "", dErrors.Wrap(lastErr, dErrors.CodeConflict, "sequence number conflict persisted after retries")
}

func bucketFor(kind Kind, at time.Time) (bucket string, width int, err error) {
	at = at.UTC()
	switch kind {
	case KindTest:
		return at.Format("20060102"), 4, nil
	case KindCertificate:
		return at.Format("200601"), 5, nil
	default:
		return "", 0, dErrors.Newf(dErrors.CodeInvalidInput, "unknown number kind %q", kind)
	}
}
