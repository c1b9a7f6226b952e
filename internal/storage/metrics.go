package storage

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/folio/internal/apperr"
)

// Metrics holds the collectors recorded for backend calls.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates storage collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "folio", Subsystem: "storage", Name: "operations_total", Help: "Backend calls by backend, operation and outcome."},
			[]string{"backend", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: "folio", Subsystem: "storage", Name: "operation_duration_seconds", Help: "Backend call latency.", Buckets: prometheus.DefBuckets},
			[]string{"backend", "op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.duration)
	}
	return m
}

func (m *Metrics) observe(backend, op string, start time.Time, err error) {
	m.duration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	m.ops.WithLabelValues(backend, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	case errors.Is(err, apperr.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Instrument wraps b so every call is counted and timed. If b is a Mover
// the returned Backend is one too.
func Instrument(b Backend, m *Metrics) Backend {
	if m == nil {
		return b
	}
	ib := &instrumented{next: b, m: m}
	if mv, ok := b.(Mover); ok {
		return &instrumentedMover{instrumented: ib, mover: mv}
	}
	return ib
}

type instrumented struct {
	next Backend
	m    *Metrics
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	out, err := i.next.List(ctx)
	i.m.observe(i.next.Name(), "list", start, err)
	return out, err
}

func (i *instrumented) Read(ctx context.Context, slug string) ([]byte, error) {
	start := time.Now()
	data, err := i.next.Read(ctx, slug)
	i.m.observe(i.next.Name(), "read", start, err)
	return data, err
}

func (i *instrumented) Write(ctx context.Context, slug string, data []byte) error {
	start := time.Now()
	err := i.next.Write(ctx, slug, data)
	i.m.observe(i.next.Name(), "write", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, slug string) error {
	start := time.Now()
	err := i.next.Delete(ctx, slug)
	i.m.observe(i.next.Name(), "delete", start, err)
	return err
}

func (i *instrumented) Exists(ctx context.Context, slug string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, slug)
	i.m.observe(i.next.Name(), "exists", start, err)
	return ok, err
}

type instrumentedMover struct {
	*instrumented
	mover Mover
}

func (i *instrumentedMover) Move(ctx context.Context, oldSlug, newSlug string, data []byte) error {
	start := time.Now()
	err := i.mover.Move(ctx, oldSlug, newSlug, data)
	i.m.observe(i.next.Name(), "move", start, err)
	return err
}
