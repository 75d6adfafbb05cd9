package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/authshift/authshift"
	"github.com/authshift/authshift/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authshift.MetricsSnapshot
	AuditDropped() uint64
}

// observeFn reports one instrument (or one histogram's worth of instruments)
// from a snapshot taken at collection time.
type observeFn func(metric.Observer, authshift.MetricsSnapshot, uint64)

// OTelExporter bridges the engine's pull-style snapshot into OpenTelemetry
// observable instruments. All instruments share one registered callback, so
// every collection sees a single consistent snapshot.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	observers    []observeFn
	instruments  []metric.Observable
}

func NewOTelExporter(meter metric.Meter, engine *authshift.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		id := def.ID
		e.add(ins, func(obs metric.Observer, snap authshift.MetricsSnapshot, _ uint64) {
			obs.ObserveInt64(ins, int64(snap.Counters[id]))
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets := make([]metric.Int64ObservableGauge, len(internaldefs.HistogramBoundSuffix))
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			buckets[i] = ins
			e.instruments = append(e.instruments, ins)
		}

		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
		}
		id := def.ID
		e.add(count, func(obs metric.Observer, snap authshift.MetricsSnapshot, _ uint64) {
			cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
			for i := range buckets {
				obs.ObserveInt64(buckets[i], int64(cumulative[i]))
			}
			obs.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
		})
	}

	dropped, err := meter.Int64ObservableCounter(
		"authshift_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.add(dropped, func(obs metric.Observer, _ authshift.MetricsSnapshot, droppedCount uint64) {
		obs.ObserveInt64(dropped, int64(droppedCount))
	})

	registration, err := meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		snap := e.source.MetricsSnapshot()
		droppedCount := e.source.AuditDropped()
		for _, fn := range e.observers {
			fn(obs, snap, droppedCount)
		}
		return nil
	}, e.instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	e.registration = registration
	return e, nil
}

func (e *OTelExporter) add(ins metric.Observable, fn observeFn) {
	e.instruments = append(e.instruments, ins)
	e.observers = append(e.observers, fn)
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
