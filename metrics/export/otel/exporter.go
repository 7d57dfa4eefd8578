package otel

import (
	"context"
	"errors"
	"fmt"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goAuthClient.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument from a snapshot.
type observeFunc func(o metric.Observer, snap goAuthClient.MetricsSnapshot, dropped uint64)

// Exporter publishes engine metrics through observable OTel instruments.
type Exporter struct {
	registration metric.Registration
}

// NewExporter registers the instruments on meter and reads engine on every collection.
func NewExporter(meter metric.Meter, engine *goAuthClient.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var (
		instruments []metric.Observable
		observers   []observeFunc
	)

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		instruments = append(instruments, ins)
		observers = append(observers, func(o metric.Observer, snap goAuthClient.MetricsSnapshot, _ uint64) {
			o.ObserveInt64(ins, int64(snap.Counters[id]))
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		h, err := newBucketGauges(meter, def)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, h.instruments()...)
		observers = append(observers, h.observe)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	instruments = append(instruments, dropped)
	observers = append(observers, func(o metric.Observer, _ goAuthClient.MetricsSnapshot, n uint64) {
		o.ObserveInt64(dropped, int64(n))
	})

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := source.MetricsSnapshot()
		n := source.AuditDropped()
		for _, observe := range observers {
			observe(o, snap, n)
		}
		return nil
	}, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &Exporter{registration: registration}, nil
}

// bucketGauges flattens one histogram into a cumulative gauge per bucket plus a count gauge.
type bucketGauges struct {
	id      goAuthClient.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

func newBucketGauges(meter metric.Meter, def internaldefs.HistogramDef) (*bucketGauges, error) {
	h := &bucketGauges{id: def.ID}
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket count: "+def.Help))
		if err != nil {
			return nil, fmt.Errorf("create gauge %s: %w", name, err)
		}
		h.buckets[i] = g
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Sample count: "+def.Help))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s_count: %w", def.Name, err)
	}
	h.count = count
	return h, nil
}

func (h *bucketGauges) instruments() []metric.Observable {
	out := make([]metric.Observable, 0, len(h.buckets)+1)
	for _, g := range h.buckets {
		out = append(out, g)
	}
	return append(out, h.count)
}

func (h *bucketGauges) observe(o metric.Observer, snap goAuthClient.MetricsSnapshot, _ uint64) {
	raw, ok := snap.Histograms[h.id]
	if !ok {
		return
	}
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
	for i, g := range h.buckets {
		o.ObserveInt64(g, int64(cumulative[i]))
	}
	o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
