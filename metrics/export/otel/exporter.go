package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goPortal/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// histogramInstruments observe one portal histogram as gauges: one per
// cumulative bucket, plus count and sum.
type histogramInstruments struct {
	buckets [internaldefs.BucketCount]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
}

// Exporter observes a portal through OpenTelemetry asynchronous instruments.
// One callback reads a single snapshot per collection cycle.
type Exporter struct {
	source       internaldefs.Source
	registration metric.Registration

	counters   map[string]metric.Int64ObservableCounter
	histograms map[string]*histogramInstruments
}

// New creates every instrument on meter and registers the collection
// callback. Close unregisters it.
func New(meter metric.Meter, source internaldefs.Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:     source,
		counters:   make(map[string]metric.Int64ObservableCounter),
		histograms: make(map[string]*histogramInstruments),
	}

	var observables []metric.Observable
	counterDefs := append(append([]internaldefs.Def{}, internaldefs.CounterDefs...),
		internaldefs.AuditDelivered, internaldefs.AuditDropped, internaldefs.AuditFailed)
	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.Name] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, obs, err := newHistogramInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms[def.Name] = h
		observables = append(observables, obs...)
	}

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newHistogramInstruments(meter metric.Meter, def internaldefs.Def) (*histogramInstruments, []metric.Observable, error) {
	h := &histogramInstruments{}
	obs := make([]metric.Observable, 0, internaldefs.BucketCount+2)

	for i, suffix := range internaldefs.BucketSuffixes {
		name := def.Name + "_bucket_le_" + suffix
		g, err := meter.Int64ObservableGauge(name,
			metric.WithDescription(def.Help+" Cumulative count at or below "+internaldefs.BucketBounds[i]+"s."))
		if err != nil {
			return nil, nil, fmt.Errorf("gauge %s: %w", name, err)
		}
		h.buckets[i] = g
		obs = append(obs, g)
	}

	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return nil, nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	sum, err := meter.Float64ObservableGauge(def.Name+"_sum",
		metric.WithDescription(def.Help+" Sum of samples."), metric.WithUnit("s"))
	if err != nil {
		return nil, nil, fmt.Errorf("gauge %s_sum: %w", def.Name, err)
	}
	h.count, h.sum = count, sum
	return h, append(obs, count, sum), nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	for _, f := range internaldefs.Collect(e.source) {
		switch f.Kind {
		case internaldefs.KindCounter:
			if ins, ok := e.counters[f.Name]; ok {
				o.ObserveInt64(ins, int64(f.Value))
			}
		case internaldefs.KindHistogram:
			h, ok := e.histograms[f.Name]
			if !ok {
				continue
			}
			for i, v := range f.Buckets {
				o.ObserveInt64(h.buckets[i], int64(v))
			}
			o.ObserveInt64(h.count, int64(f.Count()))
			o.ObserveFloat64(h.sum, f.Sum)
		}
	}
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
